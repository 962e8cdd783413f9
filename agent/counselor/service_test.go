package counselor

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/avanse/counselor/agent/contract"
	gatewayx "github.com/avanse/counselor/agent/gateway"
	keypoolx "github.com/avanse/counselor/agent/keypool"
	leadx "github.com/avanse/counselor/agent/lead"
)

type scriptedAdapter struct {
	replies  []string
	requests []contractx.SendRequest
}

func (a *scriptedAdapter) Provider() contractx.Provider { return contractx.ProviderGemini }

func (a *scriptedAdapter) Send(ctx context.Context, req contractx.SendRequest) (contractx.SendResult, error) {
	a.requests = append(a.requests, req)
	reply := a.replies[0]
	if len(a.replies) > 1 {
		a.replies = a.replies[1:]
	}
	return contractx.SendResult{Text: reply}, nil
}

type recordingSink struct {
	rows []contractx.Row
	err  error
}

func (s *recordingSink) Upsert(ctx context.Context, row contractx.Row) error {
	s.rows = append(s.rows, row)
	return s.err
}

func newTestService(adapter *scriptedAdapter, sink *recordingSink) *Service {
	pool := keypoolx.New()
	pool.Add(contractx.ProviderGemini, "k1")
	gw := gatewayx.New(pool, []contractx.Adapter{adapter}, gatewayx.Config{})
	return New(gw, sink, contractx.ProviderGemini, "gemini-2.5-flash")
}

func TestHandleTurnMergesAndPersists(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{replies: []string{
		`{"answer":"Nice to meet you Rahul!","user_options":["Loans"],"Name":"Rahul","Country":"UK","Sentiment":"Positive"}`,
		`{"answer":"USA is a great addition.","Country":"USA"}`,
	}}
	sink := &recordingSink{}
	svc := newTestService(adapter, sink)
	session := leadx.NewSession()

	first := svc.HandleTurn(context.Background(), session, "I am Rahul, I want to study in UK")
	if first.Answer != "Nice to meet you Rahul!" {
		t.Fatalf("Answer = %q", first.Answer)
	}

	second := svc.HandleTurn(context.Background(), session, "Also considering USA")
	if second.Answer != "USA is a great addition." {
		t.Fatalf("Answer = %q", second.Answer)
	}

	if len(sink.rows) != 2 {
		t.Fatalf("sink received %d rows, want one upsert per turn", len(sink.rows))
	}

	last := sink.rows[1]
	if last.Name != "Rahul" {
		t.Fatalf("Name = %q, want accumulated across turns", last.Name)
	}
	if last.Country != "UK, USA" {
		t.Fatalf("Country = %q, want merged multi-value", last.Country)
	}
	if last.SessionID != session.ID() {
		t.Fatalf("SessionID = %q, want stable session key", last.SessionID)
	}
	if !strings.Contains(last.FullConversation, "Also considering USA") {
		t.Fatalf("FullConversation = %q", last.FullConversation)
	}
}

func TestHandleTurnHistoryIncludesCurrentMessage(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{replies: []string{`{"answer":"ok"}`}}
	svc := newTestService(adapter, &recordingSink{})
	session := leadx.NewSession()

	svc.HandleTurn(context.Background(), session, "hello there")

	if len(adapter.requests) != 1 {
		t.Fatalf("requests = %d", len(adapter.requests))
	}
	if !strings.Contains(adapter.requests[0].History, "user: hello there") {
		t.Fatalf("History = %q, want current user message included", adapter.requests[0].History)
	}
	if !strings.Contains(adapter.requests[0].SystemPrompt, "Education Counselor") {
		t.Fatalf("SystemPrompt = %q", adapter.requests[0].SystemPrompt)
	}
}

func TestHandleTurnDefaultSuggestions(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{replies: []string{`{"answer":"plain answer with no options"}`}}
	svc := newTestService(adapter, &recordingSink{})

	got := svc.HandleTurn(context.Background(), leadx.NewSession(), "hi")

	if len(got.SuggestedReplies) != len(defaultSuggestions) {
		t.Fatalf("SuggestedReplies = %#v, want defaults", got.SuggestedReplies)
	}
}

func TestHandleTurnSinkFailureDoesNotBreakConversation(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{replies: []string{`{"answer":"still here"}`}}
	sink := &recordingSink{err: context.DeadlineExceeded}
	svc := newTestService(adapter, sink)

	got := svc.HandleTurn(context.Background(), leadx.NewSession(), "hi")
	if got.Answer != "still here" {
		t.Fatalf("Answer = %q, persistence failure must stay invisible", got.Answer)
	}
}
