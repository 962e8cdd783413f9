package gateway

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/avanse/counselor/agent/contract"
	keypoolx "github.com/avanse/counselor/agent/keypool"
)

type fakeAdapter struct {
	provider contractx.Provider
	results  map[string]contractx.SendResult
	errs     map[string]error
	calls    []string
}

func (f *fakeAdapter) Provider() contractx.Provider { return f.provider }

func (f *fakeAdapter) Send(ctx context.Context, req contractx.SendRequest) (contractx.SendResult, error) {
	f.calls = append(f.calls, req.Credential)
	if err, ok := f.errs[req.Credential]; ok {
		return contractx.SendResult{}, err
	}
	return f.results[req.Credential], nil
}

func transientErr(p contractx.Provider) error {
	return &contractx.ProviderError{Provider: p, Transient: true, Message: "quota exceeded"}
}

func permanentErr(p contractx.Provider) error {
	return &contractx.ProviderError{Provider: p, Transient: false, Message: "invalid api key"}
}

func poolWith(p contractx.Provider, keys ...string) *keypoolx.Pool {
	pool := keypoolx.New()
	for _, k := range keys {
		pool.Add(p, k)
	}
	return pool
}

func TestGetResponseSuccessParsesReply(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		provider: contractx.ProviderGemini,
		results: map[string]contractx.SendResult{
			"k1": {
				Text:      `{"answer":"Welcome!","user_options":["USA","UK"],"Name":"Rahul"}`,
				Citations: []contractx.Citation{{Title: "src", URL: "https://example.com"}},
			},
		},
	}
	gw := New(poolWith(contractx.ProviderGemini, "k1"), []contractx.Adapter{adapter}, Config{})

	got := gw.GetResponse(context.Background(), contractx.ProviderGemini, "", "sys", "hi", "")

	if got.Answer != "Welcome!" {
		t.Fatalf("Answer = %q", got.Answer)
	}
	if got.Fields.Name != "Rahul" {
		t.Fatalf("Fields.Name = %q, want Rahul", got.Fields.Name)
	}
	if len(got.Citations) != 1 {
		t.Fatalf("Citations = %#v, want adapter citations merged in", got.Citations)
	}
	if len(got.SuggestedReplies) != 2 {
		t.Fatalf("SuggestedReplies = %#v", got.SuggestedReplies)
	}
}

func TestGetResponseRotatesOnTransientFailure(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		provider: contractx.ProviderGemini,
		errs:     map[string]error{"k1": transientErr(contractx.ProviderGemini)},
		results: map[string]contractx.SendResult{
			"k2": {Text: `{"answer":"second key worked"}`},
		},
	}
	gw := New(poolWith(contractx.ProviderGemini, "k1", "k2"), []contractx.Adapter{adapter}, Config{MaxAttempts: 2})

	got := gw.GetResponse(context.Background(), contractx.ProviderGemini, "", "sys", "hi", "")

	if got.Answer != "second key worked" {
		t.Fatalf("Answer = %q, want reply from rotated credential", got.Answer)
	}
	if len(adapter.calls) != 2 || adapter.calls[0] != "k1" || adapter.calls[1] != "k2" {
		t.Fatalf("calls = %#v, want k1 then k2", adapter.calls)
	}
}

func TestGetResponsePermanentFailureNotRetried(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		provider: contractx.ProviderOpenAI,
		errs: map[string]error{
			"k1": permanentErr(contractx.ProviderOpenAI),
		},
	}
	gw := New(poolWith(contractx.ProviderOpenAI, "k1", "k2"), []contractx.Adapter{adapter}, Config{MaxAttempts: 2})

	got := gw.GetResponse(context.Background(), contractx.ProviderOpenAI, "", "sys", "hi", "")

	if !strings.Contains(got.Answer, "invalid api key") {
		t.Fatalf("Answer = %q, want underlying message surfaced", got.Answer)
	}
	if len(adapter.calls) != 1 {
		t.Fatalf("calls = %#v, permanent failure must not retry", adapter.calls)
	}
	if got.Fields != (contractx.LeadFields{}) {
		t.Fatalf("Fields = %#v, want empty on failure", got.Fields)
	}
}

func TestGetResponseQuotaExhaustion(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		provider: contractx.ProviderGemini,
		errs: map[string]error{
			"k1": transientErr(contractx.ProviderGemini),
			"k2": transientErr(contractx.ProviderGemini),
		},
	}
	gw := New(poolWith(contractx.ProviderGemini, "k1", "k2"), []contractx.Adapter{adapter}, Config{MaxAttempts: 2})

	got := gw.GetResponse(context.Background(), contractx.ProviderGemini, "", "sys", "hi", "")

	if !strings.Contains(got.Answer, "try another provider") {
		t.Fatalf("Answer = %q, want quota exhaustion notice", got.Answer)
	}
	if len(adapter.calls) != 2 {
		t.Fatalf("calls = %#v, want retry budget of 2", adapter.calls)
	}
}

func TestGetResponseNoCredential(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{provider: contractx.ProviderGemini}
	gw := New(keypoolx.New(), []contractx.Adapter{adapter}, Config{})

	got := gw.GetResponse(context.Background(), contractx.ProviderGemini, "", "sys", "hi", "")

	if !strings.Contains(got.Answer, "No API credential") {
		t.Fatalf("Answer = %q, want no-credential notice", got.Answer)
	}
	if len(adapter.calls) != 0 {
		t.Fatal("adapter must not be invoked without a credential")
	}
}

func TestGetResponseUnknownProvider(t *testing.T) {
	t.Parallel()

	gw := New(keypoolx.New(), nil, Config{})

	got := gw.GetResponse(context.Background(), contractx.ProviderOpenRouter, "", "sys", "hi", "")
	if !strings.Contains(got.Answer, "not configured") {
		t.Fatalf("Answer = %q", got.Answer)
	}
}

func TestGetResponseRawProseStillUsable(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		provider: contractx.ProviderGemini,
		results: map[string]contractx.SendResult{
			"k1": {Text: "I am sorry I cannot provide JSON."},
		},
	}
	gw := New(poolWith(contractx.ProviderGemini, "k1"), []contractx.Adapter{adapter}, Config{})

	got := gw.GetResponse(context.Background(), contractx.ProviderGemini, "", "sys", "hi", "")
	if got.Answer != "I am sorry I cannot provide JSON." {
		t.Fatalf("Answer = %q, want raw prose fallback", got.Answer)
	}
}
