// Package counselor wires one conversational turn end to end: gateway call,
// reply parsing, lead accumulation, and durable persistence.
package counselor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/avanse/counselor/agent/contract"
	gatewayx "github.com/avanse/counselor/agent/gateway"
	leadx "github.com/avanse/counselor/agent/lead"
	promptx "github.com/avanse/counselor/agent/prompt"
)

// Config selects the provider and model a service routes turns to.
type Config struct {
	Provider string `envconfig:"PROVIDER" split_words:"true" default:"gemini"`
	Model    string `envconfig:"MODEL" split_words:"true"`
}

// InitialSuggestions seed the very first turn of a session.
var InitialSuggestions = []string{"USA", "UK", "Germany", "Canada"}

// defaultSuggestions replace an empty user_options list so the UI always has
// something to offer.
var defaultSuggestions = []string{"Tell me about Loans", "Visa Rules", "Top Universities"}

type Service struct {
	gateway  *gatewayx.Gateway
	sink     contractx.Sink
	provider contractx.Provider
	model    string
	now      func() time.Time
}

func New(gw *gatewayx.Gateway, sink contractx.Sink, provider contractx.Provider, model string) *Service {
	return &Service{
		gateway:  gw,
		sink:     sink,
		provider: provider,
		model:    model,
		now:      time.Now,
	}
}

// HandleTurn processes one user message to completion: the provider reply is
// normalized, extracted fields are merged into the session's profile, the
// snapshot is upserted, and the canonical result is returned. Each turn runs
// to completion before the next is accepted; persistence failures never
// interrupt the conversation.
func (s *Service) HandleTurn(ctx context.Context, session *leadx.Session, userMessage string) contractx.TurnResult {
	session.AppendMessage("user", userMessage)

	result := s.gateway.GetResponse(
		ctx,
		s.provider,
		s.model,
		promptx.Counselor(s.now()),
		userMessage,
		session.HistoryText(),
	)

	session.Merge(result.Fields)
	session.RecordInteraction(userMessage, result.Answer)

	if err := s.sink.Upsert(ctx, session.Snapshot()); err != nil {
		// Invisible to the user but never silent: the sink is expected to
		// have exhausted its local fallback before reporting an error.
		log.Error().Err(err).Str("session_id", session.ID()).Msg("lead snapshot not persisted")
	}

	session.AppendMessage("assistant", result.Answer)

	if len(result.SuggestedReplies) == 0 {
		result.SuggestedReplies = append([]string(nil), defaultSuggestions...)
	}
	return result
}
