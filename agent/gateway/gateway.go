// Package gateway routes a conversational turn to one of the configured
// text-generation providers, rotating credentials on quota exhaustion and
// normalizing the raw reply into a canonical turn result.
package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/avanse/counselor/agent/contract"
	keypoolx "github.com/avanse/counselor/agent/keypool"
	parsex "github.com/avanse/counselor/agent/parse"
)

// Config bounds the retry loop. MaxAttempts counts outbound calls per turn,
// not credentials: a pool smaller than the budget is retried from the top
// after wraparound.
type Config struct {
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"2"`
}

type Gateway struct {
	pool        *keypoolx.Pool
	adapters    map[contractx.Provider]contractx.Adapter
	maxAttempts int
}

func New(pool *keypoolx.Pool, adapters []contractx.Adapter, cfg Config) *Gateway {
	byProvider := make(map[contractx.Provider]contractx.Adapter, len(adapters))
	for _, a := range adapters {
		if a != nil {
			byProvider[a.Provider()] = a
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	return &Gateway{
		pool:        pool,
		adapters:    byProvider,
		maxAttempts: maxAttempts,
	}
}

// GetResponse processes one turn against the named provider. It never
// returns an error: degraded outcomes (no credential, permanent provider
// failure, quota exhaustion) are communicated through the result's Answer
// with every other field empty, so the conversation can continue.
func (g *Gateway) GetResponse(ctx context.Context, provider contractx.Provider, model, systemPrompt, userQuery, history string) contractx.TurnResult {
	adapter, ok := g.adapters[provider]
	if !ok {
		return textOnly(fmt.Sprintf("Provider %q is not configured.", provider))
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		credential, ok := g.pool.Current(provider)
		if !ok {
			// Terminal: an empty pool cannot recover by retrying.
			return textOnly(fmt.Sprintf("No API credential is configured for provider %s.", provider))
		}

		sent, err := adapter.Send(ctx, contractx.SendRequest{
			Credential:   credential,
			Model:        model,
			SystemPrompt: systemPrompt,
			UserQuery:    userQuery,
			History:      history,
		})
		if err == nil {
			reply := parsex.Parse(sent.Text)
			return contractx.TurnResult{
				Answer:           reply.Answer,
				SuggestedReplies: reply.SuggestedReplies,
				VideoLinks:       reply.VideoLinks,
				Fields:           reply.Fields,
				Citations:        sent.Citations,
			}
		}

		if contractx.IsTransient(err) {
			// Rate limits are credential-scoped: a sibling key on the same
			// provider is often still within quota.
			log.Warn().Err(err).Str("provider", string(provider)).Int("attempt", attempt+1).Msg("rotating credential after rate limit")
			g.pool.Rotate(provider)
			continue
		}

		// Permanent failures will not self-resolve; retrying only burns quota.
		log.Error().Err(err).Str("provider", string(provider)).Msg("provider call failed")
		return textOnly(fmt.Sprintf("Connection issue: %v", err))
	}

	log.Error().Str("provider", string(provider)).Int("attempts", g.maxAttempts).Msg("quota exhausted across credentials")
	return textOnly(fmt.Sprintf("All credentials for %s are rate-limited right now. Please try another provider.", provider))
}

func textOnly(answer string) contractx.TurnResult {
	return contractx.TurnResult{Answer: answer}
}
