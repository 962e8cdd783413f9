// Package provider implements one adapter per text-generation backend.
// Adapters are stateless beyond their HTTP client; credentials arrive per
// call so the gateway can rotate keys between attempts.
package provider

import (
	"strings"

	contractx "github.com/avanse/counselor/agent/contract"
)

// classify wraps a backend failure as a ProviderError. A failure is transient
// only when it is attributable to rate limiting: a 429-class status, or the
// markers "quota" / "resource exhausted" anywhere in the message.
func classify(p contractx.Provider, statusCode int, message string) *contractx.ProviderError {
	lower := strings.ToLower(message)
	transient := statusCode == 429 ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource exhausted")

	return &contractx.ProviderError{
		Provider:  p,
		Transient: transient,
		Message:   message,
	}
}

// composeSystem appends the conversation context to the system prompt the way
// the counselor prompt expects it.
func composeSystem(req contractx.SendRequest) string {
	if strings.TrimSpace(req.History) == "" {
		return req.SystemPrompt
	}
	return req.SystemPrompt + "\n\nCONTEXT:\n" + req.History
}
