package contract

import "context"

// SendRequest carries one prompt to a provider backend. Credential is injected
// per call so the gateway can rotate keys between attempts.
type SendRequest struct {
	Credential   string
	Model        string
	SystemPrompt string
	UserQuery    string
	History      string
}

// SendResult is a provider's raw reply before any normalization.
type SendResult struct {
	Text      string
	Citations []Citation
}

// Adapter speaks one backend's wire protocol. Failures must be returned as
// *ProviderError with Transient set for rate-limit class failures.
type Adapter interface {
	Provider() Provider
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Sink durably records a lead snapshot, keyed by Row.SessionID with
// update-if-exists-else-insert semantics.
type Sink interface {
	Upsert(ctx context.Context, row Row) error
}
