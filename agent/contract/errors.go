package contract

import (
	"errors"
	"fmt"
)

var (
	ErrNoCredential    = errors.New("no credential available for provider")
	ErrQuotaExhausted  = errors.New("quota exhausted across all credentials")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrValidation      = errors.New("validation failed")
)

// ProviderError is the failure shape every adapter returns. Transient is true
// only for rate-limit class failures, where retrying with a sibling credential
// on the same provider may still succeed.
type ProviderError struct {
	Provider  Provider
	Transient bool
	Message   string
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("provider %s: %s failure: %s", e.Provider, kind, e.Message)
}

// IsTransient reports whether err is a rate-limit class provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
