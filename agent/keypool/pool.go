// Package keypool holds per-provider API credential lists with a rotation
// cursor, so the gateway can move to a sibling key when one runs out of quota.
package keypool

import (
	"strings"

	contractx "github.com/avanse/counselor/agent/contract"
)

type entry struct {
	keys []string
	idx  int
}

// Pool is in-memory credential state scoped to one session. It is refreshed
// only at construction and does no I/O.
type Pool struct {
	providers map[contractx.Provider]*entry
}

func New() *Pool {
	return &Pool{providers: make(map[contractx.Provider]*entry, 4)}
}

// FromConfig builds a pool from per-provider key lists, preserving order.
func FromConfig(keys map[contractx.Provider][]string) *Pool {
	p := New()
	for provider, list := range keys {
		for _, k := range list {
			p.Add(provider, k)
		}
	}
	return p
}

// Add inserts key into the provider's list unless an identical key is
// already present. Blank keys are ignored.
func (p *Pool) Add(provider contractx.Provider, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	e := p.providers[provider]
	if e == nil {
		e = &entry{}
		p.providers[provider] = e
	}
	for _, existing := range e.keys {
		if existing == key {
			return
		}
	}
	e.keys = append(e.keys, key)
}

// Current returns the credential at the rotation cursor, or false if the
// provider has no credentials.
func (p *Pool) Current(provider contractx.Provider) (string, bool) {
	e := p.providers[provider]
	if e == nil || len(e.keys) == 0 {
		return "", false
	}
	return e.keys[e.idx], true
}

// Rotate advances the cursor by one, wrapping around, and returns the new
// current credential. It is a no-op on an empty list.
func (p *Pool) Rotate(provider contractx.Provider) (string, bool) {
	e := p.providers[provider]
	if e == nil || len(e.keys) == 0 {
		return "", false
	}
	e.idx = (e.idx + 1) % len(e.keys)
	return e.keys[e.idx], true
}

// Len reports how many credentials are held for the provider.
func (p *Pool) Len(provider contractx.Provider) int {
	e := p.providers[provider]
	if e == nil {
		return 0
	}
	return len(e.keys)
}
