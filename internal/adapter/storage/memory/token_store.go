// Package memory holds process-local implementations of the storage ports.
package memory

import (
	"context"
	"sync"
	"time"

	"atm-gateway/internal/core/domain"
)

type entry struct {
	cardNr    string
	expiresAt time.Time
}

// TokenStore implements ports.TokenStore with a mutex-guarded map.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[uint64]entry
}

// NewTokenStore creates an empty token table.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[uint64]entry)}
}

// Issue registers token unless its value is already present.
func (s *TokenStore) Issue(_ context.Context, token domain.SessionToken, cardNr string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.tokens[token.Value]; taken {
		return false, nil
	}
	s.tokens[token.Value] = entry{cardNr: cardNr, expiresAt: token.ExpiresAt}
	return true, nil
}

// Resolve returns the card bound to a token that is still live at now.
func (s *TokenStore) Resolve(_ context.Context, value uint64, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[value]
	if !ok || !now.Before(e.expiresAt) {
		return "", nil
	}
	return e.cardNr, nil
}

// Revoke removes a token. Unknown values are ignored.
func (s *TokenStore) Revoke(_ context.Context, value uint64) error {
	s.mu.Lock()
	delete(s.tokens, value)
	s.mu.Unlock()
	return nil
}

// PurgeExpired removes every token expired at now.
func (s *TokenStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for v, e := range s.tokens {
		if !now.Before(e.expiresAt) {
			delete(s.tokens, v)
			n++
		}
	}
	return n, nil
}

// Len reports how many tokens are stored, expired ones included.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
