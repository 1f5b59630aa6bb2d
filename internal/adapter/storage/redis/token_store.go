package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atm-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// TokenStore implements ports.TokenStore on Redis. Each token is a key
// holding the card number, with the token's remaining lifetime as TTL.
type TokenStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewTokenStore creates a new Redis-backed session token table.
func NewTokenStore(client *goredis.Client) *TokenStore {
	return &TokenStore{
		client: client,
		prefix: "session:",
		now:    time.Now,
	}
}

func (s *TokenStore) key(value uint64) string {
	return s.prefix + domain.TokenKey(value)
}

// Issue stores the token with SET NX. Returns false if the key already exists.
func (s *TokenStore) Issue(ctx context.Context, token domain.SessionToken, cardNr string) (bool, error) {
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	result, err := s.client.SetArgs(ctx, s.key(token.Value), cardNr, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis issue token: %w", err)
	}
	return result == "OK", nil
}

// Resolve returns the card bound to the token. Redis drops expired keys
// itself, so now is not consulted.
func (s *TokenStore) Resolve(ctx context.Context, value uint64, _ time.Time) (string, error) {
	card, err := s.client.Get(ctx, s.key(value)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis resolve token: %w", err)
	}
	return card, nil
}

// Revoke deletes the token key.
func (s *TokenStore) Revoke(ctx context.Context, value uint64) error {
	if err := s.client.Del(ctx, s.key(value)).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: key expiry is handled by Redis.
func (s *TokenStore) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
