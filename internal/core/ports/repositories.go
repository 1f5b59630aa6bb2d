package ports

import (
	"context"
	"time"

	"atm-gateway/internal/catalog"
	"atm-gateway/internal/core/domain"
)

// AccountRepository persists the ordered account list as a whole.
type AccountRepository interface {
	Load(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, accounts []domain.Account) error
}

// CatalogRepository reads and writes the text catalog document.
type CatalogRepository interface {
	Load(ctx context.Context) (*catalog.Collection, error)
	Save(ctx context.Context, c *catalog.Collection) error
}

// TokenStore is the session-token table. Every method is atomic on its own.
type TokenStore interface {
	// Issue registers token for cardNr. Returns false if the value is already taken.
	Issue(ctx context.Context, token domain.SessionToken, cardNr string) (bool, error)
	// Resolve returns the card number bound to a live token, or "" if unknown or expired at now.
	Resolve(ctx context.Context, value uint64, now time.Time) (string, error)
	Revoke(ctx context.Context, value uint64) error
	// PurgeExpired drops every token expired at now and reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// LoginLimiter counts login attempts per key in fixed windows.
type LoginLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
