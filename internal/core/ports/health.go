package ports

import "context"

// HealthChecker is one dependency reported by GET /health.
type HealthChecker interface {
	Name() string
	// Ping returns nil when the ledger can use the dependency right now.
	Ping(ctx context.Context) error
}
