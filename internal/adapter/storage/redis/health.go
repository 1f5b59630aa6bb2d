package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const healthKey = "health:atm-server"

// HealthCheck reports Redis healthy when a short-lived key can be written.
// Token issuance needs writes, so a read-only replica counts as down.
type HealthCheck struct {
	client *goredis.Client
}

func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Name() string { return "redis" }

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Set(ctx, healthKey, time.Now().Unix(), 10*time.Second).Err(); err != nil {
		return fmt.Errorf("write %s: %w", healthKey, err)
	}
	return nil
}
