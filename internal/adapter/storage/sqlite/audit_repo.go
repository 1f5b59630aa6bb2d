package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"atm-gateway/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	const q = `
		INSERT INTO audit_logs (id, card_nr, action, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, q, log.ID.String(), log.CardNr, string(log.Action), log.Amount, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
