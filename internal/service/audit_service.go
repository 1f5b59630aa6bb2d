package service

import (
	"context"

	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget).
func (s *auditService) Log(ctx context.Context, entry *domain.AuditLog) {
	s.log.Info().
		Str("audit_id", entry.ID.String()).
		Str("action", string(entry.Action)).
		Str("card_nr", entry.CardNr).
		Int64("amount", entry.Amount).
		Msg("audit")

	if s.repo == nil {
		return
	}
	go func() {
		if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
		}
	}()
}
