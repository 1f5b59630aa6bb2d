package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited ledger event.
type AuditAction string

const (
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionLogout        AuditAction = "LOGOUT"
	AuditActionDeposit       AuditAction = "DEPOSIT"
	AuditActionWithdraw      AuditAction = "WITHDRAW"
	AuditActionAccountCreate AuditAction = "ACCOUNT_CREATE"
)

// AuditLog records a single audited ledger event.
type AuditLog struct {
	ID        uuid.UUID   `json:"id"`
	CardNr    string      `json:"card_nr"`
	Action    AuditAction `json:"action"`
	Amount    int64       `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewAuditLog stamps a fresh entry.
func NewAuditLog(cardNr string, action AuditAction, amount int64) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		CardNr:    cardNr,
		Action:    action,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
}
