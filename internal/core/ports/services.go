package ports

import (
	"context"

	"atm-gateway/internal/core/domain"
)

// LedgerService owns the account list and the session-token table.
// Card numbers, PINs and OTPs arrive as wire integers and are formatted
// to their fixed widths before matching.
type LedgerService interface {
	Login(ctx context.Context, cardNr, pin int32) (domain.SessionToken, error)
	Logout(ctx context.Context, token uint64) error
	Balance(ctx context.Context, token uint64) (int64, error)
	Deposit(ctx context.Context, token uint64, amount int64) error
	// Withdraw debits amount when otp matches the account's next OTP.
	// It does not check funds.
	Withdraw(ctx context.Context, token uint64, otp int32, amount int64) error
	// WithdrawFunded checks funds, then the OTP, then debits, all under one
	// lock. Concurrent sessions on one account cannot overdraw it.
	WithdrawFunded(ctx context.Context, token uint64, otp int32, amount int64) error
	CreateAccount(ctx context.Context, account domain.Account) error
	// Load replaces the in-memory account list from the repository.
	Load(ctx context.Context) error
	PurgeExpiredTokens(ctx context.Context) error
}

// AuditService records ledger events (fire-and-forget).
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
