package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"atm-gateway/internal/core/domain"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Load returns every account ordered by position.
func (r *AccountRepo) Load(ctx context.Context) ([]domain.Account, error) {
	const q = `
		SELECT name, balance, card_nr, pin_code, next_otp
		FROM accounts
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.Name, &a.Balance, &a.CardNr, &a.PinCode, &a.NextOTP); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Save replaces the table contents with accounts in one transaction.
func (r *AccountRepo) Save(ctx context.Context, accounts []domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save accounts: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}

	const insert = `
		INSERT INTO accounts (card_nr, position, name, balance, pin_code, next_otp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i, a := range accounts {
		if _, err := tx.ExecContext(ctx, insert, a.CardNr, i, a.Name, a.Balance, a.PinCode, a.NextOTP); err != nil {
			return fmt.Errorf("insert account %s: %w", a.CardNr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}
