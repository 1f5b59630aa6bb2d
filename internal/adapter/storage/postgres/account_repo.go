package postgres

import (
	"context"
	"fmt"

	"atm-gateway/internal/core/domain"
)

// AccountRepo implements ports.AccountRepository. The position column keeps
// the ledger's list order across loads.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Load returns every account ordered by position.
func (r *AccountRepo) Load(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT name, balance, card_nr, pin_code, next_otp FROM accounts ORDER BY position`

	rows, err := r.pool.Query(ctx, query)
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

// Save upserts the whole list in one transaction and drops rows that are no
// longer part of it.
func (r *AccountRepo) Save(ctx context.Context, accounts []domain.Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save accounts: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	upsert := `INSERT INTO accounts (card_nr, position, name, balance, pin_code, next_otp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (card_nr) DO UPDATE SET
			position = EXCLUDED.position, name = EXCLUDED.name, balance = EXCLUDED.balance,
			pin_code = EXCLUDED.pin_code, next_otp = EXCLUDED.next_otp`

	cards := make([]string, 0, len(accounts))
	for i, a := range accounts {
		if _, err := tx.Exec(ctx, upsert, a.CardNr, i, a.Name, a.Balance, a.PinCode, a.NextOTP); err != nil {
			return fmt.Errorf("upsert account %s: %w", a.CardNr, err)
		}
		cards = append(cards, a.CardNr)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE NOT (card_nr = ANY($1))`, cards); err != nil {
		return fmt.Errorf("prune accounts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}
