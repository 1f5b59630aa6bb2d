package yamlfile

import (
	"context"
	"fmt"
	"os"

	"atm-gateway/internal/core/domain"

	"gopkg.in/yaml.v3"
)

// AccountStore implements ports.AccountRepository on a YAML list of accounts.
type AccountStore struct {
	path string
}

// NewAccountStore creates a store backed by the file at path.
func NewAccountStore(path string) *AccountStore {
	return &AccountStore{path: path}
}

// Load reads every account in file order.
func (s *AccountStore) Load(_ context.Context) ([]domain.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var accounts []domain.Account
	if err := yaml.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse accounts %s: %w", s.path, err)
	}
	return accounts, nil
}

// Save replaces the file with accounts.
func (s *AccountStore) Save(_ context.Context, accounts []domain.Account) error {
	if accounts == nil {
		accounts = []domain.Account{}
	}
	data, err := yaml.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	return writeAtomic(s.path, data)
}
