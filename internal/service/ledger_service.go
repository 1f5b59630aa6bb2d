package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports"
	"atm-gateway/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = time.Hour

var validate = validator.New()

// LedgerOptions tunes a LedgerService. Zero values select the defaults.
type LedgerOptions struct {
	TokenTTL    time.Duration
	LoginLimit  int64 // 0 disables the limiter
	LoginWindow time.Duration
	Limiter     ports.LoginLimiter // nil = no login rate limiting
	Audit       ports.AuditService // nil = no audit trail
}

var _ ports.LedgerService = (*LedgerService)(nil)

// LedgerService implements ports.LedgerService.
// mu guards accounts for every read and write, including the repository save.
type LedgerService struct {
	mu       sync.Mutex
	accounts []domain.Account

	repo   ports.AccountRepository
	tokens ports.TokenStore
	opts   LedgerOptions
	log    zerolog.Logger

	now      func() time.Time
	newToken func() (uint64, error)
}

// NewLedgerService creates a ledger with an empty account list. Call Load to
// read the accounts from repo.
func NewLedgerService(repo ports.AccountRepository, tokens ports.TokenStore, opts LedgerOptions, log zerolog.Logger) *LedgerService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	return &LedgerService{
		repo:     repo,
		tokens:   tokens,
		opts:     opts,
		log:      log,
		now:      time.Now,
		newToken: randomToken,
	}
}

func randomToken() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate token: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// Load replaces the in-memory account list with the repository contents.
func (s *LedgerService) Load(ctx context.Context) error {
	accounts, err := s.repo.Load(ctx)
	if err != nil {
		return apperror.ErrPersistence(err)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()

	s.log.Info().Int("accounts", len(accounts)).Msg("ledger loaded")
	return nil
}

// PurgeExpiredTokens drops every token that has expired.
func (s *LedgerService) PurgeExpiredTokens(ctx context.Context) error {
	n, err := s.tokens.PurgeExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("purge tokens: %w", err)
	}
	if n > 0 {
		s.log.Debug().Int("purged", n).Msg("expired session tokens removed")
	}
	return nil
}

// purge runs before every ledger operation. A failing token store only
// costs memory here, so the error is logged and the operation continues.
func (s *LedgerService) purge(ctx context.Context) {
	if err := s.PurgeExpiredTokens(ctx); err != nil {
		s.log.Warn().Err(err).Msg("token purge failed")
	}
}

// Login authenticates a card/PIN pair and issues a session token.
func (s *LedgerService) Login(ctx context.Context, cardNr, pin int32) (domain.SessionToken, error) {
	s.purge(ctx)

	card := domain.FormatCardNr(cardNr)
	if err := s.checkLoginLimit(ctx, card); err != nil {
		return domain.SessionToken{}, err
	}

	code := domain.FormatPIN(pin)
	s.mu.Lock()
	found := false
	for i := range s.accounts {
		if s.accounts[i].CardNr == card && s.accounts[i].PinCode == code {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return domain.SessionToken{}, apperror.ErrInvalidCredentials()
	}

	value, err := s.newToken()
	if err != nil {
		return domain.SessionToken{}, apperror.InternalError(err)
	}
	token := domain.SessionToken{Value: value, ExpiresAt: s.now().Add(s.opts.TokenTTL)}

	ok, err := s.tokens.Issue(ctx, token, card)
	if err != nil {
		return domain.SessionToken{}, apperror.InternalError(err)
	}
	if !ok {
		s.log.Warn().Str("card_nr", card).Msg("session token collision")
		return domain.SessionToken{}, apperror.ErrTokenCollision()
	}

	s.audit(ctx, card, domain.AuditActionLogin, 0)
	return token, nil
}

func (s *LedgerService) checkLoginLimit(ctx context.Context, card string) error {
	if s.opts.Limiter == nil || s.opts.LoginLimit <= 0 {
		return nil
	}
	allowed, err := s.opts.Limiter.Allow(ctx, "login:"+card, s.opts.LoginLimit, s.opts.LoginWindow)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter error, allowing attempt")
		return nil
	}
	if !allowed {
		return apperror.ErrRateLimitExceeded()
	}
	return nil
}

// Logout revokes a token. Unknown or expired tokens are not an error.
func (s *LedgerService) Logout(ctx context.Context, token uint64) error {
	card, err := s.tokens.Resolve(ctx, token, s.now())
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return apperror.InternalError(err)
	}
	if card != "" {
		s.audit(ctx, card, domain.AuditActionLogout, 0)
	}
	return nil
}

// Balance returns the balance of the account bound to token.
func (s *LedgerService) Balance(ctx context.Context, token uint64) (int64, error) {
	s.purge(ctx)

	card, err := s.resolve(ctx, token)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(card)
	if i < 0 {
		return 0, apperror.ErrInvalidToken()
	}
	return s.accounts[i].Balance, nil
}

// Deposit adds amount to the account bound to token.
func (s *LedgerService) Deposit(ctx context.Context, token uint64, amount int64) error {
	s.purge(ctx)

	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	card, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(card)
	if i < 0 {
		return apperror.ErrInvalidToken()
	}

	prev := s.accounts[i]
	s.accounts[i].Balance += amount
	if err := s.save(ctx); err != nil {
		s.accounts[i] = prev
		return err
	}

	s.audit(ctx, card, domain.AuditActionDeposit, amount)
	return nil
}

// Withdraw debits amount when otp matches the stored next OTP, then advances
// the OTP by two. Funds are not checked here.
func (s *LedgerService) Withdraw(ctx context.Context, token uint64, otp int32, amount int64) error {
	return s.withdraw(ctx, token, otp, amount, false)
}

// WithdrawFunded is Withdraw preceded by a funds check under the same lock.
// An underfunded request fails with ErrInsufficientFunds and leaves the OTP
// unchanged.
func (s *LedgerService) WithdrawFunded(ctx context.Context, token uint64, otp int32, amount int64) error {
	return s.withdraw(ctx, token, otp, amount, true)
}

func (s *LedgerService) withdraw(ctx context.Context, token uint64, otp int32, amount int64, checkFunds bool) error {
	s.purge(ctx)

	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	card, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(card)
	if i < 0 {
		return apperror.ErrInvalidToken()
	}
	if checkFunds && s.accounts[i].Balance < amount {
		return apperror.ErrInsufficientFunds()
	}
	if s.accounts[i].NextOTP != domain.FormatOTP(otp) {
		return apperror.ErrInvalidOTP()
	}

	prev := s.accounts[i]
	s.accounts[i].NextOTP = domain.SuccessorOTP(otp)
	s.accounts[i].Balance -= amount
	if err := s.save(ctx); err != nil {
		s.accounts[i] = prev
		return err
	}

	s.audit(ctx, card, domain.AuditActionWithdraw, amount)
	return nil
}

// CreateAccount validates and appends a new account.
func (s *LedgerService) CreateAccount(ctx context.Context, account domain.Account) error {
	if err := validateAccount(account); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(account.CardNr) >= 0 {
		return apperror.ErrDuplicateCard()
	}

	n := len(s.accounts)
	s.accounts = append(s.accounts, account)
	if err := s.save(ctx); err != nil {
		s.accounts = s.accounts[:n]
		return err
	}

	s.audit(ctx, account.CardNr, domain.AuditActionAccountCreate, account.Balance)
	return nil
}

func validateAccount(a domain.Account) error {
	checks := []struct {
		value any
		tag   string
		msg   string
	}{
		{a.Name, "required", "name is required"},
		{a.CardNr, "len=4,number", "card number must be 4 digits"},
		{a.PinCode, "len=4,number", "PIN must be 4 digits"},
		{a.NextOTP, "len=2,number", "next OTP must be 2 digits"},
		{a.Balance, "gte=0", "balance must not be negative"},
	}
	for _, c := range checks {
		if err := validate.Var(c.value, c.tag); err != nil {
			return apperror.Validation(c.msg)
		}
	}
	return nil
}

func (s *LedgerService) resolve(ctx context.Context, token uint64) (string, error) {
	card, err := s.tokens.Resolve(ctx, token, s.now())
	if err != nil {
		return "", apperror.InternalError(err)
	}
	if card == "" {
		return "", apperror.ErrInvalidToken()
	}
	return card, nil
}

// indexOf must be called with mu held.
func (s *LedgerService) indexOf(card string) int {
	for i := range s.accounts {
		if s.accounts[i].CardNr == card {
			return i
		}
	}
	return -1
}

// save must be called with mu held.
func (s *LedgerService) save(ctx context.Context) error {
	snapshot := make([]domain.Account, len(s.accounts))
	copy(snapshot, s.accounts)
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.log.Error().Err(err).Msg("ledger save failed, mutation rolled back")
		return apperror.ErrPersistence(err)
	}
	return nil
}

func (s *LedgerService) audit(ctx context.Context, card string, action domain.AuditAction, amount int64) {
	if s.opts.Audit == nil {
		return
	}
	s.opts.Audit.Log(ctx, domain.NewAuditLog(card, action, amount))
}
