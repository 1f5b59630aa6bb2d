package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports"
	"atm-gateway/internal/protocol"
	"atm-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

var (
	loginMenu = []protocol.MenuItem{
		{MenuText: protocol.SLogin, PromptText: protocol.SLoginTextCard, Action: protocol.ActLoginCardNo,
			Type: protocol.TypeSndUint32 | protocol.TypeRecvFollowup},
	}

	accountMenu = []protocol.MenuItem{
		{MenuText: protocol.SBalance, PromptText: protocol.SBalanceText, Action: protocol.ActBalance,
			Type: protocol.TypeRecvUint32},
		{MenuText: protocol.SDeposit, PromptText: protocol.SDepositText, Action: protocol.ActDeposit,
			Type: protocol.TypeSndUint32 | protocol.TypeRecvFollowup},
		{MenuText: protocol.SWithdraw, PromptText: protocol.SWithdrawText, Action: protocol.ActWithdraw,
			Type: protocol.TypeSndUint32 | protocol.TypeRecvFollowup},
		{MenuText: protocol.SLogout, PromptText: protocol.SLogoutText, Action: protocol.ActLogout},
	}

	depositFollowup = protocol.MenuItem{MenuText: protocol.SBalance, PromptText: protocol.SBalanceText,
		Action: protocol.ActBalance, Type: protocol.TypeRecvUint32}
	withdrawBalanceFollowup = protocol.MenuItem{MenuText: protocol.SNone, PromptText: protocol.SBalanceText,
		Action: protocol.ActBalance, Type: protocol.TypeRecvUint32}
	otpFollowup = protocol.MenuItem{MenuText: protocol.SNone, PromptText: protocol.SOTPText,
		Action: protocol.ActOTPWithdraw, Type: protocol.TypeSndUint32 | protocol.TypeRecvFollowup}
	pinFollowup = protocol.MenuItem{MenuText: protocol.SLogin, PromptText: protocol.SLoginTextPIN,
		Action: protocol.ActLoginPIN, Type: protocol.TypeSndUint32}
)

// SessionContext is the connection-local state of one ATM session.
type SessionContext struct {
	ID                string
	Token             *domain.SessionToken
	PendingCardNr     *int32
	PendingWithdrawal *int64
	LastTxnID         uint16
}

// Authenticated reports whether a login completed on this connection.
func (s SessionContext) Authenticated() bool {
	return s.Token != nil
}

// Session serves the request/reply loop of one connection.
type Session struct {
	state    SessionContext
	ledger   ports.LedgerService
	catalogs ports.CatalogRepository
	r        *protocol.Reader
	w        *protocol.Writer
	log      zerolog.Logger
}

// NewSession wraps conn. id tags the session in logs.
func NewSession(conn io.ReadWriter, id string, ledger ports.LedgerService, catalogs ports.CatalogRepository, log zerolog.Logger) *Session {
	return &Session{
		state:    SessionContext{ID: id},
		ledger:   ledger,
		catalogs: catalogs,
		r:        protocol.NewReader(conn),
		w:        protocol.NewWriter(conn),
		log:      log,
	}
}

// State returns a copy of the session context.
func (s *Session) State() SessionContext {
	return s.state
}

// Serve reads and answers messages until the peer disconnects (nil) or the
// session fails (framing error, protocol violation or catalog failure).
func (s *Session) Serve(ctx context.Context) error {
	for {
		mt, err := s.r.ReadType()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.dispatch(ctx, mt); err != nil {
			return err
		}
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("flush reply: %w", err)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, mt protocol.MessageType) error {
	switch mt {
	case protocol.MsgMenuRequest:
		if s.state.Authenticated() {
			return s.w.WriteMenu(accountMenu)
		}
		return s.w.WriteMenu(loginMenu)

	case protocol.MsgUpdateRequest:
		version, err := s.r.ReadUpdateRequest()
		if err != nil {
			return err
		}
		return s.handleUpdate(ctx, version)

	case protocol.MsgAction:
		a, err := s.r.ReadAction()
		if err != nil {
			return err
		}
		s.state.LastTxnID = a.TxnID
		s.log.Debug().Stringer("action", a.Code).Int32("arg", a.Arg).Uint16("txn", a.TxnID).Msg("action")
		return s.handleAction(ctx, a)

	default:
		return apperror.ErrProtocolViolation(fmt.Sprintf("unexpected message %s", mt))
	}
}

func (s *Session) handleUpdate(ctx context.Context, clientVersion int32) error {
	c, err := s.catalogs.Load(ctx)
	if err != nil {
		return apperror.ErrCatalog(err)
	}
	if clientVersion == c.Version {
		return s.w.WriteOK(0)
	}
	s.log.Debug().Int32("client_version", clientVersion).Int32("version", c.Version).Msg("sending catalog update")
	return s.w.WriteUpdate(c.Raw())
}

func (s *Session) handleAction(ctx context.Context, a protocol.Action) error {
	switch a.Code {
	case protocol.ActBalance:
		return s.balance(ctx, a)
	case protocol.ActDeposit:
		return s.deposit(ctx, a)
	case protocol.ActWithdraw:
		return s.withdraw(a)
	case protocol.ActOTPWithdraw:
		return s.otpWithdraw(ctx, a)
	case protocol.ActLoginCardNo:
		return s.loginCard(a)
	case protocol.ActLoginPIN:
		return s.loginPIN(ctx, a)
	case protocol.ActLogout:
		return s.logout(ctx, a)
	default:
		return apperror.ErrProtocolViolation(fmt.Sprintf("unrecognized action %s", a.Code))
	}
}

func (s *Session) requireToken(a protocol.Action) error {
	if !s.state.Authenticated() {
		return apperror.ErrProtocolViolation(fmt.Sprintf("%s from unauthenticated session", a.Code))
	}
	return nil
}

func (s *Session) requireNoToken(a protocol.Action) error {
	if s.state.Authenticated() {
		return apperror.ErrProtocolViolation(fmt.Sprintf("%s from authenticated session", a.Code))
	}
	return nil
}

// failText maps a ledger error to the text id sent in FAIL. An invalid token
// also ends the login on this connection.
func (s *Session) failText(err error) protocol.StringID {
	if errors.Is(err, apperror.ErrInvalidToken()) {
		s.state.Token = nil
	}
	if errors.Is(err, apperror.ErrInvalidAmount()) || errors.Is(err, apperror.ErrInsufficientFunds()) {
		return protocol.SAmountError
	}
	if code := apperror.CodeOf(err); code == "" || strings.HasPrefix(code, "SYS") {
		s.log.Error().Err(err).Msg("ledger failure")
	}
	return protocol.SErrorText
}

func (s *Session) fail(txn uint16, text protocol.StringID) error {
	return s.w.WriteFail(protocol.Fail{TxnID: txn, TextID: text})
}

func (s *Session) balance(ctx context.Context, a protocol.Action) error {
	if !s.state.Authenticated() {
		return s.fail(a.TxnID, protocol.SErrorText)
	}
	bal, err := s.ledger.Balance(ctx, s.state.Token.Value)
	if err != nil {
		return s.fail(a.TxnID, s.failText(err))
	}
	return s.w.WriteResponse(protocol.Response{TxnID: a.TxnID, Value: protocol.ClampInt32(bal)})
}

func (s *Session) deposit(ctx context.Context, a protocol.Action) error {
	if err := s.requireToken(a); err != nil {
		return err
	}

	var err error
	if derr := s.ledger.Deposit(ctx, s.state.Token.Value, int64(a.Arg)); derr != nil {
		err = s.fail(a.TxnID, s.failText(derr))
	} else {
		err = s.w.WriteOK(a.TxnID)
	}
	if err != nil {
		return err
	}
	return s.w.WriteMenuItem(depositFollowup)
}

func (s *Session) withdraw(a protocol.Action) error {
	if err := s.requireToken(a); err != nil {
		return err
	}

	if a.Arg <= 0 {
		s.state.PendingWithdrawal = nil
		if err := s.fail(a.TxnID, protocol.SAmountError); err != nil {
			return err
		}
		return s.w.WriteMenuItem(withdrawBalanceFollowup)
	}

	amount := int64(a.Arg)
	s.state.PendingWithdrawal = &amount
	if err := s.w.WriteOK(a.TxnID); err != nil {
		return err
	}
	return s.w.WriteMenuItem(otpFollowup)
}

func (s *Session) otpWithdraw(ctx context.Context, a protocol.Action) error {
	if err := s.requireToken(a); err != nil {
		return err
	}

	pending := s.state.PendingWithdrawal
	s.state.PendingWithdrawal = nil

	if err := s.settleWithdrawal(ctx, a, pending); err != nil {
		return err
	}
	return s.w.WriteMenuItem(withdrawBalanceFollowup)
}

// settleWithdrawal checks funds before the OTP. An underfunded request
// leaves the OTP unchanged.
func (s *Session) settleWithdrawal(ctx context.Context, a protocol.Action, pending *int64) error {
	if pending == nil {
		return s.fail(a.TxnID, protocol.SAmountError)
	}
	if err := s.ledger.WithdrawFunded(ctx, s.state.Token.Value, a.Arg, *pending); err != nil {
		return s.fail(a.TxnID, s.failText(err))
	}
	return s.w.WriteOK(a.TxnID)
}

func (s *Session) loginCard(a protocol.Action) error {
	if err := s.requireNoToken(a); err != nil {
		return err
	}

	card := a.Arg
	s.state.PendingCardNr = &card
	if err := s.w.WriteOK(a.TxnID); err != nil {
		return err
	}
	return s.w.WriteMenuItem(pinFollowup)
}

func (s *Session) loginPIN(ctx context.Context, a protocol.Action) error {
	if err := s.requireNoToken(a); err != nil {
		return err
	}

	card := s.state.PendingCardNr
	s.state.PendingCardNr = nil
	if card == nil {
		return s.fail(a.TxnID, protocol.SErrorText)
	}

	token, err := s.ledger.Login(ctx, *card, a.Arg)
	if err != nil {
		s.log.Info().Str("card_nr", domain.FormatCardNr(*card)).Str("reason", apperror.CodeOf(err)).Msg("login refused")
		return s.fail(a.TxnID, s.failText(err))
	}

	s.state.Token = &token
	s.log.Info().Str("card_nr", domain.FormatCardNr(*card)).Msg("login")
	return s.w.WriteOK(a.TxnID)
}

func (s *Session) logout(ctx context.Context, a protocol.Action) error {
	if !s.state.Authenticated() {
		return s.fail(a.TxnID, protocol.SErrorText)
	}

	value := s.state.Token.Value
	s.state.Token = nil
	s.state.PendingWithdrawal = nil
	if err := s.ledger.Logout(ctx, value); err != nil {
		s.log.Warn().Err(err).Msg("token revoke failed")
	}
	return s.w.WriteOK(a.TxnID)
}
