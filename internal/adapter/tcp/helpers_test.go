package tcp

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"atm-gateway/internal/adapter/storage/memory"
	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports"
	"atm-gateway/internal/protocol"
	"atm-gateway/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// inMemoryAccountRepo is an AccountRepository that keeps the last saved list.
type inMemoryAccountRepo struct {
	mu       sync.Mutex
	accounts []domain.Account
	saves    int
}

func newInMemoryAccountRepo(accounts ...domain.Account) *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: accounts}
}

func (r *inMemoryAccountRepo) Load(context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Account(nil), r.accounts...), nil
}

func (r *inMemoryAccountRepo) Save(_ context.Context, accounts []domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append([]domain.Account(nil), accounts...)
	r.saves++
	return nil
}

func (r *inMemoryAccountRepo) get(card string) domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.CardNr == card {
			return a
		}
	}
	return domain.Account{}
}

func (r *inMemoryAccountRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func fixtureAccounts() []domain.Account {
	return []domain.Account{
		{Name: "Alice", Balance: 1000, CardNr: "1234", PinCode: "1111", NextOTP: "03"},
		{Name: "Pat", Balance: 400, CardNr: "5678", PinCode: "2222", NextOTP: "03"},
	}
}

func newTestLedger(t *testing.T, repo ports.AccountRepository, opts service.LedgerOptions) *service.LedgerService {
	t.Helper()
	ledger := service.NewLedgerService(repo, memory.NewTokenStore(), opts, zerolog.Nop())
	require.NoError(t, ledger.Load(context.Background()))
	return ledger
}

// harness drives one Session over net.Pipe from the client side.
type harness struct {
	t      *testing.T
	conn   net.Conn
	sess   *Session
	r      *protocol.Reader
	w      *protocol.Writer
	done   chan error
	repo   *inMemoryAccountRepo
	ledger *service.LedgerService
}

func newHarness(t *testing.T, catalogs ports.CatalogRepository, opts service.LedgerOptions) *harness {
	t.Helper()
	repo := newInMemoryAccountRepo(fixtureAccounts()...)
	ledger := newTestLedger(t, repo, opts)

	serverConn, clientConn := net.Pipe()
	sess := NewSession(serverConn, "test", ledger, catalogs, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		err := sess.Serve(context.Background())
		serverConn.Close()
		done <- err
	}()
	t.Cleanup(func() { clientConn.Close() })

	return &harness{
		t:      t,
		conn:   clientConn,
		sess:   sess,
		r:      protocol.NewReader(clientConn),
		w:      protocol.NewWriter(clientConn),
		done:   done,
		repo:   repo,
		ledger: ledger,
	}
}

func (h *harness) send(write func(w *protocol.Writer) error) {
	h.t.Helper()
	require.NoError(h.t, write(h.w))
	require.NoError(h.t, h.w.Flush())
}

func (h *harness) action(code protocol.ActionCode, arg int32, txn uint16) {
	h.t.Helper()
	h.send(func(w *protocol.Writer) error {
		return w.WriteAction(protocol.Action{Code: code, Arg: arg, TxnID: txn})
	})
}

func (h *harness) expectOK(txn uint16) {
	h.t.Helper()
	_, err := h.r.Expect(protocol.MsgOK)
	require.NoError(h.t, err)
	got, err := h.r.ReadOK()
	require.NoError(h.t, err)
	require.Equal(h.t, txn, got)
}

func (h *harness) expectFail(txn uint16, text protocol.StringID) {
	h.t.Helper()
	_, err := h.r.Expect(protocol.MsgFail)
	require.NoError(h.t, err)
	got, err := h.r.ReadFail()
	require.NoError(h.t, err)
	require.Equal(h.t, protocol.Fail{TxnID: txn, TextID: text}, got)
}

func (h *harness) expectResponse(txn uint16) int32 {
	h.t.Helper()
	_, err := h.r.Expect(protocol.MsgResponse)
	require.NoError(h.t, err)
	got, err := h.r.ReadResponse()
	require.NoError(h.t, err)
	require.Equal(h.t, txn, got.TxnID)
	return got.Value
}

func (h *harness) expectItem() protocol.MenuItem {
	h.t.Helper()
	_, err := h.r.Expect(protocol.MsgMenuItem)
	require.NoError(h.t, err)
	item, err := h.r.ReadMenuItem()
	require.NoError(h.t, err)
	return item
}

func (h *harness) menu() []protocol.MenuItem {
	h.t.Helper()
	h.send(func(w *protocol.Writer) error { return w.WriteMenuRequest() })
	_, err := h.r.Expect(protocol.MsgMenuNumItems)
	require.NoError(h.t, err)
	n, err := h.r.ReadMenuNumItems()
	require.NoError(h.t, err)

	items := make([]protocol.MenuItem, 0, n)
	for i := 0; i < int(n); i++ {
		items = append(items, h.expectItem())
	}
	return items
}

func (h *harness) login(card, pin int32) {
	h.t.Helper()
	h.action(protocol.ActLoginCardNo, card, 1)
	h.expectOK(1)
	require.Equal(h.t, pinFollowup, h.expectItem())
	h.action(protocol.ActLoginPIN, pin, 2)
	h.expectOK(2)
}

// closeAndWait hangs up and returns what Serve returned.
func (h *harness) closeAndWait() error {
	h.t.Helper()
	h.conn.Close()
	return h.wait()
}

// wait returns what Serve returned without hanging up first.
func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatal("session did not end")
		return nil
	}
}
