package client

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"atm-gateway/internal/adapter/storage/memory"
	"atm-gateway/internal/adapter/tcp"
	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports/mocks"
	"atm-gateway/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const serverDoc = `_Version: "5"
_Useful:
  change_language: "16"
English:
  "1": "Welcome to the bank"
  "2": "Balance"
  "3": "Deposit"
  "4": "Withdraw"
  "5": "Your balance:"
  "8": "Log in"
  "9": "Error"
  "11": "Log out"
  "13": "Card number?"
  "14": "PIN?"
  "16": "Change language"
`

func TestClient_AgainstSession(t *testing.T) {
	ctrl := gomock.NewController(t)

	accounts := mocks.NewMockAccountRepository(ctrl)
	accounts.EXPECT().Load(gomock.Any()).Return([]domain.Account{
		{Name: "Alice", Balance: 1000, CardNr: "1234", PinCode: "1111", NextOTP: "03"},
	}, nil)
	ledger := service.NewLedgerService(accounts, memory.NewTokenStore(), service.LedgerOptions{}, zerolog.Nop())
	require.NoError(t, ledger.Load(context.Background()))

	serverCatalogs := mocks.NewMockCatalogRepository(ctrl)
	serverCatalogs.EXPECT().Load(gomock.Any()).Return(mustParse(t, serverDoc), nil).AnyTimes()

	clientCatalogs := mocks.NewMockCatalogRepository(ctrl)
	clientCatalogs.EXPECT().Load(gomock.Any()).Return(mustParse(t, localDoc), nil)
	clientCatalogs.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	serverConn, clientConn := net.Pipe()
	served := make(chan error, 1)
	go func() {
		sess := tcp.NewSession(serverConn, "e2e", ledger, serverCatalogs, zerolog.Nop())
		served <- sess.Serve(context.Background())
		serverConn.Close()
	}()

	out := &strings.Builder{}
	c := New(context.Background(), clientConn, clientCatalogs,
		Options{Input: strings.NewReader("1 1234 1111 1"), Output: out}, zerolog.Nop())

	require.NoError(t, c.Run(context.Background()))
	clientConn.Close()

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}

	assert.Equal(t, int32(5), c.Catalog().Version)
	assert.Equal(t, uint16(3), c.TxnID())
	assert.Contains(t, out.String(), "1: Log in\n2: Change language\n")
	assert.Contains(t, out.String(), "PIN?\n")
	assert.Contains(t, out.String(), "1: Balance\n2: Deposit\n3: Withdraw\n4: Log out\n5: Change language\n")
	assert.Contains(t, out.String(), "Your balance:\n1000\n")
}
