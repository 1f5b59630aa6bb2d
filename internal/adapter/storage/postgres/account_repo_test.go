package postgres

import (
	"context"
	"errors"
	"testing"

	"atm-gateway/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountColumns() []string {
	return []string{"name", "balance", "card_nr", "pin_code", "next_otp"}
}

func TestAccountRepo_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts ORDER BY position").
		WillReturnRows(pgxmock.NewRows(accountColumns()).
			AddRow("Alice", int64(1000), "1234", "1111", "03").
			AddRow("Bob", int64(400), "0042", "0007", "11"))

	accounts, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, domain.Account{Name: "Alice", Balance: 1000, CardNr: "1234", PinCode: "1111", NextOTP: "03"}, accounts[0])
	assert.Equal(t, "0042", accounts[1].CardNr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Load_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM accounts").WillReturnError(errors.New("relation does not exist"))

	_, err = NewAccountRepo(mock).Load(context.Background())
	assert.ErrorContains(t, err, "load accounts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	accounts := []domain.Account{
		{Name: "Alice", Balance: 500, CardNr: "1234", PinCode: "1111", NextOTP: "05"},
		{Name: "Bob", Balance: 400, CardNr: "0042", PinCode: "0007", NextOTP: "11"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("1234", 0, "Alice", int64(500), "1111", "05").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("0042", 1, "Bob", int64(400), "0007", "11").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM accounts").
		WithArgs([]string{"1234", "0042"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), accounts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Save_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("1234", 0, "Alice", int64(500), "1111", "05").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewAccountRepo(mock).Save(context.Background(), []domain.Account{
		{Name: "Alice", Balance: 500, CardNr: "1234", PinCode: "1111", NextOTP: "05"},
	})
	assert.ErrorContains(t, err, "upsert account 1234")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Save_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err = NewAccountRepo(mock).Save(context.Background(), nil)
	assert.ErrorContains(t, err, "begin save accounts")
	assert.NoError(t, mock.ExpectationsWereMet())
}
