package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(s string) string { return regexp.QuoteMeta(s) }

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func expectLock(mock sqlmock.Sqlmock, col, accountID string, balance int64) {
	mock.ExpectQuery(q(`SELECT id, ` + col + ` FROM accounts WHERE external_id=$1 FOR UPDATE`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", col}).AddRow(accountID, balance))
}

func TestCreditAppendsLedgerAtomically(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "playground_cents", "acc-1", 0)
	mock.ExpectQuery(q(`UPDATE accounts SET playground_cents = playground_cents + $1 WHERE id=$2 RETURNING playground_cents`)).
		WithArgs(int64(10000), "acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"playground_cents"}).AddRow(int64(10000)))
	mock.ExpectExec(q(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), "acc-1", int64(10000), KindWin, StatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	newBal, err := p.Credit(context.Background(), "user-1", BalancePlayground, 10000, KindWin, map[string]any{"bet_id": "b1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), newBal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	p, mock := newMock(t)

	_, err := p.Credit(context.Background(), "user-1", BalanceVault, 0, KindDeposit, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.Credit(context.Background(), "user-1", BalanceVault, -5, KindDeposit, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// nada chega no banco
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitInsufficientFundsLeavesNoState(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "playground_cents", "acc-1", 500)
	mock.ExpectRollback()

	_, err := p.Debit(context.Background(), "user-1", BalancePlayground, 1000, KindBet, nil)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitRejectsUnknownBalance(t *testing.T) {
	p, mock := newMock(t)

	_, err := p.Debit(context.Background(), "user-1", "savings", 1000, KindBet, nil)
	assert.ErrorIs(t, err, ErrInvalidBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferConservesTotal(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "vault_cents", "acc-1", 10000)
	mock.ExpectExec(q(`UPDATE accounts SET vault_cents = vault_cents - $1, playground_cents = playground_cents + $1 WHERE id=$2`)).
		WithArgs(int64(2500), "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// par TRANSFER_OUT / TRANSFER_IN na mesma transação de banco
	mock.ExpectExec(q(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), "acc-1", int64(-2500), KindTransferOut, StatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), "acc-1", int64(2500), KindTransferIn, StatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(`SELECT id, external_id, vault_cents, playground_cents, is_admin, created_at`)).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "vault_cents", "playground_cents", "is_admin", "created_at"}).
			AddRow("acc-1", "user-1", int64(7500), int64(2500), false, time.Now()))
	mock.ExpectCommit()

	acc, err := p.Transfer(context.Background(), "user-1", 2500, BalanceVault, BalancePlayground)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), acc.VaultCents+acc.PlaygroundCents, "transferência não cria nem destrói fundos")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferInsufficientFunds(t *testing.T) {
	// vault com 50.00, transferência de 60.00: nada muda, nenhuma transação gravada
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "vault_cents", "acc-1", 5000)
	mock.ExpectRollback()

	_, err := p.Transfer(context.Background(), "user-1", 6000, BalanceVault, BalancePlayground)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRequiresDistinctBalances(t *testing.T) {
	p, mock := newMock(t)

	_, err := p.Transfer(context.Background(), "user-1", 1000, BalanceVault, BalanceVault)
	assert.ErrorIs(t, err, ErrInvalidBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestDepositWritesPendingOnly(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "vault_cents", "acc-1", 0)
	// só a transação PENDING: nenhum UPDATE de saldo antes da aprovação
	mock.ExpectExec(q(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), "acc-1", int64(3000), KindDeposit, StatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txID, err := p.RequestDeposit(context.Background(), "user-1", 3000, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, txID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestWithdrawReservesFunds(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "vault_cents", "acc-1", 10000)
	// reserva imediata: débito do vault + PENDING na mesma transação de banco
	mock.ExpectExec(q(`UPDATE accounts SET vault_cents = vault_cents - $1 WHERE id=$2`)).
		WithArgs(int64(4000), "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), "acc-1", int64(-4000), KindWithdraw, StatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txID, err := p.RequestWithdraw(context.Background(), "user-1", 4000, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, txID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestWithdrawInsufficientFunds(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	expectLock(mock, "vault_cents", "acc-1", 1000)
	mock.ExpectRollback()

	_, err := p.RequestWithdraw(context.Background(), "user-1", 4000, nil)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveDepositCreditsVault(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT account_id, amount_cents, kind, status`)).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount_cents", "kind", "status"}).
			AddRow("acc-1", int64(3000), KindDeposit, StatusPending))
	mock.ExpectExec(q(`UPDATE accounts SET vault_cents = vault_cents + $1 WHERE id=$2`)).
		WithArgs(int64(3000), "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`UPDATE transactions SET status=$1 WHERE id=$2`)).
		WithArgs(StatusCompleted, "tx-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, p.ApproveDeposit(context.Background(), "tx-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveDepositRejectsNonPending(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT account_id, amount_cents, kind, status`)).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount_cents", "kind", "status"}).
			AddRow("acc-1", int64(3000), KindDeposit, StatusCompleted))
	mock.ExpectRollback()

	err := p.ApproveDeposit(context.Background(), "tx-1")
	assert.ErrorIs(t, err, ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithdrawalIsStatusOnly(t *testing.T) {
	// fundos já reservados no request: a conclusão nunca toca saldo de novo
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(`SELECT kind, status FROM transactions WHERE id=$1 FOR UPDATE`)).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"kind", "status"}).AddRow(KindWithdraw, StatusPending))
	mock.ExpectExec(q(`UPDATE transactions SET status=$1 WHERE id=$2`)).
		WithArgs(StatusCompleted, "tx-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, p.CompleteWithdrawal(context.Background(), "tx-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
