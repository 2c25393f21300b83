package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository"
)

const (
	lockAccountSQL   = "SELECT id, balance, version, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE"
	updateBalanceSQL = "UPDATE accounts SET balance = \\$1, version = version \\+ 1, updated_at = \\$2 WHERE id = \\$3 AND version = \\$4"
)

var accountColumns = []string{"id", "balance", "version", "updated_at"}

var transactionColumns = []string{
	"id", "payer_id", "payee_id", "amount", "type", "status", "reversed_transaction_id", "metadata", "created_at", "updated_at",
}

func TestStore_Transfer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	engine := ledger.NewEngine(NewStore(db))
	ctx := context.Background()

	t.Run("successful transfer locks in id order", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(2, "0.00", 3, time.Now()))

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(5, "1000.00", 1, time.Now()))

		mock.ExpectExec(updateBalanceSQL).
			WithArgs("800", sqlmock.AnyArg(), 5, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec(updateBalanceSQL).
			WithArgs("200", sqlmock.AnyArg(), 2, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(5, 2, "200", "transfer", "completed", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

		mock.ExpectCommit()

		receipt, err := engine.Transfer(ctx, ledger.Actor{AccountID: 5}, 2, decimal.NewFromInt(200), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(11), receipt.Transaction.ID)
		assert.True(t, decimal.NewFromInt(800).Equal(receipt.Balance))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls back", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(2, "0.00", 1, time.Now()))

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(5, "50.00", 1, time.Now()))

		mock.ExpectRollback()

		_, err := engine.Transfer(ctx, ledger.Actor{AccountID: 5}, 2, decimal.NewFromInt(200), nil)
		assert.True(t, ledger.IsKind(err, ledger.KindInsufficientFunds))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing payee", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(5, "50.00", 1, time.Now()))

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows(accountColumns))

		mock.ExpectRollback()

		_, err := engine.Transfer(ctx, ledger.Actor{AccountID: 5}, 9, decimal.NewFromInt(1), nil)
		assert.True(t, ledger.IsKind(err, ledger.KindInvalidRecipient))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("optimistic lock failure is a storage error", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(2, "0.00", 1, time.Now()))

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(5, "100.00", 4, time.Now()))

		mock.ExpectExec(updateBalanceSQL).
			WithArgs("90", sqlmock.AnyArg(), 5, 4).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		_, err := engine.Transfer(ctx, ledger.Actor{AccountID: 5}, 2, decimal.NewFromInt(10), nil)
		assert.True(t, ledger.IsKind(err, ledger.KindStorageUnavailable))
		assert.ErrorIs(t, err, repository.ErrStaleAccount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, err := engine.Deposit(ctx, ledger.Actor{AccountID: 5}, decimal.NewFromInt(10), nil)
		assert.True(t, ledger.IsKind(err, ledger.KindStorageUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_Reverse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	engine := ledger.NewEngine(NewStore(db))
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("reverse a deposit", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id = \\$1 FOR UPDATE").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(7, nil, 3, "40.50", "deposit", "completed", nil, []byte(`{"ip":"10.0.0.1"}`), created, created))

		mock.ExpectQuery(lockAccountSQL).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(3, "100.00", 2, time.Now()))

		mock.ExpectExec(updateBalanceSQL).
			WithArgs("59.5", sqlmock.AnyArg(), 3, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("UPDATE transactions SET status = \\$1, metadata = \\$2, updated_at = \\$3 WHERE id = \\$4").
			WithArgs("reversed", sqlmock.AnyArg(), sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		reversal, err := engine.Reverse(ctx, ledger.Actor{AccountID: 3}, 7, "duplicate")
		require.NoError(t, err)
		assert.Equal(t, models.TransactionTypeDeposit, reversal.Type)
		assert.True(t, decimal.RequireFromString("59.50").Equal(reversal.Balance))
		assert.Equal(t, "10.0.0.1", reversal.Transaction.Metadata["ip"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already reversed", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT (.+) FROM transactions WHERE id = \\$1 FOR UPDATE").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(7, nil, 3, "40.50", "deposit", "reversed", nil, []byte(`{}`), created, created))

		mock.ExpectRollback()

		_, err := engine.Reverse(ctx, ledger.Actor{AccountID: 3}, 7, "")
		assert.True(t, ledger.IsKind(err, ledger.KindTransactionNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_Statement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	engine := ledger.NewEngine(NewStore(db))
	later := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance, version, updated_at FROM accounts WHERE id = \\$1").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(3, "75.00", 4, later))
	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE payer_id = \\$1 OR payee_id = \\$1 ORDER BY created_at DESC, id DESC").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(9, 3, 4, "25.00", "transfer", "completed", nil, []byte(`{}`), later, later).
			AddRow(8, nil, 3, "100.00", "deposit", "completed", nil, []byte(`{}`), earlier, earlier))
	mock.ExpectCommit()

	statement, err := engine.Statement(context.Background(), ledger.Actor{AccountID: 3})
	require.NoError(t, err)
	require.Len(t, statement.Transactions, 2)
	assert.Equal(t, int64(9), statement.Transactions[0].ID)
	require.NotNil(t, statement.Transactions[0].PayerID)
	assert.Equal(t, int64(3), *statement.Transactions[0].PayerID)
	assert.Nil(t, statement.Transactions[1].PayerID)
	assert.True(t, decimal.NewFromInt(75).Equal(statement.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}
