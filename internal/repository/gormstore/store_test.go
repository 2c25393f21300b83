package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletapi/backend/internal/ledger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestStore_Deposit(t *testing.T) {
	db, mock := newMockDB(t)
	engine := ledger.NewEngine(NewStore(db))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id IN \\(\\?\\) ORDER BY id FOR UPDATE").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
			AddRow(3, "500.00", 2, time.Now()))
	mock.ExpectExec("UPDATE `accounts` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	receipt, err := engine.Deposit(context.Background(), ledger.Actor{AccountID: 3}, decimal.NewFromInt(250), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(41), receipt.Transaction.ID)
	assert.True(t, decimal.NewFromInt(750).Equal(receipt.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_TransferLocksBothAccounts(t *testing.T) {
	db, mock := newMockDB(t)
	engine := ledger.NewEngine(NewStore(db))

	t.Run("insufficient funds rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id IN \\(\\?,\\?\\) ORDER BY id FOR UPDATE").
			WithArgs(2, 8).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(2, "0.00", 1, time.Now()).
				AddRow(8, "10.00", 1, time.Now()))
		mock.ExpectRollback()

		_, err := engine.Transfer(context.Background(), ledger.Actor{AccountID: 8}, 2, decimal.NewFromInt(11), nil)
		assert.True(t, ledger.IsKind(err, ledger.KindInsufficientFunds))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id IN \\(\\?,\\?\\) ORDER BY id FOR UPDATE").
			WithArgs(2, 8).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(2, "0.00", 1, time.Now()).
				AddRow(8, "10.00", 1, time.Now()))
		mock.ExpectExec("UPDATE `accounts` SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := engine.Transfer(context.Background(), ledger.Actor{AccountID: 8}, 2, decimal.NewFromInt(5), nil)
		assert.True(t, ledger.IsKind(err, ledger.KindStorageUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ReverseUnknownTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	engine := ledger.NewEngine(NewStore(db))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `transactions` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := engine.Reverse(context.Background(), ledger.Actor{AccountID: 1}, 77, "")
	assert.True(t, ledger.IsKind(err, ledger.KindTransactionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
