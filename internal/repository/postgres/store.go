package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository"
)

// Store implements ledger.Store on top of database/sql with row-level locks.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&unit{tx: tx, now: s.now}); err != nil {
		return err
	}

	return tx.Commit()
}

type unit struct {
	tx  *sql.Tx
	now func() time.Time
}

func (u *unit) Accounts() ledger.AccountStore {
	return &accountStore{tx: u.tx, now: u.now}
}

func (u *unit) Transactions() ledger.TransactionLog {
	return &transactionLog{tx: u.tx, now: u.now}
}

type accountStore struct {
	tx  *sql.Tx
	now func() time.Time
}

// LockAccounts locks in ascending id order to prevent deadlocks.
func (a *accountStore) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	accounts := make(map[int64]*models.Account, len(sorted))
	for _, id := range sorted {
		if _, ok := accounts[id]; ok {
			continue
		}
		account, err := a.lockAccount(ctx, id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts[id] = account
	}
	return accounts, nil
}

func (a *accountStore) lockAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := a.tx.QueryRowContext(ctx, `
		SELECT id, balance, version, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, id).Scan(&account.ID, &account.Balance, &account.Version, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *accountStore) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := a.tx.QueryRowContext(ctx, `
		SELECT id, balance, version, updated_at
		FROM accounts
		WHERE id = $1`, id).Scan(&account.ID, &account.Balance, &account.Version, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *accountStore) Increment(ctx context.Context, acc *models.Account, amount decimal.Decimal) error {
	return a.updateAccountBalance(ctx, acc, acc.Balance.Add(amount))
}

func (a *accountStore) Decrement(ctx context.Context, acc *models.Account, amount decimal.Decimal) error {
	return a.updateAccountBalance(ctx, acc, acc.Balance.Sub(amount))
}

func (a *accountStore) updateAccountBalance(ctx context.Context, acc *models.Account, newBalance decimal.Decimal) error {
	now := a.now()
	result, err := a.tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, now, acc.ID, acc.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w for account %d", repository.ErrStaleAccount, acc.ID)
	}

	acc.Balance = newBalance
	acc.Version++
	acc.UpdatedAt = now
	return nil
}

var _ ledger.Store = (*Store)(nil)
