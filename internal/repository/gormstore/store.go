package gormstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements ledger.Store with GORM. Rows are locked with SELECT ... FOR UPDATE.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unit{db: tx, now: s.now})
	})
}

type unit struct {
	db  *gorm.DB
	now func() time.Time
}

func (u *unit) Accounts() ledger.AccountStore { return &accountStore{u} }
func (u *unit) Transactions() ledger.TransactionLog { return &transactionLog{u} }

type accountStore struct{ *unit }

func (a *accountStore) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var rows []accountRow
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	accounts := make(map[int64]*models.Account, len(rows))
	for i := range rows {
		accounts[rows[i].ID] = rows[i].toModel()
	}
	return accounts, nil
}

func (a *accountStore) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	var row accountRow
	err := a.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (a *accountStore) Increment(ctx context.Context, acc *models.Account, amount decimal.Decimal) error {
	return a.save(ctx, acc, acc.Balance.Add(amount))
}

func (a *accountStore) Decrement(ctx context.Context, acc *models.Account, amount decimal.Decimal) error {
	return a.save(ctx, acc, acc.Balance.Sub(amount))
}

func (a *accountStore) save(ctx context.Context, acc *models.Account, balance decimal.Decimal) error {
	now := a.now()
	result := a.db.WithContext(ctx).
		Model(&accountRow{}).
		Where("id = ? AND version = ?", acc.ID, acc.Version).
		Updates(map[string]any{
			"balance":    balance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w for account %d", repository.ErrStaleAccount, acc.ID)
	}

	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = now
	return nil
}

type transactionLog struct{ *unit }

func (l *transactionLog) Create(ctx context.Context, t *models.Transaction) error {
	now := l.now()
	t.CreatedAt = now
	t.UpdatedAt = now

	row := newTransactionRow(t)
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	t.ID = row.ID
	return nil
}

func (l *transactionLog) FindByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return l.findOne(l.db.WithContext(ctx), id)
}

func (l *transactionLog) FindByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	return l.findOne(l.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (l *transactionLog) findOne(db *gorm.DB, id int64) (*models.Transaction, error) {
	var row transactionRow
	err := db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (l *transactionLog) FindByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	var rows []transactionRow
	err := l.db.WithContext(ctx).
		Where("payer_id = ? OR payee_id = ?", accountID, accountID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]models.Transaction, 0, len(rows))
	for i := range rows {
		history = append(history, *rows[i].toModel())
	}
	return history, nil
}

func (l *transactionLog) Update(ctx context.Context, t *models.Transaction) error {
	now := l.now()
	result := l.db.WithContext(ctx).
		Model(&transactionRow{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"status":     string(t.Status),
			"metadata":   t.Metadata,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}

var _ ledger.Store = (*Store)(nil)
