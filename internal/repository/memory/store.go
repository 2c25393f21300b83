package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
)

// Store keeps accounts and transactions in process memory. Each row has its own
// lock; a scope holds its locks until it commits or discards.
type Store struct {
	mu           sync.Mutex
	accounts     map[int64]*models.Account
	transactions map[int64]*models.Transaction
	nextTxID     int64

	accountLocks map[int64]chan struct{}
	txLocks      map[int64]chan struct{}

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[int64]*models.Account),
		transactions: make(map[int64]*models.Transaction),
		accountLocks: make(map[int64]chan struct{}),
		txLocks:      make(map[int64]chan struct{}),
		now:          time.Now,
	}
}

// OpenAccount creates or overwrites an account with the given balance.
func (s *Store) OpenAccount(id int64, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = &models.Account{ID: id, Balance: balance, Version: 1, UpdatedAt: s.now()}
}

// Account returns a committed copy of the account.
func (s *Store) Account(id int64) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.Account{}, false
	}
	return *acc, true
}

// TransactionCount returns the number of committed transactions.
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	u := &unit{
		store:        s,
		heldAccounts: make(map[int64]chan struct{}),
		heldTxs:      make(map[int64]chan struct{}),
		accounts:     make(map[int64]*models.Account),
		transactions: make(map[int64]*models.Transaction),
	}
	defer u.release()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(u); err != nil {
		return err
	}
	u.commit()
	return nil
}

func (s *Store) lockFor(locks map[int64]chan struct{}, id int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		locks[id] = ch
	}
	return ch
}

// unit is one atomic scope. Writes are staged and applied on commit.
type unit struct {
	store *Store

	heldAccounts map[int64]chan struct{}
	heldTxs      map[int64]chan struct{}

	accounts     map[int64]*models.Account
	transactions map[int64]*models.Transaction
}

func (u *unit) Accounts() ledger.AccountStore { return (*accountStore)(u) }
func (u *unit) Transactions() ledger.TransactionLog { return (*transactionLog)(u) }

func (u *unit) acquire(ctx context.Context, locks map[int64]chan struct{}, held map[int64]chan struct{}, id int64) error {
	if _, ok := held[id]; ok {
		return nil
	}
	ch := u.store.lockFor(locks, id)
	select {
	case ch <- struct{}{}:
		held[id] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *unit) release() {
	for id, ch := range u.heldTxs {
		<-ch
		delete(u.heldTxs, id)
	}
	for id, ch := range u.heldAccounts {
		<-ch
		delete(u.heldAccounts, id)
	}
}

func (u *unit) commit() {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acc := range u.accounts {
		stored := *acc
		s.accounts[id] = &stored
	}
	for id, tx := range u.transactions {
		s.transactions[id] = tx.Clone()
	}
}

type accountStore unit

func (a *accountStore) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	u := (*unit)(a)
	sorted := uniqueSorted(ids)
	for _, id := range sorted {
		if err := u.acquire(ctx, u.store.accountLocks, u.heldAccounts, id); err != nil {
			return nil, err
		}
	}

	out := make(map[int64]*models.Account, len(sorted))
	for _, id := range sorted {
		if acc, ok := u.account(id); ok {
			out[id] = acc
		}
	}
	return out, nil
}

func (a *accountStore) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc, ok := (*unit)(a).account(id)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return acc, nil
}

func (a *accountStore) Increment(ctx context.Context, acc *models.Account, amount decimal.Decimal) error {
	return a.apply(ctx, acc, acc.Balance.Add(amount))
}

func (a *accountStore) Decrement(ctx context.Context, acc *models.Account, amount decimal.Decimal) error {
	return a.apply(ctx, acc, acc.Balance.Sub(amount))
}

func (a *accountStore) apply(ctx context.Context, acc *models.Account, balance decimal.Decimal) error {
	u := (*unit)(a)
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := u.heldAccounts[acc.ID]; !ok {
		return fmt.Errorf("account %d is not locked in this scope", acc.ID)
	}
	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = u.store.now()
	staged := *acc
	u.accounts[acc.ID] = &staged
	return nil
}

// account returns a private copy, preferring the staged version.
func (u *unit) account(id int64) (*models.Account, bool) {
	if acc, ok := u.accounts[id]; ok {
		c := *acc
		return &c, true
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	acc, ok := u.store.accounts[id]
	if !ok {
		return nil, false
	}
	c := *acc
	return &c, true
}

type transactionLog unit

func (l *transactionLog) Create(ctx context.Context, tx *models.Transaction) error {
	u := (*unit)(l)
	if err := ctx.Err(); err != nil {
		return err
	}
	s := u.store
	s.mu.Lock()
	s.nextTxID++
	tx.ID = s.nextTxID
	s.mu.Unlock()

	now := s.now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	u.transactions[tx.ID] = tx.Clone()
	return nil
}

func (l *transactionLog) FindByID(ctx context.Context, id int64) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, ok := (*unit)(l).transaction(id)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return tx, nil
}

func (l *transactionLog) FindByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	u := (*unit)(l)
	if err := u.acquire(ctx, u.store.txLocks, u.heldTxs, id); err != nil {
		return nil, err
	}
	return l.FindByID(ctx, id)
}

func (l *transactionLog) FindByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	u := (*unit)(l)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := make(map[int64]*models.Transaction)
	u.store.mu.Lock()
	for id, tx := range u.store.transactions {
		merged[id] = tx
	}
	u.store.mu.Unlock()
	for id, tx := range u.transactions {
		merged[id] = tx
	}

	var out []models.Transaction
	for _, tx := range merged {
		if tx.IsParty(accountID) {
			out = append(out, *tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (l *transactionLog) Update(ctx context.Context, tx *models.Transaction) error {
	u := (*unit)(l)
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := u.transaction(tx.ID); !ok {
		return ledger.ErrNotFound
	}
	tx.UpdatedAt = u.store.now()
	u.transactions[tx.ID] = tx.Clone()
	return nil
}

func (u *unit) transaction(id int64) (*models.Transaction, bool) {
	if tx, ok := u.transactions[id]; ok {
		return tx.Clone(), true
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	tx, ok := u.store.transactions[id]
	if !ok {
		return nil, false
	}
	return tx.Clone(), true
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ ledger.Store = (*Store)(nil)
