package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/models"
)

// Actor is the authenticated account an operation runs on behalf of.
type Actor struct {
	AccountID int64
	IP        string
	UserAgent string
}

// AccountStore reads and mutates account balances inside an atomic scope.
type AccountStore interface {
	// LockAccounts row-locks the given accounts in ascending id order.
	// Accounts that do not exist are absent from the returned map.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error)
	// FindAccount returns ErrNotFound when the account does not exist.
	FindAccount(ctx context.Context, id int64) (*models.Account, error)
	// Increment and Decrement persist the new balance and update acc in place.
	Increment(ctx context.Context, acc *models.Account, amount decimal.Decimal) error
	Decrement(ctx context.Context, acc *models.Account, amount decimal.Decimal) error
}

// TransactionLog stores ledger transactions. Records are never deleted.
type TransactionLog interface {
	// Create assigns ID and timestamps.
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id int64) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error)
	// FindByAccount returns transactions where the account is payer or payee, newest first.
	FindByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error)
	// Update persists status and metadata.
	Update(ctx context.Context, tx *models.Transaction) error
}

// Tx is the view of the stores bound to one atomic scope.
type Tx interface {
	Accounts() AccountStore
	Transactions() TransactionLog
}

// Store opens atomic scopes. A nil error from fn commits, anything else discards.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

type Operation string

const (
	OpTransfer Operation = "TRANSFER"
	OpDeposit  Operation = "DEPOSIT"
	OpReverse  Operation = "REVERSAL"
)

// Auditor records the outcome of every state-changing operation.
type Auditor interface {
	LogCompleted(op Operation, actor Actor, tx *models.Transaction)
	LogRejected(op Operation, actor Actor, err error)
}

// Event is emitted after a state-changing operation commits.
type Event struct {
	Operation     Operation              `json:"operation"`
	TransactionID int64                  `json:"transaction_id"`
	Type          models.TransactionType `json:"type"`
	PayerID       *int64                 `json:"payer_id"`
	PayeeID       int64                  `json:"payee_id"`
	Amount        decimal.Decimal        `json:"amount"`
	ActorID       int64                  `json:"actor_id"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type nopAuditor struct{}

func (nopAuditor) LogCompleted(Operation, Actor, *models.Transaction) {}
func (nopAuditor) LogRejected(Operation, Actor, error)                {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
