package ledger

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/models"
)

// Engine authorizes and applies every balance change.
type Engine struct {
	store     Store
	auditor   Auditor
	publisher Publisher
	now       func() time.Time
}

type Option func(*Engine)

func WithAuditor(a Auditor) Option {
	return func(e *Engine) {
		if a != nil {
			e.auditor = a
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		auditor:   nopAuditor{},
		publisher: nopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Receipt is the result of a transfer or a deposit.
type Receipt struct {
	Transaction *models.Transaction `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

// Transfer moves amount from the actor's account to payeeID.
func (e *Engine) Transfer(ctx context.Context, actor Actor, payeeID int64, amount decimal.Decimal, metadata models.Metadata) (*Receipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, e.reject(OpTransfer, actor, err)
	}
	if payeeID == actor.AccountID {
		return nil, e.reject(OpTransfer, actor, newError(KindInvalidRecipient, msgInvalidRecipient))
	}

	var receipt *Receipt
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		accounts, err := tx.Accounts().LockAccounts(ctx, actor.AccountID, payeeID)
		if err != nil {
			return err
		}

		payee, ok := accounts[payeeID]
		if !ok {
			return newError(KindInvalidRecipient, msgInvalidRecipient)
		}
		payer, ok := accounts[actor.AccountID]
		if !ok {
			return newError(KindAccountNotFound, msgAccountNotFound)
		}

		if payer.Balance.IsNegative() {
			return newError(KindNegativeBalanceBlocked, msgNegativeBalance)
		}
		if payer.Balance.LessThan(amount) {
			return newError(KindInsufficientFunds, msgInsufficientFunds)
		}

		if err := tx.Accounts().Decrement(ctx, payer, amount); err != nil {
			return err
		}
		if err := tx.Accounts().Increment(ctx, payee, amount); err != nil {
			return err
		}

		payerID := payer.ID
		record := &models.Transaction{
			PayerID:  &payerID,
			PayeeID:  payee.ID,
			Amount:   amount,
			Type:     models.TransactionTypeTransfer,
			Status:   models.TransactionStatusCompleted,
			Metadata: withRequestInfo(metadata, actor),
		}
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: record, Balance: payer.Balance}
		return nil
	})
	if err != nil {
		return nil, e.reject(OpTransfer, actor, err)
	}

	e.complete(ctx, OpTransfer, actor, receipt.Transaction)
	return receipt, nil
}

// Deposit credits amount to the actor's own account.
func (e *Engine) Deposit(ctx context.Context, actor Actor, amount decimal.Decimal, metadata models.Metadata) (*Receipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, e.reject(OpDeposit, actor, err)
	}

	var receipt *Receipt
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		accounts, err := tx.Accounts().LockAccounts(ctx, actor.AccountID)
		if err != nil {
			return err
		}
		account, ok := accounts[actor.AccountID]
		if !ok {
			return newError(KindAccountNotFound, msgAccountNotFound)
		}

		if err := tx.Accounts().Increment(ctx, account, amount); err != nil {
			return err
		}

		record := &models.Transaction{
			PayeeID:  account.ID,
			Amount:   amount,
			Type:     models.TransactionTypeDeposit,
			Status:   models.TransactionStatusCompleted,
			Metadata: withRequestInfo(metadata, actor),
		}
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: record, Balance: account.Balance}
		return nil
	})
	if err != nil {
		return nil, e.reject(OpDeposit, actor, err)
	}

	e.complete(ctx, OpDeposit, actor, receipt.Transaction)
	return receipt, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return newError(KindInvalidAmount, msgInvalidAmount)
	}
	return nil
}

// withRequestInfo copies metadata and records where the request came from.
func withRequestInfo(metadata models.Metadata, actor Actor) models.Metadata {
	out := metadata.Clone()
	if out == nil {
		out = models.Metadata{}
	}
	if _, ok := out["ip"]; !ok && actor.IP != "" {
		out["ip"] = actor.IP
	}
	if _, ok := out["user_agent"]; !ok && actor.UserAgent != "" {
		out["user_agent"] = actor.UserAgent
	}
	return out
}

func (e *Engine) reject(op Operation, actor Actor, err error) error {
	err = classify(err)
	e.auditor.LogRejected(op, actor, err)
	return err
}

func (e *Engine) complete(ctx context.Context, op Operation, actor Actor, record *models.Transaction) {
	e.auditor.LogCompleted(op, actor, record)

	event := Event{
		Operation:     op,
		TransactionID: record.ID,
		Type:          record.Type,
		PayerID:       record.PayerID,
		PayeeID:       record.PayeeID,
		Amount:        record.Amount,
		ActorID:       actor.AccountID,
		OccurredAt:    e.now(),
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.Printf("[LEDGER] Failed to publish %s event for transaction %d: %v", op, record.ID, err)
	}
}
