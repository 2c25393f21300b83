package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/models"
)

// Statement is an account's transaction history, newest first, and its current balance.
type Statement struct {
	Transactions []models.Transaction `json:"transactions"`
	Balance      decimal.Decimal      `json:"balance"`
}

func (e *Engine) Statement(ctx context.Context, actor Actor) (*Statement, error) {
	var statement *Statement
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		account, err := findAccount(ctx, tx, actor.AccountID)
		if err != nil {
			return err
		}

		history, err := tx.Transactions().FindByAccount(ctx, actor.AccountID)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return newError(KindNoTransactionHistory, msgNoHistory)
		}

		statement = &Statement{Transactions: history, Balance: account.Balance}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return statement, nil
}

// Transaction returns a single transaction the actor is a party to.
func (e *Engine) Transaction(ctx context.Context, actor Actor, id int64) (*models.Transaction, error) {
	var record *models.Transaction
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		found, err := tx.Transactions().FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return newError(KindTransactionNotFound, "transaction not found")
		}
		if err != nil {
			return err
		}
		if !found.IsParty(actor.AccountID) {
			return newError(KindUnauthorized, msgUnauthorized)
		}
		record = found
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return record, nil
}

// Balance returns the actor's current balance.
func (e *Engine) Balance(ctx context.Context, actor Actor) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		account, err := findAccount(ctx, tx, actor.AccountID)
		if err != nil {
			return err
		}
		balance = account.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, classify(err)
	}
	return balance, nil
}

func findAccount(ctx context.Context, tx Tx, id int64) (*models.Account, error) {
	account, err := tx.Accounts().FindAccount(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindAccountNotFound, msgAccountNotFound)
	}
	return account, err
}
