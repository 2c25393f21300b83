package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/models"
)

// Reversal is the result of Reverse.
type Reversal struct {
	Type        models.TransactionType `json:"type"`
	Balance     decimal.Decimal        `json:"balance"`
	Transaction *models.Transaction    `json:"transaction"`
}

// Reverse undoes a completed transaction the actor is a party to and marks it reversed.
// The original record is updated in place; no compensating record is created.
func (e *Engine) Reverse(ctx context.Context, actor Actor, transactionID int64, reason string) (*Reversal, error) {
	var result *Reversal
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		record, err := tx.Transactions().FindByIDForUpdate(ctx, transactionID)
		if errors.Is(err, ErrNotFound) {
			return newError(KindTransactionNotFound, msgTransactionNotFound)
		}
		if err != nil {
			return err
		}
		if record.Status != models.TransactionStatusCompleted {
			return newError(KindTransactionNotFound, msgTransactionNotFound)
		}
		if !record.IsParty(actor.AccountID) {
			return newError(KindUnauthorized, msgUnauthorized)
		}

		var accounts map[int64]*models.Account
		switch record.Type {
		case models.TransactionTypeTransfer:
			accounts, err = lockParties(ctx, tx, *record.PayerID, record.PayeeID)
			if err != nil {
				return err
			}
			if err := tx.Accounts().Decrement(ctx, accounts[record.PayeeID], record.Amount); err != nil {
				return err
			}
			if err := tx.Accounts().Increment(ctx, accounts[*record.PayerID], record.Amount); err != nil {
				return err
			}
		case models.TransactionTypeDeposit:
			accounts, err = lockParties(ctx, tx, record.PayeeID)
			if err != nil {
				return err
			}
			if err := tx.Accounts().Decrement(ctx, accounts[record.PayeeID], record.Amount); err != nil {
				return err
			}
		default:
			return newError(KindInvalidReversalType, msgInvalidReversalType)
		}

		record.Status = models.TransactionStatusReversed
		record.Metadata = annotateReversal(record.Metadata, actor, reason, e.now())
		if err := tx.Transactions().Update(ctx, record); err != nil {
			return err
		}

		result = &Reversal{
			Type:        record.Type,
			Balance:     accounts[actor.AccountID].Balance,
			Transaction: record,
		}
		return nil
	})
	if err != nil {
		return nil, e.reject(OpReverse, actor, err)
	}

	e.complete(ctx, OpReverse, actor, result.Transaction)
	return result, nil
}

// lockParties locks the accounts and fails if any of them is missing.
func lockParties(ctx context.Context, tx Tx, ids ...int64) (map[int64]*models.Account, error) {
	accounts, err := tx.Accounts().LockAccounts(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := accounts[id]; !ok {
			return nil, newError(KindAccountNotFound, msgAccountNotFound)
		}
	}
	return accounts, nil
}

func annotateReversal(metadata models.Metadata, actor Actor, reason string, at time.Time) models.Metadata {
	out := metadata.Clone()
	if out == nil {
		out = models.Metadata{}
	}
	info := map[string]any{
		"reason":      reason,
		"reversed_by": actor.AccountID,
		"reversed_at": at.UTC().Format(time.RFC3339),
	}
	if actor.IP != "" {
		info["ip"] = actor.IP
	}
	if actor.UserAgent != "" {
		info["user_agent"] = actor.UserAgent
	}
	out["reversal"] = info
	return out
}
