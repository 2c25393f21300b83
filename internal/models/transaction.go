package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeReversal TransactionType = "reversal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction is one entry of the ledger. PayerID is nil for deposits.
type Transaction struct {
	ID                    int64             `json:"id" db:"id"`
	PayerID               *int64            `json:"payer_id" db:"payer_id"`
	PayeeID               int64             `json:"payee_id" db:"payee_id"`
	Amount                decimal.Decimal   `json:"amount" db:"amount"`
	Type                  TransactionType   `json:"type" db:"type"`
	Status                TransactionStatus `json:"status" db:"status"`
	ReversedTransactionID *int64            `json:"reversed_transaction_id" db:"reversed_transaction_id"`
	Metadata              Metadata          `json:"metadata" db:"metadata"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at" db:"updated_at"`
}

// IsParty reports whether the account is the payer or the payee.
func (t *Transaction) IsParty(accountID int64) bool {
	if t.PayeeID == accountID {
		return true
	}
	return t.PayerID != nil && *t.PayerID == accountID
}

// Clone returns a copy that shares no mutable state with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.PayerID != nil {
		payer := *t.PayerID
		c.PayerID = &payer
	}
	if t.ReversedTransactionID != nil {
		reversed := *t.ReversedTransactionID
		c.ReversedTransactionID = &reversed
	}
	c.Metadata = t.Metadata.Clone()
	return &c
}
