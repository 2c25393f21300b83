package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger failure.
type Kind string

const (
	KindInvalidRecipient       Kind = "InvalidRecipient"
	KindNegativeBalanceBlocked Kind = "NegativeBalanceBlocked"
	KindInsufficientFunds      Kind = "InsufficientFunds"
	KindInvalidAmount          Kind = "InvalidAmount"
	KindTransactionNotFound    Kind = "TransactionNotFound"
	KindUnauthorized           Kind = "Unauthorized"
	KindInvalidReversalType    Kind = "InvalidReversalType"
	KindNoTransactionHistory   Kind = "NoTransactionHistory"
	KindAccountNotFound        Kind = "AccountNotFound"
	KindStorageUnavailable     Kind = "StorageUnavailable"
)

// ErrNotFound is returned by store adapters when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Error is the failure returned by every Engine operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the Kind carried by err, or "" when err is not a ledger error.
func KindOf(err error) Kind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return ""
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// classify leaves ledger errors untouched and folds everything else into StorageUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	return &Error{Kind: KindStorageUnavailable, Message: "storage unavailable", Err: err}
}

const (
	msgInvalidAmount       = "amount must be positive with at most two decimal places"
	msgInvalidRecipient    = "payee does not exist or is the payer"
	msgNegativeBalance     = "negative balance: outgoing transfers are blocked"
	msgInsufficientFunds   = "insufficient funds"
	msgTransactionNotFound = "transaction not found or not eligible for reversal"
	msgUnauthorized        = "account is not a party to this transaction"
	msgInvalidReversalType = "transaction type cannot be reversed"
	msgNoHistory           = "no transactions found for this account"
	msgAccountNotFound     = "account not found"
)
