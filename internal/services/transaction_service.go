package services

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/middleware"
	"github.com/walletapi/backend/internal/models"
)

type TransactionService struct {
	engine    *ledger.Engine
	validator *ValidationHelper
}

// TransferRequest represents a transfer from the caller to another account
// @Description Transfer request structure
type TransferRequest struct {
	PayeeID  int64           `json:"payee_id" validate:"required" example:"2"`     // Receiving account
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"150.00"` // Positive, at most 2 decimal places
	Metadata models.Metadata `json:"metadata,omitempty" swaggertype:"object"`      // Free-form caller data
}

// DepositRequest represents a deposit into the caller's account
// @Description Deposit request structure
type DepositRequest struct {
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"500.00"` // Positive, at most 2 decimal places
	Metadata models.Metadata `json:"metadata,omitempty" swaggertype:"object"`      // Free-form caller data
}

// ReverseRequest carries the optional reversal reason
// @Description Reversal request structure
type ReverseRequest struct {
	Reason string `json:"reason" validate:"max=255" example:"charged twice"`
}

func NewTransactionService(engine *ledger.Engine) *TransactionService {
	return &TransactionService{
		engine:    engine,
		validator: NewValidationHelper(),
	}
}

// Transfer moves funds from the caller to another account
// @Summary Transfer funds
// @Description Debit the caller and credit the payee in one atomic step
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransferRequest true "Transfer request"
// @Success 201 {object} ledger.Receipt
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Insufficient funds or negative balance"
// @Failure 422 {object} ErrorResponse "Invalid amount or recipient"
// @Failure 503 {object} ErrorResponse
// @Router /transactions/transfer [post]
func (ts *TransactionService) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	receipt, err := ts.engine.Transfer(r.Context(), actor, req.PayeeID, req.Amount, req.Metadata)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Transfer %d completed: %d -> %d", receipt.Transaction.ID, actor.AccountID, req.PayeeID)
	writeJSON(w, http.StatusCreated, receipt)
}

// Deposit credits the caller's account
// @Summary Deposit funds
// @Description Credit the caller's account
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DepositRequest true "Deposit request"
// @Success 201 {object} ledger.Receipt
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Invalid amount"
// @Failure 503 {object} ErrorResponse
// @Router /transactions/deposit [post]
func (ts *TransactionService) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req DepositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	receipt, err := ts.engine.Deposit(r.Context(), actor, req.Amount, req.Metadata)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Deposit %d completed for account %d", receipt.Transaction.ID, actor.AccountID)
	writeJSON(w, http.StatusCreated, receipt)
}

// Reverse undoes a completed transaction
// @Summary Reverse a transaction
// @Description Invert the balance effect of a completed transaction the caller is a party to
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Param request body ReverseRequest false "Reversal reason"
// @Success 200 {object} ledger.Reversal
// @Failure 400 {object} ErrorResponse "Transaction not found or already reversed"
// @Failure 403 {object} ErrorResponse "Not a party to the transaction"
// @Failure 422 {object} ErrorResponse "Transaction type cannot be reversed"
// @Failure 503 {object} ErrorResponse
// @Router /transactions/reverse/{id} [post]
func (ts *TransactionService) Reverse(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	var req ReverseRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reversal, err := ts.engine.Reverse(r.Context(), actor, id, req.Reason)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Transaction %d reversed by account %d", id, actor.AccountID)
	writeJSON(w, http.StatusOK, reversal)
}

// Statement lists the caller's transactions
// @Summary Account statement
// @Description All transactions the caller took part in, newest first, with the current balance
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ledger.Statement
// @Failure 404 {object} ErrorResponse "No transaction history"
// @Failure 503 {object} ErrorResponse
// @Router /transactions/statement [get]
func (ts *TransactionService) Statement(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	statement, err := ts.engine.Statement(r.Context(), actor)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statement)
}

// GetTransaction returns one of the caller's transactions
// @Summary Get transaction
// @Description Fetch a transaction the caller is a party to
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /transactions/{id} [get]
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	tx, err := ts.engine.Transaction(r.Context(), actor, id)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}
