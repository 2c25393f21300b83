package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/middleware"
	"github.com/walletapi/backend/internal/services"
)

type PaymentRequestHandler struct {
	service   *services.PaymentRequestService
	validator *services.ValidationHelper
}

func NewPaymentRequestHandler(service *services.PaymentRequestService) *PaymentRequestHandler {
	return &PaymentRequestHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

type createPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=140"`
}

type payPaymentRequest struct {
	Code string `json:"code" validate:"required"`
}

// Create generates a payment request QR code for the caller
// @Summary Create payment request
// @Description Create a one-shot payment request payable to the caller and render it as a QR code
// @Tags payment-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=string,description=string} true "Payment request"
// @Success 201 {object} object{paymentRequest=services.PaymentRequest,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /payment-requests [post]
func (h *PaymentRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req createPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !req.Amount.Equal(req.Amount.Round(2)) {
		services.SendErrorResponse(w, "Amount must have at most 2 decimal places", http.StatusBadRequest, nil)
		return
	}

	paymentRequest, qrImage, err := h.service.Create(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrPaymentRequestLimit) {
			services.SendErrorResponse(w, err.Error(), http.StatusTooManyRequests, nil)
			return
		}
		log.Printf("[QR] Failed to create payment request for user %d: %v", userID, err)
		services.SendErrorResponse(w, "Failed to create payment request", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":        true,
		"paymentRequest": paymentRequest,
		"qrImage":        qrImage,
	})
}

// Pay settles a scanned payment request
// @Summary Pay payment request
// @Description Consume a payment request and transfer its amount from the caller to its creator
// @Tags payment-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{code=string} true "Scanned payment request code"
// @Success 201 {object} ledger.Receipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse "Invalid or expired payment request"
// @Failure 422 {object} services.ErrorResponse
// @Router /payment-requests/pay [post]
func (h *PaymentRequestHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromRequest(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req payPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.service.Pay(r.Context(), actor, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrPaymentRequestNotFound) {
			services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
			return
		}
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(receipt)
}

func (h *PaymentRequestHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}
