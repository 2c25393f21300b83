package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/ledger"
)

const maxBodyBytes = 1_048_576 // 1 MB

var errMultipleObjects = errors.New("request body must only contain a single JSON object")

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Kind    ledger.Kind       `json:"kind,omitempty"`    // Ledger failure kind
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: newValidator(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// newValidator lets numeric tags (gt, lte, ...) apply to decimal amounts.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Error: message}

	var validationErrors validator.ValidationErrors
	if errors.As(validationErr, &validationErrors) {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErrors {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	writeJSON(w, statusCode, errorResp)
}

// StatusForKind maps a ledger failure kind to its HTTP status.
func StatusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindInvalidRecipient, ledger.KindInvalidAmount, ledger.KindInvalidReversalType:
		return http.StatusUnprocessableEntity
	case ledger.KindNegativeBalanceBlocked, ledger.KindInsufficientFunds, ledger.KindUnauthorized:
		return http.StatusForbidden
	case ledger.KindTransactionNotFound:
		return http.StatusBadRequest
	case ledger.KindNoTransactionHistory, ledger.KindAccountNotFound:
		return http.StatusNotFound
	case ledger.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// SendLedgerError writes a ledger failure as {"error", "kind"} with the mapped status.
func SendLedgerError(w http.ResponseWriter, err error) {
	var lerr *ledger.Error
	if !errors.As(err, &lerr) {
		log.Printf("[LEDGER] unexpected error: %v", err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	if lerr.Kind == ledger.KindStorageUnavailable {
		log.Printf("[LEDGER] storage unavailable: %v", lerr.Err)
	}
	writeJSON(w, StatusForKind(lerr.Kind), ErrorResponse{Error: lerr.Message, Kind: lerr.Kind})
}

// decodeJSON reads exactly one JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errMultipleObjects
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] failed to encode response: %v", err)
	}
}
