package audit

import (
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	AccountID     int64     `json:"account_id"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per ledger outcome.
type AuditLogger struct {
	logger *log.Logger
	now    func() time.Time
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: log.Default(), now: time.Now}
}

// NewAuditLoggerTo writes audit lines to w instead of the standard logger.
func NewAuditLoggerTo(w io.Writer) *AuditLogger {
	return &AuditLogger{logger: log.New(w, "", 0), now: time.Now}
}

func (a *AuditLogger) LogCompleted(op ledger.Operation, actor ledger.Actor, tx *models.Transaction) {
	details := map[string]any{
		"type":     tx.Type,
		"payee_id": tx.PayeeID,
	}
	if tx.PayerID != nil {
		details["payer_id"] = *tx.PayerID
	}
	if actor.IP != "" {
		details["ip"] = actor.IP
	}

	a.log(AuditEvent{
		Timestamp:     a.now(),
		EventType:     string(op),
		TransactionID: tx.ID,
		AccountID:     actor.AccountID,
		Amount:        tx.Amount.StringFixed(2),
		Status:        "SUCCESS",
		Details:       details,
	})
}

func (a *AuditLogger) LogRejected(op ledger.Operation, actor ledger.Actor, err error) {
	details := map[string]string{"error": err.Error()}
	if kind := ledger.KindOf(err); kind != "" {
		details["kind"] = string(kind)
	}

	a.log(AuditEvent{
		Timestamp: a.now(),
		EventType: string(op),
		AccountID: actor.AccountID,
		Status:    "FAILED",
		Details:   details,
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.logger.Printf("AUDIT: %s", string(data))
}

var _ ledger.Auditor = (*AuditLogger)(nil)
