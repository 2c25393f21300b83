package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
)

func decodeEvent(t *testing.T, line string) AuditEvent {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))
	var event AuditEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "AUDIT: ")), &event))
	return event
}

func TestAuditLogger(t *testing.T) {
	fixed := time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)

	t.Run("completed transfer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewAuditLoggerTo(&buf)
		logger.now = func() time.Time { return fixed }

		payer := int64(1)
		logger.LogCompleted(ledger.OpTransfer, ledger.Actor{AccountID: 1, IP: "10.0.0.1"}, &models.Transaction{
			ID:      12,
			PayerID: &payer,
			PayeeID: 2,
			Amount:  decimal.RequireFromString("200.5"),
			Type:    models.TransactionTypeTransfer,
		})

		event := decodeEvent(t, buf.String())
		assert.Equal(t, "TRANSFER", event.EventType)
		assert.Equal(t, int64(12), event.TransactionID)
		assert.Equal(t, "200.50", event.Amount)
		assert.Equal(t, "SUCCESS", event.Status)
		assert.True(t, fixed.Equal(event.Timestamp))

		details, ok := event.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "10.0.0.1", details["ip"])
		assert.Equal(t, float64(1), details["payer_id"])
	})

	t.Run("rejected reversal", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewAuditLoggerTo(&buf)

		err := &ledger.Error{Kind: ledger.KindUnauthorized, Message: "account is not a party to this transaction"}
		logger.LogRejected(ledger.OpReverse, ledger.Actor{AccountID: 3}, err)

		event := decodeEvent(t, buf.String())
		assert.Equal(t, "REVERSAL", event.EventType)
		assert.Equal(t, "FAILED", event.Status)
		assert.Equal(t, int64(3), event.AccountID)

		details, ok := event.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Unauthorized", details["kind"])
	})
}
