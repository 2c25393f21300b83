package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
)

func TestRedisPublisher_Publish(t *testing.T) {
	client, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(client, "")

	payer := int64(4)
	event := ledger.Event{
		Operation:     ledger.OpTransfer,
		TransactionID: 10,
		Type:          models.TransactionTypeTransfer,
		PayerID:       &payer,
		PayeeID:       5,
		Amount:        decimal.RequireFromString("12.34"),
		ActorID:       4,
		OccurredAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	t.Run("pushes the encoded event", func(t *testing.T) {
		mock.ExpectRPush(DefaultQueue, data).SetVal(1)

		err := publisher.Publish(context.Background(), event)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		mock.ExpectRPush(DefaultQueue, data).SetErr(errors.New("READONLY"))

		err := publisher.Publish(context.Background(), event)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), DefaultQueue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
