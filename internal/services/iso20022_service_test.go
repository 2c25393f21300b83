package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletapi/backend/internal/config"
	"github.com/walletapi/backend/internal/models"
)

func TestISO20022Service_CreatePacs008(t *testing.T) {
	_, engine := newLedger(nil)
	service := NewISO20022Service(engine, &config.LedgerConfig{Currency: "BRL", BIC: "WALLETBRXXX"})

	payer := int64(4)
	tx := &models.Transaction{
		ID:        42,
		PayerID:   &payer,
		PayeeID:   5,
		Amount:    dec("150.75"),
		Type:      models.TransactionTypeTransfer,
		Status:    models.TransactionStatusCompleted,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	doc := service.CreatePacs008(tx)
	require.Len(t, doc.CdtTrfTxInf, 1)
	assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))
	assert.Equal(t, 150.75, doc.CdtTrfTxInf[0].IntrBkSttlmAmt.Value)
	assert.Equal(t, "BRL", string(doc.CdtTrfTxInf[0].IntrBkSttlmAmt.Ccy))
	assert.Equal(t, "42", string(doc.CdtTrfTxInf[0].PmtId.EndToEndId))
	assert.Equal(t, "ACCOUNT 4", string(*doc.CdtTrfTxInf[0].Dbtr.Nm))
	assert.Equal(t, "ACCOUNT 5", string(*doc.CdtTrfTxInf[0].Cdtr.Nm))

	xmlData, err := service.ConvertToXML(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(xmlData, "<?xml"))
	assert.Contains(t, xmlData, "WALLETBRXXX")

	tx.Status = models.TransactionStatusReversed
	report := service.CreatePacs002(tx)
	require.Len(t, report.TxInfAndSts, 1)
	assert.Equal(t, "RJCT", string(*report.TxInfAndSts[0].TxSts))
}

func TestISO20022Service_ExportTransaction(t *testing.T) {
	_, engine := newLedger(map[int64]string{1: "0", 2: "0"})
	service := NewISO20022Service(engine, &config.LedgerConfig{Currency: "BRL", BIC: "WALLETBRXXX"})

	r := chi.NewRouter()
	r.Get("/transactions/{id}/iso20022", service.ExportTransaction)
	h := newTransactionRouter(engine)
	id := deposit(t, h, 1, "80.00")
	path := fmt.Sprintf("/transactions/%d/iso20022", id)

	t.Run("pacs.008 by default", func(t *testing.T) {
		w := serve(r, "GET", path, "", 1)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pacs.008.001.08", resp["messageType"])
		assert.Contains(t, resp["xml"], "DEPOSIT")
	})

	t.Run("pacs.002 status report", func(t *testing.T) {
		w := serve(r, "GET", path+"?message=pacs.002", "", 1)
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pacs.002.001.08", resp["messageType"])
		assert.Contains(t, resp["xml"], "ACSC")
	})

	t.Run("unsupported message", func(t *testing.T) {
		w := serve(r, "GET", path+"?message=camt.053", "", 1)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not a party", func(t *testing.T) {
		w := serve(r, "GET", path, "", 2)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
