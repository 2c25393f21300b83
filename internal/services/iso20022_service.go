package services

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/walletapi/backend/internal/config"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/middleware"
	"github.com/walletapi/backend/internal/models"
)

const (
	messageTypePacs008 = "pacs.008.001.08"
	messageTypePacs002 = "pacs.002.001.08"
)

type ISO20022Service struct {
	engine   *ledger.Engine
	currency string
	bic      string
	now      func() time.Time
}

func NewISO20022Service(engine *ledger.Engine, cfg *config.LedgerConfig) *ISO20022Service {
	return &ISO20022Service{
		engine:   engine,
		currency: cfg.Currency,
		bic:      cfg.BIC,
		now:      time.Now,
	}
}

// ExportTransaction renders one of the caller's transactions as ISO 20022
// @Summary Export transaction as ISO 20022
// @Description Render a ledger transaction as pacs.008 (default) or as a pacs.002 status report
// @Tags iso20022
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Param message query string false "pacs.008 or pacs.002"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /transactions/{id}/iso20022 [get]
func (iso *ISO20022Service) ExportTransaction(w http.ResponseWriter, r *http.Request) {
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

	tx, err := iso.engine.Transaction(r.Context(), actor, id)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	var doc any
	messageType := messageTypePacs008
	switch r.URL.Query().Get("message") {
	case "", "pacs.008":
		doc = iso.CreatePacs008(tx)
	case "pacs.002":
		doc = iso.CreatePacs002(tx)
		messageType = messageTypePacs002
	default:
		SendErrorResponse(w, "Unsupported message type", http.StatusBadRequest, nil)
		return
	}

	xmlData, err := iso.ConvertToXML(doc)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "converted",
		"messageType": messageType,
		"xml":         xmlData,
	})
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
func (iso *ISO20022Service) CreatePacs008(tx *models.Transaction) *pacs_v08.FIToFICustomerCreditTransferV08 {
	creDtTm := iso.now()
	settlementDate := tx.CreatedAt
	txID := common.Max35Text(strconv.FormatInt(tx.ID, 10))
	amount := pacs_v08.ActiveCurrencyAndAmount{
		Ccy:   common.ActiveCurrencyCode(iso.currency),
		Value: tx.Amount.InexactFloat64(),
	}

	return &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:             common.Max35Text(uuid.New().String()),
			CreDtTm:           common.ISODateTime(creDtTm),
			NbOfTxs:           "1",
			TtlIntrBkSttlmAmt: &amount,
			IntrBkSttlmDt:     (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "INDA", // settled on our own books
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &txID,
					EndToEndId: txID,
					TxId:       &txID,
				},
				IntrBkSttlmAmt: amount,
				IntrBkSttlmDt:  (*common.ISODate)(&settlementDate),
				ChrgBr:         "SLEV",
				DbtrAgt:        iso.agent(),
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: partyName(debtorName(tx)),
				},
				CdtrAgt: iso.agent(),
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: partyName(accountName(tx.PayeeID)),
				},
			},
		},
	}
}

// CreatePacs002 creates a pacs.002 payment status report
func (iso *ISO20022Service) CreatePacs002(tx *models.Transaction) *pacs_v08.FIToFIPaymentStatusReportV08 {
	txID := common.Max35Text(strconv.FormatInt(tx.ID, 10))
	status := pacs_v08.ExternalPaymentTransactionStatus1Code(statusCode(tx.Status))

	return &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(uuid.New().String()),
			CreDtTm: common.ISODateTime(iso.now()),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &txID,
				OrgnlEndToEndId: &txID,
				OrgnlTxId:       &txID,
				TxSts:           &status,
			},
		},
	}
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func (iso *ISO20022Service) agent() pacs_v08.BranchAndFinancialInstitutionIdentification6 {
	bic := common.BICFIDec2014Identifier(iso.bic)
	return pacs_v08.BranchAndFinancialInstitutionIdentification6{
		FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
			BICFI: &bic,
		},
	}
}

func statusCode(status models.TransactionStatus) string {
	switch status {
	case models.TransactionStatusCompleted:
		return "ACSC"
	case models.TransactionStatusReversed:
		return "RJCT"
	default:
		return "PDNG"
	}
}

func debtorName(tx *models.Transaction) string {
	if tx.PayerID == nil {
		return "DEPOSIT"
	}
	return accountName(*tx.PayerID)
}

func accountName(id int64) string {
	return fmt.Sprintf("ACCOUNT %d", id)
}

func partyName(name string) *common.Max140Text {
	nm := common.Max140Text(name)
	return &nm
}
