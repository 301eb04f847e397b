package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/models"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
)

// PayoutExport is an ISO 20022 credit transfer for one approved withdrawal
type PayoutExport struct {
	MessageID   string `json:"messageId"`
	MessageType string `json:"messageType"`
	XML         string `json:"xml"`
}

// PayoutExporter renders approved withdrawals as pacs.008 messages for the paying bank
type PayoutExporter struct {
	withdrawals *WithdrawalService
	cfg         *config.RewardsConfig
	now         func() time.Time
}

func NewPayoutExporter(withdrawals *WithdrawalService, cfg *config.RewardsConfig) *PayoutExporter {
	return &PayoutExporter{
		withdrawals: withdrawals,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Export builds the pacs.008 document for withdrawal id
func (p *PayoutExporter) Export(ctx context.Context, actor Actor, id int64) (*PayoutExport, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	w, err := p.withdrawals.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WithdrawalApproved {
		return nil, Conflict("Only approved withdrawals can be exported")
	}

	msgID := uuid.New().String()
	doc := p.CreatePacs008(w, msgID)
	out, err := ConvertToXML(doc)
	if err != nil {
		return nil, err
	}
	return &PayoutExport{MessageID: msgID, MessageType: "pacs.008.001.08", XML: out}, nil
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
func (p *PayoutExporter) CreatePacs008(w *models.Withdrawal, msgID string) *pacs_v08.FIToFICustomerCreditTransferV08 {
	created := p.now()
	settlementDate := created
	if w.ProcessedAt != nil {
		settlementDate = *w.ProcessedAt
	}
	reference := "WD-" + strconv.FormatInt(w.ID, 10)
	// pacs_v08 models amounts as float64; ledger arithmetic stays in decimal.
	amount := pacs_v08.ActiveCurrencyAndAmount{
		Ccy:   common.ActiveCurrencyCode(p.cfg.Currency),
		Value: w.Amount.InexactFloat64(),
	}
	total := amount

	return &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:             common.Max35Text(msgID),
			CreDtTm:           common.ISODateTime(created),
			NbOfTxs:           "1",
			TtlIntrBkSttlmAmt: &total,
			IntrBkSttlmDt:     (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    max35(reference),
					EndToEndId: common.Max35Text(reference),
					TxId:       max35(reference),
				},
				IntrBkSttlmAmt: amount,
				IntrBkSttlmDt:  (*common.ISODate)(&settlementDate),
				ChrgBr:         "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(p.cfg.DebtorBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: max140(p.cfg.DebtorName),
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(truncate(string(w.Method), 35)),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: max140(w.AccountDetails),
				},
			},
		},
	}
}

// ConvertToXML converts ISO20022 document to XML string
func ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func max35(s string) *common.Max35Text {
	v := common.Max35Text(truncate(s, 35))
	return &v
}

func max140(s string) *common.Max140Text {
	v := common.Max140Text(truncate(s, 140))
	return &v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
