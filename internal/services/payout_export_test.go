package services

import (
	"context"
	"strings"
	"testing"

	"github.com/adrewards/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutExporter_CreatePacs008(t *testing.T) {
	f := newFixture(t)
	exporter := NewPayoutExporter(f.withdrawals, f.cfg)

	w := &models.Withdrawal{
		ID:             12,
		UserID:         "u1",
		Amount:         decimal.RequireFromString("1500.00"),
		Method:         models.PayoutEzCash,
		AccountDetails: strings.Repeat("x", 200),
		Status:         models.WithdrawalApproved,
	}
	doc := exporter.CreatePacs008(w, "MSG-1")

	assert.Equal(t, "MSG-1", string(doc.GrpHdr.MsgId))
	assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))
	require.Len(t, doc.CdtTrfTxInf, 1)

	tx := doc.CdtTrfTxInf[0]
	assert.Equal(t, "WD-12", string(tx.PmtId.EndToEndId))
	assert.Equal(t, "LKR", string(tx.IntrBkSttlmAmt.Ccy))
	assert.Equal(t, 1500.0, tx.IntrBkSttlmAmt.Value)
	assert.Equal(t, "ADRWLKLX", string(*tx.DbtrAgt.FinInstnId.BICFI))
	assert.Equal(t, "EzCash", string(tx.CdtrAgt.FinInstnId.ClrSysMmbId.MmbId))
	assert.Len(t, string(*tx.Cdtr.Nm), 140)

	out, err := ConvertToXML(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "WD-12")
}

func TestPayoutExporter_AmountKeepsCents(t *testing.T) {
	f := newFixture(t)
	exporter := NewPayoutExporter(f.withdrawals, f.cfg)

	for _, amount := range []string{"1000.10", "1234567.89", "999999999999.99"} {
		w := &models.Withdrawal{ID: 1, Amount: decimal.RequireFromString(amount), Method: models.PayoutKoKo}
		doc := exporter.CreatePacs008(w, "MSG-1")

		got := decimal.NewFromFloat(doc.CdtTrfTxInf[0].IntrBkSttlmAmt.Value)
		assert.True(t, got.Equal(w.Amount), "%s exported as %s", amount, got)
	}
}

func TestPayoutExporter_Export(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exporter := NewPayoutExporter(f.withdrawals, f.cfg)
	f.user("u1", payoutReady("5000"))

	w, err := f.withdrawals.Create(ctx, "u1", bankTransfer("1500"))
	require.NoError(t, err)

	t.Run("pending withdrawal is not exported", func(t *testing.T) {
		_, err := exporter.Export(ctx, admin, w.ID)
		assert.Equal(t, KindConflict, KindOf(err))
	})

	t.Run("non admin", func(t *testing.T) {
		_, err := exporter.Export(ctx, Actor{UserID: "u1"}, w.ID)
		assert.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("approved withdrawal", func(t *testing.T) {
		_, err := f.withdrawals.Approve(ctx, admin, w.ID)
		require.NoError(t, err)

		export, err := exporter.Export(ctx, admin, w.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, export.MessageID)
		assert.Equal(t, "pacs.008.001.08", export.MessageType)
		assert.Contains(t, export.XML, export.MessageID)
		assert.Contains(t, export.XML, "Commercial Bank 8001234567")
	})

	t.Run("unknown withdrawal", func(t *testing.T) {
		_, err := exporter.Export(ctx, admin, 999)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}
