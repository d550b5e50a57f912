package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateTotals_ConIVA(t *testing.T) {
	inv := &entity.Invoice{
		LineItems: []entity.LineItem{
			{Quantity: d("2"), Cost: d("50"), TaxName1: "IVA", TaxRate1: d("21")},
			{Quantity: d("1"), Cost: d("10.005")},
		},
		CustomSurcharge1: d("1.50"),
	}
	inv.CalculateTotals()

	assert.True(t, inv.LineItems[0].LineTotal.Equal(d("100")))
	assert.True(t, inv.LineItems[0].TaxAmount.Equal(d("21")))
	assert.True(t, inv.LineItems[1].LineTotal.Equal(d("10.01")))
	assert.True(t, inv.TotalTaxes.Equal(d("21")))
	assert.True(t, inv.Amount.Equal(d("132.51")), "amount=%s", inv.Amount)
	assert.True(t, inv.NetSubtotal().Equal(d("110.01")))
}

func TestTaxMap_AgrupaPorNombreYTipo(t *testing.T) {
	inv := &entity.Invoice{LineItems: []entity.LineItem{
		{Quantity: d("1"), Cost: d("100"), TaxName1: "IVA", TaxRate1: d("21")},
		{Quantity: d("1"), Cost: d("50"), TaxName1: "IVA", TaxRate1: d("21.00")},
		{Quantity: d("1"), Cost: d("20"), TaxName1: "IVA", TaxRate1: d("10")},
	}}
	inv.CalculateTotals()

	taxes := inv.TaxMap()
	require.Len(t, taxes, 2)
	assert.True(t, taxes[0].BaseAmount.Equal(d("150")))
	assert.True(t, taxes[0].TaxAmount.Equal(d("31.50")))
	assert.True(t, taxes[1].TaxAmount.Equal(d("2")))
}

func TestSetCalculatedStatus(t *testing.T) {
	inv := &entity.Invoice{Amount: d("100"), Balance: d("100")}
	inv.SetCalculatedStatus()
	assert.Equal(t, entity.InvoiceStatusSent, inv.Status)

	inv.Balance = d("40")
	inv.SetCalculatedStatus()
	assert.Equal(t, entity.InvoiceStatusPartial, inv.Status)

	inv.Balance = decimal.Zero
	inv.SetCalculatedStatus()
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status)
}

func TestBackup_JSONTipado(t *testing.T) {
	b := entity.InvoiceBackup{
		DocumentType:     entity.DocumentTypeR2,
		ParentInvoiceID:  "p-1",
		ChildInvoiceIDs:  []string{"c-1"},
		AdjustableAmount: d("100"),
		Cancellation:     entity.CancellationRecord{Adjustment: d("-60"), StatusID: entity.InvoiceStatusPartial},
	}
	raw, err := entity.MarshalBackup(b)
	require.NoError(t, err)

	back, err := entity.UnmarshalBackup(raw)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentTypeR2, back.DocumentType)
	assert.Equal(t, entity.InvoiceStatusPartial, back.Cancellation.StatusID)
	assert.True(t, back.Cancellation.Adjustment.Equal(d("-60")))

	empty, err := entity.UnmarshalBackup([]byte("null"))
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentTypeF1, empty.EffectiveDocumentType())
	assert.True(t, empty.Cancellation.IsEmpty())
}
