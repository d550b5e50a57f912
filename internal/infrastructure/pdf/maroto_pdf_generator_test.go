package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appverifactu "github.com/jhoicas/invorya-ledger/internal/application/verifactu"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1.234.567,50", formatMoney(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "-30,00", formatMoney(decimal.RequireFromString("-30")))
	assert.Equal(t, "0,00", formatMoney(decimal.Zero))
}

func TestGenerateInvoicePDF(t *testing.T) {
	inv := &entity.Invoice{
		ID: "inv-1", Number: "F-1", Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		LineItems: []entity.LineItem{{
			ProductKey: "SRV", Quantity: decimal.NewFromInt(1), Cost: decimal.NewFromInt(100),
			TaxName1: "IVA", TaxRate1: decimal.NewFromInt(21),
		}},
	}
	inv.CalculateTotals()

	out, err := NewMarotoPDFGenerator().GenerateInvoicePDF(context.Background(), appverifactu.InvoiceDocument{
		Company: &entity.Company{Name: "Empresa SL", NIF: "B12345678"},
		Client:  &entity.Client{Name: "Cliente SA", NIF: "A58818501"},
		Invoice: inv,
		Log:     &entity.VerifactuLog{Hash: "ABCDEF0123", Status: "CSV-1"},
		QRURL:   "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR?nif=B12345678",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
