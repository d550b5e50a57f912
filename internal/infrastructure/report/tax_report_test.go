package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/report"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func event(id string, period time.Time, kind entity.TransactionEventType, tax, base string) *entity.TransactionEvent {
	return &entity.TransactionEvent{
		ID: id, CompanyID: "co-1", ClientID: "cl-1", InvoiceID: "inv-1", EventID: kind, Period: period,
		Metadata: entity.TransactionEventMetadata{TaxReport: entity.TaxReport{
			TaxDetails: []entity.TaxDetail{{TaxName: "IVA", TaxRate: d("21"), TaxableAmount: d(base), TaxAmount: d(tax)}},
			TaxSummary: entity.TaxSummary{Status: entity.TaxStatusAdjustment, TaxAmount: d(tax)},
		}},
	}
}

func TestBuild_EventosYResumen(t *testing.T) {
	jan := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	f, err := report.Build([]*entity.TransactionEvent{
		event("e-1", jan, entity.TransactionEventPaymentCash, "21", "100"),
		event("e-2", jan, entity.TransactionEventPaymentRefunded, "-6.3", "-30"),
	})
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(report.SheetEvents)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Periodo", rows[0][0])
	assert.Equal(t, "2025-01", rows[1][0])
	assert.Equal(t, "Cobro", rows[1][3])
	assert.Equal(t, "Pago reembolsado", rows[2][3])

	summary, err := f.GetRows(report.SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"2025-01", "IVA", "21", "70", "14.7"}, summary[1])
}

func TestWrite_RangoInvertido(t *testing.T) {
	store := memory.NewStore()
	g := report.NewTaxReporter(store)
	var buf bytes.Buffer
	err := g.Write(context.Background(), entity.Tenant{CompanyID: "co-1"},
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &buf)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWrite_LibroLegible(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tenant := entity.Tenant{CompanyID: "co-1"}
	require.NoError(t, store.Repos(tenant).TransactionEvents.Create(ctx,
		event("e-1", time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), entity.TransactionEventInvoiceUpdated, "21", "100")))

	var buf bytes.Buffer
	g := report.NewTaxReporter(store)
	require.NoError(t, g.Write(ctx, tenant,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows(report.SheetEvents)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
