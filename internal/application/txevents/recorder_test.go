package txevents

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/memory"
)

var tenant = entity.Tenant{CompanyID: "co-1"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s: esperado %s, obtenido %s", msg, want, got.String())
}

func taxedInvoice() *entity.Invoice {
	return &entity.Invoice{
		ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1", Number: "F-1",
		Status: entity.InvoiceStatusSent, Amount: d("100"), Balance: d("100"), TotalTaxes: d("21"),
		Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		LineItems: []entity.LineItem{{
			ProductKey: "SRV", Quantity: d("1"), Cost: d("100"), LineTotal: d("100"),
			TaxName1: "IVA", TaxRate1: d("21"),
		}},
	}
}

// ── Periodo ──────────────────────────────────────────────────────────────────

func TestEndOfMonth(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	eom := EndOfMonth(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, 2024, eom.Year())
	assert.Equal(t, time.February, eom.Month())
	assert.Equal(t, 29, eom.Day())
}

func TestPeriodClosed_ZonaDeLaEmpresa(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, loc)

	// 31/01 23:30 UTC ya es 01/02 en Madrid
	assert.True(t, PeriodClosed(date, time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC), loc))
	assert.False(t, PeriodClosed(date, time.Date(2025, 1, 31, 22, 30, 0, 0, time.UTC), loc))
	assert.False(t, PeriodClosed(date, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), loc))
}

// ── Metadatos ────────────────────────────────────────────────────────────────

func TestRefundMetadata_Prorrateo(t *testing.T) {
	meta := RefundMetadata(taxedInvoice(), d("30"), nil)

	s := meta.TaxReport.TaxSummary
	assert.Equal(t, entity.TaxStatusAdjustment, s.Status)
	assertAmount(t, "-6.30", s.TaxAmount, "cuota")
	assertAmount(t, "-30", s.Adjustment, "ajuste")
	require.Len(t, meta.TaxReport.TaxDetails, 1)
	assertAmount(t, "-30", meta.TaxReport.TaxDetails[0].TaxableAmount, "base")
	assertAmount(t, "-6.30", meta.TaxReport.TaxDetails[0].TaxAmount, "cuota línea")
}

func TestDeletionMetadata_SinPagosVigentes(t *testing.T) {
	meta := DeletionMetadata(taxedInvoice(), d("100"), nil)

	s := meta.TaxReport.TaxSummary
	assert.Equal(t, entity.TaxStatusPaymentDeleted, s.Status)
	assertAmount(t, "-21", s.TaxAmount, "cuota")
	assertAmount(t, "-100", meta.TaxReport.TaxDetails[0].TaxableAmount, "base anulada")
}

func TestDeletionMetadata_ConPagoVigente(t *testing.T) {
	other := &entity.Payment{ID: "p-2", Number: "P-2", Date: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)}
	meta := DeletionMetadata(taxedInvoice(), d("50"), []HistoryItem{{Payment: other, Net: d("50")}})

	s := meta.TaxReport.TaxSummary
	assertAmount(t, "-10.50", s.TaxAmount, "cuota no cubierta")
	assertAmount(t, "50", s.TotalPaid, "cobrado")
	require.Len(t, meta.TaxReport.PaymentHistory, 1)
	assert.Equal(t, "2025-01-20", meta.TaxReport.PaymentHistory[0].Date)
}

func TestInvoiceMetadata_Anulada(t *testing.T) {
	inv := taxedInvoice()
	inv.Status = entity.InvoiceStatusCancelled
	meta := InvoiceMetadata(inv, nil)
	assert.Equal(t, entity.TaxStatusCancelled, meta.TaxReport.TaxSummary.Status)
	assertAmount(t, "0", meta.TaxReport.TaxSummary.TaxAmount, "sin cobros")
}

// ── Registrador ──────────────────────────────────────────────────────────────

type fixture struct {
	ctx   context.Context
	store *memory.Store
	rc    *Recorder
}

// newFixture factura de enero pagada con p-1 (100) y reloj en marzo.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	r := store.Repos(tenant)
	require.NoError(t, r.Companies.Create(ctx, &entity.Company{ID: "co-1", Timezone: "Europe/Madrid"}))
	require.NoError(t, r.Clients.Create(ctx, &entity.Client{ID: "cl-1", CompanyID: "co-1"}))
	require.NoError(t, r.Invoices.Create(ctx, taxedInvoice()))
	require.NoError(t, r.Payments.Create(ctx, &entity.Payment{
		ID: "p-1", CompanyID: "co-1", ClientID: "cl-1", Number: "P-1", Amount: d("100"), Applied: d("100"),
		Date: time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, r.Paymentables.Create(ctx, &entity.Paymentable{
		ID: "pv-1", PaymentID: "p-1", Type: entity.PaymentableInvoice, DocumentID: "inv-1", Amount: d("100"),
	}))

	rc := NewRecorder(store, zerolog.Nop())
	rc.now = func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) }
	return &fixture{ctx: ctx, store: store, rc: rc}
}

func (f *fixture) events(t *testing.T) []*entity.TransactionEvent {
	t.Helper()
	evs, err := f.store.Repos(tenant).TransactionEvents.ListByInvoice(f.ctx, "inv-1")
	require.NoError(t, err)
	return evs
}

func TestRecordPaymentAdjustment_UnaFilaPorPeriodo(t *testing.T) {
	f := newFixture(t)
	p := outbox.PaymentEventPayload{CompanyID: "co-1", PaymentID: "p-1", Adjustments: map[string]decimal.Decimal{"inv-1": d("30")}}

	require.NoError(t, f.rc.RecordPaymentAdjustment(f.ctx, tenant, p))
	require.NoError(t, f.rc.RecordPaymentAdjustment(f.ctx, tenant, p))

	evs := f.events(t)
	require.Len(t, evs, 1)
	ev := evs[0]
	assert.Equal(t, entity.TransactionEventPaymentRefunded, ev.EventID)
	assert.Equal(t, "p-1", ev.PaymentID)
	assert.Equal(t, 31, ev.Period.Day())
	assert.Equal(t, time.March, ev.Period.Month())
	assertAmount(t, "-6.30", ev.Metadata.TaxReport.TaxSummary.TaxAmount, "cuota")
}

func TestRecordPaymentAdjustment_BorradoSustituyeReembolso(t *testing.T) {
	f := newFixture(t)
	refund := outbox.PaymentEventPayload{PaymentID: "p-1", Adjustments: map[string]decimal.Decimal{"inv-1": d("30")}}
	deleted := outbox.PaymentEventPayload{PaymentID: "p-1", Deleted: true, Adjustments: map[string]decimal.Decimal{"inv-1": d("70")}}

	require.NoError(t, f.rc.RecordPaymentAdjustment(f.ctx, tenant, refund))
	require.NoError(t, f.rc.RecordPaymentAdjustment(f.ctx, tenant, deleted))

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, entity.TransactionEventPaymentDeleted, evs[0].EventID)
	assert.Equal(t, entity.TaxStatusPaymentDeleted, evs[0].Metadata.TaxReport.TaxSummary.Status)
}

func TestRecordPaymentAdjustment_PeriodoAbierto_NoRegistra(t *testing.T) {
	f := newFixture(t)
	f.rc.now = func() time.Time { return time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC) }

	p := outbox.PaymentEventPayload{PaymentID: "p-1", Adjustments: map[string]decimal.Decimal{"inv-1": d("30")}}
	require.NoError(t, f.rc.RecordPaymentAdjustment(f.ctx, tenant, p))
	assert.Empty(t, f.events(t))
}

func TestRecordInvoiceUpdated_SustituyeFila(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rc.RecordInvoiceUpdated(f.ctx, tenant, "inv-1"))
	require.NoError(t, f.rc.RecordInvoiceUpdated(f.ctx, tenant, "inv-1"))

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, entity.TransactionEventInvoiceUpdated, evs[0].EventID)
	assert.Equal(t, entity.TaxStatusUpdated, evs[0].Metadata.TaxReport.TaxSummary.Status)
	require.Len(t, evs[0].Metadata.TaxReport.PaymentHistory, 1)
	assertAmount(t, "100", evs[0].Metadata.TaxReport.TaxSummary.TotalPaid, "cobrado")
}

func TestRecordPaymentCash_Idempotente(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rc.RecordPaymentCash(f.ctx, tenant, "inv-1", "p-1"))
	require.NoError(t, f.rc.RecordPaymentCash(f.ctx, tenant, "inv-1", "p-1"))

	evs := f.events(t)
	require.Len(t, evs, 1)
	assertAmount(t, "21", evs[0].Metadata.TaxReport.TaxSummary.TaxAmount, "cuota devengada")
}

type panicRunner struct{}

func (panicRunner) RunInTx(context.Context, entity.Tenant, func(*repository.Repos) error) error {
	panic("conexión perdida")
}

func (panicRunner) Repos(entity.Tenant) *repository.Repos { return nil }

func TestHandle_NoPropagaFallos(t *testing.T) {
	f := newFixture(t)

	err := f.rc.Handle(f.ctx, outbox.JobRequest{Type: outbox.JobInvoiceUpdated, Tenant: tenant, Payload: "basura"})
	assert.NoError(t, err)

	err = f.rc.Handle(f.ctx, outbox.InvoiceUpdatedJob(tenant, "no-existe"))
	assert.NoError(t, err)

	rc := NewRecorder(panicRunner{}, zerolog.Nop())
	assert.NotPanics(t, func() {
		assert.NoError(t, rc.Handle(f.ctx, outbox.InvoiceUpdatedJob(tenant, "inv-1")))
	})
}
