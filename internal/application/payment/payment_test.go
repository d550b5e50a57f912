package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/ledger"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/payment"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/memory"
)

var tenant = entity.Tenant{CompanyID: "co-1"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *payment.Service
}

// newFixture cliente cl-1 con dos facturas enviadas de 100 (inv-1, inv-2) y saldo 200.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	r := store.Repos(tenant)
	require.NoError(t, r.Companies.Create(ctx, &entity.Company{ID: "co-1", Name: "Acme"}))
	require.NoError(t, r.Clients.Create(ctx, &entity.Client{ID: "cl-1", CompanyID: "co-1", Balance: d("200")}))
	for _, id := range []string{"inv-1", "inv-2"} {
		require.NoError(t, r.Invoices.Create(ctx, &entity.Invoice{
			ID: id, CompanyID: "co-1", ClientID: "cl-1", Number: id,
			Status: entity.InvoiceStatusSent, Amount: d("100"), Balance: d("100"),
		}))
	}
	svc := payment.NewService(store, ledger.NewEngine(zerolog.Nop()), zerolog.Nop())
	return &fixture{t: t, ctx: ctx, store: store, svc: svc}
}

func (f *fixture) client() *entity.Client {
	c, err := f.store.Repos(tenant).Clients.GetByID(f.ctx, "cl-1")
	require.NoError(f.t, err)
	return c
}

func (f *fixture) invoice(id string) *entity.Invoice {
	inv, err := f.store.Repos(tenant).Invoices.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return inv
}

func (f *fixture) apply(amount string, allocs ...payment.Allocation) *entity.Payment {
	res, err := f.svc.Apply(f.ctx, tenant, payment.ApplyInput{
		ClientID: "cl-1", Number: "P-1", Amount: d(amount), Date: time.Now(), Invoices: allocs,
	})
	require.NoError(f.t, err)
	return res.Payment
}

func alloc(id, amount string) payment.Allocation {
	return payment.Allocation{DocumentID: id, Amount: d(amount)}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s: esperado %s, obtenido %s", msg, want, got.String())
}

// ── Apply ────────────────────────────────────────────────────────────────────

func TestApply_ParcialYEfectivoNoAsignado(t *testing.T) {
	f := newFixture(t)
	p := f.apply("150", alloc("inv-1", "100"), alloc("inv-2", "30"))

	assertAmount(t, "130", p.Applied, "aplicado")
	assert.Equal(t, entity.InvoiceStatusPaid, f.invoice("inv-1").Status)
	inv2 := f.invoice("inv-2")
	assert.Equal(t, entity.InvoiceStatusPartial, inv2.Status)
	assertAmount(t, "70", inv2.Balance, "saldo inv-2")

	c := f.client()
	assertAmount(t, "70", c.Balance, "saldo cliente")
	assertAmount(t, "150", c.PaidToDate, "pagado cliente (incluye no asignado)")
}

func TestApply_SobreAplicadoRechazaSinEscribir(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(f.ctx, tenant, payment.ApplyInput{
		ClientID: "cl-1", Amount: d("150"), Invoices: []payment.Allocation{alloc("inv-1", "120")},
	})
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectPaymentOverApplied, rej.Code)
	assert.Equal(t, "100.00", rej.Params["available"])

	assertAmount(t, "100", f.invoice("inv-1").Balance, "saldo intacto")
	assertAmount(t, "0", f.client().PaidToDate, "cliente intacto")
}

func TestApply_FacturaRepetidaValidaLaSuma(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(f.ctx, tenant, payment.ApplyInput{
		ClientID: "cl-1", Amount: d("120"),
		Invoices: []payment.Allocation{alloc("inv-1", "60"), alloc("inv-1", "60")},
	})
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectPaymentOverApplied, rej.Code)
	assert.Equal(t, "120.00", rej.Params["amount"])

	inv := f.invoice("inv-1")
	assertAmount(t, "100", inv.Balance, "saldo intacto")
	assertAmount(t, "0", inv.PaidToDate, "pagado intacto")
	assertAmount(t, "200", f.client().Balance, "cliente intacto")
}

func TestApply_FacturaRepetidaSeAgrupa(t *testing.T) {
	f := newFixture(t)
	p := f.apply("50", alloc("inv-1", "30"), alloc("inv-1", "20"))

	pivots, err := f.store.Repos(tenant).Paymentables.ListByPayment(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pivots, 1)
	assertAmount(t, "50", pivots[0].Amount, "vínculo agrupado")
	assertAmount(t, "50", f.invoice("inv-1").Balance, "saldo")
}

func TestApply_ImporteNegativoRechazado(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(f.ctx, tenant, payment.ApplyInput{ClientID: "cl-1", Amount: d("-1")})
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectPaymentAmountInvalid, rej.Code)
}

// ── Refund ───────────────────────────────────────────────────────────────────

func TestRefund_Parcial(t *testing.T) {
	f := newFixture(t)
	p := f.apply("100", alloc("inv-1", "100"))

	res, err := f.svc.Refund(f.ctx, tenant, payment.RefundInput{
		PaymentID: p.ID, Invoices: []payment.RefundLine{{InvoiceID: "inv-1", Amount: d("30")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPartiallyRefunded, res.Payment.Status)
	assertAmount(t, "30", res.Payment.Refunded, "reembolsado")

	inv := f.invoice("inv-1")
	assertAmount(t, "30", inv.Balance, "saldo factura")
	assertAmount(t, "70", inv.PaidToDate, "pagado factura")
	assert.Equal(t, entity.InvoiceStatusPartial, inv.Status)

	c := f.client()
	assertAmount(t, "130", c.Balance, "saldo cliente")
	assertAmount(t, "70", c.PaidToDate, "pagado cliente")

	require.Len(t, res.Outbox.Jobs, 1)
	assert.Equal(t, outbox.JobPaymentAdjustment, res.Outbox.Jobs[0].Type)
	payload := res.Outbox.Jobs[0].Payload.(outbox.PaymentEventPayload)
	assertAmount(t, "30", payload.Adjustments["inv-1"], "ajuste")
	assert.False(t, payload.Deleted)
}

func TestRefund_ExcedeNetoRechaza(t *testing.T) {
	f := newFixture(t)
	p := f.apply("100", alloc("inv-1", "40"))

	_, err := f.svc.Refund(f.ctx, tenant, payment.RefundInput{
		PaymentID: p.ID, Invoices: []payment.RefundLine{{InvoiceID: "inv-1", Amount: d("50")}},
	})
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectRefundExceedsAmount, rej.Code)
	assertAmount(t, "60", f.invoice("inv-1").Balance, "sin cambios")
}

func TestRefund_FacturaRepetidaValidaLaSuma(t *testing.T) {
	f := newFixture(t)
	p := f.apply("60", alloc("inv-1", "60"))

	_, err := f.svc.Refund(f.ctx, tenant, payment.RefundInput{
		PaymentID: p.ID,
		Invoices: []payment.RefundLine{
			{InvoiceID: "inv-1", Amount: d("60")},
			{InvoiceID: "inv-1", Amount: d("40")},
		},
	})
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectRefundExceedsAmount, rej.Code)
	assert.Equal(t, "100.00", rej.Params["amount"])
	assert.Equal(t, "60.00", rej.Params["available"])

	inv := f.invoice("inv-1")
	assertAmount(t, "40", inv.Balance, "saldo intacto")
	assertAmount(t, "60", inv.PaidToDate, "pagado intacto")
}

func TestRefund_FacturaAnuladaSoloReducePagado(t *testing.T) {
	f := newFixture(t)
	p := f.apply("60", alloc("inv-1", "60"))

	r := f.store.Repos(tenant)
	inv := f.invoice("inv-1")
	inv.Status = entity.InvoiceStatusCancelled
	inv.Balance = d("0")
	require.NoError(t, r.Invoices.Save(f.ctx, inv))

	res, err := f.svc.Refund(f.ctx, tenant, payment.RefundInput{
		PaymentID: p.ID, Invoices: []payment.RefundLine{{InvoiceID: "inv-1", Amount: d("30")}},
	})
	require.NoError(t, err)
	assertAmount(t, "30", res.Payment.Refunded, "reembolsado")

	inv = f.invoice("inv-1")
	assert.Equal(t, entity.InvoiceStatusCancelled, inv.Status)
	assertAmount(t, "0", inv.Balance, "saldo congelado")
	assertAmount(t, "30", inv.PaidToDate, "pagado")

	c := f.client()
	assertAmount(t, "140", c.Balance, "saldo cliente sin cambios")
	assertAmount(t, "30", c.PaidToDate, "pagado cliente")
}

// ── Delete ───────────────────────────────────────────────────────────────────

func TestDelete_RestauraTodoYEsIdempotente(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx
	p := f.apply("150", alloc("inv-1", "100"), alloc("inv-2", "30"))
	require.NoError(t, f.store.Repos(tenant).BankTransactions.Create(ctx, &entity.BankTransaction{
		ID: "bt-1", CompanyID: "co-1", PaymentID: p.ID, InvoiceIDs: "inv-1,inv-2", Status: entity.BankTransactionConverted,
	}))

	res, err := f.svc.Delete(ctx, tenant, p.ID, true)
	require.NoError(t, err)
	assert.False(t, res.AlreadyDeleted)
	assert.True(t, res.Payment.IsDeleted)
	assert.Equal(t, entity.PaymentStatusCancelled, res.Payment.Status)

	for _, id := range []string{"inv-1", "inv-2"} {
		inv := f.invoice(id)
		assertAmount(t, "100", inv.Balance, id+" saldo")
		assertAmount(t, "0", inv.PaidToDate, id+" pagado")
		assert.Equal(t, entity.InvoiceStatusSent, inv.Status)
	}
	c := f.client()
	assertAmount(t, "200", c.Balance, "saldo cliente")
	assertAmount(t, "0", c.PaidToDate, "pagado cliente")

	pivots, err := f.store.Repos(tenant).Paymentables.ListByPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, pivots)

	bt, err := f.store.Repos(tenant).BankTransactions.GetByID(ctx, "bt-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BankTransactionUnmatched, bt.Status)
	assert.Empty(t, bt.PaymentID)
	assert.Empty(t, bt.InvoiceIDs)

	require.Len(t, res.Outbox.Jobs, 1)
	payload := res.Outbox.Jobs[0].Payload.(outbox.PaymentEventPayload)
	assert.True(t, payload.Deleted)
	assertAmount(t, "30", payload.Adjustments["inv-2"], "ajuste inv-2")

	again, err := f.svc.Delete(ctx, tenant, p.ID, true)
	require.NoError(t, err)
	assert.True(t, again.AlreadyDeleted)
	assert.True(t, again.Outbox.IsEmpty())
	assertAmount(t, "0", f.client().PaidToDate, "sin doble reversión")
}

func TestDelete_TrasReembolsoParcial(t *testing.T) {
	f := newFixture(t)
	p := f.apply("100", alloc("inv-1", "100"))
	_, err := f.svc.Refund(f.ctx, tenant, payment.RefundInput{
		PaymentID: p.ID, Invoices: []payment.RefundLine{{InvoiceID: "inv-1", Amount: d("30")}},
	})
	require.NoError(t, err)

	_, err = f.svc.Delete(f.ctx, tenant, p.ID, true)
	require.NoError(t, err)

	inv := f.invoice("inv-1")
	assertAmount(t, "100", inv.Balance, "saldo factura")
	assertAmount(t, "0", inv.PaidToDate, "pagado factura")
	c := f.client()
	assertAmount(t, "200", c.Balance, "saldo cliente")
	assertAmount(t, "0", c.PaidToDate, "pagado cliente")
}

func TestDelete_FacturaAnuladaSoloReducePagado(t *testing.T) {
	f := newFixture(t)
	p := f.apply("40", alloc("inv-1", "40"))

	// anulación: el saldo queda congelado
	r := f.store.Repos(tenant)
	inv := f.invoice("inv-1")
	inv.Status = entity.InvoiceStatusCancelled
	require.NoError(t, r.Invoices.Save(f.ctx, inv))

	_, err := f.svc.Delete(f.ctx, tenant, p.ID, true)
	require.NoError(t, err)

	inv = f.invoice("inv-1")
	assert.Equal(t, entity.InvoiceStatusCancelled, inv.Status)
	assertAmount(t, "60", inv.Balance, "saldo congelado")
	assertAmount(t, "0", inv.PaidToDate, "pagado")
	c := f.client()
	assertAmount(t, "160", c.Balance, "saldo cliente sin cambios")
	assertAmount(t, "0", c.PaidToDate, "pagado cliente")
}

func TestDelete_FacturaRevertidaDesactivaAjusteFinal(t *testing.T) {
	f := newFixture(t)
	p := f.apply("100", alloc("inv-1", "60"))

	inv := f.invoice("inv-1")
	inv.Status = entity.InvoiceStatusReversed
	require.NoError(t, f.store.Repos(tenant).Invoices.Save(f.ctx, inv))

	_, err := f.svc.Delete(f.ctx, tenant, p.ID, true)
	require.NoError(t, err)

	inv = f.invoice("inv-1")
	assertAmount(t, "40", inv.Balance, "saldo intacto")
	assertAmount(t, "60", inv.PaidToDate, "pagado intacto")
	assertAmount(t, "100", f.client().PaidToDate, "sin ajuste final")
}

func TestDelete_PagoNegativoSinVinculos(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Repos(tenant).Payments.Create(f.ctx, &entity.Payment{
		ID: "pay-neg", CompanyID: "co-1", ClientID: "cl-1", Amount: d("-50"), Status: entity.PaymentStatusCompleted,
	}))

	_, err := f.svc.Delete(f.ctx, tenant, "pay-neg", true)
	require.NoError(t, err)
	assertAmount(t, "50", f.client().PaidToDate, "se revierte el negativo")
}

func TestDelete_SinVinculosTotalmenteAplicadoNoAjusta(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Repos(tenant).Payments.Create(f.ctx, &entity.Payment{
		ID: "pay-x", CompanyID: "co-1", ClientID: "cl-1", Amount: d("80"), Applied: d("80"),
		Status: entity.PaymentStatusCompleted,
	}))

	_, err := f.svc.Delete(f.ctx, tenant, "pay-x", true)
	require.NoError(t, err)
	assertAmount(t, "0", f.client().PaidToDate, "nada que revertir")
}

func TestDelete_ConCreditoRestauraSaldoDelCredito(t *testing.T) {
	f := newFixture(t)
	r := f.store.Repos(tenant)
	require.NoError(t, r.Credits.Create(f.ctx, &entity.Credit{
		ID: "cr-1", CompanyID: "co-1", ClientID: "cl-1", Number: "C-1",
		Status: entity.CreditStatusSent, Amount: d("50"), Balance: d("50"),
	}))
	c := f.client()
	c.CreditBalance = d("50")
	require.NoError(t, r.Clients.UpdateLedgerFields(f.ctx, c))

	res, err := f.svc.Apply(f.ctx, tenant, payment.ApplyInput{
		ClientID: "cl-1", Amount: d("0"),
		Invoices: []payment.Allocation{alloc("inv-1", "20")},
		Credits:  []payment.Allocation{alloc("cr-1", "20")},
	})
	require.NoError(t, err)
	cr, _ := r.Credits.GetByID(f.ctx, "cr-1")
	assertAmount(t, "30", cr.Balance, "crédito consumido")
	assert.Equal(t, entity.CreditStatusPartial, cr.Status)
	assertAmount(t, "30", f.client().CreditBalance, "crédito del cliente")

	_, err = f.svc.Delete(f.ctx, tenant, res.Payment.ID, true)
	require.NoError(t, err)

	cr, _ = r.Credits.GetByID(f.ctx, "cr-1")
	assertAmount(t, "50", cr.Balance, "crédito restaurado")
	assertAmount(t, "0", cr.PaidToDate, "pagado del crédito")
	assert.Equal(t, entity.CreditStatusSent, cr.Status)
	c = f.client()
	assertAmount(t, "50", c.CreditBalance, "crédito del cliente restaurado")
	assertAmount(t, "200", c.Balance, "saldo cliente")
	assertAmount(t, "0", c.PaidToDate, "pagado cliente")
}

func TestDelete_OtroTenantProhibido(t *testing.T) {
	f := newFixture(t)
	p := f.apply("10", alloc("inv-1", "10"))
	_, err := f.svc.Delete(f.ctx, entity.Tenant{CompanyID: "co-2"}, p.ID, true)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
