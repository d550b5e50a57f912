package ledger_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/ledger"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/memory"
)

var tenant = entity.Tenant{CompanyID: "co-1"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	r := store.Repos(tenant)
	require.NoError(t, r.Clients.Create(ctx, &entity.Client{ID: "cl-1", CompanyID: "co-1", Balance: d("100")}))
	require.NoError(t, r.Invoices.Create(ctx, &entity.Invoice{
		ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1", Status: entity.InvoiceStatusSent,
		Amount: d("100"), Balance: d("100"),
	}))
	return store
}

func TestUpdateBalance_UsaValoresBloqueados(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	engine := ledger.NewEngine(zerolog.Nop())

	// copia desactualizada del llamador: el delta se aplica sobre la fila fresca
	stale := &entity.Invoice{ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1", Amount: d("100"), Balance: d("999")}
	err := store.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		if err := engine.UpdatePaidToDate(ctx, r, stale, d("40")); err != nil {
			return err
		}
		if err := engine.UpdateInvoiceBalance(ctx, r, stale, d("-40"), "pago"); err != nil {
			return err
		}
		return engine.SetCalculatedStatus(ctx, r, stale)
	})
	require.NoError(t, err)

	assert.True(t, stale.Balance.Equal(d("60")))
	assert.True(t, stale.PaidToDate.Equal(d("40")))
	assert.Equal(t, entity.InvoiceStatusPartial, stale.Status)

	inv, err := store.Repos(tenant).Invoices.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, inv.Balance.Equal(d("60")))
	assert.Equal(t, entity.InvoiceStatusPartial, inv.Status)

	entries, err := store.Repos(tenant).LedgerEntries.ListByDocument(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Adjustment.Equal(d("-40")))
	assert.True(t, entries[0].Balance.Equal(d("60")))
}

func TestUpdateBalance_DocumentoInexistente(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	engine := ledger.NewEngine(zerolog.Nop())
	err := store.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		return engine.UpdateBalance(ctx, r, &entity.Invoice{ID: "nope"}, d("1"))
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustClient_FalloRevierteTodo(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	engine := ledger.NewEngine(zerolog.Nop())
	err := store.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		if _, err := engine.UpdateClientBalanceAndPaidToDate(ctx, r, "cl-1", d("-30"), d("30")); err != nil {
			return err
		}
		_, err := engine.UpdateClientBalance(ctx, r, "cl-inexistente", d("1"))
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	c, _ := store.Repos(tenant).Clients.GetByID(ctx, "cl-1")
	assert.True(t, c.Balance.Equal(d("100")))
	assert.True(t, c.PaidToDate.IsZero())
}

func TestRecalculateClientBalance_IgnoraBorradoresYEliminadas(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	r := store.Repos(tenant)
	require.NoError(t, r.Invoices.Create(ctx, &entity.Invoice{ID: "inv-2", ClientID: "cl-1", Status: entity.InvoiceStatusDraft, Balance: d("70")}))
	require.NoError(t, r.Invoices.Create(ctx, &entity.Invoice{ID: "inv-3", ClientID: "cl-1", Status: entity.InvoiceStatusSent, Balance: d("20"), IsDeleted: true}))
	require.NoError(t, r.Invoices.Create(ctx, &entity.Invoice{ID: "inv-4", ClientID: "cl-1", Status: entity.InvoiceStatusCancelled, Balance: d("15")}))

	engine := ledger.NewEngine(zerolog.Nop())
	h := ledger.NewRecalculator(store, engine)
	require.NoError(t, h.Handle(ctx, outbox.ClientRecalculateJob(tenant, "cl-1")))

	c, _ := r.Clients.GetByID(ctx, "cl-1")
	assert.True(t, c.Balance.Equal(d("115")), c.Balance.String())
}
