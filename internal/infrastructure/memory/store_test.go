package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/memory"
)

var tenant = entity.Tenant{CompanyID: "co-1"}

func TestRunInTx_RollbackDescartaEscrituras(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Repos(tenant).Clients.Create(ctx, &entity.Client{ID: "cl-1", CompanyID: "co-1"}))

	boom := errors.New("boom")
	err := store.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		c, err := r.Clients.GetForUpdate(ctx, "cl-1")
		require.NoError(t, err)
		c.Balance = decimal.NewFromInt(100)
		require.NoError(t, r.Clients.UpdateLedgerFields(ctx, c))
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := store.Repos(tenant).Clients.GetByID(ctx, "cl-1")
	require.NoError(t, err)
	assert.True(t, c.Balance.IsZero())
}

func TestRunInTx_CommitPublica(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	err := store.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		return r.Invoices.Create(ctx, &entity.Invoice{
			ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1",
			Status:  entity.InvoiceStatusSent,
			Balance: decimal.NewFromInt(50),
			Backup:  entity.InvoiceBackup{ChildInvoiceIDs: []string{"x"}},
		})
	})
	require.NoError(t, err)

	sum, err := store.Repos(tenant).Invoices.SumBalanceByClient(ctx, "cl-1")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(50)))

	inv, err := store.Repos(tenant).Invoices.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	inv.Backup.ChildInvoiceIDs[0] = "mutado"
	again, _ := store.Repos(tenant).Invoices.GetByID(ctx, "inv-1")
	assert.Equal(t, "x", again.Backup.ChildInvoiceIDs[0], "las lecturas devuelven copias")
}

func TestVerifactuLog_UnaFilaPorFactura(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repos(tenant)
	require.NoError(t, repos.VerifactuLogs.Create(ctx, &entity.VerifactuLog{ID: "l1", CompanyID: "co-1", InvoiceID: "inv-1"}))
	err := repos.VerifactuLogs.Create(ctx, &entity.VerifactuLog{ID: "l2", CompanyID: "co-1", InvoiceID: "inv-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	latest, err := repos.VerifactuLogs.LatestByCompany(ctx, "co-1")
	require.NoError(t, err)
	assert.Equal(t, "l1", latest.ID)
}
