package verifactu_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/verifactu"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

type fakePDF struct {
	got verifactu.InvoiceDocument
}

func (g *fakePDF) GenerateInvoicePDF(_ context.Context, doc verifactu.InvoiceDocument) ([]byte, error) {
	g.got = doc
	return []byte("%PDF"), nil
}

func TestDownloadInvoicePDF_ConQRDeCotejo(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F/1", entity.InvoiceStatusSent)
	_, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)

	gen := &fakePDF{}
	uc := verifactu.NewDocumentUseCase(f.store, gen, pkgverifactu.AppEnvTest)
	pdf, name, err := uc.DownloadInvoicePDF(f.ctx, tenant, "inv-1")
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Equal(t, "factura-F-1.pdf", name)
	assert.Contains(t, gen.got.QRURL, pkgverifactu.QRURLTest)
	assert.Contains(t, gen.got.QRURL, "importe=121.00")
	require.NotNil(t, gen.got.Log)
	assert.Equal(t, f.logOf(t, "inv-1").Hash, gen.got.Log.Hash)
}

func TestDownloadInvoicePDF_SinRegistro(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)

	uc := verifactu.NewDocumentUseCase(f.store, &fakePDF{}, pkgverifactu.AppEnvTest)
	_, _, err := uc.DownloadInvoicePDF(f.ctx, tenant, "inv-1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, _, err = uc.DownloadInvoicePDF(f.ctx, tenant, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = uc.DownloadInvoicePDF(f.ctx, entity.Tenant{CompanyID: "co-2"}, "inv-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
