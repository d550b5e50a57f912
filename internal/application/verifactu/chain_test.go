package verifactu_test

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/verifactu"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/memory"
	infraverifactu "github.com/jhoicas/invorya-ledger/internal/infrastructure/verifactu"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

var tenant = entity.Tenant{CompanyID: "co-1"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Dobles ───────────────────────────────────────────────────────────────────

type fakeSubmitter struct {
	status string
	err    error
	calls  []infraverifactu.SubmitRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, req infraverifactu.SubmitRequest) (*infraverifactu.SubmitResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	res := &infraverifactu.SubmitResult{Status: f.status}
	if pkgverifactu.IsAccepted(f.status) {
		res.CSV = fmt.Sprintf("CSV-%d", len(f.calls))
	} else {
		res.Errors = []string{"[1104] NIF no identificado"}
	}
	return res, nil
}

type fakeSigner struct{ calls int }

func (s *fakeSigner) Sign(xmlBytes []byte, _ tls.Certificate) ([]byte, error) {
	s.calls++
	return append(append([]byte{}, xmlBytes...), []byte("<!--firmado-->")...), nil
}

type fakeArchive struct {
	err  error
	keys []string
}

func (a *fakeArchive) Put(_ context.Context, key string, _ []byte, contentType string) error {
	a.keys = append(a.keys, key+"|"+contentType)
	return a.err
}

// commitFallido ejecuta fn y simula que el COMMIT falla por serialización.
type commitFallido struct{ *memory.Store }

func (c commitFallido) RunInTx(ctx context.Context, tenant entity.Tenant, fn func(r *repository.Repos) error) error {
	return c.Store.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		if err := fn(r); err != nil {
			return err
		}
		return fmt.Errorf("commit: %w", domain.ErrSerialization)
	})
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	submitter *fakeSubmitter
	signer    *fakeSigner
	archive   *fakeArchive
	chain     *verifactu.ChainBuilder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	r := store.Repos(tenant)
	require.NoError(t, r.Companies.Create(ctx, &entity.Company{
		ID: "co-1", Name: "Empresa SL", NIF: "B12345678", VerifactuEnabled: true, Timezone: "Europe/Madrid",
	}))
	require.NoError(t, r.Clients.Create(ctx, &entity.Client{ID: "cl-1", CompanyID: "co-1", Name: "Cliente SA", NIF: "A58818501"}))

	f := &fixture{
		ctx:       ctx,
		store:     store,
		submitter: &fakeSubmitter{status: pkgverifactu.EstadoCorrecto},
		signer:    &fakeSigner{},
		archive:   &fakeArchive{},
	}
	builder := infraverifactu.NewXMLBuilder(infraverifactu.SoftwareInfo{
		Name: "Invorya", NIF: "B12345678", ID: "IV", Version: "1.0", InstallationNumber: "1",
	})
	cert := tls.Certificate{Certificate: [][]byte{{0x01}}}
	f.chain = verifactu.NewChainBuilder(store, builder, f.signer, f.submitter, f.archive, cert, zerolog.Nop())
	return f
}

func (f *fixture) sentInvoice(t *testing.T, id, number string, status entity.InvoiceStatus) {
	t.Helper()
	inv := &entity.Invoice{
		ID: id, CompanyID: "co-1", ClientID: "cl-1", Number: number, Status: status,
		Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		LineItems: []entity.LineItem{{
			ProductKey: "SRV", Quantity: d("1"), Cost: d("100"), TaxName1: "IVA", TaxRate1: d("21"),
		}},
		Backup: entity.InvoiceBackup{DocumentType: entity.DocumentTypeF1},
	}
	inv.CalculateTotals()
	inv.Balance = inv.Amount
	require.NoError(t, f.store.Repos(tenant).Invoices.Create(f.ctx, inv))
}

func (f *fixture) logOf(t *testing.T, invoiceID string) *entity.VerifactuLog {
	t.Helper()
	l, err := f.store.Repos(tenant).VerifactuLogs.GetByInvoice(f.ctx, invoiceID)
	require.NoError(t, err)
	return l
}

// ── Envío ────────────────────────────────────────────────────────────────────

func TestSubmit_EncadenaRegistros(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)
	f.sentInvoice(t, "inv-2", "F-2", entity.InvoiceStatusSent)

	first, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)
	second, err := f.chain.Submit(f.ctx, tenant, "inv-2")
	require.NoError(t, err)

	require.NotNil(t, first.Log)
	require.NotNil(t, second.Log)
	assert.Empty(t, first.Log.PreviousHash)
	assert.Equal(t, first.Log.Hash, second.Log.PreviousHash)
	assert.Equal(t, "CSV-1", first.Log.Status)
	assert.Equal(t, "B12345678", second.Log.NIF)
	assert.Equal(t, 2, f.signer.calls)
	assert.Contains(t, string(f.submitter.calls[1].Registro), "<!--firmado-->")

	require.Len(t, second.Outbox.Events, 1)
	assert.Equal(t, outbox.EventVerifactuSubmitted, second.Outbox.Events[0].Name)

	report, err := f.chain.VerifyChain(f.ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	assert.True(t, report.Valid())
}

func TestSubmit_IncorrectoNoExtiendeLaCadena(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)
	f.submitter.status = pkgverifactu.EstadoIncorrecto

	res, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, pkgverifactu.EstadoIncorrecto, res.Status)
	assert.NotEmpty(t, res.Errors)
	assert.Nil(t, res.Log)
	assert.Nil(t, f.logOf(t, "inv-1"))
	assert.Empty(t, f.archive.keys)

	f.submitter.status = pkgverifactu.EstadoParcialmenteCorrecto
	res, err = f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, res.Log)
	assert.Empty(t, res.Log.PreviousHash, "sigue siendo el primer registro")
}

func TestSubmit_FalloDeEnvio_SinRegistro(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)
	f.submitter.err = fmt.Errorf("soap: fault: %w", domain.ErrFiscalSubmission)

	_, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	assert.ErrorIs(t, err, domain.ErrFiscalSubmission)
	assert.Nil(t, f.logOf(t, "inv-1"))
}

func TestSubmit_YaRegistrada_NoReenvia(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)

	first, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)
	again, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)

	assert.True(t, again.Skipped())
	assert.Equal(t, first.Hash, again.Hash)
	assert.Len(t, f.submitter.calls, 1)
	assert.Len(t, f.archive.keys, 1)
}

func TestSubmit_ArchivaTrasElCommit(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)
	f.archive.err = errors.New("s3 no disponible")

	res, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err, "el archivo no es fatal")
	require.Len(t, f.archive.keys, 1)
	assert.Equal(t, verifactu.ArchiveKey(res.Log)+"|application/xml", f.archive.keys[0])
	assert.Contains(t, f.archive.keys[0], "verifactu/co-1/2025/F-1-")
	assert.NotNil(t, f.logOf(t, "inv-1"))
}

func TestSubmit_Rechazos(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-draft", "", entity.InvoiceStatusDraft)

	_, err := f.chain.Submit(f.ctx, tenant, "inv-draft")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.chain.Submit(f.ctx, tenant, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.chain.Submit(f.ctx, entity.Tenant{CompanyID: "otra"}, "inv-draft")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.submitter.calls)
}

// ── Verificación ─────────────────────────────────────────────────────────────

func TestVerifyChain_DetectaManipulacion(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)
	_, err := f.chain.Submit(f.ctx, tenant, "inv-1")
	require.NoError(t, err)

	require.NoError(t, f.store.Repos(tenant).VerifactuLogs.Create(f.ctx, &entity.VerifactuLog{
		ID: "forjado", CompanyID: "co-1", InvoiceID: "inv-x", InvoiceNumber: "F-X",
		Hash: "ABC", PreviousHash: "000", State: []byte(`{"id_emisor_factura":"B12345678"}`),
	}))

	report, err := f.chain.VerifyChain(f.ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	assert.False(t, report.Valid())
	require.Len(t, report.Broken, 2, "enlace roto y huella no recalculable")
	assert.Equal(t, "forjado", report.Broken[0].LogID)
}

// ── Trabajo ──────────────────────────────────────────────────────────────────

func TestHandle_AceptadoSinCommitNoSeReenvia(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)
	builder := infraverifactu.NewXMLBuilder(infraverifactu.SoftwareInfo{
		Name: "Invorya", NIF: "B12345678", ID: "IV", Version: "1.0", InstallationNumber: "1",
	})
	chain := verifactu.NewChainBuilder(commitFallido{f.store}, builder, f.signer, f.submitter, f.archive,
		tls.Certificate{}, zerolog.Nop())

	_, err := chain.Submit(f.ctx, tenant, "inv-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "CSV-1")

	assert.Nil(t, f.logOf(t, "inv-1"))
	assert.Empty(t, f.archive.keys)

	// la cola no lo devuelve: un reintento duplicaría el registro en la AEAT
	assert.NoError(t, chain.Handle(f.ctx, outbox.VerifactuSubmitJob(tenant, "inv-1")))
}

func TestHandle_ReintentaSoloFallosDeEnvio(t *testing.T) {
	f := newFixture(t)
	f.sentInvoice(t, "inv-1", "F-1", entity.InvoiceStatusSent)

	f.submitter.err = domain.ErrFiscalSubmission
	assert.ErrorIs(t, f.chain.Handle(f.ctx, outbox.VerifactuSubmitJob(tenant, "inv-1")), domain.ErrFiscalSubmission)

	f.submitter.err = nil
	f.submitter.status = pkgverifactu.EstadoIncorrecto
	assert.NoError(t, f.chain.Handle(f.ctx, outbox.VerifactuSubmitJob(tenant, "inv-1")))

	assert.NoError(t, f.chain.Handle(f.ctx, outbox.VerifactuSubmitJob(tenant, "no-existe")))
	assert.NoError(t, f.chain.Handle(f.ctx, outbox.JobRequest{Type: outbox.JobVerifactuSubmit, Tenant: tenant, Payload: 42}))
}
