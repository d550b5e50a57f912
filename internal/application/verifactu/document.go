package verifactu

import (
	"context"
	"fmt"

	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

// InvoiceDocument datos de la representación gráfica de una factura registrada.
type InvoiceDocument struct {
	Company *entity.Company
	Client  *entity.Client
	Invoice *entity.Invoice
	Log     *entity.VerifactuLog
	QRURL   string
}

// InvoicePDFGenerator dibuja la factura con su código QR de cotejo.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// DocumentUseCase genera el PDF de una factura ya anotada en la cadena Verifactu.
type DocumentUseCase struct {
	tx        ports.TxRunner
	generator InvoicePDFGenerator
	appEnv    string
}

// NewDocumentUseCase construye el caso de uso. appEnv elige la URL de cotejo (test o prod).
func NewDocumentUseCase(tx ports.TxRunner, generator InvoicePDFGenerator, appEnv string) *DocumentUseCase {
	return &DocumentUseCase{tx: tx, generator: generator, appEnv: appEnv}
}

// DownloadInvoicePDF devuelve el PDF y su nombre de archivo.
//   - domain.ErrNotFound si la factura no existe.
//   - domain.ErrForbidden si es de otra empresa.
//   - domain.ErrConflict si aún no tiene registro aceptado por la AEAT.
func (uc *DocumentUseCase) DownloadInvoicePDF(ctx context.Context, tenant entity.Tenant, invoiceID string) ([]byte, string, error) {
	r := uc.tx.Repos(tenant)

	// ── 1. Factura ────────────────────────────────────────────────────────────
	inv, err := r.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
	}
	if inv.CompanyID != tenant.CompanyID {
		return nil, "", domain.ErrForbidden
	}

	// ── 2. Registro fiscal ────────────────────────────────────────────────────
	log, err := r.VerifactuLogs.GetByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener registro: %w", err)
	}
	if log == nil {
		return nil, "", fmt.Errorf("%w: la factura %s aún no está registrada en Verifactu", domain.ErrConflict, inv.Number)
	}

	// ── 3. Empresa y cliente ──────────────────────────────────────────────────
	company, err := r.Companies.GetByID(ctx, tenant.CompanyID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, "", fmt.Errorf("empresa %s: %w", tenant.CompanyID, domain.ErrNotFound)
	}
	client, err := r.Clients.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener cliente: %w", err)
	}
	if client == nil {
		client = &entity.Client{ID: inv.ClientID}
	}

	// ── 4. Generar ────────────────────────────────────────────────────────────
	doc := InvoiceDocument{
		Company: company,
		Client:  client,
		Invoice: inv,
		Log:     log,
		QRURL:   pkgverifactu.QRURL(uc.appEnv, company.NIF, inv.Number, inv.Date, inv.Amount),
	}
	pdf, err := uc.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return pdf, fmt.Sprintf("factura-%s.pdf", sanitizeFilename(inv.Number)), nil
}

func sanitizeFilename(s string) string {
	out := []rune(s)
	for i, c := range out {
		switch c {
		case '/', '\\', ' ', ':':
			out[i] = '-'
		}
	}
	return string(out)
}
