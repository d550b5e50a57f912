package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	appverifactu "github.com/jhoicas/invorya-ledger/internal/application/verifactu"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// taxReportWriter lo implementa *report.TaxReporter.
type taxReportWriter interface {
	Write(ctx context.Context, tenant entity.Tenant, from, to time.Time, w io.Writer) error
}

// VerifactuHandler envío fiscal, verificación de la cadena, PDF e informe de impuestos.
type VerifactuHandler struct {
	chain      *appverifactu.ChainBuilder
	documents  *appverifactu.DocumentUseCase
	reports    taxReportWriter
	dispatcher *outbox.Dispatcher
}

// NewVerifactuHandler construye el handler. documents y reports pueden ser nil.
func NewVerifactuHandler(chain *appverifactu.ChainBuilder, documents *appverifactu.DocumentUseCase, reports taxReportWriter, dispatcher *outbox.Dispatcher) *VerifactuHandler {
	return &VerifactuHandler{chain: chain, documents: documents, reports: reports, dispatcher: dispatcher}
}

// Submit envía el registro de alta de la factura. Un Incorrecto responde 200 con los errores de la AEAT.
// POST /api/invoices/:id/verifactu
func (h *VerifactuHandler) Submit(c *fiber.Ctx) error {
	out, err := h.chain.Submit(c.Context(), GetTenant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if h.dispatcher != nil && !out.Outbox.IsEmpty() {
		h.dispatcher.Dispatch(c.Context(), out.Outbox)
	}
	return c.JSON(dto.VerifactuSubmitResponse{
		InvoiceID: out.InvoiceID,
		Status:    out.Status,
		CSV:       out.CSV,
		Hash:      out.Hash,
		Skipped:   out.Skipped(),
		Errors:    out.Errors,
	})
}

// Chain verifica enlaces y huellas de la cadena de la empresa.
// GET /api/verifactu/chain
func (h *VerifactuHandler) Chain(c *fiber.Ctx) error {
	rep, err := h.chain.VerifyChain(c.Context(), GetTenant(c))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ChainReportResponse{CompanyID: rep.CompanyID, Rows: rep.Rows, Valid: rep.Valid()}
	for _, b := range rep.Broken {
		out.Broken = append(out.Broken, dto.BrokenLinkEntry{LogID: b.LogID, InvoiceNumber: b.InvoiceNumber, Reason: b.Reason})
	}
	return c.JSON(out)
}

// PDF representación gráfica con el QR de cotejo.
// GET /api/invoices/:id/pdf
func (h *VerifactuHandler) PDF(c *fiber.Ctx) error {
	if h.documents == nil {
		return c.SendStatus(fiber.StatusNotImplemented)
	}
	body, filename, err := h.documents.DownloadInvoicePDF(c.Context(), GetTenant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(body)
}

// TaxReport informe de eventos fiscales en xlsx. from/to en YYYY-MM-DD.
// GET /api/reports/tax?from=&to=
func (h *VerifactuHandler) TaxReport(c *fiber.Ctx) error {
	if h.reports == nil {
		return c.SendStatus(fiber.StatusNotImplemented)
	}
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return writeError(c, fmt.Errorf("from: %w", domain.ErrInvalidInput))
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return writeError(c, fmt.Errorf("to: %w", domain.ErrInvalidInput))
	}
	var buf bytes.Buffer
	if err := h.reports.Write(c.Context(), GetTenant(c), from, to, &buf); err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="impuestos.xlsx"`)
	return c.Send(buf.Bytes())
}
