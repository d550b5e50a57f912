package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invorya-ledger/internal/application/billing"
	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
)

// InvoiceHandler ciclo de vida de facturas. Los efectos se despachan tras cada operación confirmada.
type InvoiceHandler struct {
	svc        *billing.Service
	bulk       *billing.BulkService
	dispatcher *outbox.Dispatcher
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc *billing.Service, bulk *billing.BulkService, dispatcher *outbox.Dispatcher) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, bulk: bulk, dispatcher: dispatcher}
}

func (h *InvoiceHandler) dispatch(c *fiber.Ctx, ob outbox.Outbox) {
	if h.dispatcher != nil && !ob.IsEmpty() {
		h.dispatcher.Dispatch(c.Context(), ob)
	}
}

func (h *InvoiceHandler) respond(c *fiber.Ctx, res *billing.Result, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	return c.JSON(billing.ToInvoiceResponse(res.Invoice))
}

// Create crea una factura en borrador.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.CreateInvoice(c.Context(), GetTenant(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID obtiene el detalle de una factura.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetInvoice(c.Context(), GetTenant(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// MarkSent emite el borrador.
// POST /api/invoices/:id/mark-sent
func (h *InvoiceHandler) MarkSent(c *fiber.Ctx) error {
	res, err := h.svc.MarkSent(c.Context(), GetTenant(c), c.Params("id"))
	return h.respond(c, res, err)
}

// Cancel anula la factura; en modo fiscal devuelve también la rectificativa R2.
// POST /api/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelInvoiceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	res, err := h.svc.Cancel(c.Context(), GetTenant(c), c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	out := dto.CancelInvoiceResponse{Invoice: billing.ToInvoiceResponse(res.Invoice)}
	if res.Rectification != nil {
		r := billing.ToInvoiceResponse(res.Rectification)
		out.Rectification = &r
	}
	return c.JSON(out)
}

// Reverse revierte una anulación.
// POST /api/invoices/:id/reverse
func (h *InvoiceHandler) Reverse(c *fiber.Ctx) error {
	res, err := h.svc.Reverse(c.Context(), GetTenant(c), c.Params("id"))
	return h.respond(c, res, err)
}

// Rectify crea una rectificativa R1 parcial.
// POST /api/invoices/:id/rectify
func (h *InvoiceHandler) Rectify(c *fiber.Ctx) error {
	var in dto.RectifyInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Rectify(c.Context(), GetTenant(c), billing.RectifyInput{
		InvoiceID: c.Params("id"),
		Lines:     in.Lines,
		Reason:    in.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	r := billing.ToInvoiceResponse(res.Rectification)
	return c.Status(fiber.StatusCreated).JSON(dto.CancelInvoiceResponse{
		Invoice:       billing.ToInvoiceResponse(res.Invoice),
		Rectification: &r,
	})
}

// Delete elimina (lógicamente) la factura.
// DELETE /api/invoices/:id
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	res, err := h.svc.Delete(c.Context(), GetTenant(c), c.Params("id"))
	return h.respond(c, res, err)
}

// Restore recupera una factura eliminada.
// POST /api/invoices/:id/restore
func (h *InvoiceHandler) Restore(c *fiber.Ctx) error {
	res, err := h.svc.Restore(c.Context(), GetTenant(c), c.Params("id"))
	return h.respond(c, res, err)
}

// Bulk aplica una acción a un lote de facturas. 429 si el mismo lote sigue en curso.
// POST /api/invoices/bulk
func (h *InvoiceHandler) Bulk(c *fiber.Ctx) error {
	var in dto.BulkInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.bulk.Run(c.Context(), GetTenant(c), billing.BulkInput{ClientIP: c.IP(), Action: in.Action, IDs: in.IDs})
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	return c.JSON(bulkResponse(c, res))
}

// bulkResponse resultado por factura; los rechazos llevan su mensaje localizado.
func bulkResponse(c *fiber.Ctx, res *billing.BulkResult) dto.BulkInvoiceResponse {
	out := dto.BulkInvoiceResponse{Action: res.Action, Results: make([]dto.BulkItemResult, 0, len(res.Items))}
	for _, it := range res.Items {
		item := dto.BulkItemResult{ID: it.InvoiceID, OK: it.Err == nil}
		if it.Err != nil {
			_, body := errorStatus(c, it.Err)
			item.Code, item.Message = body.Code, body.Message
		}
		out.Results = append(out.Results, item)
	}
	return out
}
