package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/payment"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// PaymentHandler cobros, reembolsos y borrado de pagos.
type PaymentHandler struct {
	svc        *payment.Service
	dispatcher *outbox.Dispatcher
}

// NewPaymentHandler construye el handler.
func NewPaymentHandler(svc *payment.Service, dispatcher *outbox.Dispatcher) *PaymentHandler {
	return &PaymentHandler{svc: svc, dispatcher: dispatcher}
}

func (h *PaymentHandler) dispatch(c *fiber.Ctx, ob outbox.Outbox) {
	if h.dispatcher != nil && !ob.IsEmpty() {
		h.dispatcher.Dispatch(c.Context(), ob)
	}
}

// Apply registra un cobro repartido entre facturas y créditos.
// POST /api/payments
func (h *PaymentHandler) Apply(c *fiber.Ctx) error {
	var in dto.ApplyPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	date := time.Now().UTC()
	if in.Date != "" {
		d, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return writeError(c, fmt.Errorf("fecha %q: %w", in.Date, domain.ErrInvalidInput))
		}
		date = d
	}
	res, err := h.svc.Apply(c.Context(), GetTenant(c), payment.ApplyInput{
		ClientID:             in.ClientID,
		Number:               in.Number,
		Amount:               in.Amount,
		Date:                 date,
		TransactionReference: in.TransactionReference,
		Invoices:             allocations(in.Invoices),
		Credits:              allocations(in.Credits),
		BankTransactionID:    in.BankTransactionID,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	return c.Status(fiber.StatusCreated).JSON(toPaymentResponse(res.Payment, false))
}

// Refund reembolsa parte de lo cobrado en cada factura indicada.
// POST /api/payments/:id/refund
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var in dto.RefundPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]payment.RefundLine, 0, len(in.Invoices))
	for _, a := range in.Invoices {
		lines = append(lines, payment.RefundLine{InvoiceID: a.ID, Amount: a.Amount})
	}
	res, err := h.svc.Refund(c.Context(), GetTenant(c), payment.RefundInput{PaymentID: c.Params("id"), Invoices: lines})
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	return c.JSON(toPaymentResponse(res.Payment, false))
}

// Delete deshace el pago. ?update_client_paid_to_date=false deja intacto el pagado del cliente.
// DELETE /api/payments/:id
func (h *PaymentHandler) Delete(c *fiber.Ctx) error {
	updatePaid := c.QueryBool("update_client_paid_to_date", true)
	res, err := h.svc.Delete(c.Context(), GetTenant(c), c.Params("id"), updatePaid)
	if err != nil {
		return writeError(c, err)
	}
	h.dispatch(c, res.Outbox)
	return c.JSON(toPaymentResponse(res.Payment, res.AlreadyDeleted))
}

func allocations(in []dto.AllocationRequest) []payment.Allocation {
	out := make([]payment.Allocation, 0, len(in))
	for _, a := range in {
		out = append(out, payment.Allocation{DocumentID: a.ID, Amount: a.Amount})
	}
	return out
}

func toPaymentResponse(p *entity.Payment, alreadyDeleted bool) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:             p.ID,
		ClientID:       p.ClientID,
		Number:         p.Number,
		Amount:         p.Amount,
		Applied:        p.Applied,
		Refunded:       p.Refunded,
		Status:         int(p.Status),
		IsDeleted:      p.IsDeleted,
		AlreadyDeleted: alreadyDeleted,
	}
}
