package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// RefundLine importe a reembolsar de una factura cobrada con el pago.
type RefundLine struct {
	InvoiceID string
	Amount    decimal.Decimal
}

// RefundInput reembolso parcial o total de un pago.
type RefundInput struct {
	PaymentID string
	Invoices  []RefundLine
}

// RefundResult pago actualizado y efectos a despachar.
type RefundResult struct {
	Payment *entity.Payment
	Outbox  outbox.Outbox
}

type refundTarget struct {
	line    RefundLine
	pivot   *entity.Paymentable
	invoice *entity.Invoice
}

// Refund devuelve parte de lo cobrado: la factura recupera saldo y pierde pagado.
// La proporción reembolsada sobre el total de la factura debe estar en (0, 1].
func (s *Service) Refund(ctx context.Context, tenant entity.Tenant, in RefundInput) (*RefundResult, error) {
	if len(in.Invoices) == 0 {
		return nil, domain.Reject(domain.RejectRefundExceedsAmount, "invoices", map[string]string{
			"amount": "0.00", "available": "0.00",
		})
	}

	var res RefundResult
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = RefundResult{}
		p, err := lockPayment(ctx, r, tenant, in.PaymentID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return fmt.Errorf("pago %s eliminado: %w", p.ID, domain.ErrConflict)
		}

		pivots, err := r.Paymentables.ListByPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		byInvoice := map[string]*entity.Paymentable{}
		for _, pv := range pivots {
			if pv.Type == entity.PaymentableInvoice {
				byInvoice[pv.DocumentID] = pv
			}
		}

		total := decimal.Zero
		lines := mergeRefundLines(in.Invoices)
		targets := make([]refundTarget, 0, len(lines))
		for _, line := range lines {
			pv, ok := byInvoice[line.InvoiceID]
			if !ok {
				return fmt.Errorf("factura %s no cobrada con el pago %s: %w", line.InvoiceID, p.ID, domain.ErrInvalidInput)
			}
			if line.Amount.Sign() <= 0 || money.Cmp(line.Amount, pv.Net()) > 0 {
				return domain.Reject(domain.RejectRefundExceedsAmount, "invoices", map[string]string{
					"amount":    line.Amount.StringFixed(2),
					"available": pv.Net().StringFixed(2),
				})
			}
			inv, err := lockInvoice(ctx, r, tenant, line.InvoiceID)
			if err != nil {
				return err
			}
			ratio := money.Ratio(line.Amount, inv.Amount)
			if ratio.Sign() <= 0 || ratio.GreaterThan(decimal.NewFromInt(1)) {
				return domain.Reject(domain.RejectRefundInvalidRatio, "invoices", map[string]string{"ratio": ratio.String()})
			}
			total = total.Add(line.Amount)
			targets = append(targets, refundTarget{line: line, pivot: pv, invoice: inv})
		}
		if money.Cmp(p.Refunded.Add(total), p.Amount) > 0 {
			return domain.Reject(domain.RejectRefundExceedsAmount, "amount", map[string]string{
				"amount":    total.StringFixed(2),
				"available": p.Amount.Sub(p.Refunded).StringFixed(2),
			})
		}

		adjustments := map[string]decimal.Decimal{}
		balanceDelta := decimal.Zero
		for _, t := range targets {
			t.pivot.Refunded = t.pivot.Refunded.Add(t.line.Amount)
			if err := r.Paymentables.Update(ctx, t.pivot); err != nil {
				return err
			}
			inv := t.invoice
			if err := s.engine.UpdatePaidToDate(ctx, r, inv, t.line.Amount.Neg()); err != nil {
				return err
			}
			// anulada, revertida o eliminada: el saldo queda congelado
			if !balanceFrozen(inv) {
				if err := s.engine.UpdateInvoiceBalance(ctx, r, inv, t.line.Amount, "Reembolso del pago "+p.Number); err != nil {
					return err
				}
				if err := s.engine.SetCalculatedStatus(ctx, r, inv); err != nil {
					return err
				}
				balanceDelta = balanceDelta.Add(t.line.Amount)
			}
			adjustments[inv.ID] = adjustments[inv.ID].Add(t.line.Amount)
		}
		if _, err := s.engine.UpdateClientBalanceAndPaidToDate(ctx, r, p.ClientID, balanceDelta, total.Neg()); err != nil {
			return err
		}

		p.Refunded = p.Refunded.Add(total)
		p.SetRefundStatus()
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}

		res.Payment = p
		res.Outbox.Schedule(outbox.PaymentAdjustmentJob(tenant, outbox.PaymentEventPayload{
			CompanyID:   tenant.CompanyID,
			PaymentID:   p.ID,
			Adjustments: adjustments,
		}))
		res.Outbox.Emit(outbox.EventPaymentRefunded, tenant.CompanyID, p.ID, map[string]any{
			"refunded": total.StringFixed(2),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func balanceFrozen(inv *entity.Invoice) bool {
	return inv.IsDeleted || inv.Status == entity.InvoiceStatusCancelled || inv.Status == entity.InvoiceStatusReversed
}

// mergeRefundLines suma las líneas repetidas de una misma factura conservando el orden.
func mergeRefundLines(lines []RefundLine) []RefundLine {
	idx := make(map[string]int, len(lines))
	out := make([]RefundLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.InvoiceID]; ok {
			out[i].Amount = out[i].Amount.Add(l.Amount)
			continue
		}
		idx[l.InvoiceID] = len(out)
		out = append(out, l)
	}
	return out
}
