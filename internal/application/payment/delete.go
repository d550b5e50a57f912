package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// DeleteResult pago eliminado y efectos a despachar. AlreadyDeleted indica una llamada repetida.
type DeleteResult struct {
	Payment        *entity.Payment
	AlreadyDeleted bool
	Outbox         outbox.Outbox
}

// deletion estado acumulado mientras se deshace un pago.
type deletion struct {
	s      *Service
	r      *repository.Repos
	tenant entity.Tenant
	p      *entity.Payment

	updateClientPaidToDate bool
	totalPaymentAmount     decimal.Decimal // Σ netos de créditos y facturas revertidos
	paidToDateDeleted      decimal.Decimal // Σ netos de facturas revertidos
	adjustments            map[string]decimal.Decimal
	ob                     outbox.Outbox
}

// Delete elimina un pago devolviendo a cada documento y al cliente exactamente lo que el pago aportó.
// Todo ocurre en una transacción con el pago bloqueado.
func (s *Service) Delete(ctx context.Context, tenant entity.Tenant, paymentID string, updateClientPaidToDate bool) (*DeleteResult, error) {
	var res DeleteResult
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = DeleteResult{}
		p, err := lockPayment(ctx, r, tenant, paymentID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			res.Payment = p
			res.AlreadyDeleted = true
			return nil
		}

		d := &deletion{
			s:                      s,
			r:                      r,
			tenant:                 tenant,
			p:                      p,
			updateClientPaidToDate: updateClientPaidToDate,
			totalPaymentAmount:     decimal.Zero,
			paidToDateDeleted:      decimal.Zero,
			adjustments:            map[string]decimal.Decimal{},
		}
		if err := d.run(ctx); err != nil {
			return err
		}
		res.Payment = p
		res.Outbox = d.ob
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.AlreadyDeleted {
		s.log.Info().
			Str("payment_id", res.Payment.ID).
			Str("amount", res.Payment.Amount.StringFixed(2)).
			Msg("pago eliminado")
	}
	return &res, nil
}

func (d *deletion) run(ctx context.Context) error {
	d.p.Status = entity.PaymentStatusCancelled

	pivots, err := d.r.Paymentables.ListByPayment(ctx, d.p.ID)
	if err != nil {
		return err
	}
	if err := d.reverseCredits(ctx, pivots); err != nil {
		return err
	}
	if err := d.reverseInvoices(ctx, pivots); err != nil {
		return err
	}

	if len(pivots) == 0 && money.Same(d.p.Amount, d.p.Applied) {
		d.updateClientPaidToDate = false
	}
	if d.updateClientPaidToDate {
		if reduced := d.catchUp(); !money.Zero(reduced) {
			if _, err := d.s.engine.UpdateClientPaidToDate(ctx, d.r, d.p.ClientID, reduced); err != nil {
				return err
			}
		}
	}

	if _, err := d.r.Paymentables.DeleteByPayment(ctx, d.p.ID); err != nil {
		return err
	}

	now := d.s.now()
	d.p.IsDeleted = true
	d.p.DeletedAt = &now
	if err := d.r.Payments.Save(ctx, d.p); err != nil {
		return err
	}
	if err := d.releaseBankTransactions(ctx); err != nil {
		return err
	}

	if len(d.adjustments) > 0 {
		d.ob.Schedule(outbox.PaymentAdjustmentJob(d.tenant, outbox.PaymentEventPayload{
			CompanyID:   d.tenant.CompanyID,
			PaymentID:   d.p.ID,
			Adjustments: d.adjustments,
			Deleted:     true,
		}))
	}
	d.ob.Emit(outbox.EventPaymentDeleted, d.tenant.CompanyID, d.p.ID, map[string]any{
		"amount":               d.p.Amount.StringFixed(2),
		"paid_to_date_deleted": d.paidToDateDeleted.StringFixed(2),
	})
	return nil
}

// reverseCredits devuelve a cada crédito no eliminado el neto consumido por el pago.
func (d *deletion) reverseCredits(ctx context.Context, pivots []*entity.Paymentable) error {
	for _, pv := range pivots {
		if pv.Type != entity.PaymentableCredit {
			continue
		}
		credit, err := d.r.Credits.GetForUpdate(ctx, pv.DocumentID)
		if err != nil {
			return err
		}
		if credit == nil || credit.IsDeleted {
			continue
		}
		net := pv.Net()
		restore := net.Abs()
		if pv.Amount.Sign() < 0 {
			restore = restore.Neg()
		}
		d.totalPaymentAmount = d.totalPaymentAmount.Add(net)

		if err := d.s.engine.UpdateBalanceAndPaidToDate(ctx, d.r, credit, restore, restore.Neg()); err != nil {
			return err
		}
		if err := d.s.engine.SetCalculatedStatus(ctx, d.r, credit); err != nil {
			return err
		}
		if _, err := d.s.engine.AdjustCreditBalance(ctx, d.r, d.p.ClientID, restore); err != nil {
			return err
		}
	}
	return nil
}

// reverseInvoices revierte cada factura según su estado.
func (d *deletion) reverseInvoices(ctx context.Context, pivots []*entity.Paymentable) error {
	for _, pv := range pivots {
		if pv.Type != entity.PaymentableInvoice {
			continue
		}
		inv, err := d.r.Invoices.GetForUpdate(ctx, pv.DocumentID)
		if err != nil {
			return err
		}
		if inv == nil {
			continue
		}
		net := pv.Net()
		d.paidToDateDeleted = d.paidToDateDeleted.Add(net)
		d.totalPaymentAmount = d.totalPaymentAmount.Add(net)

		switch {
		case inv.Status == entity.InvoiceStatusReversed:
			// el saldo de una factura revertida no cambia
			d.updateClientPaidToDate = false

		case inv.Status == entity.InvoiceStatusCancelled:
			if err := d.s.engine.UpdatePaidToDate(ctx, d.r, inv, net.Neg()); err != nil {
				return err
			}
			if net.Sign() > 0 {
				if _, err := d.s.engine.UpdateClientPaidToDate(ctx, d.r, d.p.ClientID, net.Neg()); err != nil {
					return err
				}
			}

		case inv.IsDeleted:
			if err := d.s.engine.UpdatePaidToDate(ctx, d.r, inv, net.Neg()); err != nil {
				return err
			}

		default:
			if err := d.s.engine.UpdatePaidToDate(ctx, d.r, inv, net.Neg()); err != nil {
				return err
			}
			if err := d.s.engine.UpdateInvoiceBalance(ctx, d.r, inv, net, "Pago "+d.p.Number+" eliminado"); err != nil {
				return err
			}
			if _, err := d.s.engine.UpdateClientBalanceAndPaidToDate(ctx, d.r, d.p.ClientID, net, net.Neg()); err != nil {
				return err
			}
			if err := d.s.engine.SetCalculatedStatus(ctx, d.r, inv); err != nil {
				return err
			}
		}
		d.adjustments[inv.ID] = d.adjustments[inv.ID].Add(net)
	}
	return nil
}

// catchUp ajuste final del pagado del cliente por la parte del pago que no se asignó a documentos.
// Si lo revertido en créditos y facturas no coincide con lo revertido en facturas, se usa esa diferencia.
func (d *deletion) catchUp() decimal.Decimal {
	var reduced decimal.Decimal
	if d.p.Amount.Sign() < 0 {
		reduced = d.p.Amount.Neg()
	} else {
		reduced = money.Min(decimal.Zero, d.p.Amount.Sub(d.p.Refunded).Sub(d.paidToDateDeleted).Neg())
	}
	if !d.totalPaymentAmount.Equal(d.paidToDateDeleted) {
		reduced = money.Min(decimal.Zero, d.totalPaymentAmount.Sub(d.paidToDateDeleted))
	}
	return reduced
}

// releaseBankTransactions deshace la conciliación bancaria del pago.
func (d *deletion) releaseBankTransactions(ctx context.Context) error {
	txs, err := d.r.BankTransactions.ListByPayment(ctx, d.p.ID)
	if err != nil {
		return err
	}
	for _, bt := range txs {
		bt.InvoiceIDs = ""
		bt.PaymentID = ""
		bt.Status = entity.BankTransactionUnmatched
		if err := d.r.BankTransactions.Update(ctx, bt); err != nil {
			return err
		}
	}
	return nil
}
