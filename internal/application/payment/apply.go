package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/application/ledger"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// Allocation importe asignado a un documento.
type Allocation struct {
	DocumentID string
	Amount     decimal.Decimal
}

// ApplyInput datos de un cobro nuevo.
type ApplyInput struct {
	ClientID             string
	Number               string
	Amount               decimal.Decimal
	Date                 time.Time
	TransactionReference string
	Invoices             []Allocation
	Credits              []Allocation
	BankTransactionID    string
}

// ApplyResult pago creado y efectos a despachar.
type ApplyResult struct {
	Payment *entity.Payment
	Outbox  outbox.Outbox
}

// Apply registra un cobro y lo reparte entre facturas, usando opcionalmente saldo de créditos.
// Todas las validaciones ocurren antes de la primera escritura.
func (s *Service) Apply(ctx context.Context, tenant entity.Tenant, in ApplyInput) (*ApplyResult, error) {
	if err := validateApply(in); err != nil {
		return nil, err
	}
	in.Invoices = mergeAllocations(in.Invoices)
	in.Credits = mergeAllocations(in.Credits)

	var res ApplyResult
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = ApplyResult{}

		client, err := r.Clients.GetForUpdate(ctx, in.ClientID)
		if err != nil {
			return err
		}
		if client == nil || client.CompanyID != tenant.CompanyID {
			return fmt.Errorf("cliente %s: %w", in.ClientID, domain.ErrNotFound)
		}

		invoices := make([]*entity.Invoice, len(in.Invoices))
		for i, a := range in.Invoices {
			inv, err := lockInvoice(ctx, r, tenant, a.DocumentID)
			if err != nil {
				return err
			}
			if inv.ClientID != client.ID || inv.IsDeleted ||
				(inv.Status != entity.InvoiceStatusSent && inv.Status != entity.InvoiceStatusPartial) {
				return domain.Reject(domain.RejectPaymentOverApplied, "invoices", map[string]string{
					"amount":    a.Amount.StringFixed(2),
					"available": "0.00",
				})
			}
			if money.Cmp(a.Amount, inv.Balance) > 0 {
				return domain.Reject(domain.RejectPaymentOverApplied, "invoices", map[string]string{
					"amount":    a.Amount.StringFixed(2),
					"available": inv.Balance.StringFixed(2),
				})
			}
			invoices[i] = inv
		}

		credits := make([]*entity.Credit, len(in.Credits))
		for i, a := range in.Credits {
			cr, err := r.Credits.GetForUpdate(ctx, a.DocumentID)
			if err != nil {
				return err
			}
			if cr == nil || cr.CompanyID != tenant.CompanyID || cr.ClientID != client.ID || cr.IsDeleted {
				return fmt.Errorf("crédito %s: %w", a.DocumentID, domain.ErrNotFound)
			}
			if money.Cmp(a.Amount, cr.Balance) > 0 {
				return domain.Reject(domain.RejectCreditInsufficient, "credits", map[string]string{
					"number":    cr.Number,
					"available": cr.Balance.StringFixed(2),
				})
			}
			credits[i] = cr
		}

		invoiceTotal := sumAllocations(in.Invoices)
		creditTotal := sumAllocations(in.Credits)
		now := s.now()
		p := &entity.Payment{
			ID:                   uuid.New().String(),
			CompanyID:            tenant.CompanyID,
			ClientID:             client.ID,
			Number:               in.Number,
			Amount:               in.Amount,
			Applied:              invoiceTotal.Sub(creditTotal),
			Refunded:             decimal.Zero,
			Status:               entity.PaymentStatusCompleted,
			TransactionReference: in.TransactionReference,
			Date:                 in.Date,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if p.Date.IsZero() {
			p.Date = now
		}
		if err := r.Payments.Create(ctx, p); err != nil {
			return err
		}

		for i, a := range in.Credits {
			cr := credits[i]
			if err := r.Paymentables.Create(ctx, newPaymentable(p.ID, entity.PaymentableCredit, cr.ID, a.Amount, now)); err != nil {
				return err
			}
			if err := s.engine.UpdateBalanceAndPaidToDate(ctx, r, cr, a.Amount.Neg(), a.Amount); err != nil {
				return err
			}
			if err := s.engine.SetCalculatedStatus(ctx, r, cr); err != nil {
				return err
			}
		}

		var invoiceIDs []string
		for i, a := range in.Invoices {
			inv := invoices[i]
			if err := r.Paymentables.Create(ctx, newPaymentable(p.ID, entity.PaymentableInvoice, inv.ID, a.Amount, now)); err != nil {
				return err
			}
			if err := s.engine.UpdatePaidToDate(ctx, r, inv, a.Amount); err != nil {
				return err
			}
			if err := s.engine.UpdateInvoiceBalance(ctx, r, inv, a.Amount.Neg(), "Pago "+p.Number+" aplicado"); err != nil {
				return err
			}
			if err := s.engine.SetCalculatedStatus(ctx, r, inv); err != nil {
				return err
			}
			invoiceIDs = append(invoiceIDs, inv.ID)
			res.Outbox.Schedule(outbox.PaymentCashJob(tenant, inv.ID, p.ID))
		}

		// el efectivo no asignado también cuenta como pagado por el cliente
		if _, err := s.engine.AdjustClient(ctx, r, client.ID, ledgerDelta(invoiceTotal, p.Unapplied(), creditTotal)); err != nil {
			return err
		}

		if in.BankTransactionID != "" {
			bt, err := r.BankTransactions.GetByID(ctx, in.BankTransactionID)
			if err != nil {
				return err
			}
			if bt == nil || bt.CompanyID != tenant.CompanyID {
				return fmt.Errorf("movimiento bancario %s: %w", in.BankTransactionID, domain.ErrNotFound)
			}
			bt.PaymentID = p.ID
			bt.InvoiceIDs = strings.Join(invoiceIDs, ",")
			bt.Status = entity.BankTransactionConverted
			if err := r.BankTransactions.Update(ctx, bt); err != nil {
				return err
			}
		}

		res.Payment = p
		res.Outbox.Emit(outbox.EventPaymentCreated, tenant.CompanyID, p.ID, map[string]any{
			"amount":  p.Amount.StringFixed(2),
			"applied": p.Applied.StringFixed(2),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("payment_id", res.Payment.ID).Str("amount", res.Payment.Amount.StringFixed(2)).Msg("pago aplicado")
	return &res, nil
}

func validateApply(in ApplyInput) error {
	if in.Amount.Sign() < 0 {
		return domain.Reject(domain.RejectPaymentAmountInvalid, "amount", map[string]string{"amount": in.Amount.StringFixed(2)})
	}
	for _, a := range append(append([]Allocation(nil), in.Invoices...), in.Credits...) {
		if a.Amount.Sign() <= 0 {
			return domain.Reject(domain.RejectPaymentAmountInvalid, "allocations", map[string]string{"amount": a.Amount.StringFixed(2)})
		}
	}
	invoiceTotal := sumAllocations(in.Invoices)
	creditTotal := sumAllocations(in.Credits)
	if money.Cmp(invoiceTotal, in.Amount.Add(creditTotal)) > 0 {
		return domain.Reject(domain.RejectPaymentOverApplied, "amount", map[string]string{
			"amount":    invoiceTotal.StringFixed(2),
			"available": in.Amount.Add(creditTotal).StringFixed(2),
		})
	}
	if money.Cmp(creditTotal, invoiceTotal) > 0 {
		return domain.Reject(domain.RejectPaymentOverApplied, "credits", map[string]string{
			"amount":    creditTotal.StringFixed(2),
			"available": invoiceTotal.StringFixed(2),
		})
	}
	return nil
}

func ledgerDelta(invoiceTotal, unapplied, creditTotal decimal.Decimal) ledger.ClientDelta {
	return ledger.ClientDelta{
		Balance:       invoiceTotal.Neg(),
		PaidToDate:    invoiceTotal.Add(unapplied),
		CreditBalance: creditTotal.Neg(),
	}
}

func sumAllocations(as []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range as {
		total = total.Add(a.Amount)
	}
	return total
}

// mergeAllocations agrupa por documento para validar el total contra el saldo.
func mergeAllocations(as []Allocation) []Allocation {
	idx := make(map[string]int, len(as))
	out := make([]Allocation, 0, len(as))
	for _, a := range as {
		if i, ok := idx[a.DocumentID]; ok {
			out[i].Amount = out[i].Amount.Add(a.Amount)
			continue
		}
		idx[a.DocumentID] = len(out)
		out = append(out, a)
	}
	return out
}

func newPaymentable(paymentID string, t entity.PaymentableType, documentID string, amount decimal.Decimal, now time.Time) *entity.Paymentable {
	return &entity.Paymentable{
		ID:         uuid.New().String(),
		PaymentID:  paymentID,
		Type:       t,
		DocumentID: documentID,
		Amount:     amount,
		Refunded:   decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
