// Package ledger motor de saldos: cada ajuste bloquea la fila dueña, aplica el delta sobre los
// valores bloqueados, los persiste y copia el resultado a la entidad del llamador.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// Engine motor de saldos. No abre transacciones: opera sobre los repos que recibe.
type Engine struct {
	log zerolog.Logger
	now func() time.Time
}

// NewEngine crea el motor.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// lock relee el documento con bloqueo de fila.
func (e *Engine) lock(ctx context.Context, r *repository.Repos, doc entity.Balanced) (entity.Balanced, error) {
	switch doc.Kind() {
	case entity.DocumentInvoice:
		inv, err := r.Invoices.GetForUpdate(ctx, doc.DocumentID())
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, fmt.Errorf("factura %s: %w", doc.DocumentID(), domain.ErrNotFound)
		}
		return inv, nil
	case entity.DocumentCredit:
		cr, err := r.Credits.GetForUpdate(ctx, doc.DocumentID())
		if err != nil {
			return nil, err
		}
		if cr == nil {
			return nil, fmt.Errorf("crédito %s: %w", doc.DocumentID(), domain.ErrNotFound)
		}
		return cr, nil
	}
	return nil, fmt.Errorf("tipo de documento %q: %w", doc.Kind(), domain.ErrInvalidInput)
}

// Save persiste balance, paid_to_date y estado del documento.
func (e *Engine) Save(ctx context.Context, r *repository.Repos, doc entity.Balanced) error {
	switch d := doc.(type) {
	case *entity.Invoice:
		return r.Invoices.UpdateLedgerFields(ctx, d)
	case *entity.Credit:
		return r.Credits.UpdateLedgerFields(ctx, d)
	}
	return fmt.Errorf("tipo de documento %q: %w", doc.Kind(), domain.ErrInvalidInput)
}

// UpdateBalanceAndPaidToDate suma ambos deltas a los valores bloqueados del documento.
func (e *Engine) UpdateBalanceAndPaidToDate(ctx context.Context, r *repository.Repos, doc entity.Balanced, balanceDelta, paidDelta decimal.Decimal) error {
	locked, err := e.lock(ctx, r, doc)
	if err != nil {
		return err
	}
	_, balance, paid := locked.Totals()
	doc.SetTotals(balance.Add(balanceDelta), paid.Add(paidDelta))
	return e.Save(ctx, r, doc)
}

// UpdateBalance ajusta solo el saldo pendiente.
func (e *Engine) UpdateBalance(ctx context.Context, r *repository.Repos, doc entity.Balanced, delta decimal.Decimal) error {
	return e.UpdateBalanceAndPaidToDate(ctx, r, doc, delta, decimal.Zero)
}

// UpdatePaidToDate ajusta solo el pagado acumulado.
func (e *Engine) UpdatePaidToDate(ctx context.Context, r *repository.Repos, doc entity.Balanced, delta decimal.Decimal) error {
	return e.UpdateBalanceAndPaidToDate(ctx, r, doc, decimal.Zero, delta)
}

// UpdateInvoiceBalance ajusta el saldo de la factura y deja el memo en el libro.
func (e *Engine) UpdateInvoiceBalance(ctx context.Context, r *repository.Repos, inv *entity.Invoice, adjustment decimal.Decimal, notes string) error {
	if err := e.UpdateBalance(ctx, r, inv, adjustment); err != nil {
		return err
	}
	return r.LedgerEntries.Create(ctx, &entity.LedgerEntry{
		ID:           uuid.New().String(),
		CompanyID:    inv.CompanyID,
		ClientID:     inv.ClientID,
		DocumentType: entity.DocumentInvoice,
		DocumentID:   inv.ID,
		Adjustment:   adjustment,
		Balance:      inv.Balance,
		Notes:        notes,
		CreatedAt:    e.now(),
	})
}

// SetCalculatedStatus deriva el estado del saldo y lo persiste.
func (e *Engine) SetCalculatedStatus(ctx context.Context, r *repository.Repos, doc entity.Balanced) error {
	doc.SetCalculatedStatus()
	return e.Save(ctx, r, doc)
}

// ── Cliente ──────────────────────────────────────────────────────────────────

// ClientDelta deltas a aplicar sobre los agregados del cliente.
type ClientDelta struct {
	Balance       decimal.Decimal
	PaidToDate    decimal.Decimal
	CreditBalance decimal.Decimal
}

// AdjustClient bloquea al cliente y aplica los deltas.
func (e *Engine) AdjustClient(ctx context.Context, r *repository.Repos, clientID string, d ClientDelta) (*entity.Client, error) {
	client, err := r.Clients.GetForUpdate(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("cliente %s: %w", clientID, domain.ErrNotFound)
	}
	if d.Balance.IsZero() && d.PaidToDate.IsZero() && d.CreditBalance.IsZero() {
		return client, nil
	}
	client.Balance = client.Balance.Add(d.Balance)
	client.PaidToDate = client.PaidToDate.Add(d.PaidToDate)
	client.CreditBalance = client.CreditBalance.Add(d.CreditBalance)
	if err := r.Clients.UpdateLedgerFields(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// UpdateClientBalance ajusta el saldo pendiente del cliente.
func (e *Engine) UpdateClientBalance(ctx context.Context, r *repository.Repos, clientID string, delta decimal.Decimal) (*entity.Client, error) {
	return e.AdjustClient(ctx, r, clientID, ClientDelta{Balance: delta})
}

// UpdateClientPaidToDate ajusta el pagado acumulado del cliente.
func (e *Engine) UpdateClientPaidToDate(ctx context.Context, r *repository.Repos, clientID string, delta decimal.Decimal) (*entity.Client, error) {
	return e.AdjustClient(ctx, r, clientID, ClientDelta{PaidToDate: delta})
}

// UpdateClientBalanceAndPaidToDate ajusta ambos agregados en un único bloqueo.
func (e *Engine) UpdateClientBalanceAndPaidToDate(ctx context.Context, r *repository.Repos, clientID string, balanceDelta, paidDelta decimal.Decimal) (*entity.Client, error) {
	return e.AdjustClient(ctx, r, clientID, ClientDelta{Balance: balanceDelta, PaidToDate: paidDelta})
}

// AdjustCreditBalance ajusta el crédito disponible del cliente.
func (e *Engine) AdjustCreditBalance(ctx context.Context, r *repository.Repos, clientID string, delta decimal.Decimal) (*entity.Client, error) {
	return e.AdjustClient(ctx, r, clientID, ClientDelta{CreditBalance: delta})
}

// RecalculateClientBalance fija el saldo del cliente a Σ balance de sus facturas no eliminadas y no borrador.
func (e *Engine) RecalculateClientBalance(ctx context.Context, r *repository.Repos, clientID string) (*entity.Client, error) {
	client, err := r.Clients.GetForUpdate(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("cliente %s: %w", clientID, domain.ErrNotFound)
	}
	sum, err := r.Invoices.SumBalanceByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.Balance.Equal(sum) {
		e.log.Debug().
			Str("client_id", clientID).
			Str("anterior", client.Balance.StringFixed(2)).
			Str("recalculado", sum.StringFixed(2)).
			Msg("saldo de cliente recalculado")
	}
	client.Balance = sum
	if err := r.Clients.UpdateLedgerFields(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}
