package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/invorya-ledger/internal/application/actions"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/payment"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// Acciones masivas admitidas.
const (
	BulkMarkSent = "mark_sent"
	BulkCancel   = "cancel"
	BulkDelete   = actions.ActionDelete
	BulkRestore  = "restore"
	BulkMarkPaid = "mark_paid"
)

// BulkInput acción masiva sobre un lote de facturas.
type BulkInput struct {
	ClientIP string
	Action   string
	IDs      []string
}

// BulkItem resultado por factura. Err nil = aplicada.
type BulkItem struct {
	InvoiceID string
	Err       error
}

// BulkResult resultados por factura en el orden de IDs y efectos acumulados de las aplicadas.
type BulkResult struct {
	Action string
	Items  []BulkItem
	Outbox outbox.Outbox
}

// BulkService ejecuta acciones masivas, cada factura en su propia transacción.
type BulkService struct {
	invoices *Service
	payments *payment.Service
	lock     *actions.Lock
	log      zerolog.Logger
}

// NewBulkService construye el servicio de acciones masivas.
func NewBulkService(invoices *Service, payments *payment.Service, lock *actions.Lock, log zerolog.Logger) *BulkService {
	return &BulkService{invoices: invoices, payments: payments, lock: lock, log: log}
}

func validBulkAction(action string) bool {
	switch action {
	case BulkMarkSent, BulkCancel, BulkDelete, BulkRestore, BulkMarkPaid:
		return true
	}
	return false
}

// Run toma el candado de la acción, recorre las facturas con cursor y aplica la acción a cada una.
// Un fallo en una factura no detiene el lote; los IDs inexistentes se informan como no encontrados.
func (b *BulkService) Run(ctx context.Context, tenant entity.Tenant, in BulkInput) (*BulkResult, error) {
	if !validBulkAction(in.Action) || len(in.IDs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := b.lock.Acquire(ctx, in.ClientIP, in.Action, tenant.CompanyID, len(in.IDs)); err != nil {
		return nil, err
	}

	res := &BulkResult{Action: in.Action}
	outcome := make(map[string]error, len(in.IDs))
	err := b.invoices.tx.Repos(tenant).Invoices.StreamByIDs(ctx, tenant.CompanyID, in.IDs, func(inv *entity.Invoice) error {
		ob, err := b.apply(ctx, tenant, in.Action, inv)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn().Err(err).Str("invoice_id", inv.ID).Str("action", in.Action).Msg("acción masiva rechazada")
			outcome[inv.ID] = err
			return nil
		}
		outcome[inv.ID] = nil
		res.Outbox.Merge(ob)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range in.IDs {
		e, seen := outcome[id]
		if !seen {
			e = fmt.Errorf("factura %s: %w", id, domain.ErrNotFound)
		}
		res.Items = append(res.Items, BulkItem{InvoiceID: id, Err: e})
	}
	b.log.Info().Str("action", in.Action).Int("lote", len(in.IDs)).Msg("acción masiva ejecutada")
	return res, nil
}

func (b *BulkService) apply(ctx context.Context, tenant entity.Tenant, action string, inv *entity.Invoice) (outbox.Outbox, error) {
	switch action {
	case BulkMarkSent:
		r, err := b.invoices.MarkSent(ctx, tenant, inv.ID)
		if err != nil {
			return outbox.Outbox{}, err
		}
		return r.Outbox, nil
	case BulkCancel:
		r, err := b.invoices.Cancel(ctx, tenant, inv.ID, "")
		if err != nil {
			return outbox.Outbox{}, err
		}
		return r.Outbox, nil
	case BulkDelete:
		r, err := b.invoices.Delete(ctx, tenant, inv.ID)
		if err != nil {
			return outbox.Outbox{}, err
		}
		return r.Outbox, nil
	case BulkRestore:
		r, err := b.invoices.Restore(ctx, tenant, inv.ID)
		if err != nil {
			return outbox.Outbox{}, err
		}
		return r.Outbox, nil
	case BulkMarkPaid:
		return b.markPaid(ctx, tenant, inv)
	}
	return outbox.Outbox{}, domain.ErrInvalidInput
}

// markPaid registra un cobro por el saldo pendiente de la factura.
func (b *BulkService) markPaid(ctx context.Context, tenant entity.Tenant, inv *entity.Invoice) (outbox.Outbox, error) {
	if inv.IsDeleted || (inv.Status != entity.InvoiceStatusSent && inv.Status != entity.InvoiceStatusPartial) || inv.Balance.Sign() <= 0 {
		return outbox.Outbox{}, domain.Reject(domain.RejectPaymentOverApplied, "invoice", map[string]string{
			"amount":    inv.Balance.StringFixed(2),
			"available": "0.00",
		})
	}
	r, err := b.payments.Apply(ctx, tenant, payment.ApplyInput{
		ClientID: inv.ClientID,
		Amount:   inv.Balance,
		Invoices: []payment.Allocation{{DocumentID: inv.ID, Amount: inv.Balance}},
	})
	if err != nil {
		return outbox.Outbox{}, err
	}
	return r.Outbox, nil
}
