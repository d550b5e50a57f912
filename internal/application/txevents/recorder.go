// Package txevents registrador de eventos fiscales: instantáneas de cliente, factura y pago por periodo
// mensual que alimentan el informe de impuestos. Sus fallos nunca revierten la operación de origen.
package txevents

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// Recorder escribe TransactionEvents a partir de los trabajos del outbox.
type Recorder struct {
	tx  ports.TxRunner
	log zerolog.Logger
	now func() time.Time
}

// NewRecorder crea el registrador.
func NewRecorder(tx ports.TxRunner, log zerolog.Logger) *Recorder {
	return &Recorder{tx: tx, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Handle atiende los trabajos txevents.*. Los fallos se registran y se descartan, salvo los
// transitorios (bloqueo o serialización), que se devuelven para que la cola reintente.
func (rc *Recorder) Handle(ctx context.Context, job outbox.JobRequest) (err error) {
	defer func() {
		if p := recover(); p != nil {
			rc.log.Error().Str("job", job.Type).Interface("panic", p).Msg("registrador de eventos fiscales")
			err = nil
		}
	}()

	switch job.Type {
	case outbox.JobPaymentAdjustment:
		p, ok := job.Payload.(outbox.PaymentEventPayload)
		if !ok {
			err = fmt.Errorf("payload %T: %w", job.Payload, domain.ErrInvalidInput)
			break
		}
		err = rc.RecordPaymentAdjustment(ctx, job.Tenant, p)
	case outbox.JobInvoiceUpdated:
		p, ok := job.Payload.(outbox.InvoiceEventPayload)
		if !ok {
			err = fmt.Errorf("payload %T: %w", job.Payload, domain.ErrInvalidInput)
			break
		}
		err = rc.RecordInvoiceUpdated(ctx, job.Tenant, p.InvoiceID)
	case outbox.JobPaymentCash:
		p, ok := job.Payload.(outbox.InvoiceEventPayload)
		if !ok {
			err = fmt.Errorf("payload %T: %w", job.Payload, domain.ErrInvalidInput)
			break
		}
		err = rc.RecordPaymentCash(ctx, job.Tenant, p.InvoiceID, p.PaymentID)
	default:
		err = fmt.Errorf("trabajo %q: %w", job.Type, domain.ErrInvalidInput)
	}

	if err == nil {
		return nil
	}
	if domain.IsRetryable(err) {
		return err
	}
	rc.log.Error().Err(err).Str("job", job.Type).Str("key", job.Key).Msg("registrador de eventos fiscales")
	return nil
}

// RecordPaymentAdjustment deja una fila de ajuste por factura de periodo cerrado tras un reembolso
// o borrado de pago, sustituyendo la anterior del mismo periodo.
func (rc *Recorder) RecordPaymentAdjustment(ctx context.Context, tenant entity.Tenant, p outbox.PaymentEventPayload) error {
	return rc.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		company, err := loadCompany(ctx, r, tenant)
		if err != nil {
			return err
		}
		loc := company.Location()
		now := rc.now()
		period := EndOfMonth(now, loc)

		pay, err := r.Payments.GetByID(ctx, p.PaymentID)
		if err != nil {
			return err
		}
		if pay == nil {
			return fmt.Errorf("pago %s: %w", p.PaymentID, domain.ErrNotFound)
		}
		client, err := r.Clients.GetByID(ctx, pay.ClientID)
		if err != nil {
			return err
		}

		eventType := entity.TransactionEventPaymentRefunded
		if p.Deleted {
			eventType = entity.TransactionEventPaymentDeleted
		}

		for _, invoiceID := range sortedKeys(p.Adjustments) {
			adjustment := p.Adjustments[invoiceID]
			inv, err := r.Invoices.GetByID(ctx, invoiceID)
			if err != nil {
				return err
			}
			if inv == nil || !PeriodClosed(inv.Date, now, loc) {
				continue
			}
			if _, err := r.TransactionEvents.DeleteByInvoicePeriod(ctx, inv.ID, period, entity.AdjustmentEventTypes); err != nil {
				return err
			}
			history, err := loadHistory(ctx, r, inv.ID)
			if err != nil {
				return err
			}
			ev := snapshot(client, inv, pay, now, period)
			ev.EventID = eventType
			if p.Deleted {
				ev.Metadata = DeletionMetadata(inv, adjustment, history)
			} else {
				ev.Metadata = RefundMetadata(inv, adjustment, history)
			}
			if err := r.TransactionEvents.Create(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordInvoiceUpdated deja una fila InvoiceUpdated por factura y periodo con su estado fiscal actual.
func (rc *Recorder) RecordInvoiceUpdated(ctx context.Context, tenant entity.Tenant, invoiceID string) error {
	return rc.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		company, err := loadCompany(ctx, r, tenant)
		if err != nil {
			return err
		}
		inv, err := r.Invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
		}
		client, err := r.Clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return err
		}
		now := rc.now()
		period := EndOfMonth(now, company.Location())

		if _, err := r.TransactionEvents.DeleteByInvoicePeriod(ctx, inv.ID, period,
			[]entity.TransactionEventType{entity.TransactionEventInvoiceUpdated}); err != nil {
			return err
		}
		history, err := loadHistory(ctx, r, inv.ID)
		if err != nil {
			return err
		}
		ev := snapshot(client, inv, nil, now, period)
		ev.EventID = entity.TransactionEventInvoiceUpdated
		ev.Metadata = InvoiceMetadata(inv, history)
		return r.TransactionEvents.Create(ctx, ev)
	})
}

// RecordPaymentCash registra el cobro de una factura (criterio de caja). Una fila por pago, factura y periodo.
func (rc *Recorder) RecordPaymentCash(ctx context.Context, tenant entity.Tenant, invoiceID, paymentID string) error {
	return rc.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		company, err := loadCompany(ctx, r, tenant)
		if err != nil {
			return err
		}
		inv, err := r.Invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		pay, err := r.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if inv == nil || pay == nil || pay.IsDeleted {
			return nil
		}
		now := rc.now()
		period := EndOfMonth(now, company.Location())

		existing, err := r.TransactionEvents.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		for _, ev := range existing {
			if ev.EventID == entity.TransactionEventPaymentCash && ev.PaymentID == pay.ID && samePeriod(ev.Period, period) {
				return nil
			}
		}

		paid, err := pivotNet(ctx, r, pay.ID, inv.ID)
		if err != nil {
			return err
		}
		client, err := r.Clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return err
		}
		history, err := loadHistory(ctx, r, inv.ID)
		if err != nil {
			return err
		}
		ev := snapshot(client, inv, pay, now, period)
		ev.EventID = entity.TransactionEventPaymentCash
		ev.Metadata = CashMetadata(inv, paid, history)
		return r.TransactionEvents.Create(ctx, ev)
	})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func loadCompany(ctx context.Context, r *repository.Repos, tenant entity.Tenant) (*entity.Company, error) {
	company, err := r.Companies.GetByID(ctx, tenant.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("empresa %s: %w", tenant.CompanyID, domain.ErrNotFound)
	}
	return company, nil
}

// loadHistory pagos vigentes de la factura con su neto aplicado.
func loadHistory(ctx context.Context, r *repository.Repos, invoiceID string) ([]HistoryItem, error) {
	payments, err := r.Payments.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryItem, 0, len(payments))
	for _, p := range payments {
		net, err := pivotNet(ctx, r, p.ID, invoiceID)
		if err != nil {
			return nil, err
		}
		out = append(out, HistoryItem{Payment: p, Net: net})
	}
	return out, nil
}

func pivotNet(ctx context.Context, r *repository.Repos, paymentID, invoiceID string) (decimal.Decimal, error) {
	pivots, err := r.Paymentables.ListByPayment(ctx, paymentID)
	if err != nil {
		return decimal.Zero, err
	}
	net := decimal.Zero
	for _, pv := range pivots {
		if pv.Type == entity.PaymentableInvoice && pv.DocumentID == invoiceID {
			net = net.Add(pv.Net())
		}
	}
	return net, nil
}

func snapshot(client *entity.Client, inv *entity.Invoice, pay *entity.Payment, now, period time.Time) *entity.TransactionEvent {
	ev := &entity.TransactionEvent{
		ID:                uuid.New().String(),
		CompanyID:         inv.CompanyID,
		ClientID:          inv.ClientID,
		InvoiceID:         inv.ID,
		Timestamp:         now.Unix(),
		Period:            period,
		InvoiceBalance:    inv.Balance,
		InvoiceAmount:     inv.Amount,
		InvoicePartial:    inv.Partial,
		InvoicePaidToDate: inv.PaidToDate,
		InvoiceStatus:     inv.Status,
		CreatedAt:         now,
	}
	if inv.IsDeleted {
		ev.InvoiceStatus = entity.InvoiceStatusDeleted
	}
	if client != nil {
		ev.ClientBalance = client.Balance
		ev.ClientPaidToDate = client.PaidToDate
		ev.ClientCreditBalance = client.CreditBalance
	}
	if pay != nil {
		ev.PaymentID = pay.ID
		ev.PaymentAmount = pay.Amount
		ev.PaymentApplied = pay.Applied
		ev.PaymentRefunded = pay.Refunded
		ev.PaymentStatus = pay.Status
	}
	return ev
}

// samePeriod compara por fecha de calendario; la columna DATE no conserva la zona.
func samePeriod(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
