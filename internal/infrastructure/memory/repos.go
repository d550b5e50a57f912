package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

func newRepos(c conn) *repository.Repos {
	return &repository.Repos{
		Companies:         &companyRepo{c},
		Clients:           &clientRepo{c},
		Invoices:          &invoiceRepo{c},
		Credits:           &creditRepo{c},
		Payments:          &paymentRepo{c},
		Paymentables:      &paymentableRepo{c},
		BankTransactions:  &bankTransactionRepo{c},
		LedgerEntries:     &ledgerEntryRepo{c},
		TransactionEvents: &transactionEventRepo{c},
		VerifactuLogs:     &verifactuLogRepo{c},
	}
}

func duplicate(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrDuplicate)
}

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// ── Company ──────────────────────────────────────────────────────────────────

type companyRepo struct{ c conn }

func (r *companyRepo) Create(_ context.Context, company *entity.Company) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.companies.has(company.ID) {
		return duplicate("empresa", company.ID)
	}
	ds.companies.put(company.ID, *company)
	return nil
}

func (r *companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.companies.get(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *companyRepo) LockFiscalSequence(_ context.Context, companyID string) error {
	ds, release := r.c.acquire()
	defer release()
	if !ds.companies.has(companyID) {
		return missing("empresa", companyID)
	}
	return nil
}

// ── Client ───────────────────────────────────────────────────────────────────

type clientRepo struct{ c conn }

func (r *clientRepo) Create(_ context.Context, client *entity.Client) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.clients.has(client.ID) {
		return duplicate("cliente", client.ID)
	}
	ds.clients.put(client.ID, *client)
	return nil
}

func (r *clientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.clients.get(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *clientRepo) GetForUpdate(ctx context.Context, id string) (*entity.Client, error) {
	return r.GetByID(ctx, id)
}

func (r *clientRepo) UpdateLedgerFields(_ context.Context, client *entity.Client) error {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.clients.get(client.ID)
	if !ok {
		return missing("cliente", client.ID)
	}
	v.Balance = client.Balance
	v.PaidToDate = client.PaidToDate
	v.CreditBalance = client.CreditBalance
	v.UpdatedAt = time.Now().UTC()
	ds.clients.put(v.ID, v)
	return nil
}

// ── Invoice ──────────────────────────────────────────────────────────────────

type invoiceRepo struct{ c conn }

func (r *invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.invoices.has(inv.ID) {
		return duplicate("factura", inv.ID)
	}
	ds.invoices.put(inv.ID, cloneInvoice(*inv))
	return nil
}

func (r *invoiceRepo) Save(_ context.Context, inv *entity.Invoice) error {
	ds, release := r.c.acquire()
	defer release()
	if !ds.invoices.has(inv.ID) {
		return missing("factura", inv.ID)
	}
	v := cloneInvoice(*inv)
	v.UpdatedAt = time.Now().UTC()
	ds.invoices.put(v.ID, v)
	return nil
}

func (r *invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.invoices.get(id)
	if !ok {
		return nil, nil
	}
	v = cloneInvoice(v)
	return &v, nil
}

func (r *invoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) UpdateLedgerFields(_ context.Context, inv *entity.Invoice) error {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.invoices.get(inv.ID)
	if !ok {
		return missing("factura", inv.ID)
	}
	v.Balance = inv.Balance
	v.PaidToDate = inv.PaidToDate
	v.Status = inv.Status
	v.UpdatedAt = time.Now().UTC()
	ds.invoices.put(v.ID, v)
	return nil
}

func (r *invoiceRepo) StreamByIDs(ctx context.Context, companyID string, ids []string, fn func(*entity.Invoice) error) error {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	ds, release := r.c.acquire()
	var rows []entity.Invoice
	ds.invoices.each(func(inv entity.Invoice) bool {
		if wanted[inv.ID] && inv.CompanyID == companyID {
			rows = append(rows, cloneInvoice(inv))
		}
		return true
	})
	release()

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepo) SumBalanceByClient(_ context.Context, clientID string) (decimal.Decimal, error) {
	ds, release := r.c.acquire()
	defer release()
	sum := decimal.Zero
	ds.invoices.each(func(inv entity.Invoice) bool {
		if inv.ClientID == clientID && !inv.IsDeleted && inv.Status != entity.InvoiceStatusDraft {
			sum = sum.Add(inv.Balance)
		}
		return true
	})
	return sum, nil
}

// ── Credit ───────────────────────────────────────────────────────────────────

type creditRepo struct{ c conn }

func (r *creditRepo) Create(_ context.Context, credit *entity.Credit) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.credits.has(credit.ID) {
		return duplicate("crédito", credit.ID)
	}
	ds.credits.put(credit.ID, *credit)
	return nil
}

func (r *creditRepo) GetByID(_ context.Context, id string) (*entity.Credit, error) {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.credits.get(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *creditRepo) GetForUpdate(ctx context.Context, id string) (*entity.Credit, error) {
	return r.GetByID(ctx, id)
}

func (r *creditRepo) UpdateLedgerFields(_ context.Context, credit *entity.Credit) error {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.credits.get(credit.ID)
	if !ok {
		return missing("crédito", credit.ID)
	}
	v.Balance = credit.Balance
	v.PaidToDate = credit.PaidToDate
	v.Status = credit.Status
	v.UpdatedAt = time.Now().UTC()
	ds.credits.put(v.ID, v)
	return nil
}

// ── Payment ──────────────────────────────────────────────────────────────────

type paymentRepo struct{ c conn }

func (r *paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.payments.has(p.ID) {
		return duplicate("pago", p.ID)
	}
	ds.payments.put(p.ID, *p)
	return nil
}

func (r *paymentRepo) Save(_ context.Context, p *entity.Payment) error {
	ds, release := r.c.acquire()
	defer release()
	if !ds.payments.has(p.ID) {
		return missing("pago", p.ID)
	}
	v := *p
	v.UpdatedAt = time.Now().UTC()
	ds.payments.put(v.ID, v)
	return nil
}

func (r *paymentRepo) GetByID(_ context.Context, id string) (*entity.Payment, error) {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.payments.get(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *paymentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.Payment, error) {
	ds, release := r.c.acquire()
	defer release()
	seen := map[string]bool{}
	var out []*entity.Payment
	ds.paymentables.each(func(pv entity.Paymentable) bool {
		if pv.Type != entity.PaymentableInvoice || pv.DocumentID != invoiceID || seen[pv.PaymentID] {
			return true
		}
		p, ok := ds.payments.get(pv.PaymentID)
		if ok && !p.IsDeleted {
			seen[p.ID] = true
			out = append(out, &p)
		}
		return true
	})
	return out, nil
}

// ── Paymentable ──────────────────────────────────────────────────────────────

type paymentableRepo struct{ c conn }

func (r *paymentableRepo) Create(_ context.Context, p *entity.Paymentable) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.paymentables.has(p.ID) {
		return duplicate("paymentable", p.ID)
	}
	ds.paymentables.put(p.ID, *p)
	return nil
}

func (r *paymentableRepo) Update(_ context.Context, p *entity.Paymentable) error {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.paymentables.get(p.ID)
	if !ok {
		return missing("paymentable", p.ID)
	}
	v.Refunded = p.Refunded
	v.UpdatedAt = time.Now().UTC()
	ds.paymentables.put(v.ID, v)
	return nil
}

func (r *paymentableRepo) ListByPayment(_ context.Context, paymentID string) ([]*entity.Paymentable, error) {
	ds, release := r.c.acquire()
	defer release()
	var out []*entity.Paymentable
	ds.paymentables.each(func(pv entity.Paymentable) bool {
		if pv.PaymentID == paymentID {
			out = append(out, &pv)
		}
		return true
	})
	return out, nil
}

func (r *paymentableRepo) ListByDocument(_ context.Context, docType entity.PaymentableType, documentID string) ([]*entity.Paymentable, error) {
	ds, release := r.c.acquire()
	defer release()
	var out []*entity.Paymentable
	ds.paymentables.each(func(pv entity.Paymentable) bool {
		if pv.Type == docType && pv.DocumentID == documentID {
			out = append(out, &pv)
		}
		return true
	})
	return out, nil
}

func (r *paymentableRepo) DeleteByPayment(_ context.Context, paymentID string) (int64, error) {
	ds, release := r.c.acquire()
	defer release()
	var keep []string
	var deleted int64
	for _, id := range ds.paymentables.order {
		if ds.paymentables.rows[id].PaymentID == paymentID {
			delete(ds.paymentables.rows, id)
			deleted++
			continue
		}
		keep = append(keep, id)
	}
	ds.paymentables.order = keep
	return deleted, nil
}

// ── BankTransaction ──────────────────────────────────────────────────────────

type bankTransactionRepo struct{ c conn }

func (r *bankTransactionRepo) Create(_ context.Context, bt *entity.BankTransaction) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.bankTransactions.has(bt.ID) {
		return duplicate("movimiento bancario", bt.ID)
	}
	ds.bankTransactions.put(bt.ID, *bt)
	return nil
}

func (r *bankTransactionRepo) ListByPayment(_ context.Context, paymentID string) ([]*entity.BankTransaction, error) {
	ds, release := r.c.acquire()
	defer release()
	var out []*entity.BankTransaction
	ds.bankTransactions.each(func(bt entity.BankTransaction) bool {
		if bt.PaymentID == paymentID {
			out = append(out, &bt)
		}
		return true
	})
	return out, nil
}

func (r *bankTransactionRepo) Update(_ context.Context, bt *entity.BankTransaction) error {
	ds, release := r.c.acquire()
	defer release()
	if !ds.bankTransactions.has(bt.ID) {
		return missing("movimiento bancario", bt.ID)
	}
	v := *bt
	v.UpdatedAt = time.Now().UTC()
	ds.bankTransactions.put(v.ID, v)
	return nil
}

func (r *bankTransactionRepo) GetByID(_ context.Context, id string) (*entity.BankTransaction, error) {
	ds, release := r.c.acquire()
	defer release()
	v, ok := ds.bankTransactions.get(id)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// ── LedgerEntry ──────────────────────────────────────────────────────────────

type ledgerEntryRepo struct{ c conn }

func (r *ledgerEntryRepo) Create(_ context.Context, e *entity.LedgerEntry) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.ledgerEntries.has(e.ID) {
		return duplicate("asiento", e.ID)
	}
	ds.ledgerEntries.put(e.ID, *e)
	return nil
}

func (r *ledgerEntryRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.LedgerEntry, error) {
	ds, release := r.c.acquire()
	defer release()
	var out []*entity.LedgerEntry
	ds.ledgerEntries.each(func(e entity.LedgerEntry) bool {
		if e.DocumentID == documentID {
			out = append(out, &e)
		}
		return true
	})
	return out, nil
}

// ── TransactionEvent ─────────────────────────────────────────────────────────

type transactionEventRepo struct{ c conn }

func (r *transactionEventRepo) Create(_ context.Context, e *entity.TransactionEvent) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.events.has(e.ID) {
		return duplicate("evento", e.ID)
	}
	ds.events.put(e.ID, cloneEvent(*e))
	return nil
}

func (r *transactionEventRepo) DeleteByInvoicePeriod(_ context.Context, invoiceID string, period time.Time, types []entity.TransactionEventType) (int64, error) {
	ds, release := r.c.acquire()
	defer release()
	match := map[entity.TransactionEventType]bool{}
	for _, t := range types {
		match[t] = true
	}
	var keep []string
	var deleted int64
	for _, id := range ds.events.order {
		ev := ds.events.rows[id]
		if ev.InvoiceID == invoiceID && samePeriod(ev.Period, period) && match[ev.EventID] {
			delete(ds.events.rows, id)
			deleted++
			continue
		}
		keep = append(keep, id)
	}
	ds.events.order = keep
	return deleted, nil
}

func (r *transactionEventRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.TransactionEvent, error) {
	ds, release := r.c.acquire()
	defer release()
	var out []*entity.TransactionEvent
	ds.events.each(func(ev entity.TransactionEvent) bool {
		if ev.InvoiceID == invoiceID {
			ev = cloneEvent(ev)
			out = append(out, &ev)
		}
		return true
	})
	return out, nil
}

func (r *transactionEventRepo) ListByCompanyPeriod(_ context.Context, companyID string, from, to time.Time) ([]*entity.TransactionEvent, error) {
	ds, release := r.c.acquire()
	defer release()
	var out []*entity.TransactionEvent
	ds.events.each(func(ev entity.TransactionEvent) bool {
		if ev.CompanyID == companyID && !ev.Period.Before(dateOnly(from)) && !ev.Period.After(dateOnly(to)) {
			ev = cloneEvent(ev)
			out = append(out, &ev)
		}
		return true
	})
	return out, nil
}

// samePeriod compara por fecha de calendario, como la columna DATE.
func samePeriod(a, b time.Time) bool {
	return dateOnly(a).Equal(dateOnly(b))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── VerifactuLog ─────────────────────────────────────────────────────────────

type verifactuLogRepo struct{ c conn }

func (r *verifactuLogRepo) Create(_ context.Context, log *entity.VerifactuLog) error {
	ds, release := r.c.acquire()
	defer release()
	if ds.verifactuLogs.has(log.ID) {
		return duplicate("registro verifactu", log.ID)
	}
	dup := false
	ds.verifactuLogs.each(func(l entity.VerifactuLog) bool {
		dup = l.InvoiceID == log.InvoiceID
		return !dup
	})
	if dup {
		return duplicate("registro verifactu de la factura", log.InvoiceID)
	}
	ds.verifactuLogs.put(log.ID, *log)
	return nil
}

func (r *verifactuLogRepo) LatestByCompany(_ context.Context, companyID string) (*entity.VerifactuLog, error) {
	ds, release := r.c.acquire()
	defer release()
	var latest *entity.VerifactuLog
	ds.verifactuLogs.each(func(l entity.VerifactuLog) bool {
		if l.CompanyID == companyID {
			latest = &l
		}
		return true
	})
	return latest, nil
}

func (r *verifactuLogRepo) GetByInvoice(_ context.Context, invoiceID string) (*entity.VerifactuLog, error) {
	ds, release := r.c.acquire()
	defer release()
	var found *entity.VerifactuLog
	ds.verifactuLogs.each(func(l entity.VerifactuLog) bool {
		if l.InvoiceID == invoiceID {
			found = &l
			return false
		}
		return true
	})
	return found, nil
}

func (r *verifactuLogRepo) StreamByCompany(ctx context.Context, companyID string, fn func(*entity.VerifactuLog) error) error {
	ds, release := r.c.acquire()
	var rows []entity.VerifactuLog
	ds.verifactuLogs.each(func(l entity.VerifactuLog) bool {
		if l.CompanyID == companyID {
			rows = append(rows, l)
		}
		return true
	})
	release()

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}
