package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

var (
	_ repository.BankTransactionRepository  = (*BankTransactionRepo)(nil)
	_ repository.LedgerEntryRepository      = (*LedgerEntryRepo)(nil)
	_ repository.TransactionEventRepository = (*TransactionEventRepo)(nil)
	_ repository.VerifactuLogRepository     = (*VerifactuLogRepo)(nil)
)

// prefixed antepone el alias de tabla a una lista de columnas.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// ── BankTransaction ──────────────────────────────────────────────────────────

// BankTransactionRepo conciliación bancaria.
type BankTransactionRepo struct {
	q Querier
}

// NewBankTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBankTransactionRepository(q Querier) *BankTransactionRepo {
	return &BankTransactionRepo{q: q}
}

const bankTransactionColumns = `id, company_id, invoice_ids, payment_id, status_id, updated_at`

func (r *BankTransactionRepo) Create(ctx context.Context, bt *entity.BankTransaction) error {
	if bt.ID == "" {
		bt.ID = uuid.New().String()
	}
	bt.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO bank_transactions (` + bankTransactionColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, bt.ID, bt.CompanyID, bt.InvoiceIDs, nullIfEmpty(bt.PaymentID), bt.Status, bt.UpdatedAt)
	return mapError("insert bank transaction", err)
}

func (r *BankTransactionRepo) GetByID(ctx context.Context, id string) (*entity.BankTransaction, error) {
	bts, err := r.list(ctx, `SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = $1`, id)
	if err != nil || len(bts) == 0 {
		return nil, err
	}
	return bts[0], nil
}

func (r *BankTransactionRepo) ListByPayment(ctx context.Context, paymentID string) ([]*entity.BankTransaction, error) {
	return r.list(ctx, `SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE payment_id = $1 ORDER BY id`, paymentID)
}

// Update persiste facturas vinculadas, pago y estado.
func (r *BankTransactionRepo) Update(ctx context.Context, bt *entity.BankTransaction) error {
	bt.UpdatedAt = time.Now().UTC()
	query := `UPDATE bank_transactions SET invoice_ids = $2, payment_id = $3, status_id = $4, updated_at = $5 WHERE id = $1`
	_, err := r.q.Exec(ctx, query, bt.ID, bt.InvoiceIDs, nullIfEmpty(bt.PaymentID), bt.Status, bt.UpdatedAt)
	return mapError("update bank transaction", err)
}

func (r *BankTransactionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.BankTransaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list bank transactions", err)
	}
	defer rows.Close()
	var out []*entity.BankTransaction
	for rows.Next() {
		var bt entity.BankTransaction
		var paymentID *string
		if err := rows.Scan(&bt.ID, &bt.CompanyID, &bt.InvoiceIDs, &paymentID, &bt.Status, &bt.UpdatedAt); err != nil {
			return nil, mapError("scan bank transaction", err)
		}
		bt.PaymentID = derefStr(paymentID)
		out = append(out, &bt)
	}
	return out, mapError("list bank transactions", rows.Err())
}

// ── LedgerEntry ──────────────────────────────────────────────────────────────

// LedgerEntryRepo memo de ajustes de saldo (solo inserción).
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

func (r *LedgerEntryRepo) Create(ctx context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO ledger_entries (id, company_id, client_id, document_type, document_id, adjustment, balance, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.ClientID, string(e.DocumentType), e.DocumentID, e.Adjustment, e.Balance, e.Notes, e.CreatedAt,
	)
	return mapError("insert ledger entry", err)
}

func (r *LedgerEntryRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, company_id, client_id, document_type, document_id, adjustment, balance, notes, created_at
		FROM ledger_entries WHERE document_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, mapError("list ledger entries", err)
	}
	defer rows.Close()
	var out []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		var docType string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ClientID, &docType, &e.DocumentID, &e.Adjustment, &e.Balance, &e.Notes, &e.CreatedAt); err != nil {
			return nil, mapError("scan ledger entry", err)
		}
		e.DocumentType = entity.DocumentKind(docType)
		out = append(out, &e)
	}
	return out, mapError("list ledger entries", rows.Err())
}

// ── TransactionEvent ─────────────────────────────────────────────────────────

// TransactionEventRepo eventos fiscales por periodo.
type TransactionEventRepo struct {
	q Querier
}

// NewTransactionEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransactionEventRepository(q Querier) *TransactionEventRepo {
	return &TransactionEventRepo{q: q}
}

const transactionEventColumns = `id, company_id, client_id, invoice_id, payment_id, event_id, timestamp, period,
	client_balance, client_paid_to_date, client_credit_balance,
	invoice_balance, invoice_amount, invoice_partial, invoice_paid_to_date, invoice_status,
	payment_amount, payment_applied, payment_refunded, payment_status, metadata, created_at`

func (r *TransactionEventRepo) Create(ctx context.Context, e *entity.TransactionEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	query := `INSERT INTO transaction_events (` + transactionEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err = r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.ClientID, e.InvoiceID, nullIfEmpty(e.PaymentID), e.EventID, e.Timestamp, periodDate(e.Period),
		e.ClientBalance, e.ClientPaidToDate, e.ClientCreditBalance,
		e.InvoiceBalance, e.InvoiceAmount, e.InvoicePartial, e.InvoicePaidToDate, e.InvoiceStatus,
		e.PaymentAmount, e.PaymentApplied, e.PaymentRefunded, e.PaymentStatus, meta, e.CreatedAt,
	)
	return mapError("insert transaction event", err)
}

// DeleteByInvoicePeriod elimina las filas de esos tipos para la factura y periodo.
func (r *TransactionEventRepo) DeleteByInvoicePeriod(ctx context.Context, invoiceID string, period time.Time, types []entity.TransactionEventType) (int64, error) {
	ids := make([]int16, 0, len(types))
	for _, t := range types {
		ids = append(ids, int16(t))
	}
	tag, err := r.q.Exec(ctx,
		`DELETE FROM transaction_events WHERE invoice_id = $1 AND period = $2 AND event_id = ANY($3)`,
		invoiceID, periodDate(period), ids)
	if err != nil {
		return 0, mapError("delete transaction events", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TransactionEventRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.TransactionEvent, error) {
	return r.list(ctx, `SELECT `+transactionEventColumns+` FROM transaction_events WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
}

// ListByCompanyPeriod eventos con periodo en [from, to].
func (r *TransactionEventRepo) ListByCompanyPeriod(ctx context.Context, companyID string, from, to time.Time) ([]*entity.TransactionEvent, error) {
	return r.list(ctx,
		`SELECT `+transactionEventColumns+` FROM transaction_events
		 WHERE company_id = $1 AND period BETWEEN $2 AND $3 ORDER BY period, created_at, id`,
		companyID, periodDate(from), periodDate(to))
}

func (r *TransactionEventRepo) list(ctx context.Context, query string, args ...any) ([]*entity.TransactionEvent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list transaction events", err)
	}
	defer rows.Close()
	var out []*entity.TransactionEvent
	for rows.Next() {
		var e entity.TransactionEvent
		var paymentID *string
		var meta []byte
		err := rows.Scan(
			&e.ID, &e.CompanyID, &e.ClientID, &e.InvoiceID, &paymentID, &e.EventID, &e.Timestamp, &e.Period,
			&e.ClientBalance, &e.ClientPaidToDate, &e.ClientCreditBalance,
			&e.InvoiceBalance, &e.InvoiceAmount, &e.InvoicePartial, &e.InvoicePaidToDate, &e.InvoiceStatus,
			&e.PaymentAmount, &e.PaymentApplied, &e.PaymentRefunded, &e.PaymentStatus, &meta, &e.CreatedAt,
		)
		if err != nil {
			return nil, mapError("scan transaction event", err)
		}
		e.PaymentID = derefStr(paymentID)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, mapError("list transaction events", rows.Err())
}

// periodDate fecha de calendario del periodo en su propia zona, como la columna DATE.
func periodDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ── VerifactuLog ─────────────────────────────────────────────────────────────

// VerifactuLogRepo registro fiscal encadenado (solo inserción). seq fija el orden de la cadena.
type VerifactuLogRepo struct {
	q Querier
}

// NewVerifactuLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVerifactuLogRepository(q Querier) *VerifactuLogRepo {
	return &VerifactuLogRepo{q: q}
}

const verifactuLogColumns = `id, company_id, invoice_id, nif, date, invoice_number, hash, previous_hash,
	status, response, state, created_at`

func (r *VerifactuLogRepo) Create(ctx context.Context, l *entity.VerifactuLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO verifactu_logs (` + verifactuLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.CompanyID, l.InvoiceID, l.NIF, l.Date, l.InvoiceNumber, l.Hash, l.PreviousHash,
		l.Status, l.Response, l.State, l.CreatedAt,
	)
	return mapError("insert verifactu log", err)
}

// LatestByCompany último registro de la cadena de la empresa.
func (r *VerifactuLogRepo) LatestByCompany(ctx context.Context, companyID string) (*entity.VerifactuLog, error) {
	return r.one(ctx, `SELECT `+verifactuLogColumns+` FROM verifactu_logs WHERE company_id = $1 ORDER BY seq DESC LIMIT 1`, companyID)
}

func (r *VerifactuLogRepo) GetByInvoice(ctx context.Context, invoiceID string) (*entity.VerifactuLog, error) {
	return r.one(ctx, `SELECT `+verifactuLogColumns+` FROM verifactu_logs WHERE invoice_id = $1`, invoiceID)
}

// StreamByCompany recorre con cursor los registros en orden de la cadena.
func (r *VerifactuLogRepo) StreamByCompany(ctx context.Context, companyID string, fn func(*entity.VerifactuLog) error) error {
	rows, err := r.q.Query(ctx, `SELECT `+verifactuLogColumns+` FROM verifactu_logs WHERE company_id = $1 ORDER BY seq`, companyID)
	if err != nil {
		return mapError("stream verifactu logs", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanVerifactuLog(rows)
		if err != nil {
			return mapError("scan verifactu log", err)
		}
		if err := fn(l); err != nil {
			return err
		}
	}
	return mapError("stream verifactu logs", rows.Err())
}

func (r *VerifactuLogRepo) one(ctx context.Context, query string, arg string) (*entity.VerifactuLog, error) {
	l, err := scanVerifactuLog(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get verifactu log", err)
	}
	return l, nil
}

func scanVerifactuLog(row pgx.Row) (*entity.VerifactuLog, error) {
	var l entity.VerifactuLog
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.InvoiceID, &l.NIF, &l.Date, &l.InvoiceNumber, &l.Hash, &l.PreviousHash,
		&l.Status, &l.Response, &l.State, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
