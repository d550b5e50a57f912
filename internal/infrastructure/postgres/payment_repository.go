package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

var (
	_ repository.PaymentRepository     = (*PaymentRepo)(nil)
	_ repository.PaymentableRepository = (*PaymentableRepo)(nil)
)

// ── Payment ──────────────────────────────────────────────────────────────────

// PaymentRepo implementación de PaymentRepository (usable con pool o tx).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `id, company_id, client_id, number, amount, applied, refunded, status_id,
	transaction_reference, date, is_deleted, deleted_at, created_at, updated_at`

// Create persiste un pago.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.CompanyID, p.ClientID, p.Number, p.Amount, p.Applied, p.Refunded, p.Status,
		p.TransactionReference, p.Date, p.IsDeleted, p.DeletedAt, p.CreatedAt, p.UpdatedAt,
	)
	return mapError("insert payment", err)
}

// Save actualiza importes, estado y borrado lógico.
func (r *PaymentRepo) Save(ctx context.Context, p *entity.Payment) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE payments
		SET amount = $2, applied = $3, refunded = $4, status_id = $5, is_deleted = $6, deleted_at = $7, updated_at = $8
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, p.ID, p.Amount, p.Applied, p.Refunded, p.Status, p.IsDeleted, p.DeletedAt, p.UpdatedAt)
	return mapError("save payment", err)
}

// GetByID obtiene un pago por ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetForUpdate obtiene el pago bloqueando la fila.
func (r *PaymentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

func (r *PaymentRepo) get(ctx context.Context, query, id string) (*entity.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get payment", err)
	}
	return p, nil
}

// ListByInvoice pagos no eliminados vinculados a la factura, por fecha.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	query := `
		SELECT ` + prefixed("p", paymentColumns) + `
		FROM payments p
		WHERE NOT p.is_deleted
		  AND EXISTS (SELECT 1 FROM paymentables pv
		              WHERE pv.payment_id = p.id AND pv.type = 'invoice' AND pv.document_id = $1)
		ORDER BY p.date, p.created_at`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, mapError("list payments by invoice", err)
	}
	defer rows.Close()
	var out []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapError("scan payment", err)
		}
		out = append(out, p)
	}
	return out, mapError("list payments by invoice", rows.Err())
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.ClientID, &p.Number, &p.Amount, &p.Applied, &p.Refunded, &p.Status,
		&p.TransactionReference, &p.Date, &p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ── Paymentable ──────────────────────────────────────────────────────────────

// PaymentableRepo pivotes pago ↔ documento.
type PaymentableRepo struct {
	q Querier
}

// NewPaymentableRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentableRepository(q Querier) *PaymentableRepo {
	return &PaymentableRepo{q: q}
}

const paymentableColumns = `id, payment_id, type, document_id, amount, refunded, created_at, updated_at`

// Create persiste un pivote.
func (r *PaymentableRepo) Create(ctx context.Context, p *entity.Paymentable) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	query := `INSERT INTO paymentables (` + paymentableColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.PaymentID, string(p.Type), p.DocumentID, p.Amount, p.Refunded, p.CreatedAt, p.UpdatedAt,
	)
	return mapError("insert paymentable", err)
}

// Update persiste el importe reembolsado.
func (r *PaymentableRepo) Update(ctx context.Context, p *entity.Paymentable) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `UPDATE paymentables SET refunded = $2, updated_at = $3 WHERE id = $1`, p.ID, p.Refunded, p.UpdatedAt)
	return mapError("update paymentable", err)
}

// ListByPayment pivotes del pago en orden de alta.
func (r *PaymentableRepo) ListByPayment(ctx context.Context, paymentID string) ([]*entity.Paymentable, error) {
	return r.list(ctx, `SELECT `+paymentableColumns+` FROM paymentables WHERE payment_id = $1 ORDER BY created_at, id`, paymentID)
}

// ListByDocument pivotes de una factura o nota de crédito.
func (r *PaymentableRepo) ListByDocument(ctx context.Context, docType entity.PaymentableType, documentID string) ([]*entity.Paymentable, error) {
	return r.list(ctx, `SELECT `+paymentableColumns+` FROM paymentables WHERE type = $1 AND document_id = $2 ORDER BY created_at, id`,
		string(docType), documentID)
}

// DeleteByPayment borra físicamente los pivotes del pago.
func (r *PaymentableRepo) DeleteByPayment(ctx context.Context, paymentID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM paymentables WHERE payment_id = $1`, paymentID)
	if err != nil {
		return 0, mapError("delete paymentables", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PaymentableRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Paymentable, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list paymentables", err)
	}
	defer rows.Close()
	var out []*entity.Paymentable
	for rows.Next() {
		var p entity.Paymentable
		var typ string
		if err := rows.Scan(&p.ID, &p.PaymentID, &typ, &p.DocumentID, &p.Amount, &p.Refunded, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, mapError("scan paymentable", err)
		}
		p.Type = entity.PaymentableType(typ)
		out = append(out, &p)
	}
	return out, mapError("list paymentables", rows.Err())
}
