package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

var _ repository.CreditRepository = (*CreditRepo)(nil)

// CreditRepo implementación de CreditRepository (usable con pool o tx).
type CreditRepo struct {
	q Querier
}

// NewCreditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditRepository(q Querier) *CreditRepo {
	return &CreditRepo{q: q}
}

const creditColumns = `id, company_id, client_id, invoice_id, number, status_id, amount, balance, paid_to_date,
	is_deleted, deleted_at, created_at, updated_at`

// Create persiste una nota de crédito.
func (r *CreditRepo) Create(ctx context.Context, c *entity.Credit) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	query := `INSERT INTO credits (` + creditColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.ClientID, nullIfEmpty(c.InvoiceID), c.Number, c.Status, c.Amount, c.Balance, c.PaidToDate,
		c.IsDeleted, c.DeletedAt, c.CreatedAt, c.UpdatedAt,
	)
	return mapError("insert credit", err)
}

// GetByID obtiene una nota de crédito por ID.
func (r *CreditRepo) GetByID(ctx context.Context, id string) (*entity.Credit, error) {
	return r.get(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1`, id)
}

// GetForUpdate obtiene la nota de crédito bloqueando la fila.
func (r *CreditRepo) GetForUpdate(ctx context.Context, id string) (*entity.Credit, error) {
	return r.get(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1 FOR UPDATE`, id)
}

func (r *CreditRepo) get(ctx context.Context, query, id string) (*entity.Credit, error) {
	var c entity.Credit
	var invoiceID *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.ClientID, &invoiceID, &c.Number, &c.Status, &c.Amount, &c.Balance, &c.PaidToDate,
		&c.IsDeleted, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get credit", err)
	}
	c.InvoiceID = derefStr(invoiceID)
	return &c, nil
}

// UpdateLedgerFields persiste balance, paid_to_date y status.
func (r *CreditRepo) UpdateLedgerFields(ctx context.Context, c *entity.Credit) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE credits SET balance = $2, paid_to_date = $3, status_id = $4, updated_at = $5 WHERE id = $1`
	_, err := r.q.Exec(ctx, query, c.ID, c.Balance, c.PaidToDate, c.Status, c.UpdatedAt)
	return mapError("update credit ledger", err)
}
