package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo implementación de ClientRepository (usable con pool o tx).
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

const clientColumns = `id, company_id, name, nif, balance, paid_to_date, credit_balance, created_at, updated_at`

// Create persiste un nuevo cliente.
func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	query := `INSERT INTO clients (` + clientColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.Name, c.NIF, c.Balance, c.PaidToDate, c.CreditBalance, c.CreatedAt, c.UpdatedAt,
	)
	return mapError("insert client", err)
}

// GetByID obtiene un cliente por ID.
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*entity.Client, error) {
	return r.get(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
}

// GetForUpdate obtiene el cliente bloqueando la fila hasta el fin de la transacción.
func (r *ClientRepo) GetForUpdate(ctx context.Context, id string) (*entity.Client, error) {
	return r.get(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 FOR UPDATE`, id)
}

func (r *ClientRepo) get(ctx context.Context, query, id string) (*entity.Client, error) {
	var c entity.Client
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.NIF, &c.Balance, &c.PaidToDate, &c.CreditBalance, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get client", err)
	}
	return &c, nil
}

// UpdateLedgerFields persiste balance, paid_to_date y credit_balance.
func (r *ClientRepo) UpdateLedgerFields(ctx context.Context, c *entity.Client) error {
	c.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE clients
		SET balance = $2, paid_to_date = $3, credit_balance = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, c.ID, c.Balance, c.PaidToDate, c.CreditBalance, c.UpdatedAt)
	return mapError("update client ledger", err)
}
