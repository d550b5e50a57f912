package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// Create persiste una nueva empresa y su cabecera de cadena fiscal.
func (r *CompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now
	query := `
		INSERT INTO companies (id, name, nif, verifactu_enabled, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		company.ID, company.Name, company.NIF, company.VerifactuEnabled, company.Timezone,
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return mapError("insert company", err)
	}
	if _, err := r.q.Exec(ctx, `INSERT INTO verifactu_chain_heads (company_id) VALUES ($1) ON CONFLICT DO NOTHING`, company.ID); err != nil {
		return mapError("insert chain head", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, name, nif, verifactu_enabled, timezone, created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.NIF, &c.VerifactuEnabled, &c.Timezone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get company", err)
	}
	return &c, nil
}

// LockFiscalSequence bloquea la cabecera de la cadena Verifactu de la empresa hasta el fin de la tx.
func (r *CompanyRepo) LockFiscalSequence(ctx context.Context, companyID string) error {
	if _, err := r.q.Exec(ctx, `INSERT INTO verifactu_chain_heads (company_id) VALUES ($1) ON CONFLICT DO NOTHING`, companyID); err != nil {
		return mapError("ensure chain head", err)
	}
	var id string
	err := r.q.QueryRow(ctx, `SELECT company_id FROM verifactu_chain_heads WHERE company_id = $1 FOR UPDATE`, companyID).Scan(&id)
	if err != nil {
		return mapError("lock fiscal sequence", err)
	}
	return nil
}
