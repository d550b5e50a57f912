package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

const defaultTimezone = "Europe/Madrid"

// CompanyUseCase alta y consulta de empresas y sus clientes.
type CompanyUseCase struct {
	tx ports.TxRunner
}

// NewCompanyUseCase construye el caso de uso.
func NewCompanyUseCase(tx ports.TxRunner) *CompanyUseCase {
	return &CompanyUseCase{tx: tx}
}

// Create crea una empresa en la base del tenant. En modo fiscal el NIF debe ser válido.
func (uc *CompanyUseCase) Create(ctx context.Context, tenantDB string, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("nombre requerido: %w", domain.ErrInvalidInput)
	}
	if in.VerifactuEnabled {
		if err := pkgverifactu.ValidateNIF(in.NIF); err != nil {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
		}
	}
	tz := in.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("zona horaria %q: %w", tz, domain.ErrInvalidInput)
	}
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	company := &entity.Company{
		ID:               id,
		Name:             in.Name,
		NIF:              pkgverifactu.NormalizeNIF(in.NIF),
		VerifactuEnabled: in.VerifactuEnabled,
		Timezone:         tz,
	}
	tenant := entity.Tenant{CompanyID: id, DB: tenantDB}
	err := uc.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		return r.Companies.Create(ctx, company)
	})
	if err != nil {
		return nil, err
	}
	return toCompanyResponse(company), nil
}

// GetByID obtiene la empresa del tenant.
func (uc *CompanyUseCase) GetByID(ctx context.Context, tenant entity.Tenant) (*dto.CompanyResponse, error) {
	company, err := uc.tx.Repos(tenant).Companies.GetByID(ctx, tenant.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return toCompanyResponse(company), nil
}

// CreateClient da de alta un cliente con saldos en cero.
func (uc *CompanyUseCase) CreateClient(ctx context.Context, tenant entity.Tenant, in dto.CreateClientRequest) (*dto.ClientResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("nombre requerido: %w", domain.ErrInvalidInput)
	}
	client := &entity.Client{
		ID:        uuid.New().String(),
		CompanyID: tenant.CompanyID,
		Name:      in.Name,
		NIF:       pkgverifactu.NormalizeNIF(in.NIF),
	}
	err := uc.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		company, err := r.Companies.GetByID(ctx, tenant.CompanyID)
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("empresa %s: %w", tenant.CompanyID, domain.ErrNotFound)
		}
		return r.Clients.Create(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// GetClient cliente con sus agregados. Otro tenant → ErrForbidden.
func (uc *CompanyUseCase) GetClient(ctx context.Context, tenant entity.Tenant, id string) (*dto.ClientResponse, error) {
	client, err := uc.tx.Repos(tenant).Clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}
	if client.CompanyID != tenant.CompanyID {
		return nil, domain.ErrForbidden
	}
	return toClientResponse(client), nil
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:               c.ID,
		Name:             c.Name,
		NIF:              c.NIF,
		VerifactuEnabled: c.VerifactuEnabled,
		Timezone:         c.Timezone,
		CreatedAt:        c.CreatedAt,
	}
}

func toClientResponse(c *entity.Client) *dto.ClientResponse {
	return &dto.ClientResponse{
		ID:            c.ID,
		CompanyID:     c.CompanyID,
		Name:          c.Name,
		NIF:           c.NIF,
		Balance:       c.Balance,
		PaidToDate:    c.PaidToDate,
		CreditBalance: c.CreditBalance,
	}
}
