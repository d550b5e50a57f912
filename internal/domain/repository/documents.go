package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// Convención: GetByID/GetForUpdate devuelven (nil, nil) si la fila no existe.

// CompanyRepository define el puerto de persistencia para Company.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// LockFiscalSequence serializa la cadena Verifactu de la empresa hasta el fin de la transacción.
	LockFiscalSequence(ctx context.Context, companyID string) error
}

// ClientRepository define el puerto de persistencia para Client.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id string) (*entity.Client, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Client, error)
	// UpdateLedgerFields persiste balance, paid_to_date y credit_balance.
	UpdateLedgerFields(ctx context.Context, client *entity.Client) error
}

// InvoiceRepository define el puerto de persistencia para Invoice (líneas y respaldo incluidos).
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Save actualiza la factura completa (número, estado, importes, líneas, respaldo, borrado lógico).
	Save(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	// UpdateLedgerFields persiste balance, paid_to_date y status.
	UpdateLedgerFields(ctx context.Context, invoice *entity.Invoice) error
	// StreamByIDs recorre con cursor las facturas de la empresa con esos IDs.
	StreamByIDs(ctx context.Context, companyID string, ids []string, fn func(*entity.Invoice) error) error
	// SumBalanceByClient Σ balance de facturas no eliminadas y no borrador del cliente.
	SumBalanceByClient(ctx context.Context, clientID string) (decimal.Decimal, error)
}

// CreditRepository define el puerto de persistencia para Credit.
type CreditRepository interface {
	Create(ctx context.Context, credit *entity.Credit) error
	GetByID(ctx context.Context, id string) (*entity.Credit, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Credit, error)
	// UpdateLedgerFields persiste balance, paid_to_date y status.
	UpdateLedgerFields(ctx context.Context, credit *entity.Credit) error
}
