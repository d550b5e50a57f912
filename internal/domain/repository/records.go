package repository

import (
	"context"
	"time"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// LedgerEntryRepository memo de auditoría de ajustes de saldo (solo inserción).
type LedgerEntryRepository interface {
	Create(ctx context.Context, e *entity.LedgerEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.LedgerEntry, error)
}

// TransactionEventRepository eventos fiscales por periodo.
type TransactionEventRepository interface {
	Create(ctx context.Context, e *entity.TransactionEvent) error
	// DeleteByInvoicePeriod elimina las filas de esos tipos para la factura y periodo.
	DeleteByInvoicePeriod(ctx context.Context, invoiceID string, period time.Time, types []entity.TransactionEventType) (int64, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.TransactionEvent, error)
	// ListByCompanyPeriod eventos con periodo en [from, to].
	ListByCompanyPeriod(ctx context.Context, companyID string, from, to time.Time) ([]*entity.TransactionEvent, error)
}

// VerifactuLogRepository registro fiscal encadenado (solo inserción).
type VerifactuLogRepository interface {
	Create(ctx context.Context, log *entity.VerifactuLog) error
	// LatestByCompany último registro de la empresa por orden de creación; nil si no hay.
	LatestByCompany(ctx context.Context, companyID string) (*entity.VerifactuLog, error)
	GetByInvoice(ctx context.Context, invoiceID string) (*entity.VerifactuLog, error)
	// StreamByCompany recorre con cursor los registros en orden de creación.
	StreamByCompany(ctx context.Context, companyID string, fn func(*entity.VerifactuLog) error) error
}

// Repos agrupa los repositorios atados a una misma transacción (o al pool).
type Repos struct {
	Companies         CompanyRepository
	Clients           ClientRepository
	Invoices          InvoiceRepository
	Credits           CreditRepository
	Payments          PaymentRepository
	Paymentables      PaymentableRepository
	BankTransactions  BankTransactionRepository
	LedgerEntries     LedgerEntryRepository
	TransactionEvents TransactionEventRepository
	VerifactuLogs     VerifactuLogRepository
}
