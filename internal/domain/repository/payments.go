package repository

import (
	"context"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// PaymentRepository define el puerto de persistencia para Payment.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	// Save actualiza importes, estado y borrado lógico.
	Save(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Payment, error)
	// ListByInvoice pagos no eliminados vinculados a la factura.
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
}

// PaymentableRepository define el puerto para los pivotes pago ↔ documento.
type PaymentableRepository interface {
	Create(ctx context.Context, p *entity.Paymentable) error
	// Update persiste el importe reembolsado.
	Update(ctx context.Context, p *entity.Paymentable) error
	ListByPayment(ctx context.Context, paymentID string) ([]*entity.Paymentable, error)
	ListByDocument(ctx context.Context, docType entity.PaymentableType, documentID string) ([]*entity.Paymentable, error)
	// DeleteByPayment borra físicamente los pivotes del pago.
	DeleteByPayment(ctx context.Context, paymentID string) (int64, error)
}

// BankTransactionRepository define el puerto para la conciliación bancaria.
type BankTransactionRepository interface {
	Create(ctx context.Context, bt *entity.BankTransaction) error
	ListByPayment(ctx context.Context, paymentID string) ([]*entity.BankTransaction, error)
	Update(ctx context.Context, bt *entity.BankTransaction) error
	GetByID(ctx context.Context, id string) (*entity.BankTransaction, error)
}
