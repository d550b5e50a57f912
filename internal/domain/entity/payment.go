package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// PaymentStatus estado del pago.
type PaymentStatus int

const (
	PaymentStatusPending           PaymentStatus = 1
	PaymentStatusCancelled         PaymentStatus = 2
	PaymentStatusFailed            PaymentStatus = 3
	PaymentStatusCompleted         PaymentStatus = 4
	PaymentStatusPartiallyRefunded PaymentStatus = 5
	PaymentStatusRefunded          PaymentStatus = 6
)

// Payment cobro del cliente; se reparte entre facturas y créditos vía Paymentable.
type Payment struct {
	ID                   string
	CompanyID            string
	ClientID             string
	Number               string
	Amount               decimal.Decimal
	Applied              decimal.Decimal
	Refunded             decimal.Decimal
	Status               PaymentStatus
	TransactionReference string
	Date                 time.Time
	IsDeleted            bool
	DeletedAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Unapplied importe del pago no asignado a documentos.
func (p *Payment) Unapplied() decimal.Decimal {
	return p.Amount.Sub(p.Applied)
}

// SetRefundStatus deriva el estado de los importes reembolsados.
func (p *Payment) SetRefundStatus() {
	switch {
	case money.Zero(p.Refunded):
		p.Status = PaymentStatusCompleted
	case money.Cmp(p.Refunded, p.Amount) >= 0:
		p.Status = PaymentStatusRefunded
	default:
		p.Status = PaymentStatusPartiallyRefunded
	}
}

// PaymentableType tipo de documento vinculado al pago.
type PaymentableType string

const (
	PaymentableInvoice PaymentableType = "invoice"
	PaymentableCredit  PaymentableType = "credit"
)

// Paymentable pivote pago ↔ documento: importe aplicado y reembolsado.
type Paymentable struct {
	ID         string
	PaymentID  string
	Type       PaymentableType
	DocumentID string
	Amount     decimal.Decimal
	Refunded   decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Net importe aplicado menos reembolsado.
func (p *Paymentable) Net() decimal.Decimal {
	return p.Amount.Sub(p.Refunded)
}
