package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionEventType tipo de evento fiscal.
type TransactionEventType int

const (
	TransactionEventInvoiceUpdated  TransactionEventType = 1
	TransactionEventPaymentRefunded TransactionEventType = 2
	TransactionEventPaymentDeleted  TransactionEventType = 3
	TransactionEventPaymentCash     TransactionEventType = 4
)

// AdjustmentEventTypes tipos que comparten la regla "una fila de ajuste por factura y periodo".
var AdjustmentEventTypes = []TransactionEventType{TransactionEventPaymentRefunded, TransactionEventPaymentDeleted}

// Estados del resumen fiscal.
const (
	TaxStatusUpdated        = "updated"
	TaxStatusAdjustment     = "adjustment"
	TaxStatusPaymentDeleted = "payment_deleted"
	TaxStatusPayment        = "payment"
	TaxStatusCancelled      = "cancelled"
)

// TransactionEvent instantánea fiscal de factura/cliente/pago para informes por periodo.
type TransactionEvent struct {
	ID                  string
	CompanyID           string
	ClientID            string
	InvoiceID           string
	PaymentID           string
	EventID             TransactionEventType
	Timestamp           int64
	Period              time.Time // último día del mes
	ClientBalance       decimal.Decimal
	ClientPaidToDate    decimal.Decimal
	ClientCreditBalance decimal.Decimal
	InvoiceBalance      decimal.Decimal
	InvoiceAmount       decimal.Decimal
	InvoicePartial      decimal.Decimal
	InvoicePaidToDate   decimal.Decimal
	InvoiceStatus       InvoiceStatus
	PaymentAmount       decimal.Decimal
	PaymentApplied      decimal.Decimal
	PaymentRefunded     decimal.Decimal
	PaymentStatus       PaymentStatus
	Metadata            TransactionEventMetadata
	CreatedAt           time.Time
}

// TransactionEventMetadata bloque fiscal serializado en JSONB.
type TransactionEventMetadata struct {
	TaxReport TaxReport `json:"tax_report"`
}

// TaxReport detalle por impuesto, resumen e historial de pagos.
type TaxReport struct {
	TaxDetails     []TaxDetail          `json:"tax_details"`
	TaxSummary     TaxSummary           `json:"tax_summary"`
	PaymentHistory []PaymentHistoryItem `json:"payment_history"`
}

// TaxDetail base imponible y cuota de un impuesto en el evento.
type TaxDetail struct {
	TaxName       string          `json:"tax_name"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// TaxSummary totales del evento.
type TaxSummary struct {
	Status     string          `json:"status"`
	TotalTaxes decimal.Decimal `json:"total_taxes"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Adjustment decimal.Decimal `json:"adjustment"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
}

// PaymentHistoryItem pago vigente sobre la factura en el momento del evento.
type PaymentHistoryItem struct {
	PaymentID string          `json:"payment_id"`
	Number    string          `json:"number"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Refunded  decimal.Decimal `json:"refunded"`
}
