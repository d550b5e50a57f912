package dto

import "github.com/shopspring/decimal"

// ApplyPaymentRequest body para POST /api/payments.
type ApplyPaymentRequest struct {
	ClientID             string              `json:"client_id"`
	Number               string              `json:"number,omitempty"`
	Amount               decimal.Decimal     `json:"amount"`
	Date                 string              `json:"date,omitempty"` // YYYY-MM-DD
	TransactionReference string              `json:"transaction_reference,omitempty"`
	Invoices             []AllocationRequest `json:"invoices"`
	Credits              []AllocationRequest `json:"credits,omitempty"`
	BankTransactionID    string              `json:"bank_transaction_id,omitempty"`
}

// AllocationRequest importe asignado a una factura o crédito.
type AllocationRequest struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// RefundPaymentRequest body para POST /api/payments/:id/refund.
type RefundPaymentRequest struct {
	Invoices []AllocationRequest `json:"invoices"`
}

// PaymentResponse pago en respuestas.
type PaymentResponse struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"client_id"`
	Number         string          `json:"number"`
	Amount         decimal.Decimal `json:"amount"`
	Applied        decimal.Decimal `json:"applied"`
	Refunded       decimal.Decimal `json:"refunded"`
	Status         int             `json:"status_id"`
	IsDeleted      bool            `json:"is_deleted"`
	AlreadyDeleted bool            `json:"already_deleted,omitempty"`
}
