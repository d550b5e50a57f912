package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransactionStatus estado de conciliación bancaria.
type BankTransactionStatus int

const (
	BankTransactionUnmatched BankTransactionStatus = 1
	BankTransactionMatched   BankTransactionStatus = 2
	BankTransactionConverted BankTransactionStatus = 3
)

// BankTransaction movimiento bancario conciliado con un pago.
type BankTransaction struct {
	ID         string
	CompanyID  string
	InvoiceIDs string // lista separada por comas
	PaymentID  string
	Status     BankTransactionStatus
	UpdatedAt  time.Time
}

// LedgerEntry memo de auditoría de cada ajuste de saldo.
type LedgerEntry struct {
	ID           string
	CompanyID    string
	ClientID     string
	DocumentType DocumentKind
	DocumentID   string
	Adjustment   decimal.Decimal
	Balance      decimal.Decimal // saldo del documento tras el ajuste
	Notes        string
	CreatedAt    time.Time
}
