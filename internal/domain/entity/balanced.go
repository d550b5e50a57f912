package entity

import "github.com/shopspring/decimal"

// DocumentKind tipo de documento con saldo.
type DocumentKind string

const (
	DocumentInvoice DocumentKind = "invoice"
	DocumentCredit  DocumentKind = "credit"
)

// Balanced capacidad común de facturas y notas de crédito frente al motor de saldos.
type Balanced interface {
	Kind() DocumentKind
	DocumentID() string
	OwnerClientID() string
	Totals() (amount, balance, paidToDate decimal.Decimal)
	SetTotals(balance, paidToDate decimal.Decimal)
	SetCalculatedStatus()
}
