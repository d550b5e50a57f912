package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// CreditStatus estado de la nota de crédito.
type CreditStatus int

const (
	CreditStatusDraft   CreditStatus = 1
	CreditStatusSent    CreditStatus = 2
	CreditStatusPartial CreditStatus = 3
	CreditStatusApplied CreditStatus = 4
)

// Credit nota de crédito: su saldo se consume como medio de pago.
type Credit struct {
	ID         string
	CompanyID  string
	ClientID   string
	InvoiceID  string
	Number     string
	Status     CreditStatus
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	PaidToDate decimal.Decimal
	IsDeleted  bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Credit) Kind() DocumentKind    { return DocumentCredit }
func (c *Credit) DocumentID() string    { return c.ID }
func (c *Credit) OwnerClientID() string { return c.ClientID }

func (c *Credit) Totals() (amount, balance, paidToDate decimal.Decimal) {
	return c.Amount, c.Balance, c.PaidToDate
}

func (c *Credit) SetTotals(balance, paidToDate decimal.Decimal) {
	c.Balance = balance
	c.PaidToDate = paidToDate
}

// SetCalculatedStatus 0 → aplicada, igual al total → enviada, resto → parcial.
func (c *Credit) SetCalculatedStatus() {
	switch {
	case money.Zero(c.Balance):
		c.Status = CreditStatusApplied
	case money.Same(c.Balance, c.Amount):
		c.Status = CreditStatusSent
	default:
		c.Status = CreditStatusPartial
	}
}

var _ Balanced = (*Credit)(nil)
