package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// InvoiceStatus estado del ciclo de vida de la factura.
type InvoiceStatus int

const (
	InvoiceStatusDraft     InvoiceStatus = 1
	InvoiceStatusSent      InvoiceStatus = 2
	InvoiceStatusPartial   InvoiceStatus = 3
	InvoiceStatusPaid      InvoiceStatus = 4
	InvoiceStatusCancelled InvoiceStatus = 5
	InvoiceStatusReversed  InvoiceStatus = 6
)

// InvoiceStatusDeleted solo se usa en instantáneas de eventos (factura eliminada).
const InvoiceStatusDeleted InvoiceStatus = 7

// Invoice cabecera de factura con sus agregados de saldo y el respaldo tipado.
type Invoice struct {
	ID               string
	CompanyID        string
	ClientID         string
	Number           string
	Status           InvoiceStatus
	Date             time.Time
	DueDate          *time.Time
	PartialDueDate   *time.Time
	Amount           decimal.Decimal // total con signo (negativo en rectificativas)
	Balance          decimal.Decimal // pendiente de cobro
	PaidToDate       decimal.Decimal
	Partial          decimal.Decimal // importe de pago parcial solicitado
	TotalTaxes       decimal.Decimal
	LineItems        []LineItem
	CustomSurcharge1 decimal.Decimal
	CustomSurcharge2 decimal.Decimal
	CustomSurcharge3 decimal.Decimal
	CustomSurcharge4 decimal.Decimal
	Backup           InvoiceBackup
	IsDeleted        bool
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineItem línea de factura con hasta tres impuestos.
type LineItem struct {
	ProductKey string          `json:"product_key"`
	Notes      string          `json:"notes"`
	Quantity   decimal.Decimal `json:"quantity"`
	Cost       decimal.Decimal `json:"cost"`
	TaxName1   string          `json:"tax_name1"`
	TaxRate1   decimal.Decimal `json:"tax_rate1"`
	TaxName2   string          `json:"tax_name2"`
	TaxRate2   decimal.Decimal `json:"tax_rate2"`
	TaxName3   string          `json:"tax_name3"`
	TaxRate3   decimal.Decimal `json:"tax_rate3"`
	LineTotal  decimal.Decimal `json:"line_total"` // neto (qty × cost)
	TaxAmount  decimal.Decimal `json:"tax_amount"`
}

type lineTax struct {
	name string
	rate decimal.Decimal
}

func (li LineItem) taxes() []lineTax {
	var out []lineTax
	for _, t := range []lineTax{{li.TaxName1, li.TaxRate1}, {li.TaxName2, li.TaxRate2}, {li.TaxName3, li.TaxRate3}} {
		if t.name != "" && !t.rate.IsZero() {
			out = append(out, t)
		}
	}
	return out
}

// TaxLine agregado por impuesto (nombre + tipo): base imponible y cuota.
type TaxLine struct {
	Name       string
	Rate       decimal.Decimal
	BaseAmount decimal.Decimal
	TaxAmount  decimal.Decimal
}

// CalculateTotals recalcula líneas, impuestos y total de la factura.
// line_total = qty × cost; cuota por impuesto redondeada a 2 decimales; total = neto + impuestos + recargos.
func (i *Invoice) CalculateTotals() {
	subtotal := decimal.Zero
	taxes := decimal.Zero
	for idx := range i.LineItems {
		li := &i.LineItems[idx]
		li.LineTotal = money.RoundAmount(li.Quantity.Mul(li.Cost))
		li.TaxAmount = decimal.Zero
		for _, t := range li.taxes() {
			li.TaxAmount = li.TaxAmount.Add(money.RoundAmount(li.LineTotal.Mul(t.rate).Div(decimal.NewFromInt(100))))
		}
		subtotal = subtotal.Add(li.LineTotal)
		taxes = taxes.Add(li.TaxAmount)
	}
	i.TotalTaxes = taxes
	i.Amount = subtotal.Add(taxes).Add(i.Surcharges())
}

// Surcharges suma de los recargos personalizados.
func (i *Invoice) Surcharges() decimal.Decimal {
	return i.CustomSurcharge1.Add(i.CustomSurcharge2).Add(i.CustomSurcharge3).Add(i.CustomSurcharge4)
}

// NetSubtotal suma de las líneas sin impuestos.
func (i *Invoice) NetSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range i.LineItems {
		total = total.Add(li.LineTotal)
	}
	return total
}

// TaxMap agrupa base y cuota por impuesto en orden de aparición.
func (i *Invoice) TaxMap() []TaxLine {
	var out []TaxLine
	index := map[string]int{}
	for _, li := range i.LineItems {
		for _, t := range li.taxes() {
			key := t.name + "|" + t.rate.String()
			tax := money.RoundAmount(li.LineTotal.Mul(t.rate).Div(decimal.NewFromInt(100)))
			if pos, ok := index[key]; ok {
				out[pos].BaseAmount = out[pos].BaseAmount.Add(li.LineTotal)
				out[pos].TaxAmount = out[pos].TaxAmount.Add(tax)
				continue
			}
			index[key] = len(out)
			out = append(out, TaxLine{Name: t.name, Rate: t.rate, BaseAmount: li.LineTotal, TaxAmount: tax})
		}
	}
	return out
}

// IsRectification indica si la factura es una rectificativa (R1/R2).
func (i *Invoice) IsRectification() bool {
	return i.Backup.DocumentType.IsRectification()
}

// Kind implementa Balanced.
func (i *Invoice) Kind() DocumentKind { return DocumentInvoice }

// DocumentID implementa Balanced.
func (i *Invoice) DocumentID() string { return i.ID }

// OwnerClientID implementa Balanced.
func (i *Invoice) OwnerClientID() string { return i.ClientID }

// Totals implementa Balanced.
func (i *Invoice) Totals() (amount, balance, paidToDate decimal.Decimal) {
	return i.Amount, i.Balance, i.PaidToDate
}

// SetTotals implementa Balanced.
func (i *Invoice) SetTotals(balance, paidToDate decimal.Decimal) {
	i.Balance = balance
	i.PaidToDate = paidToDate
}

// SetCalculatedStatus deriva el estado del saldo: 0 → pagada, igual al total → enviada, resto → parcial.
func (i *Invoice) SetCalculatedStatus() {
	switch {
	case money.Zero(i.Balance):
		i.Status = InvoiceStatusPaid
	case money.Same(i.Balance, i.Amount):
		i.Status = InvoiceStatusSent
	default:
		i.Status = InvoiceStatusPartial
	}
}

var _ Balanced = (*Invoice)(nil)
