package txevents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// EndOfMonth último día del mes de t en loc (a medianoche).
func EndOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return first.AddDate(0, 1, -1)
}

// PeriodClosed indica si el mes de la factura ya cerró respecto de now en la zona de la empresa.
func PeriodClosed(invoiceDate, now time.Time, loc *time.Location) bool {
	eom := EndOfMonth(invoiceDate, loc)
	closesAt := eom.AddDate(0, 0, 1)
	return !now.In(loc).Before(closesAt)
}

// HistoryItem pago vigente sobre la factura y su importe neto aplicado.
type HistoryItem struct {
	Payment *entity.Payment
	Net     decimal.Decimal
}

func paymentHistory(items []HistoryItem) ([]entity.PaymentHistoryItem, decimal.Decimal) {
	out := make([]entity.PaymentHistoryItem, 0, len(items))
	total := decimal.Zero
	for _, h := range items {
		out = append(out, entity.PaymentHistoryItem{
			PaymentID: h.Payment.ID,
			Number:    h.Payment.Number,
			Date:      h.Payment.Date.Format("2006-01-02"),
			Amount:    h.Net,
			Refunded:  h.Payment.Refunded,
		})
		total = total.Add(h.Net)
	}
	return out, total
}

// scaledTaxDetails mapa de impuestos de la factura multiplicado por ratio (signo incluido).
func scaledTaxDetails(inv *entity.Invoice, ratio decimal.Decimal) []entity.TaxDetail {
	lines := inv.TaxMap()
	out := make([]entity.TaxDetail, 0, len(lines))
	for _, l := range lines {
		out = append(out, entity.TaxDetail{
			TaxName:       l.Name,
			TaxRate:       l.Rate,
			TaxableAmount: money.RoundAmount(l.BaseAmount.Mul(ratio)),
			TaxAmount:     money.RoundAmount(l.TaxAmount.Mul(ratio)),
		})
	}
	return out
}

// taxPaid cuota ya ingresada según lo cobrado: total_taxes × cobrado / total.
func taxPaid(inv *entity.Invoice, paid decimal.Decimal) decimal.Decimal {
	return money.RoundAmount(inv.TotalTaxes.Mul(money.Ratio(paid, inv.Amount)))
}

// RefundMetadata reembolso: cada impuesto prorrateado por adjustment/amount y en negativo.
func RefundMetadata(inv *entity.Invoice, adjustment decimal.Decimal, history []HistoryItem) entity.TransactionEventMetadata {
	ratio := money.Ratio(adjustment, inv.Amount)
	items, totalPaid := paymentHistory(history)
	return entity.TransactionEventMetadata{TaxReport: entity.TaxReport{
		TaxDetails: scaledTaxDetails(inv, ratio.Neg()),
		TaxSummary: entity.TaxSummary{
			Status:     entity.TaxStatusAdjustment,
			TotalTaxes: inv.TotalTaxes,
			TaxAmount:  money.RoundAmount(inv.TotalTaxes.Mul(ratio)).Neg(),
			Adjustment: adjustment.Neg(),
			TotalPaid:  totalPaid,
		},
		PaymentHistory: items,
	}}
}

// DeletionMetadata borrado del pago: todas las bases en negativo; la cuota es lo que los pagos vigentes
// ya no cubren (total_taxes menos la cuota ya cobrada).
func DeletionMetadata(inv *entity.Invoice, adjustment decimal.Decimal, history []HistoryItem) entity.TransactionEventMetadata {
	items, totalPaid := paymentHistory(history)
	details := scaledTaxDetails(inv, decimal.NewFromInt(-1))
	return entity.TransactionEventMetadata{TaxReport: entity.TaxReport{
		TaxDetails: details,
		TaxSummary: entity.TaxSummary{
			Status:     entity.TaxStatusPaymentDeleted,
			TotalTaxes: inv.TotalTaxes,
			TaxAmount:  inv.TotalTaxes.Sub(taxPaid(inv, totalPaid)).Neg(),
			Adjustment: adjustment.Neg(),
			TotalPaid:  totalPaid,
		},
		PaymentHistory: items,
	}}
}

// InvoiceMetadata estado fiscal completo de la factura; anulada solo conserva la cuota cobrada.
func InvoiceMetadata(inv *entity.Invoice, history []HistoryItem) entity.TransactionEventMetadata {
	items, totalPaid := paymentHistory(history)
	summary := entity.TaxSummary{
		Status:     entity.TaxStatusUpdated,
		TotalTaxes: inv.TotalTaxes,
		TaxAmount:  inv.TotalTaxes,
		TotalPaid:  totalPaid,
	}
	details := scaledTaxDetails(inv, decimal.NewFromInt(1))
	if inv.Status == entity.InvoiceStatusCancelled {
		summary.Status = entity.TaxStatusCancelled
		summary.TaxAmount = taxPaid(inv, totalPaid)
		details = scaledTaxDetails(inv, money.Ratio(totalPaid, inv.Amount))
	}
	return entity.TransactionEventMetadata{TaxReport: entity.TaxReport{
		TaxDetails:     details,
		TaxSummary:     summary,
		PaymentHistory: items,
	}}
}

// CashMetadata criterio de caja: cuota devengada por el cobro, proporcional a su parte del total.
func CashMetadata(inv *entity.Invoice, paid decimal.Decimal, history []HistoryItem) entity.TransactionEventMetadata {
	items, totalPaid := paymentHistory(history)
	ratio := money.Ratio(paid, inv.Amount)
	return entity.TransactionEventMetadata{TaxReport: entity.TaxReport{
		TaxDetails: scaledTaxDetails(inv, ratio),
		TaxSummary: entity.TaxSummary{
			Status:     entity.TaxStatusPayment,
			TotalTaxes: inv.TotalTaxes,
			TaxAmount:  money.RoundAmount(inv.TotalTaxes.Mul(ratio)),
			Adjustment: paid,
			TotalPaid:  totalPaid,
		},
		PaymentHistory: items,
	}}
}
