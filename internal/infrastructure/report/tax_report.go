// Package report exporta a Excel los eventos fiscales de un rango de periodos.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// Hojas del libro.
const (
	SheetEvents  = "Eventos"
	SheetSummary = "Resumen"
)

var eventNames = map[entity.TransactionEventType]string{
	entity.TransactionEventInvoiceUpdated:  "Factura actualizada",
	entity.TransactionEventPaymentRefunded: "Pago reembolsado",
	entity.TransactionEventPaymentDeleted:  "Pago eliminado",
	entity.TransactionEventPaymentCash:     "Cobro",
}

// TaxReporter genera el informe de impuestos de una empresa.
type TaxReporter struct {
	tx ports.TxRunner
}

// NewTaxReporter crea el generador.
func NewTaxReporter(tx ports.TxRunner) *TaxReporter {
	return &TaxReporter{tx: tx}
}

// Write carga los eventos con periodo en [from, to] y escribe el xlsx en w.
func (g *TaxReporter) Write(ctx context.Context, tenant entity.Tenant, from, to time.Time, w io.Writer) error {
	if to.Before(from) {
		return fmt.Errorf("rango de periodos invertido: %w", domain.ErrInvalidInput)
	}
	events, err := g.tx.Repos(tenant).TransactionEvents.ListByCompanyPeriod(ctx, tenant.CompanyID, from, to)
	if err != nil {
		return err
	}
	f, err := Build(events)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("escribir xlsx: %w", err)
	}
	return nil
}

// summaryKey agrupa por periodo, impuesto y tipo.
type summaryKey struct {
	period string
	name   string
	rate   string
}

type summaryRow struct {
	taxable decimal.Decimal
	tax     decimal.Decimal
}

// Build arma el libro: una fila por evento y un resumen por periodo e impuesto.
func Build(events []*entity.TransactionEvent) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetEvents); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	header := []any{"Periodo", "Factura", "Pago", "Evento", "Estado fiscal", "Cuota", "Ajuste", "Cobrado", "Saldo factura", "Saldo cliente"}
	if err := f.SetSheetRow(SheetEvents, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	totals := map[summaryKey]*summaryRow{}
	for i, ev := range events {
		s := ev.Metadata.TaxReport.TaxSummary
		period := ev.Period.Format("2006-01")
		row := []any{
			period, ev.InvoiceID, ev.PaymentID, eventNames[ev.EventID], s.Status,
			s.TaxAmount.InexactFloat64(), s.Adjustment.InexactFloat64(), s.TotalPaid.InexactFloat64(),
			ev.InvoiceBalance.InexactFloat64(), ev.ClientBalance.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetEvents, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
		for _, d := range ev.Metadata.TaxReport.TaxDetails {
			k := summaryKey{period: period, name: d.TaxName, rate: d.TaxRate.String()}
			t, ok := totals[k]
			if !ok {
				t = &summaryRow{}
				totals[k] = t
			}
			t.taxable = t.taxable.Add(d.TaxableAmount)
			t.tax = t.tax.Add(d.TaxAmount)
		}
	}

	if err := writeSummary(f, totals); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, totals map[summaryKey]*summaryRow) error {
	header := []any{"Periodo", "Impuesto", "Tipo %", "Base imponible", "Cuota"}
	if err := f.SetSheetRow(SheetSummary, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	keys := make([]summaryKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].period != keys[j].period {
			return keys[i].period < keys[j].period
		}
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].rate < keys[j].rate
	})
	for i, k := range keys {
		t := totals[k]
		row := []any{k.period, k.name, k.rate, t.taxable.InexactFloat64(), t.tax.InexactFloat64()}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}
	return nil
}
