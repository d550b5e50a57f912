// Package pdf implementa la representación gráfica de una factura registrada en Verifactu.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + NIF  │  N° Factura + Fecha + Tipo    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINATARIO: Nombre + NIF                                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Concepto | P.Unit | IVA | Base                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESGLOSE por tipo + TOTALES                                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de cotejo + leyenda VERI*FACTU + huella          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appverifactu "github.com/jhoicas/invorya-ledger/internal/application/verifactu"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa verifactu.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

var _ appverifactu.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, doc appverifactu.InvoiceDocument) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+doc.Invoice.Number, true).
		WithAuthor(doc.Company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc.Invoice, doc.Company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(clientRow(doc.Client))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc.Invoice.LineItems)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(breakdownRows(doc.Invoice)...)
	m.AddRows(totalsRow(doc.Invoice))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(verifactuFooterRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + NIF (izq) y número, fecha y tipo de factura (der).
func headerRow(inv *entity.Invoice, company *entity.Company) core.Row {
	title := "FACTURA"
	if inv.IsRectification() {
		title = "FACTURA RECTIFICATIVA (" + string(inv.Backup.EffectiveDocumentType()) + ")"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("NIF: "+company.NIF, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(inv.Number, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+inv.Date.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

// clientRow: datos del destinatario.
func clientRow(client *entity.Client) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("DESTINATARIO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(client.Name, "-"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("NIF: "+nonEmpty(client.NIF, "-"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Concepto", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Base", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea de factura.
func tableDetailRows(items []entity.LineItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, li := range items {
		concept := li.ProductKey
		if li.Notes != "" {
			concept += " · " + li.Notes
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(li.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(concept, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatMoney(li.Cost), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(li.TaxRate1.String()+"%", props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(formatMoney(li.LineTotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// breakdownRows: desglose por impuesto y tipo.
func breakdownRows(inv *entity.Invoice) []core.Row {
	var rows []core.Row
	for _, t := range inv.TaxMap() {
		rows = append(rows, row.New(5).Add(
			col.New(6),
			col.New(3).Add(text.New(fmt.Sprintf("%s %s%% sobre %s", t.Name, t.Rate.String(), formatMoney(t.BaseAmount)),
				props.Text{Size: 8, Align: align.Right, Right: 2, Color: colorGray})),
			col.New(3).Add(text.New(formatMoney(t.TaxAmount), props.Text{Size: 8, Align: align.Right, Right: 1})),
		))
	}
	return rows
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string, bold bool) core.Component {
		p := props.Text{Size: 9, Align: align.Right, Right: 2}
		if bold {
			p.Style = fontstyle.Bold
			p.Color = colorPrimary
		}
		return text.New(s, p)
	}
	value := func(s string, top float64, bold bool) core.Component {
		p := props.Text{Size: 9, Align: align.Right, Right: 1, Top: top}
		if bold {
			p.Style = fontstyle.Bold
			p.Color = colorPrimary
		}
		return text.New(s, p)
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Base imponible:", false),
			text.New("Cuota:", props.Text{Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("TOTAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 2, Top: 11, Color: colorPrimary}),
		),
		col.New(3).Add(
			value(formatMoney(inv.NetSubtotal()), 0, false),
			value(formatMoney(inv.TotalTaxes), 5, false),
			value(formatMoney(inv.Amount)+" €", 11, true),
		),
	)
}

// verifactuFooterRows: QR de cotejo, leyenda y huella del registro.
func verifactuFooterRows(doc appverifactu.InvoiceDocument) []core.Row {
	rows := []core.Row{
		row.New(50).Add(
			col.New(4).Add(code.NewQr(doc.QRURL, props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(
				text.New("VERI*FACTU", props.Text{Style: fontstyle.Bold, Size: 12, Top: 4, Left: 3, Color: colorPrimary}),
				text.New("Factura verificable en la sede electrónica de la AEAT.", props.Text{
					Size: 8, Top: 12, Left: 3, Color: colorGray,
				}),
			),
		),
	}
	if doc.Log != nil {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Huella del registro:", props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
		)))
		for _, chunk := range splitEvery(doc.Log.Hash, 64) {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
			)))
		}
		if doc.Log.Status != "" {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New("CSV: "+doc.Log.Status, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
			)))
		}
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney importe con dos decimales, coma decimal y puntos de miles.
// Ej: 1234567.5 → "1.234.567,50", -30 → "-30,00"
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	out := string(buf) + "," + frac
	if d.Sign() < 0 {
		out = "-" + out
	}
	return out
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
