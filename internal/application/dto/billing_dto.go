package dto

import "github.com/shopspring/decimal"

// CreateInvoiceRequest body para POST /api/invoices. La factura nace en borrador.
type CreateInvoiceRequest struct {
	ClientID         string               `json:"client_id"`
	Number           string               `json:"number,omitempty"` // opcional; se asigna al emitir
	Date             string               `json:"date,omitempty"`   // YYYY-MM-DD; vacío = hoy
	DueDate          string               `json:"due_date,omitempty"`
	Lines            []InvoiceLineRequest `json:"lines"`
	CustomSurcharge1 decimal.Decimal      `json:"custom_surcharge1"`
	CustomSurcharge2 decimal.Decimal      `json:"custom_surcharge2"`
	CustomSurcharge3 decimal.Decimal      `json:"custom_surcharge3"`
	CustomSurcharge4 decimal.Decimal      `json:"custom_surcharge4"`
}

// InvoiceLineRequest línea con hasta tres impuestos.
type InvoiceLineRequest struct {
	ProductKey string          `json:"product_key"`
	Notes      string          `json:"notes,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Cost       decimal.Decimal `json:"cost"`
	TaxName1   string          `json:"tax_name1,omitempty"`
	TaxRate1   decimal.Decimal `json:"tax_rate1"`
	TaxName2   string          `json:"tax_name2,omitempty"`
	TaxRate2   decimal.Decimal `json:"tax_rate2"`
	TaxName3   string          `json:"tax_name3,omitempty"`
	TaxRate3   decimal.Decimal `json:"tax_rate3"`
}

// InvoiceResponse factura para GET /api/invoices/:id y respuestas de acciones.
type InvoiceResponse struct {
	ID              string                `json:"id"`
	CompanyID       string                `json:"company_id"`
	ClientID        string                `json:"client_id"`
	Number          string                `json:"number"`
	Status          int                   `json:"status_id"`
	Date            string                `json:"date"`
	Amount          decimal.Decimal       `json:"amount"`
	Balance         decimal.Decimal       `json:"balance"`
	PaidToDate      decimal.Decimal       `json:"paid_to_date"`
	TotalTaxes      decimal.Decimal       `json:"total_taxes"`
	DocumentType    string                `json:"document_type"`
	ParentInvoiceID string                `json:"parent_invoice_id,omitempty"`
	ChildInvoiceIDs []string              `json:"child_invoice_ids,omitempty"`
	IsDeleted       bool                  `json:"is_deleted"`
	Lines           []InvoiceLineResponse `json:"lines"`
}

// InvoiceLineResponse línea calculada.
type InvoiceLineResponse struct {
	ProductKey string          `json:"product_key"`
	Quantity   decimal.Decimal `json:"quantity"`
	Cost       decimal.Decimal `json:"cost"`
	LineTotal  decimal.Decimal `json:"line_total"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
}

// CancelInvoiceRequest body para POST /api/invoices/:id/cancel.
type CancelInvoiceRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelInvoiceResponse factura anulada y, en modo fiscal, la rectificativa R2 creada.
type CancelInvoiceResponse struct {
	Invoice       InvoiceResponse  `json:"invoice"`
	Rectification *InvoiceResponse `json:"rectification,omitempty"`
}

// RectifyInvoiceRequest body para POST /api/invoices/:id/rectify (líneas con importes negativos).
type RectifyInvoiceRequest struct {
	Reason string               `json:"reason,omitempty"`
	Lines  []InvoiceLineRequest `json:"lines"`
}

// BulkInvoiceRequest body para POST /api/invoices/bulk.
type BulkInvoiceRequest struct {
	Action string   `json:"action"` // mark_sent|cancel|delete|restore|mark_paid
	IDs    []string `json:"ids"`
}

// BulkInvoiceResponse resultado por factura.
type BulkInvoiceResponse struct {
	Action  string           `json:"action"`
	Results []BulkItemResult `json:"results"`
}

// BulkItemResult resultado de la acción sobre una factura.
type BulkItemResult struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
