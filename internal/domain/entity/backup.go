package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType tipo de factura Verifactu.
type DocumentType string

const (
	DocumentTypeF1 DocumentType = "F1" // factura completa
	DocumentTypeR1 DocumentType = "R1" // rectificativa parcial
	DocumentTypeR2 DocumentType = "R2" // rectificativa total (anulación fiscal)
)

// IsRectification indica R1 o R2.
func (d DocumentType) IsRectification() bool {
	return d == DocumentTypeR1 || d == DocumentTypeR2
}

// CancellationRecord instantánea guardada al anular en modo no fiscal; reverse() la consume.
// ReversedAt impide revertir dos veces la misma anulación.
type CancellationRecord struct {
	Adjustment decimal.Decimal `json:"adjustment"`
	StatusID   InvoiceStatus   `json:"status_id"`
	ReversedAt *time.Time      `json:"reversed_at,omitempty"`
}

// IsEmpty indica que no hay anulación pendiente de revertir.
func (c CancellationRecord) IsEmpty() bool {
	return c.StatusID == 0
}

// InvoiceBackup respaldo tipado de la factura. Solo se serializa a JSON en el borde de persistencia.
type InvoiceBackup struct {
	GUID                string             `json:"guid,omitempty"`
	DocumentType        DocumentType       `json:"document_type,omitempty"`
	ParentInvoiceID     string             `json:"parent_invoice_id,omitempty"`
	ParentInvoiceNumber string             `json:"parent_invoice_number,omitempty"`
	ChildInvoiceIDs     []string           `json:"child_invoice_ids,omitempty"`
	AdjustableAmount    decimal.Decimal    `json:"adjustable_amount"`
	Cancellation        CancellationRecord `json:"cancellation"`
	Notes               string             `json:"notes,omitempty"`
}

// EffectiveDocumentType F1 cuando no se ha fijado tipo.
func (b InvoiceBackup) EffectiveDocumentType() DocumentType {
	if b.DocumentType == "" {
		return DocumentTypeF1
	}
	return b.DocumentType
}

// HasChildren indica si ya existen rectificativas.
func (b InvoiceBackup) HasChildren() bool {
	return len(b.ChildInvoiceIDs) > 0
}

// MarshalBackup serializa el respaldo para la columna JSONB.
func MarshalBackup(b InvoiceBackup) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBackup lee el respaldo desde JSONB. Vacío o null → respaldo vacío.
func UnmarshalBackup(raw []byte) (InvoiceBackup, error) {
	var b InvoiceBackup
	if len(raw) == 0 || string(raw) == "null" {
		return b, nil
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return InvoiceBackup{}, err
	}
	return b, nil
}

// Clone copia profunda (las listas no se comparten entre instantáneas).
func (b InvoiceBackup) Clone() InvoiceBackup {
	out := b
	if b.ChildInvoiceIDs != nil {
		out.ChildInvoiceIDs = append([]string(nil), b.ChildInvoiceIDs...)
	}
	if b.Cancellation.ReversedAt != nil {
		t := *b.Cancellation.ReversedAt
		out.Cancellation.ReversedAt = &t
	}
	return out
}
