package dto

// VerifactuSubmitResponse resultado del envío de un registro de alta.
// Status: Correcto|ParcialmenteCorrecto|Incorrecto; Skipped si la factura ya estaba registrada.
type VerifactuSubmitResponse struct {
	InvoiceID string   `json:"invoice_id"`
	Status    string   `json:"status"`
	CSV       string   `json:"csv,omitempty"`
	Hash      string   `json:"hash,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ChainReportResponse verificación de la cadena de huellas de una empresa.
type ChainReportResponse struct {
	CompanyID string            `json:"company_id"`
	Rows      int               `json:"rows"`
	Valid     bool              `json:"valid"`
	Broken    []BrokenLinkEntry `json:"broken,omitempty"`
}

// BrokenLinkEntry registro cuya huella o enlace no cuadra.
type BrokenLinkEntry struct {
	LogID         string `json:"log_id"`
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}
