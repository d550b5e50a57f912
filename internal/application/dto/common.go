package dto

// ErrorResponse cuerpo de error HTTP. Field solo en rechazos de negocio ligados a un campo.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
