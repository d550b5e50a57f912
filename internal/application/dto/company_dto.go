package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCompanyRequest entrada para crear una empresa (obligado tributario).
type CreateCompanyRequest struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	NIF              string `json:"nif"`
	VerifactuEnabled bool   `json:"verifactu_enabled"`
	Timezone         string `json:"timezone,omitempty"` // IANA; vacío = Europe/Madrid
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	NIF              string    `json:"nif"`
	VerifactuEnabled bool      `json:"verifactu_enabled"`
	Timezone         string    `json:"timezone"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateClientRequest entrada para crear un cliente de la empresa.
type CreateClientRequest struct {
	Name string `json:"name"`
	NIF  string `json:"nif,omitempty"`
}

// ClientResponse cliente con sus agregados de saldo.
type ClientResponse struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"company_id"`
	Name          string          `json:"name"`
	NIF           string          `json:"nif,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	PaidToDate    decimal.Decimal `json:"paid_to_date"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}
