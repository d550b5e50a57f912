package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client representa al cliente facturado con sus agregados de saldo.
type Client struct {
	ID            string
	CompanyID     string
	Name          string
	NIF           string
	Balance       decimal.Decimal // pendiente de cobro
	PaidToDate    decimal.Decimal // pagado acumulado
	CreditBalance decimal.Decimal // crédito disponible
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
