package entity

import "time"

// Company representa una organización/tenant del sistema (obligado tributario en España).
type Company struct {
	ID               string
	Name             string
	NIF              string // NIF del emisor (IDEmisorFactura en Verifactu)
	VerifactuEnabled bool   // modo fiscal: anulaciones generan rectificativas R2
	Timezone         string // zona IANA (ej. Europe/Madrid)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Location devuelve la zona horaria de la empresa. Zona inválida o vacía → UTC.
func (c *Company) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Tenant contexto explícito de tenant/conexión que recibe cada operación del núcleo.
// DB selecciona la base de datos (shard) del tenant; vacío = base por defecto.
type Tenant struct {
	CompanyID string
	DB        string
}
