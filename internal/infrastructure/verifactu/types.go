// Package verifactu implementa el registro de alta Verifactu (AEAT, España): XML RegistroAlta,
// firma XML-DSig envuelta y envío SOAP al servicio VerifactuSOAP.
package verifactu

import (
	"time"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	domverifactu "github.com/jhoicas/invorya-ledger/internal/domain/verifactu"
)

// SoftwareInfo datos del SistemaInformatico que genera los registros.
type SoftwareInfo struct {
	Name               string
	NIF                string
	ID                 string // IdSistemaInformatico (2 caracteres)
	Version            string
	InstallationNumber string
}

// PreviousRecord registro anterior de la cadena de la empresa.
type PreviousRecord struct {
	NIF    string
	Number string
	Date   time.Time
	Hash   string
}

// BuildInput contexto con todo lo necesario para construir un registro de alta.
type BuildInput struct {
	Company     *entity.Company
	Client      *entity.Client // destinatario; puede ser nil
	Invoice     *entity.Invoice
	Parent      *entity.Invoice // factura rectificada (R1/R2)
	Previous    *PreviousRecord // nil en el primer registro
	GeneratedAt time.Time       // FechaHoraHusoGenRegistro en la zona de la empresa
}

// Record registro construido: campos de la huella, huella y XML sin firmar.
type Record struct {
	Params domverifactu.HashParams
	Hash   string
	XML    []byte
}
