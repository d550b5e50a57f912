// Package verifactu contiene catálogos y validaciones del sistema Verifactu de la AEAT
// (Real Decreto 1007/2023, Orden HAC/1177/2024).
package verifactu

// =============================================================================
// L2 - Tipo de factura
// =============================================================================

const (
	TipoFacturaCompleta       = "F1" // Factura (art. 6, 7.2 y 7.3 del RD 1619/2012)
	TipoFacturaSimplificada   = "F2" // Factura simplificada
	TipoFacturaRectificativa1 = "R1" // Rectificativa (art. 80.1, 80.2 y error fundado en derecho)
	TipoFacturaRectificativa2 = "R2" // Rectificativa (art. 80.3)
)

// =============================================================================
// L3 - Tipo de rectificativa
// =============================================================================

const (
	TipoRectificativaSustitucion = "S"
	TipoRectificativaDiferencias = "I"
)

// =============================================================================
// L1 / L8A / L9 - Impuesto, clave de régimen y calificación de la operación
// =============================================================================

const (
	ImpuestoIVA            = "01"
	ClaveRegimenGeneral    = "01"
	CalificacionSujetaNoEx = "S1"
)

// =============================================================================
// Huella y versión del registro
// =============================================================================

const (
	TipoHuellaSHA256 = "01"
	IDVersion        = "1.0"
	PrimerRegistroSi = "S"
)

// =============================================================================
// Estado del envío (respuesta de la AEAT)
// =============================================================================

const (
	EstadoCorrecto             = "Correcto"
	EstadoParcialmenteCorrecto = "ParcialmenteCorrecto"
	EstadoIncorrecto           = "Incorrecto"
)

// Ambientes de envío.
const (
	AppEnvDev  = "dev"  // no envía: respuesta simulada
	AppEnvTest = "test" // preproducción AEAT
	AppEnvProd = "prod"
)

// IsAccepted indica si el estado permite extender la cadena (total o parcialmente aceptado).
func IsAccepted(estado string) bool {
	return estado == EstadoCorrecto || estado == EstadoParcialmenteCorrecto
}
