package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrDuplicate        = errors.New("recurso duplicado")
	ErrForbidden        = errors.New("acceso denegado")
	ErrConflict         = errors.New("conflicto con el estado actual")
	ErrLockTimeout      = errors.New("tiempo de espera agotado al bloquear la fila")
	ErrSerialization    = errors.New("conflicto de serialización, reintentar")
	ErrActionInProgress = errors.New("acción en curso, reintente en unos segundos")
	ErrFiscalSubmission = errors.New("envío fiscal rechazado")
)

// IsRetryable indica si el fallo es transitorio (bloqueo o serialización) y la operación puede repetirse.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrSerialization)
}
