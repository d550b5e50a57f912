package entity

import "time"

// VerifactuLog fila del registro fiscal encadenado (solo inserción).
// Hash depende de PreviousHash; la fila solo existe si la AEAT confirmó el envío (total o parcialmente).
type VerifactuLog struct {
	ID            string
	CompanyID     string
	InvoiceID     string
	NIF           string
	Date          time.Time // fecha de expedición
	InvoiceNumber string
	Hash          string
	PreviousHash  string // vacío en el primer registro de la empresa
	Status        string // CSV devuelto por la AEAT
	Response      []byte // respuesta serializada
	State         []byte // campos del registro usados para la huella (JSON)
	CreatedAt     time.Time
}
