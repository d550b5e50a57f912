// Package verifactu: cálculo de la huella (hash encadenado) de un registro de alta Verifactu.
// Algoritmo: SHA-256 en hexadecimal mayúsculas sobre la cadena clave=valor unida por '&',
// en el orden estricto definido por la AEAT. La huella de cada registro incluye la del anterior.

package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HashParams campos del registro de alta que entran en la huella.
type HashParams struct {
	IDEmisorFactura          string          `json:"id_emisor_factura"`
	NumSerieFactura          string          `json:"num_serie_factura"`
	FechaExpedicionFactura   string          `json:"fecha_expedicion_factura"` // dd-mm-yyyy
	TipoFactura              string          `json:"tipo_factura"`
	CuotaTotal               decimal.Decimal `json:"cuota_total"`
	ImporteTotal             decimal.Decimal `json:"importe_total"`
	HuellaAnterior           string          `json:"huella_anterior"` // vacío en el primer registro
	FechaHoraHusoGenRegistro string          `json:"fecha_hora_huso_gen_registro"`
}

// Canonical devuelve la cadena exacta sobre la que se calcula la huella.
func (p HashParams) Canonical() string {
	fields := []string{
		"IDEmisorFactura=" + strings.TrimSpace(p.IDEmisorFactura),
		"NumSerieFactura=" + strings.TrimSpace(p.NumSerieFactura),
		"FechaExpedicionFactura=" + strings.TrimSpace(p.FechaExpedicionFactura),
		"TipoFactura=" + strings.TrimSpace(p.TipoFactura),
		"CuotaTotal=" + FormatAmount(p.CuotaTotal),
		"ImporteTotal=" + FormatAmount(p.ImporteTotal),
		"Huella=" + strings.TrimSpace(p.HuellaAnterior),
		"FechaHoraHusoGenRegistro=" + strings.TrimSpace(p.FechaHoraHusoGenRegistro),
	}
	return strings.Join(fields, "&")
}

// CalculateHash genera la huella del registro.
func CalculateHash(p HashParams) (string, error) {
	if strings.TrimSpace(p.IDEmisorFactura) == "" {
		return "", fmt.Errorf("verifactu: IDEmisorFactura es obligatorio")
	}
	if strings.TrimSpace(p.NumSerieFactura) == "" {
		return "", fmt.Errorf("verifactu: NumSerieFactura es obligatorio")
	}
	if p.FechaExpedicionFactura == "" || p.FechaHoraHusoGenRegistro == "" {
		return "", fmt.Errorf("verifactu: fechas de expedición y generación son obligatorias")
	}
	sum := sha256.Sum256([]byte(p.Canonical()))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

// FormatAmount importes con punto decimal y 2 decimales (ej: 123.45, -100.00).
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// FormatDate fecha de expedición en formato dd-mm-yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02-01-2006")
}

// FormatTimestamp fecha/hora/huso de generación en ISO 8601 con zona (2024-01-01T19:20:30+01:00).
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05-07:00")
}
