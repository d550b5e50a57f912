// Package money: aritmética decimal exacta sobre cadenas para montos monetarios.
// Ninguna operación pasa por float64; los resultados se truncan a la escala pedida
// (igual que bcmath) salvo Round, que redondea mitad-lejos-de-cero.

package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultScale escala por defecto para montos.
const DefaultScale = 2

// ErrDivisionByZero se devuelve en Div cuando el divisor es cero.
var ErrDivisionByZero = errors.New("money: división por cero")

// Parse convierte una cadena a decimal. Vacío equivale a cero.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parse es la variante tolerante: una entrada no numérica cuenta como cero.
func parse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func scaleOf(scale []int) int32 {
	if len(scale) > 0 && scale[0] >= 0 {
		return int32(scale[0])
	}
	return DefaultScale
}

func format(d decimal.Decimal, scale int32) string {
	out := d.Truncate(scale).StringFixed(scale)
	// "-0.00" no existe en bcmath
	if strings.HasPrefix(out, "-") && d.Truncate(scale).IsZero() {
		return out[1:]
	}
	return out
}

// Add suma a + b.
func Add(a, b string, scale ...int) string {
	return format(parse(a).Add(parse(b)), scaleOf(scale))
}

// Sub resta a - b.
func Sub(a, b string, scale ...int) string {
	return format(parse(a).Sub(parse(b)), scaleOf(scale))
}

// Mul multiplica a * b.
func Mul(a, b string, scale ...int) string {
	return format(parse(a).Mul(parse(b)), scaleOf(scale))
}

// Div divide a / b. Divisor cero → ErrDivisionByZero.
func Div(a, b string, scale ...int) (string, error) {
	divisor := parse(b)
	if divisor.IsZero() {
		return "", ErrDivisionByZero
	}
	s := scaleOf(scale)
	return format(parse(a).DivRound(divisor, s+4), s), nil
}

// Pow eleva base a un exponente entero.
func Pow(base string, exponent int64, scale ...int) string {
	s := scaleOf(scale)
	b := parse(base)
	if exponent == 0 {
		return format(decimal.NewFromInt(1), s)
	}
	neg := exponent < 0
	if neg {
		exponent = -exponent
	}
	result := decimal.NewFromInt(1)
	for i := int64(0); i < exponent; i++ {
		result = result.Mul(b)
	}
	if neg {
		if result.IsZero() {
			return format(decimal.Zero, s)
		}
		result = decimal.NewFromInt(1).DivRound(result, s+4)
	}
	return format(result, s)
}

// Sqrt raíz cuadrada por Newton-Raphson. Negativos devuelven cero.
func Sqrt(value string, scale ...int) string {
	s := scaleOf(scale)
	x := parse(value)
	if x.Sign() <= 0 {
		return format(decimal.Zero, s)
	}
	precision := s + 6
	two := decimal.NewFromInt(2)
	guess := x.Div(two)
	if guess.IsZero() {
		guess = x
	}
	for i := 0; i < 200; i++ {
		next := guess.Add(x.DivRound(guess, precision)).DivRound(two, precision)
		if next.Equal(guess) {
			break
		}
		guess = next
	}
	return format(guess, s)
}

// Compare devuelve -1, 0 o 1 comparando a y b truncados a la escala.
func Compare(a, b string, scale ...int) int {
	s := scaleOf(scale)
	return parse(a).Truncate(s).Cmp(parse(b).Truncate(s))
}

// Equal indica a == b a la escala.
func Equal(a, b string, scale ...int) bool { return Compare(a, b, scale...) == 0 }

// GreaterThan indica a > b a la escala.
func GreaterThan(a, b string, scale ...int) bool { return Compare(a, b, scale...) > 0 }

// LessThan indica a < b a la escala.
func LessThan(a, b string, scale ...int) bool { return Compare(a, b, scale...) < 0 }

// IsZero indica si el valor es cero a la escala.
func IsZero(a string, scale ...int) bool { return Compare(a, "0", scale...) == 0 }

// IsPositive indica si el valor es mayor que cero a la escala.
func IsPositive(a string, scale ...int) bool { return Compare(a, "0", scale...) > 0 }

// IsNegative indica si el valor es menor que cero a la escala.
func IsNegative(a string, scale ...int) bool { return Compare(a, "0", scale...) < 0 }

// Abs valor absoluto.
func Abs(a string, scale ...int) string {
	return format(parse(a).Abs(), scaleOf(scale))
}

// Round redondea mitad-lejos-de-cero (1.005 → 1.01, -1.005 → -1.01).
func Round(a string, scale ...int) string {
	s := scaleOf(scale)
	r := parse(a).Round(s)
	out := r.StringFixed(s)
	if strings.HasPrefix(out, "-") && r.IsZero() {
		return out[1:]
	}
	return out
}

// Percentage calcula part/total*100. Total cero devuelve "0".
func Percentage(part, total string, scale ...int) string {
	t := parse(total)
	if t.IsZero() {
		return "0"
	}
	s := scaleOf(scale)
	return format(parse(part).Mul(decimal.NewFromInt(100)).DivRound(t, s+4), s)
}

// Sum suma una lista de valores.
func Sum(values []string, scale ...int) string {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(parse(v))
	}
	return format(total, scaleOf(scale))
}

// Avg promedio de una lista; lista vacía devuelve cero.
func Avg(values []string, scale ...int) string {
	s := scaleOf(scale)
	if len(values) == 0 {
		return format(decimal.Zero, s)
	}
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(parse(v))
	}
	return format(total.DivRound(decimal.NewFromInt(int64(len(values))), s+4), s)
}
