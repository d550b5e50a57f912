package money

import "github.com/shopspring/decimal"

// ratioScale precisión de los cocientes intermedios (proporciones de reembolso, prorrateos).
const ratioScale = 10

// Cmp compara dos montos a 2 decimales.
func Cmp(a, b decimal.Decimal) int {
	return a.Truncate(DefaultScale).Cmp(b.Truncate(DefaultScale))
}

// Same indica si dos montos son iguales a 2 decimales.
func Same(a, b decimal.Decimal) bool { return Cmp(a, b) == 0 }

// Zero indica si el monto es cero a 2 decimales.
func Zero(a decimal.Decimal) bool { return Cmp(a, decimal.Zero) == 0 }

// RoundAmount redondea a 2 decimales (mitad-lejos-de-cero).
func RoundAmount(d decimal.Decimal) decimal.Decimal { return d.Round(DefaultScale) }

// Ratio part/total con precisión de 10 decimales; total cero devuelve cero.
func Ratio(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(total, ratioScale)
}

// Min devuelve el menor de dos montos.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
