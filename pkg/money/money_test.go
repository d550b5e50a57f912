package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/pkg/money"
)

func TestAddSub_IdaYVuelta(t *testing.T) {
	pairs := [][2]string{
		{"100.00", "0.01"},
		{"-45.10", "45.10"},
		{"0", "999999999999.99"},
		{"0.10", "0.20"},
		{"-0.01", "-0.02"},
	}
	for _, p := range pairs {
		sum := money.Add(p[0], p[1])
		back := money.Sub(sum, p[1])
		assert.True(t, money.Equal(back, p[0]), "add/sub de %s y %s", p[0], p[1])
	}
}

func TestAdd_SinErrorDeFlotante(t *testing.T) {
	assert.Equal(t, "0.30", money.Add("0.1", "0.2"))
	assert.Equal(t, "0.3000", money.Add("0.1", "0.2", 4))
}

func TestMul_TruncaEnLaEscala(t *testing.T) {
	assert.Equal(t, "3.33", money.Mul("3.333", "1"))
	assert.Equal(t, "-3.33", money.Mul("-3.339", "1"))
}

func TestDiv_PorCero(t *testing.T) {
	_, err := money.Div("10", "0")
	require.ErrorIs(t, err, money.ErrDivisionByZero)

	out, err := money.Div("10", "3")
	require.NoError(t, err)
	assert.Equal(t, "3.33", out)
}

func TestPercentage_TotalCero(t *testing.T) {
	assert.Equal(t, "0", money.Percentage("50", "0"))
	assert.Equal(t, "30.00", money.Percentage("30", "100"))
}

func TestRound_MitadLejosDeCero(t *testing.T) {
	assert.Equal(t, "1.01", money.Round("1.005"))
	assert.Equal(t, "-1.01", money.Round("-1.005"))
	assert.Equal(t, "1.00", money.Round("1.004"))
	assert.Equal(t, "0.00", money.Round("-0.001"))
}

func TestComparaciones(t *testing.T) {
	assert.True(t, money.GreaterThan("10.01", "10"))
	assert.True(t, money.LessThan("-1", "0"))
	assert.True(t, money.IsZero("0.001"))
	assert.True(t, money.IsPositive("0.01"))
	assert.True(t, money.IsNegative("-0.01"))
	assert.Equal(t, "12.50", money.Abs("-12.5"))
}

func TestPowSqrt(t *testing.T) {
	assert.Equal(t, "1.21", money.Pow("1.1", 2))
	assert.Equal(t, "1.00", money.Pow("7", 0))
	assert.Equal(t, "0.50", money.Pow("2", -1))
	assert.Equal(t, "1.41", money.Sqrt("2"))
	assert.Equal(t, "1.4142", money.Sqrt("2", 4))
	assert.Equal(t, "12.00", money.Sqrt("144"))
}

func TestSumAvg(t *testing.T) {
	assert.Equal(t, "60.00", money.Sum([]string{"10", "20.00", "30"}))
	assert.Equal(t, "20.00", money.Avg([]string{"10", "20.00", "30"}))
	assert.Equal(t, "0.00", money.Avg(nil))
}

func TestEntradaNoNumerica_CuentaComoCero(t *testing.T) {
	assert.Equal(t, "5.00", money.Add("abc", "5"))
	_, err := money.Parse("abc")
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	r := money.Ratio(decimal.NewFromInt(30), decimal.NewFromInt(100))
	assert.True(t, r.Equal(decimal.RequireFromString("0.3")))
	assert.True(t, money.Ratio(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.True(t, money.Same(decimal.RequireFromString("10.001"), decimal.RequireFromString("10.00")))
}
