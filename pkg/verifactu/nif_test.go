package verifactu_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

func TestValidateNIF(t *testing.T) {
	assert.NoError(t, verifactu.ValidateNIF("12345678Z"))
	assert.NoError(t, verifactu.ValidateNIF("ES 12345678-z"))
	assert.NoError(t, verifactu.ValidateNIF("X1234567L"))
	assert.NoError(t, verifactu.ValidateNIF("B12345678"))

	assert.Error(t, verifactu.ValidateNIF("12345678A"), "letra de control incorrecta")
	assert.Error(t, verifactu.ValidateNIF("1234"), "longitud")
	assert.Error(t, verifactu.ValidateNIF("I12345678"), "letra inicial desconocida")
}

func TestIsAccepted(t *testing.T) {
	assert.True(t, verifactu.IsAccepted(verifactu.EstadoCorrecto))
	assert.True(t, verifactu.IsAccepted(verifactu.EstadoParcialmenteCorrecto))
	assert.False(t, verifactu.IsAccepted(verifactu.EstadoIncorrecto))
}

func TestQRURL_EntornoYParametros(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	got := verifactu.QRURL(verifactu.AppEnvTest, "es 12345678-z", "F/2025/1", date, decimal.RequireFromString("121.5"))
	assert.Equal(t, verifactu.QRURLTest+"?fecha=10-01-2025&importe=121.50&nif=12345678Z&numserie=F%2F2025%2F1", got)

	prod := verifactu.QRURL(verifactu.AppEnvProd, "12345678Z", "F1", date, decimal.Zero)
	assert.Contains(t, prod, verifactu.QRURLProd)
}
