package i18n_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/pkg/i18n"
)

func TestLocalize_EspanolPorDefecto(t *testing.T) {
	rej := domain.Reject(domain.RejectRectificationExceeds, "amount", map[string]string{
		"amount": "-150.00", "available": "100.00",
	})
	msg := i18n.Localize(rej, i18n.Match(""))
	assert.Equal(t, "La rectificación de -150.00 excede el importe rectificable disponible (100.00)", msg)
}

func TestLocalize_Ingles(t *testing.T) {
	rej := domain.Reject(domain.RejectInvoiceNotReversible, "invoice", map[string]string{"number": "F-0001"})
	tag := i18n.Match("en-US,en;q=0.9")
	assert.Equal(t, language.English, tag)
	assert.Equal(t, "Invoice F-0001 has no cancellation to reverse", i18n.Localize(rej, tag))
}

func TestMatch_IdiomaDesconocido(t *testing.T) {
	assert.Equal(t, language.Spanish, i18n.Match("ja-JP"))
}
