// Package i18n: catálogo de mensajes de rechazo (es por defecto, en) sobre golang.org/x/text.

package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/invorya-ledger/internal/domain"
)

type entry struct {
	params []string // orden de los argumentos posicionales
	es     string
	en     string
}

var catalog = map[string]entry{
	domain.RejectInvoiceNotCancellable: {
		params: []string{"number"},
		es:     "La factura %[1]s no se puede anular en su estado actual",
		en:     "Invoice %[1]s cannot be cancelled in its current state",
	},
	domain.RejectInvoiceNotReversible: {
		params: []string{"number"},
		es:     "La factura %[1]s no tiene una anulación que revertir",
		en:     "Invoice %[1]s has no cancellation to reverse",
	},
	domain.RejectInvoiceNotDeletable: {
		params: []string{"number"},
		es:     "La factura %[1]s no se puede eliminar",
		en:     "Invoice %[1]s cannot be deleted",
	},
	domain.RejectInvoiceNotRestorable: {
		params: []string{"number"},
		es:     "La factura %[1]s no se puede restaurar",
		en:     "Invoice %[1]s cannot be restored",
	},
	domain.RejectInvoiceNotSendable: {
		params: []string{"number"},
		es:     "La factura %[1]s no está en borrador",
		en:     "Invoice %[1]s is not a draft",
	},
	domain.RejectInvoiceNotRectifiable: {
		params: []string{"number"},
		es:     "La factura %[1]s no admite rectificativas en su estado actual",
		en:     "Invoice %[1]s cannot be rectified in its current state",
	},
	domain.RejectRectificationExceeds: {
		params: []string{"amount", "available"},
		es:     "La rectificación de %[1]s excede el importe rectificable disponible (%[2]s)",
		en:     "Rectification of %[1]s exceeds the remaining adjustable amount (%[2]s)",
	},
	domain.RejectRectificationNotNegative: {
		params: []string{"amount"},
		es:     "El importe de una rectificación debe ser negativo (%[1]s)",
		en:     "A rectification amount must be negative (%[1]s)",
	},
	domain.RejectRectificationFullyConsumed: {
		params: []string{"number"},
		es:     "La factura %[1]s ya está totalmente rectificada",
		en:     "Invoice %[1]s is already fully rectified",
	},
	domain.RejectRectificationOfRectification: {
		params: []string{"number"},
		es:     "No se puede rectificar una factura rectificativa (%[1]s)",
		en:     "A rectifying invoice cannot be rectified (%[1]s)",
	},
	domain.RejectRefundExceedsAmount: {
		params: []string{"amount", "available"},
		es:     "El reembolso de %[1]s excede el importe disponible (%[2]s)",
		en:     "Refund of %[1]s exceeds the refundable amount (%[2]s)",
	},
	domain.RejectRefundInvalidRatio: {
		params: []string{"ratio"},
		es:     "La proporción de reembolso debe estar entre 0 y 1 (%[1]s)",
		en:     "Refund ratio must be between 0 and 1 (%[1]s)",
	},
	domain.RejectPaymentAmountInvalid: {
		params: []string{"amount"},
		es:     "Importe de pago inválido: %[1]s",
		en:     "Invalid payment amount: %[1]s",
	},
	domain.RejectPaymentOverApplied: {
		params: []string{"amount", "available"},
		es:     "La aplicación de %[1]s excede el saldo disponible (%[2]s)",
		en:     "Applying %[1]s exceeds the available balance (%[2]s)",
	},
	domain.RejectCreditInsufficient: {
		params: []string{"number", "available"},
		es:     "El crédito %[1]s no tiene saldo suficiente (%[2]s)",
		en:     "Credit %[1]s has insufficient balance (%[2]s)",
	},
}

var matcher = language.NewMatcher([]language.Tag{language.Spanish, language.English})

func init() {
	for code, e := range catalog {
		_ = message.SetString(language.Spanish, code, e.es)
		_ = message.SetString(language.English, code, e.en)
	}
}

// Match elige el idioma a partir de la cabecera Accept-Language. Sin coincidencia → español.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Spanish
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Spanish
	}
	if idx == 1 {
		return language.English
	}
	return language.Spanish
}

// Localize devuelve el mensaje legible del rechazo en el idioma indicado.
func Localize(rej *domain.Rejection, tag language.Tag) string {
	if rej == nil {
		return ""
	}
	e, ok := catalog[rej.Code]
	if !ok {
		return rej.Error()
	}
	args := make([]any, len(e.params))
	for i, p := range e.params {
		args[i] = rej.Params[p]
	}
	return message.NewPrinter(tag).Sprintf(rej.Code, args...)
}
