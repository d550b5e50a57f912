package domain

import (
	"errors"
	"fmt"
)

// Códigos de rechazo por regla de negocio. Se devuelven antes de cualquier escritura.
const (
	RejectInvoiceNotCancellable        = "invoice_not_cancellable"
	RejectInvoiceNotReversible         = "invoice_not_reversible"
	RejectInvoiceNotDeletable          = "invoice_not_deletable"
	RejectInvoiceNotRestorable         = "invoice_not_restorable"
	RejectInvoiceNotSendable           = "invoice_not_sendable"
	RejectInvoiceNotRectifiable        = "invoice_not_rectifiable"
	RejectRectificationExceeds         = "rectification_exceeds_adjustable"
	RejectRectificationNotNegative     = "rectification_must_be_negative"
	RejectRectificationFullyConsumed   = "rectification_fully_consumed"
	RejectRectificationOfRectification = "rectification_of_rectification"
	RejectRefundExceedsAmount          = "refund_exceeds_amount"
	RejectRefundInvalidRatio           = "refund_invalid_ratio"
	RejectPaymentAmountInvalid         = "payment_amount_invalid"
	RejectPaymentOverApplied           = "payment_over_applied"
	RejectCreditInsufficient           = "credit_insufficient"
)

// Rejection rechazo estructurado de una regla de negocio (canal de resultado, no de fallo).
// Field identifica el campo o entidad afectada; Params alimenta el mensaje localizado.
type Rejection struct {
	Code   string
	Field  string
	Params map[string]string
}

// Reject construye un rechazo.
func Reject(code, field string, params map[string]string) *Rejection {
	return &Rejection{Code: code, Field: field, Params: params}
}

func (r *Rejection) Error() string {
	if r.Field == "" {
		return "rechazo: " + r.Code
	}
	return fmt.Sprintf("rechazo: %s (%s)", r.Code, r.Field)
}

// AsRejection extrae el rechazo de la cadena de errores.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
