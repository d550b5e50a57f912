// Package lifecycle reglas puras del ciclo de vida de facturas (anular, revertir, eliminar,
// restaurar, emitir, rectificar). Cada regla recibe el modo fiscal de forma explícita y no toca el estado.
package lifecycle

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/pkg/money"
)

// CanCancel: enviada o parcial, no eliminada. En modo fiscal además F1 sin rectificativas previas.
func CanCancel(inv *entity.Invoice, fiscal bool) bool {
	if inv == nil || inv.IsDeleted {
		return false
	}
	if inv.Status != entity.InvoiceStatusSent && inv.Status != entity.InvoiceStatusPartial {
		return false
	}
	if fiscal {
		return inv.Backup.EffectiveDocumentType() == entity.DocumentTypeF1 && !inv.Backup.HasChildren()
	}
	return true
}

// CanReverse: anulada con instantánea de anulación aún no revertida. Las anulaciones fiscales son irreversibles.
func CanReverse(inv *entity.Invoice, fiscal bool) bool {
	if inv == nil || inv.IsDeleted || fiscal {
		return false
	}
	return inv.Status == entity.InvoiceStatusCancelled &&
		!inv.Backup.Cancellation.IsEmpty() &&
		inv.Backup.Cancellation.ReversedAt == nil
}

// CanDelete: borrador siempre; fuera del modo fiscal también enviadas o anuladas sin cobros.
func CanDelete(inv *entity.Invoice, fiscal bool) bool {
	if inv == nil || inv.IsDeleted {
		return false
	}
	if inv.Status == entity.InvoiceStatusDraft {
		return true
	}
	if fiscal {
		return false
	}
	switch inv.Status {
	case entity.InvoiceStatusSent, entity.InvoiceStatusCancelled:
		return money.Zero(inv.PaidToDate)
	}
	return false
}

// CanRestore: solo facturas eliminadas.
func CanRestore(inv *entity.Invoice) bool {
	return inv != nil && inv.IsDeleted
}

// CanMarkSent: solo borradores no eliminados.
func CanMarkSent(inv *entity.Invoice) bool {
	return inv != nil && !inv.IsDeleted && inv.Status == entity.InvoiceStatusDraft
}

// CanRectify: emitida (enviada, parcial o pagada), no eliminada y no rectificativa.
func CanRectify(inv *entity.Invoice) bool {
	if inv == nil || inv.IsDeleted || inv.IsRectification() {
		return false
	}
	switch inv.Status {
	case entity.InvoiceStatusSent, entity.InvoiceStatusPartial, entity.InvoiceStatusPaid:
		return true
	}
	return false
}

func numberParams(inv *entity.Invoice) map[string]string {
	if inv == nil {
		return nil
	}
	return map[string]string{"number": inv.Number}
}

// CheckCancel devuelve el rechazo si la anulación no es legal.
func CheckCancel(inv *entity.Invoice, fiscal bool) error {
	if !CanCancel(inv, fiscal) {
		return domain.Reject(domain.RejectInvoiceNotCancellable, "invoice", numberParams(inv))
	}
	return nil
}

// CheckReverse devuelve el rechazo si la reversión no es legal.
func CheckReverse(inv *entity.Invoice, fiscal bool) error {
	if !CanReverse(inv, fiscal) {
		return domain.Reject(domain.RejectInvoiceNotReversible, "invoice", numberParams(inv))
	}
	return nil
}

// CheckDelete devuelve el rechazo si la eliminación no es legal.
func CheckDelete(inv *entity.Invoice, fiscal bool) error {
	if !CanDelete(inv, fiscal) {
		return domain.Reject(domain.RejectInvoiceNotDeletable, "invoice", numberParams(inv))
	}
	return nil
}

// CheckRestore devuelve el rechazo si la restauración no es legal.
func CheckRestore(inv *entity.Invoice) error {
	if !CanRestore(inv) {
		return domain.Reject(domain.RejectInvoiceNotRestorable, "invoice", numberParams(inv))
	}
	return nil
}

// CheckMarkSent devuelve el rechazo si la factura no es un borrador.
func CheckMarkSent(inv *entity.Invoice) error {
	if !CanMarkSent(inv) {
		return domain.Reject(domain.RejectInvoiceNotSendable, "invoice", numberParams(inv))
	}
	return nil
}

// CheckRectify devuelve el rechazo si la factura no admite una rectificativa.
func CheckRectify(inv *entity.Invoice) error {
	if inv != nil && inv.IsRectification() {
		return domain.Reject(domain.RejectRectificationOfRectification, "invoice", numberParams(inv))
	}
	if !CanRectify(inv) {
		return domain.Reject(domain.RejectInvoiceNotRectifiable, "invoice", numberParams(inv))
	}
	return nil
}

// AdjustableCeiling importe rectificable de la factura original (el total si no se fijó).
func AdjustableCeiling(parent *entity.Invoice) decimal.Decimal {
	if parent.Backup.AdjustableAmount.IsZero() {
		return parent.Amount.Abs()
	}
	return parent.Backup.AdjustableAmount.Abs()
}

// RemainingAdjustable techo menos lo ya consumido por rectificativas no eliminadas.
func RemainingAdjustable(parent *entity.Invoice, children []*entity.Invoice) decimal.Decimal {
	consumed := decimal.Zero
	for _, c := range children {
		if c == nil || c.IsDeleted {
			continue
		}
		consumed = consumed.Add(c.Backup.AdjustableAmount.Abs())
	}
	return AdjustableCeiling(parent).Sub(consumed)
}

// ValidateRectification comprueba una nueva rectificativa de importe amount (negativo) sobre parent.
// La suma de |adjustable_amount| de las rectificativas nunca supera el importe rectificable del original.
func ValidateRectification(parent *entity.Invoice, children []*entity.Invoice, amount decimal.Decimal) error {
	if parent.IsRectification() {
		return domain.Reject(domain.RejectRectificationOfRectification, "invoice", numberParams(parent))
	}
	if amount.Sign() >= 0 {
		return domain.Reject(domain.RejectRectificationNotNegative, "amount", map[string]string{
			"amount": amount.StringFixed(2),
		})
	}
	remaining := RemainingAdjustable(parent, children)
	if remaining.Sign() <= 0 {
		return domain.Reject(domain.RejectRectificationFullyConsumed, "invoice", numberParams(parent))
	}
	if money.Cmp(amount.Abs(), remaining) > 0 {
		return domain.Reject(domain.RejectRectificationExceeds, "amount", map[string]string{
			"amount":    amount.StringFixed(2),
			"available": remaining.StringFixed(2),
		})
	}
	return nil
}
