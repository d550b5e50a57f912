package outbox

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// Tipos de trabajo.
const (
	JobPaymentAdjustment = "txevents.payment_adjustment"
	JobInvoiceUpdated    = "txevents.invoice_updated"
	JobPaymentCash       = "txevents.payment_cash"
	JobClientRecalculate = "ledger.client_recalculate"
	JobVerifactuSubmit   = "verifactu.submit"
)

// PaymentEventPayload reembolso o borrado de un pago; Adjustments por factura.
type PaymentEventPayload struct {
	CompanyID   string
	PaymentID   string
	Adjustments map[string]decimal.Decimal
	Deleted     bool
}

// InvoiceEventPayload factura cuyo estado fiscal cambió.
type InvoiceEventPayload struct {
	CompanyID string
	InvoiceID string
	PaymentID string
}

// ClientRecalculatePayload recálculo del saldo de un cliente.
type ClientRecalculatePayload struct {
	CompanyID string
	ClientID  string
}

// PaymentAdjustmentJob trabajo del registrador para un reembolso o borrado de pago.
func PaymentAdjustmentJob(tenant entity.Tenant, p PaymentEventPayload) JobRequest {
	// cada reembolso es distinto; el borrado de un pago ocurre una sola vez
	unique := JobPaymentAdjustment + ":refund:" + p.PaymentID + ":" + uuid.NewString()
	if p.Deleted {
		unique = JobPaymentAdjustment + ":delete:" + p.PaymentID
	}
	return JobRequest{
		Type:     JobPaymentAdjustment,
		Key:      "payment:" + p.PaymentID,
		UniqueID: unique,
		Tenant:   tenant,
		Payload:  p,
	}
}

// InvoiceUpdatedJob trabajo del registrador tras cambiar el estado de una factura.
func InvoiceUpdatedJob(tenant entity.Tenant, invoiceID string) JobRequest {
	return JobRequest{
		Type:     JobInvoiceUpdated,
		Key:      "invoice:" + invoiceID,
		UniqueID: JobInvoiceUpdated + ":" + invoiceID,
		Tenant:   tenant,
		Payload:  InvoiceEventPayload{CompanyID: tenant.CompanyID, InvoiceID: invoiceID},
	}
}

// PaymentCashJob trabajo del registrador para el cobro de una factura (criterio de caja).
func PaymentCashJob(tenant entity.Tenant, invoiceID, paymentID string) JobRequest {
	return JobRequest{
		Type:     JobPaymentCash,
		Key:      "invoice:" + invoiceID,
		UniqueID: JobPaymentCash + ":" + paymentID + ":" + invoiceID,
		Tenant:   tenant,
		Payload:  InvoiceEventPayload{CompanyID: tenant.CompanyID, InvoiceID: invoiceID, PaymentID: paymentID},
	}
}

// ClientRecalculateJob recálculo diferido del saldo del cliente.
func ClientRecalculateJob(tenant entity.Tenant, clientID string) JobRequest {
	return JobRequest{
		Type:     JobClientRecalculate,
		Key:      "client:" + clientID,
		UniqueID: JobClientRecalculate + ":" + clientID,
		Tenant:   tenant,
		Payload:  ClientRecalculatePayload{CompanyID: tenant.CompanyID, ClientID: clientID},
	}
}

// VerifactuSubmitJob envío diferido del registro de alta a la AEAT.
// La clave por empresa serializa la cadena fiscal.
func VerifactuSubmitJob(tenant entity.Tenant, invoiceID string) JobRequest {
	return JobRequest{
		Type:     JobVerifactuSubmit,
		Key:      "verifactu:" + tenant.CompanyID,
		UniqueID: JobVerifactuSubmit + ":" + invoiceID,
		Tenant:   tenant,
		Payload:  InvoiceEventPayload{CompanyID: tenant.CompanyID, InvoiceID: invoiceID},
	}
}
