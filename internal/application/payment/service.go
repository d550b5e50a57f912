// Package payment ciclo de vida de pagos: aplicación, reembolso y borrado con restauración de saldos.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/invorya-ledger/internal/application/ledger"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// Service gestor del ciclo de vida de pagos.
type Service struct {
	tx     ports.TxRunner
	engine *ledger.Engine
	log    zerolog.Logger
	now    func() time.Time
}

// NewService crea el gestor de pagos.
func NewService(tx ports.TxRunner, engine *ledger.Engine, log zerolog.Logger) *Service {
	return &Service{
		tx:     tx,
		engine: engine,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// lockPayment bloquea el pago y comprueba que pertenezca al tenant.
func lockPayment(ctx context.Context, r *repository.Repos, tenant entity.Tenant, paymentID string) (*entity.Payment, error) {
	p, err := r.Payments.GetForUpdate(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pago %s: %w", paymentID, domain.ErrNotFound)
	}
	if p.CompanyID != tenant.CompanyID {
		return nil, fmt.Errorf("pago %s: %w", paymentID, domain.ErrForbidden)
	}
	return p, nil
}

func lockInvoice(ctx context.Context, r *repository.Repos, tenant entity.Tenant, invoiceID string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
	}
	if inv.CompanyID != tenant.CompanyID {
		return nil, fmt.Errorf("factura %s: %w", invoiceID, domain.ErrForbidden)
	}
	return inv, nil
}
