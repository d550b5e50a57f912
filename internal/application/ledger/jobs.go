package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// Recalculator atiende los trabajos ledger.client_recalculate.
type Recalculator struct {
	tx     ports.TxRunner
	engine *Engine
}

// NewRecalculator crea el manejador.
func NewRecalculator(tx ports.TxRunner, engine *Engine) *Recalculator {
	return &Recalculator{tx: tx, engine: engine}
}

// Handle recalcula el saldo del cliente del trabajo en su propia transacción.
func (h *Recalculator) Handle(ctx context.Context, job outbox.JobRequest) error {
	p, ok := job.Payload.(outbox.ClientRecalculatePayload)
	if !ok {
		return fmt.Errorf("payload %T: %w", job.Payload, domain.ErrInvalidInput)
	}
	return h.tx.RunInTx(ctx, job.Tenant, func(r *repository.Repos) error {
		_, err := h.engine.RecalculateClientBalance(ctx, r, p.ClientID)
		return err
	})
}
