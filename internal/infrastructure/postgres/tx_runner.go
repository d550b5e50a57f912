package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SERIALIZABLE sobre la base del tenant.
type TxRunner struct {
	pools       *Pools
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout se aplica con SET LOCAL en cada transacción.
func NewTxRunner(pools *Pools, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pools: pools, lockTimeout: lockTimeout}
}

// RunInTx inicia la transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Un bloqueo que excede lock_timeout o un conflicto de serialización se devuelven como
// domain.ErrLockTimeout / domain.ErrSerialization.
func (r *TxRunner) RunInTx(ctx context.Context, tenant entity.Tenant, fn func(*repository.Repos) error) error {
	pool, err := r.pools.Get(tenant.DB)
	if err != nil {
		return err
	}
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros: el valor sale de la configuración, no del usuario.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return mapError("set lock_timeout", err)
		}
	}

	if err := fn(NewRepos(tx)); err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// Repos repositorios sobre el pool del tenant (lecturas fuera de transacción).
// Un shard desconocido cae en el pool por defecto.
func (r *TxRunner) Repos(tenant entity.Tenant) *repository.Repos {
	pool, err := r.pools.Get(tenant.DB)
	if err != nil {
		pool = r.pools.Default
	}
	return NewRepos(pool)
}

// NewRepos agrupa los repositorios sobre q (pool o tx).
func NewRepos(q Querier) *repository.Repos {
	return &repository.Repos{
		Companies:         NewCompanyRepository(q),
		Clients:           NewClientRepository(q),
		Invoices:          NewInvoiceRepository(q),
		Credits:           NewCreditRepository(q),
		Payments:          NewPaymentRepository(q),
		Paymentables:      NewPaymentableRepository(q),
		BankTransactions:  NewBankTransactionRepository(q),
		LedgerEntries:     NewLedgerEntryRepository(q),
		TransactionEvents: NewTransactionEventRepository(q),
		VerifactuLogs:     NewVerifactuLogRepository(q),
	}
}

var _ Querier = (*pgxpool.Pool)(nil)
var _ Querier = (pgx.Tx)(nil)
