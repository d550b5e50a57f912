package ports

import (
	"context"
	"time"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción del tenant con repos atados a ella.
// Si fn devuelve error se hace rollback de todo lo escrito.
type TxRunner interface {
	RunInTx(ctx context.Context, tenant entity.Tenant, fn func(r *repository.Repos) error) error
	// Repos repositorios sobre la conexión del tenant, fuera de transacción (lecturas).
	Repos(tenant entity.Tenant) *repository.Repos
}

// ActionCache caché con escritura atómica "si no existe" (Redis u homólogo en memoria).
type ActionCache interface {
	SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// DocumentArchive almacena copias de los registros fiscales firmados. Los fallos no son fatales.
type DocumentArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
