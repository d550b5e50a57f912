// Package actions candado de acciones masivas por IP, acción y empresa.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
)

// ActionDelete la única acción cuyo TTL crece con el tamaño del lote.
const ActionDelete = "delete"

// Lock evita que la misma acción se repita desde la misma IP mientras la anterior sigue en curso.
type Lock struct {
	cache  ports.ActionCache
	ttl    time.Duration
	maxTTL time.Duration
}

// NewLock crea el candado. ttl base y techo para lotes grandes.
func NewLock(cache ports.ActionCache, ttl, maxTTL time.Duration) *Lock {
	if ttl <= 0 {
		ttl = time.Second
	}
	if maxTTL < ttl {
		maxTTL = ttl
	}
	return &Lock{cache: cache, ttl: ttl, maxTTL: maxTTL}
}

// Key clave del candado.
func Key(clientIP, action, companyKey string) string {
	return "action_lock:" + clientIP + ":" + action + ":" + companyKey
}

// TTL duración del candado: base; en borrados base×(1+lote/100) hasta el techo.
func (l *Lock) TTL(action string, batch int) time.Duration {
	if action != ActionDelete {
		return l.ttl
	}
	ttl := time.Duration(float64(l.ttl) * (1 + float64(batch)/100))
	if ttl > l.maxTTL {
		return l.maxTTL
	}
	return ttl
}

// Acquire toma el candado. Si ya existe devuelve domain.ErrActionInProgress.
// El candado no se libera: expira solo.
func (l *Lock) Acquire(ctx context.Context, clientIP, action, companyKey string, batch int) error {
	ok, err := l.cache.SetIfNotExists(ctx, Key(clientIP, action, companyKey), "1", l.TTL(action, batch))
	if err != nil {
		return fmt.Errorf("candado de acción: %w", err)
	}
	if !ok {
		return domain.ErrActionInProgress
	}
	return nil
}
