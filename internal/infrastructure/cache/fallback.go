package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/invorya-ledger/internal/application/ports"
)

// Fallback usa Primary y, si falla, Secondary.
type Fallback struct {
	Primary   ports.ActionCache
	Secondary ports.ActionCache
	log       zerolog.Logger
}

// NewFallback compone ambas cachés. primary puede ser nil (Redis deshabilitado).
func NewFallback(primary, secondary ports.ActionCache, log zerolog.Logger) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, log: log}
}

// SetIfNotExists intenta la primaria; ante error degrada a la secundaria.
func (f *Fallback) SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if f.Primary != nil {
		ok, err := f.Primary.SetIfNotExists(ctx, key, value, ttl)
		if err == nil {
			return ok, nil
		}
		f.log.Warn().Err(err).Str("key", key).Msg("caché primaria no disponible, usando memoria")
	}
	return f.Secondary.SetIfNotExists(ctx, key, value, ttl)
}

// Delete borra en ambas; solo falla si falla la secundaria.
func (f *Fallback) Delete(ctx context.Context, key string) error {
	if f.Primary != nil {
		if err := f.Primary.Delete(ctx, key); err != nil {
			f.log.Warn().Err(err).Str("key", key).Msg("caché primaria no disponible al borrar")
		}
	}
	return f.Secondary.Delete(ctx, key)
}

var (
	_ ports.ActionCache = (*Memory)(nil)
	_ ports.ActionCache = (*Redis)(nil)
	_ ports.ActionCache = (*Fallback)(nil)
)
