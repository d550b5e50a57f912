package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/invorya-ledger/internal/domain"
)

func TestMapError_CodigosPostgres(t *testing.T) {
	cases := map[string]error{
		codeLockNotAvailable:     domain.ErrLockTimeout,
		codeSerializationFailure: domain.ErrSerialization,
		codeDeadlockDetected:     domain.ErrSerialization,
		codeUniqueViolation:      domain.ErrDuplicate,
	}
	for code, want := range cases {
		err := mapError("op", &pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, want, code)
	}
}

func TestMapError_SinErrorYGenerico(t *testing.T) {
	assert.NoError(t, mapError("op", nil))

	base := errors.New("conexión cerrada")
	err := mapError("insert payment", base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "insert payment")
}

func TestTranslate_SoloErroresPostgres(t *testing.T) {
	plain := domain.ErrNotFound
	assert.Same(t, plain, translate(plain))
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: codeLockNotAvailable}), domain.ErrLockTimeout)
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "p.id, p.company_id, p.amount", prefixed("p", "id, company_id,\n\tamount"))
}

func TestPeriodDate_ZonaPropia(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	assert.Equal(t, "2025-01-31", periodDate(time.Date(2025, 1, 31, 0, 0, 0, 0, loc)))
}
