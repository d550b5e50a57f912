package actions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/actions"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/cache"
)

func TestLock_SegundaPeticionEnCurso(t *testing.T) {
	ctx := context.Background()
	l := actions.NewLock(cache.NewMemory(), time.Second, 3*time.Second)

	require.NoError(t, l.Acquire(ctx, "10.0.0.1", "cancel", "co-1", 5))
	err := l.Acquire(ctx, "10.0.0.1", "cancel", "co-1", 5)
	assert.ErrorIs(t, err, domain.ErrActionInProgress)

	// otra IP, otra acción u otra empresa no comparten candado
	assert.NoError(t, l.Acquire(ctx, "10.0.0.2", "cancel", "co-1", 5))
	assert.NoError(t, l.Acquire(ctx, "10.0.0.1", "delete", "co-1", 5))
	assert.NoError(t, l.Acquire(ctx, "10.0.0.1", "cancel", "co-2", 5))
}

func TestLock_TTL(t *testing.T) {
	l := actions.NewLock(cache.NewMemory(), time.Second, 3*time.Second)

	assert.Equal(t, time.Second, l.TTL("cancel", 500))
	assert.Equal(t, time.Second, l.TTL(actions.ActionDelete, 0))
	assert.Equal(t, 1500*time.Millisecond, l.TTL(actions.ActionDelete, 50))
	assert.Equal(t, 2*time.Second, l.TTL(actions.ActionDelete, 100))
	assert.Equal(t, 3*time.Second, l.TTL(actions.ActionDelete, 1000), "techo")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "action_lock:1.2.3.4:delete:co-1", actions.Key("1.2.3.4", "delete", "co-1"))
}
