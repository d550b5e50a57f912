package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetIfNotExists_ExpiraTrasTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	ok, err := m.SetIfNotExists(ctx, "k", "1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetIfNotExists(ctx, "k", "1", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "clave vigente")

	now = now.Add(time.Second)
	ok, err = m.SetIfNotExists(ctx, "k", "1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "clave expirada")
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _ = m.SetIfNotExists(ctx, "k", "1", time.Minute)
	require.NoError(t, m.Delete(ctx, "k"))
	ok, err := m.SetIfNotExists(ctx, "k", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingCache struct{ calls int }

func (f *failingCache) SetIfNotExists(context.Context, string, string, time.Duration) (bool, error) {
	f.calls++
	return false, errors.New("connection refused")
}

func (f *failingCache) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestFallback_PrimariaCaida_UsaMemoria(t *testing.T) {
	ctx := context.Background()
	primary := &failingCache{}
	f := NewFallback(primary, NewMemory(), zerolog.Nop())

	ok, err := f.SetIfNotExists(ctx, "k", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.SetIfNotExists(ctx, "k", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "la memoria conserva la clave")
	assert.Equal(t, 2, primary.calls)

	assert.NoError(t, f.Delete(ctx, "k"))
}

func TestFallback_SinPrimaria(t *testing.T) {
	f := NewFallback(nil, NewMemory(), zerolog.Nop())
	ok, err := f.SetIfNotExists(context.Background(), "k", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
