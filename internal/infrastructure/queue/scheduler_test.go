package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain"
)

func newTestScheduler(retries int) *Scheduler {
	return NewScheduler(Options{DelayMin: time.Millisecond, DelayMax: 3 * time.Millisecond, Retries: retries}, zerolog.Nop())
}

func TestEnqueue_SinManejador(t *testing.T) {
	s := newTestScheduler(1)
	err := s.Enqueue(context.Background(), outbox.JobRequest{Type: "desconocido"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEnqueue_DescartaDuplicadosPendientes(t *testing.T) {
	s := NewScheduler(Options{DelayMin: 30 * time.Millisecond, DelayMax: 30 * time.Millisecond}, zerolog.Nop())
	var calls atomic.Int32
	s.Register("t", HandlerFunc(func(context.Context, outbox.JobRequest) error {
		calls.Add(1)
		return nil
	}))

	job := outbox.JobRequest{Type: "t", Key: "k", UniqueID: "u-1"}
	require.NoError(t, s.Enqueue(context.Background(), job))
	require.NoError(t, s.Enqueue(context.Background(), job))
	assert.Equal(t, 1, s.Pending())

	s.Wait()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, s.Pending())

	// tras ejecutarse vuelve a admitirse
	require.NoError(t, s.Enqueue(context.Background(), job))
	s.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestRun_UnReintento(t *testing.T) {
	s := newTestScheduler(1)
	var calls atomic.Int32
	s.Register("t", HandlerFunc(func(context.Context, outbox.JobRequest) error {
		calls.Add(1)
		return domain.ErrLockTimeout
	}))

	require.NoError(t, s.Enqueue(context.Background(), outbox.JobRequest{Type: "t", Key: "k"}))
	s.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestRun_ReintentoExitoso(t *testing.T) {
	s := newTestScheduler(1)
	var calls atomic.Int32
	s.Register("t", HandlerFunc(func(context.Context, outbox.JobRequest) error {
		if calls.Add(1) == 1 {
			return errors.New("transitorio")
		}
		return nil
	}))

	require.NoError(t, s.Enqueue(context.Background(), outbox.JobRequest{Type: "t"}))
	s.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestRun_PanicNoTumbaLaCola(t *testing.T) {
	s := newTestScheduler(0)
	s.Register("t", HandlerFunc(func(context.Context, outbox.JobRequest) error {
		panic("fallo")
	}))
	require.NoError(t, s.Enqueue(context.Background(), outbox.JobRequest{Type: "t"}))
	assert.NotPanics(t, s.Wait)
}

func TestRun_SerializaPorKey(t *testing.T) {
	s := NewScheduler(Options{}, zerolog.Nop())
	var mu sync.Mutex
	active, maxActive := 0, 0
	s.Register("t", HandlerFunc(func(context.Context, outbox.JobRequest) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Enqueue(context.Background(), outbox.JobRequest{Type: "t", Key: "verifactu:co-1"}))
	}
	s.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestRandomDelay_DentroDelRango(t *testing.T) {
	s := NewScheduler(Options{DelayMin: 5 * time.Second, DelayMax: 9 * time.Second}, zerolog.Nop())
	for i := 0; i < 100; i++ {
		d := s.randomDelay()
		assert.GreaterOrEqual(t, d, 5*time.Second)
		assert.LessOrEqual(t, d, 9*time.Second)
	}
}

func TestShutdown_DescartaProgramados(t *testing.T) {
	s := NewScheduler(Options{DelayMin: time.Hour, DelayMax: time.Hour}, zerolog.Nop())
	var calls atomic.Int32
	s.Register("t", HandlerFunc(func(context.Context, outbox.JobRequest) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.Enqueue(context.Background(), outbox.JobRequest{Type: "t", UniqueID: "u"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, int32(0), calls.Load())
	assert.ErrorIs(t, s.Enqueue(context.Background(), outbox.JobRequest{Type: "t"}), domain.ErrConflict)
}
