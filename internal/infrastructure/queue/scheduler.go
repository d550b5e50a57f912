// Package queue cola de trabajos diferidos en proceso. Cada trabajo espera un retardo aleatorio,
// los duplicados pendientes (mismo UniqueID) se descartan y los de la misma Key se ejecutan de a uno.
package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain"
)

// Handler procesa un tipo de trabajo. Un error provoca reintento hasta agotar Retries.
type Handler interface {
	Handle(ctx context.Context, job outbox.JobRequest) error
}

// HandlerFunc adapta una función a Handler.
type HandlerFunc func(ctx context.Context, job outbox.JobRequest) error

func (f HandlerFunc) Handle(ctx context.Context, job outbox.JobRequest) error { return f(ctx, job) }

// Options parámetros de la cola.
type Options struct {
	DelayMin   time.Duration
	DelayMax   time.Duration
	Retries    int
	JobTimeout time.Duration
}

// Scheduler implementa outbox.JobQueue.
type Scheduler struct {
	opts     Options
	log      zerolog.Logger
	handlers map[string]Handler

	mu      sync.Mutex
	pending map[string]struct{}
	keys    map[string]*keyLock
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

var _ outbox.JobQueue = (*Scheduler)(nil)

// NewScheduler crea la cola. Retries negativo se trata como cero.
func NewScheduler(opts Options, log zerolog.Logger) *Scheduler {
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		opts:     opts,
		log:      log,
		handlers: map[string]Handler{},
		pending:  map[string]struct{}{},
		keys:     map[string]*keyLock{},
		stop:     make(chan struct{}),
	}
}

// Register asocia un manejador al tipo de trabajo.
func (s *Scheduler) Register(jobType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = h
}

// Enqueue programa el trabajo. Un UniqueID ya pendiente se ignora sin error.
func (s *Scheduler) Enqueue(_ context.Context, job outbox.JobRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("cola cerrada: %w", domain.ErrConflict)
	}
	h, ok := s.handlers[job.Type]
	if !ok {
		return fmt.Errorf("trabajo %q sin manejador: %w", job.Type, domain.ErrInvalidInput)
	}
	if job.UniqueID != "" {
		if _, dup := s.pending[job.UniqueID]; dup {
			s.log.Debug().Str("job", job.Type).Str("unique_id", job.UniqueID).Msg("trabajo duplicado descartado")
			return nil
		}
		s.pending[job.UniqueID] = struct{}{}
	}

	delay := job.Delay
	if delay <= 0 {
		delay = s.randomDelay()
	}
	s.wg.Add(1)
	go s.run(job, h, delay)
	return nil
}

func (s *Scheduler) randomDelay() time.Duration {
	span := s.opts.DelayMax - s.opts.DelayMin
	if span <= 0 {
		return s.opts.DelayMin
	}
	return s.opts.DelayMin + time.Duration(rand.Int64N(int64(span)+1))
}

func (s *Scheduler) run(job outbox.JobRequest, h Handler, delay time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-s.stop:
		s.release(job.UniqueID)
		s.log.Warn().Str("job", job.Type).Str("key", job.Key).Msg("trabajo descartado al cerrar la cola")
		return
	case <-timer.C:
	}

	// desde aquí un nuevo trabajo con el mismo UniqueID vuelve a programarse
	s.release(job.UniqueID)

	unlock := s.lockKey(job.Key)
	defer unlock()

	attempts := s.opts.Retries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.invoke(h, job); err == nil {
			return
		}
		s.log.Warn().Err(err).Str("job", job.Type).Str("key", job.Key).Int("intento", attempt).Msg("trabajo fallido")
		if s.stopping() {
			break
		}
	}
	s.log.Error().Err(err).Str("job", job.Type).Str("key", job.Key).Msg("trabajo agotó sus reintentos")
}

func (s *Scheduler) invoke(h Handler, job outbox.JobRequest) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()
	return h.Handle(ctx, job)
}

func (s *Scheduler) release(uniqueID string) {
	if uniqueID == "" {
		return
	}
	s.mu.Lock()
	delete(s.pending, uniqueID)
	s.mu.Unlock()
}

// lockKey serializa los trabajos de una misma Key; Key vacía no serializa.
func (s *Scheduler) lockKey(key string) func() {
	if key == "" {
		return func() {}
	}
	s.mu.Lock()
	kl, ok := s.keys[key]
	if !ok {
		kl = &keyLock{}
		s.keys[key] = kl
	}
	kl.refs++
	s.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		s.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(s.keys, key)
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Pending cantidad de UniqueID programados que aún no empezaron.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Wait bloquea hasta que terminen los trabajos en curso y programados.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Shutdown deja de aceptar trabajos, descarta los que siguen esperando su retardo y
// espera a los que están en ejecución hasta que ctx expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stop)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
