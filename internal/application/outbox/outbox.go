// Package outbox efectos diferidos de las operaciones del núcleo: eventos de dominio y trabajos.
// Cada operación los acumula dentro de su transacción y solo se despachan tras el commit.
package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// Nombres de eventos de dominio.
const (
	EventPaymentCreated     = "payment.created"
	EventPaymentRefunded    = "payment.refunded"
	EventPaymentDeleted     = "payment.deleted"
	EventInvoiceSent        = "invoice.sent"
	EventInvoiceCancelled   = "invoice.cancelled"
	EventInvoiceReversed    = "invoice.reversed"
	EventInvoiceRectified   = "invoice.rectified"
	EventInvoiceDeleted     = "invoice.deleted"
	EventInvoiceRestored    = "invoice.restored"
	EventVerifactuSubmitted = "verifactu.submitted"
)

// Event evento de dominio emitido tras confirmar la transacción.
type Event struct {
	Name       string
	CompanyID  string
	EntityID   string
	Payload    map[string]any
	OccurredAt time.Time
}

// JobRequest trabajo diferido. Key serializa trabajos del mismo recurso; UniqueID descarta
// duplicados pendientes; Delay cero deja que la cola elija el retardo configurado.
type JobRequest struct {
	Type     string
	Key      string
	UniqueID string
	Delay    time.Duration
	Tenant   entity.Tenant
	Payload  any
}

// Outbox efectos acumulados por una operación.
type Outbox struct {
	Events []Event
	Jobs   []JobRequest
}

// Emit agrega un evento de dominio.
func (o *Outbox) Emit(name, companyID, entityID string, payload map[string]any) {
	o.Events = append(o.Events, Event{
		Name:       name,
		CompanyID:  companyID,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
}

// Schedule agrega un trabajo diferido.
func (o *Outbox) Schedule(job JobRequest) {
	o.Jobs = append(o.Jobs, job)
}

// Merge incorpora los efectos de otra operación.
func (o *Outbox) Merge(other Outbox) {
	o.Events = append(o.Events, other.Events...)
	o.Jobs = append(o.Jobs, other.Jobs...)
}

// IsEmpty indica que no hay nada que despachar.
func (o *Outbox) IsEmpty() bool {
	return len(o.Events) == 0 && len(o.Jobs) == 0
}

// EventPublisher puerto de salida de los eventos de dominio.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// JobQueue puerto de la cola de trabajos diferidos.
type JobQueue interface {
	Enqueue(ctx context.Context, job JobRequest) error
}

// Dispatcher publica eventos y encola trabajos de un Outbox ya confirmado.
// Los fallos se registran y no se propagan: la operación principal ya está comprometida.
type Dispatcher struct {
	publisher EventPublisher
	queue     JobQueue
	log       zerolog.Logger
}

// NewDispatcher crea el despachador. publisher nil usa LogPublisher.
func NewDispatcher(publisher EventPublisher, queue JobQueue, log zerolog.Logger) *Dispatcher {
	if publisher == nil {
		publisher = NewLogPublisher(log)
	}
	return &Dispatcher{publisher: publisher, queue: queue, log: log}
}

// Dispatch despacha todos los efectos del Outbox.
func (d *Dispatcher) Dispatch(ctx context.Context, ob Outbox) {
	for _, ev := range ob.Events {
		if err := d.publisher.Publish(ctx, ev); err != nil {
			d.log.Error().Err(err).Str("event", ev.Name).Str("entity_id", ev.EntityID).Msg("publicar evento")
		}
	}
	if d.queue == nil {
		return
	}
	for _, job := range ob.Jobs {
		if err := d.queue.Enqueue(ctx, job); err != nil {
			d.log.Error().Err(err).Str("job", job.Type).Str("key", job.Key).Msg("encolar trabajo")
		}
	}
}

// LogPublisher publicador por defecto: escribe cada evento en el log estructurado.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher crea el publicador de log.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish implementa EventPublisher.
func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info().
		Str("event", ev.Name).
		Str("company_id", ev.CompanyID).
		Str("entity_id", ev.EntityID).
		Interface("payload", ev.Payload).
		Msg("evento de dominio")
	return nil
}
