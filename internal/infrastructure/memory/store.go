// Package memory almacén en memoria con transacciones de instantánea: cada RunInTx trabaja sobre
// una copia y solo la publica si fn termina sin error. Las transacciones se ejecutan de una en una,
// lo que equivale a bloquear todas las filas que tocan.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[string]T{}}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// each recorre en orden de inserción; fn devuelve false para cortar.
func (t *table[T]) each(fn func(T) bool) {
	for _, id := range t.order {
		if !fn(t.rows[id]) {
			return
		}
	}
}

func (t *table[T]) clone(cp func(T) T) *table[T] {
	out := &table[T]{rows: make(map[string]T, len(t.rows)), order: append([]string(nil), t.order...)}
	for id, v := range t.rows {
		out.rows[id] = cp(v)
	}
	return out
}

func same[T any](v T) T { return v }

type dataset struct {
	companies        *table[entity.Company]
	clients          *table[entity.Client]
	invoices         *table[entity.Invoice]
	credits          *table[entity.Credit]
	payments         *table[entity.Payment]
	paymentables     *table[entity.Paymentable]
	bankTransactions *table[entity.BankTransaction]
	ledgerEntries    *table[entity.LedgerEntry]
	events           *table[entity.TransactionEvent]
	verifactuLogs    *table[entity.VerifactuLog]
}

func newDataset() *dataset {
	return &dataset{
		companies:        newTable[entity.Company](),
		clients:          newTable[entity.Client](),
		invoices:         newTable[entity.Invoice](),
		credits:          newTable[entity.Credit](),
		payments:         newTable[entity.Payment](),
		paymentables:     newTable[entity.Paymentable](),
		bankTransactions: newTable[entity.BankTransaction](),
		ledgerEntries:    newTable[entity.LedgerEntry](),
		events:           newTable[entity.TransactionEvent](),
		verifactuLogs:    newTable[entity.VerifactuLog](),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		companies:        d.companies.clone(same[entity.Company]),
		clients:          d.clients.clone(same[entity.Client]),
		invoices:         d.invoices.clone(cloneInvoice),
		credits:          d.credits.clone(same[entity.Credit]),
		payments:         d.payments.clone(same[entity.Payment]),
		paymentables:     d.paymentables.clone(same[entity.Paymentable]),
		bankTransactions: d.bankTransactions.clone(same[entity.BankTransaction]),
		ledgerEntries:    d.ledgerEntries.clone(same[entity.LedgerEntry]),
		events:           d.events.clone(cloneEvent),
		verifactuLogs:    d.verifactuLogs.clone(same[entity.VerifactuLog]),
	}
}

func cloneInvoice(inv entity.Invoice) entity.Invoice {
	inv.LineItems = append([]entity.LineItem(nil), inv.LineItems...)
	inv.Backup = inv.Backup.Clone()
	return inv
}

func cloneEvent(ev entity.TransactionEvent) entity.TransactionEvent {
	ev.Metadata.TaxReport.TaxDetails = append([]entity.TaxDetail(nil), ev.Metadata.TaxReport.TaxDetails...)
	ev.Metadata.TaxReport.PaymentHistory = append([]entity.PaymentHistoryItem(nil), ev.Metadata.TaxReport.PaymentHistory...)
	return ev
}

// Store almacén en memoria. Un único conjunto de datos para todas las bases (Tenant.DB se ignora).
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// RunInTx implementa ports.TxRunner. No admite transacciones anidadas.
func (s *Store) RunInTx(ctx context.Context, _ entity.Tenant, fn func(r *repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(newRepos(txConn{ds: snapshot})); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

// Repos implementa ports.TxRunner: cada llamada toma el candado del almacén.
func (s *Store) Repos(_ entity.Tenant) *repository.Repos {
	return newRepos(storeConn{s: s})
}

// conn entrega el conjunto de datos sobre el que opera una llamada y su liberación.
type conn interface {
	acquire() (*dataset, func())
}

type txConn struct{ ds *dataset }

func (c txConn) acquire() (*dataset, func()) { return c.ds, func() {} }

type storeConn struct{ s *Store }

func (c storeConn) acquire() (*dataset, func()) {
	c.s.mu.Lock()
	return c.s.data, c.s.mu.Unlock
}
