package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Las líneas y el respaldo tipado se guardan como JSONB.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, company_id, client_id, number, status_id, date, due_date, partial_due_date,
	amount, balance, paid_to_date, partial, total_taxes, line_items,
	custom_surcharge1, custom_surcharge2, custom_surcharge3, custom_surcharge4,
	backup, is_deleted, deleted_at, created_at, updated_at`

// Create persiste la factura completa.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	lines, backup, err := encodeInvoice(inv)
	if err != nil {
		return err
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	_, err = r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.ClientID, inv.Number, inv.Status, inv.Date, inv.DueDate, inv.PartialDueDate,
		inv.Amount, inv.Balance, inv.PaidToDate, inv.Partial, inv.TotalTaxes, lines,
		inv.CustomSurcharge1, inv.CustomSurcharge2, inv.CustomSurcharge3, inv.CustomSurcharge4,
		backup, inv.IsDeleted, inv.DeletedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	return mapError("insert invoice", err)
}

// Save actualiza número, estado, importes, líneas, respaldo y borrado lógico.
func (r *InvoiceRepo) Save(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	lines, backup, err := encodeInvoice(inv)
	if err != nil {
		return err
	}
	query := `
		UPDATE invoices
		SET number = $2, status_id = $3, date = $4, due_date = $5, partial_due_date = $6,
		    amount = $7, balance = $8, paid_to_date = $9, partial = $10, total_taxes = $11, line_items = $12,
		    custom_surcharge1 = $13, custom_surcharge2 = $14, custom_surcharge3 = $15, custom_surcharge4 = $16,
		    backup = $17, is_deleted = $18, deleted_at = $19, updated_at = $20
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.Number, inv.Status, inv.Date, inv.DueDate, inv.PartialDueDate,
		inv.Amount, inv.Balance, inv.PaidToDate, inv.Partial, inv.TotalTaxes, lines,
		inv.CustomSurcharge1, inv.CustomSurcharge2, inv.CustomSurcharge3, inv.CustomSurcharge4,
		backup, inv.IsDeleted, inv.DeletedAt, inv.UpdatedAt,
	)
	if err != nil {
		return mapError("save invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save invoice %s: no existe", inv.ID)
	}
	return nil
}

// GetByID obtiene una factura completa por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetForUpdate obtiene la factura bloqueando la fila hasta el fin de la transacción.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *InvoiceRepo) get(ctx context.Context, query, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get invoice", err)
	}
	return inv, nil
}

// UpdateLedgerFields persiste balance, paid_to_date y status.
func (r *InvoiceRepo) UpdateLedgerFields(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	query := `UPDATE invoices SET balance = $2, paid_to_date = $3, status_id = $4, updated_at = $5 WHERE id = $1`
	_, err := r.q.Exec(ctx, query, inv.ID, inv.Balance, inv.PaidToDate, inv.Status, inv.UpdatedAt)
	return mapError("update invoice ledger", err)
}

// StreamByIDs recorre con cursor las facturas de la empresa con esos IDs.
func (r *InvoiceRepo) StreamByIDs(ctx context.Context, companyID string, ids []string, fn func(*entity.Invoice) error) error {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND id = ANY($2) ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, companyID, ids)
	if err != nil {
		return mapError("stream invoices", err)
	}
	defer rows.Close()
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return mapError("scan invoice", err)
		}
		if err := fn(inv); err != nil {
			return err
		}
	}
	return mapError("stream invoices", rows.Err())
}

// SumBalanceByClient Σ balance de facturas no eliminadas y no borrador del cliente.
func (r *InvoiceRepo) SumBalanceByClient(ctx context.Context, clientID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(balance), 0)
		FROM invoices
		WHERE client_id = $1 AND NOT is_deleted AND status_id <> $2`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, clientID, entity.InvoiceStatusDraft).Scan(&sum); err != nil {
		return decimal.Zero, mapError("sum client balance", err)
	}
	return sum, nil
}

func encodeInvoice(inv *entity.Invoice) (lines, backup []byte, err error) {
	items := inv.LineItems
	if items == nil {
		items = []entity.LineItem{}
	}
	if lines, err = json.Marshal(items); err != nil {
		return nil, nil, fmt.Errorf("encode line items: %w", err)
	}
	if backup, err = json.Marshal(inv.Backup); err != nil {
		return nil, nil, fmt.Errorf("encode backup: %w", err)
	}
	return lines, backup, nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var lines, backup []byte
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.ClientID, &inv.Number, &inv.Status, &inv.Date, &inv.DueDate, &inv.PartialDueDate,
		&inv.Amount, &inv.Balance, &inv.PaidToDate, &inv.Partial, &inv.TotalTaxes, &lines,
		&inv.CustomSurcharge1, &inv.CustomSurcharge2, &inv.CustomSurcharge3, &inv.CustomSurcharge4,
		&backup, &inv.IsDeleted, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &inv.LineItems); err != nil {
			return nil, fmt.Errorf("decode line items: %w", err)
		}
	}
	if len(backup) > 0 {
		if err := json.Unmarshal(backup, &inv.Backup); err != nil {
			return nil, fmt.Errorf("decode backup: %w", err)
		}
	}
	return &inv, nil
}
