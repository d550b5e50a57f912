// Package billing ciclo de vida de facturas: alta en borrador, emisión, anulación (fiscal y no fiscal),
// reversión, rectificación, borrado y restauración.
package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/application/ledger"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// Service máquina de estados de la factura.
type Service struct {
	tx     ports.TxRunner
	engine *ledger.Engine
	log    zerolog.Logger
	now    func() time.Time
}

// NewService construye el servicio.
func NewService(tx ports.TxRunner, engine *ledger.Engine, log zerolog.Logger) *Service {
	return &Service{
		tx:     tx,
		engine: engine,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Result factura resultante y efectos a despachar.
type Result struct {
	Invoice *entity.Invoice
	Outbox  outbox.Outbox
}

// CreateInvoice crea la factura en borrador con totales calculados. No afecta saldos.
func (s *Service) CreateInvoice(ctx context.Context, tenant entity.Tenant, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.ClientID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	date, err := parseDate(in.Date, s.now())
	if err != nil {
		return nil, err
	}

	var inv *entity.Invoice
	err = s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		client, err := r.Clients.GetByID(ctx, in.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrNotFound
		}
		if client.CompanyID != tenant.CompanyID {
			return domain.ErrForbidden
		}

		now := s.now()
		inv = &entity.Invoice{
			ID:               uuid.New().String(),
			CompanyID:        tenant.CompanyID,
			ClientID:         client.ID,
			Number:           strings.TrimSpace(in.Number),
			Status:           entity.InvoiceStatusDraft,
			Date:             date,
			LineItems:        LinesFromRequest(in.Lines),
			CustomSurcharge1: in.CustomSurcharge1,
			CustomSurcharge2: in.CustomSurcharge2,
			CustomSurcharge3: in.CustomSurcharge3,
			CustomSurcharge4: in.CustomSurcharge4,
			Backup:           entity.InvoiceBackup{GUID: uuid.New().String(), DocumentType: entity.DocumentTypeF1},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if in.DueDate != "" {
			due, err := parseDate(in.DueDate, now)
			if err != nil {
				return err
			}
			inv.DueDate = &due
		}
		inv.CalculateTotals()
		inv.Balance = decimal.Zero
		inv.PaidToDate = decimal.Zero
		return r.Invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// GetInvoice obtiene una factura del tenant.
func (s *Service) GetInvoice(ctx context.Context, tenant entity.Tenant, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.tx.Repos(tenant).Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != tenant.CompanyID {
		return nil, domain.ErrForbidden
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// LinesFromRequest convierte las líneas del body en líneas de factura.
func LinesFromRequest(lines []dto.InvoiceLineRequest) []entity.LineItem {
	out := make([]entity.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, entity.LineItem{
			ProductKey: l.ProductKey,
			Notes:      l.Notes,
			Quantity:   l.Quantity,
			Cost:       l.Cost,
			TaxName1:   l.TaxName1,
			TaxRate1:   l.TaxRate1,
			TaxName2:   l.TaxName2,
			TaxRate2:   l.TaxRate2,
			TaxName3:   l.TaxName3,
			TaxRate3:   l.TaxRate3,
		})
	}
	return out
}

// ToInvoiceResponse DTO de salida de una factura.
func ToInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:              inv.ID,
		CompanyID:       inv.CompanyID,
		ClientID:        inv.ClientID,
		Number:          inv.Number,
		Status:          int(inv.Status),
		Date:            inv.Date.Format("2006-01-02"),
		Amount:          inv.Amount,
		Balance:         inv.Balance,
		PaidToDate:      inv.PaidToDate,
		TotalTaxes:      inv.TotalTaxes,
		DocumentType:    string(inv.Backup.EffectiveDocumentType()),
		ParentInvoiceID: inv.Backup.ParentInvoiceID,
		ChildInvoiceIDs: inv.Backup.ChildInvoiceIDs,
		IsDeleted:       inv.IsDeleted,
		Lines:           make([]dto.InvoiceLineResponse, 0, len(inv.LineItems)),
	}
	for _, li := range inv.LineItems {
		resp.Lines = append(resp.Lines, dto.InvoiceLineResponse{
			ProductKey: li.ProductKey,
			Quantity:   li.Quantity,
			Cost:       li.Cost,
			LineTotal:  li.LineTotal,
			TaxAmount:  li.TaxAmount,
		})
	}
	return resp
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha %q: %w", s, domain.ErrInvalidInput)
	}
	return t, nil
}

// ── Helpers de transacción ───────────────────────────────────────────────────

// loadCompany empresa del tenant (modo fiscal y zona horaria).
func loadCompany(ctx context.Context, r *repository.Repos, tenant entity.Tenant) (*entity.Company, error) {
	company, err := r.Companies.GetByID(ctx, tenant.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("empresa %s: %w", tenant.CompanyID, domain.ErrNotFound)
	}
	return company, nil
}

func lockInvoice(ctx context.Context, r *repository.Repos, tenant entity.Tenant, id string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", id, domain.ErrNotFound)
	}
	if inv.CompanyID != tenant.CompanyID {
		return nil, fmt.Errorf("factura %s: %w", id, domain.ErrForbidden)
	}
	return inv, nil
}

// assignNumber número por defecto al emitir: F-XXXXXXXX o, en rectificativas, el del original con sufijo.
func assignNumber(inv *entity.Invoice, parent *entity.Invoice) {
	if inv.Number != "" {
		return
	}
	if parent != nil {
		inv.Number = fmt.Sprintf("%s-R%d", parent.Number, len(parent.Backup.ChildInvoiceIDs)+1)
		return
	}
	short := strings.ReplaceAll(inv.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	inv.Number = "F-" + strings.ToUpper(short)
}
