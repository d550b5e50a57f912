package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/lifecycle"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
)

// CancelResult factura anulada y, en modo fiscal, la rectificativa R2 generada.
type CancelResult struct {
	Invoice       *entity.Invoice
	Rectification *entity.Invoice
	Outbox        outbox.Outbox
}

// RectifyInput rectificación parcial (R1) de una factura emitida.
type RectifyInput struct {
	InvoiceID string
	Lines     []dto.InvoiceLineRequest
	Reason    string
}

// RectifyResult factura original y rectificativa creada.
type RectifyResult struct {
	Invoice       *entity.Invoice
	Rectification *entity.Invoice
	Outbox        outbox.Outbox
}

// MarkSent emite un borrador: su importe pasa a deberse y el cliente lo asume.
// En modo fiscal se programa el registro Verifactu.
func (s *Service) MarkSent(ctx context.Context, tenant entity.Tenant, invoiceID string) (*Result, error) {
	var res Result
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = Result{}
		return s.markSent(ctx, r, tenant, invoiceID, &res)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", invoiceID).Str("number", res.Invoice.Number).Msg("factura emitida")
	return &res, nil
}

func (s *Service) markSent(ctx context.Context, r *repository.Repos, tenant entity.Tenant, invoiceID string, res *Result) error {
	company, err := loadCompany(ctx, r, tenant)
	if err != nil {
		return err
	}
	inv, err := lockInvoice(ctx, r, tenant, invoiceID)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckMarkSent(inv); err != nil {
		return err
	}

	inv.CalculateTotals()
	assignNumber(inv, nil)
	if inv.Backup.GUID == "" {
		inv.Backup.GUID = uuid.New().String()
	}
	if company.VerifactuEnabled && inv.Backup.EffectiveDocumentType() == entity.DocumentTypeF1 {
		inv.Backup.DocumentType = entity.DocumentTypeF1
		inv.Backup.AdjustableAmount = inv.Amount
	}

	delta := inv.Amount.Sub(inv.Balance)
	inv.Status = entity.InvoiceStatusSent
	if err := s.engine.UpdateInvoiceBalance(ctx, r, inv, delta, fmt.Sprintf("Factura %s emitida", inv.Number)); err != nil {
		return err
	}
	inv.UpdatedAt = s.now()
	if err := r.Invoices.Save(ctx, inv); err != nil {
		return err
	}
	if _, err := s.engine.UpdateClientBalance(ctx, r, inv.ClientID, delta); err != nil {
		return err
	}

	res.Invoice = inv
	res.Outbox.Emit(outbox.EventInvoiceSent, tenant.CompanyID, inv.ID, map[string]any{
		"number": inv.Number,
		"amount": inv.Amount.StringFixed(2),
	})
	if company.VerifactuEnabled {
		res.Outbox.Schedule(outbox.VerifactuSubmitJob(tenant, inv.ID))
	}
	return nil
}

// Cancel anula una factura. Fuera del modo fiscal libera el saldo y guarda la instantánea para reverse;
// en modo fiscal deja el saldo intacto y emite una rectificativa R2 por el total.
func (s *Service) Cancel(ctx context.Context, tenant entity.Tenant, invoiceID, reason string) (*CancelResult, error) {
	var res CancelResult
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = CancelResult{}
		return s.cancel(ctx, r, tenant, invoiceID, reason, &res)
	})
	if err != nil {
		return nil, err
	}
	ev := s.log.Info().Str("invoice_id", invoiceID)
	if res.Rectification != nil {
		ev = ev.Str("rectification_id", res.Rectification.ID)
	}
	ev.Msg("factura anulada")
	return &res, nil
}

func (s *Service) cancel(ctx context.Context, r *repository.Repos, tenant entity.Tenant, invoiceID, reason string, res *CancelResult) error {
	company, err := loadCompany(ctx, r, tenant)
	if err != nil {
		return err
	}
	inv, err := lockInvoice(ctx, r, tenant, invoiceID)
	if err != nil {
		return err
	}
	fiscal := company.VerifactuEnabled
	if err := lifecycle.CheckCancel(inv, fiscal); err != nil {
		return err
	}
	if fiscal {
		return s.cancelFiscal(ctx, r, tenant, inv, reason, res)
	}

	prior := inv.Status
	adjustment := inv.Balance.Neg()
	if err := s.engine.UpdateInvoiceBalance(ctx, r, inv, adjustment, fmt.Sprintf("Factura %s anulada", inv.Number)); err != nil {
		return err
	}
	inv.Backup.Cancellation = entity.CancellationRecord{Adjustment: adjustment, StatusID: prior}
	inv.Status = entity.InvoiceStatusCancelled
	inv.UpdatedAt = s.now()
	if err := r.Invoices.Save(ctx, inv); err != nil {
		return err
	}
	if _, err := s.engine.RecalculateClientBalance(ctx, r, inv.ClientID); err != nil {
		return err
	}

	res.Invoice = inv
	res.Outbox.Emit(outbox.EventInvoiceCancelled, tenant.CompanyID, inv.ID, map[string]any{
		"adjustment": adjustment.StringFixed(2),
	})
	res.Outbox.Schedule(outbox.InvoiceUpdatedJob(tenant, inv.ID))
	return nil
}

func (s *Service) cancelFiscal(ctx context.Context, r *repository.Repos, tenant entity.Tenant, inv *entity.Invoice, reason string, res *CancelResult) error {
	r2 := replicateNegated(inv)
	if err := lifecycle.ValidateRectification(inv, nil, r2.Amount); err != nil {
		return err
	}
	now := s.now()
	r2.ID = uuid.New().String()
	r2.Date = now
	r2.CreatedAt = now
	r2.UpdatedAt = now
	r2.Backup = entity.InvoiceBackup{
		GUID:                uuid.New().String(),
		DocumentType:        entity.DocumentTypeR2,
		ParentInvoiceID:     inv.ID,
		ParentInvoiceNumber: inv.Number,
		AdjustableAmount:    r2.Amount,
		Notes:               reason,
	}
	assignNumber(r2, inv)
	if err := s.createSentRectification(ctx, r, r2); err != nil {
		return err
	}

	inv.Status = entity.InvoiceStatusCancelled
	inv.Backup.ChildInvoiceIDs = append(inv.Backup.ChildInvoiceIDs, r2.ID)
	inv.UpdatedAt = now
	if err := r.Invoices.Save(ctx, inv); err != nil {
		return err
	}

	res.Invoice = inv
	res.Rectification = r2
	res.Outbox.Emit(outbox.EventInvoiceCancelled, tenant.CompanyID, inv.ID, map[string]any{
		"rectification_id": r2.ID,
	})
	res.Outbox.Emit(outbox.EventInvoiceRectified, tenant.CompanyID, inv.ID, map[string]any{
		"rectification_id": r2.ID,
		"document_type":    string(entity.DocumentTypeR2),
		"amount":           r2.Amount.StringFixed(2),
	})
	res.Outbox.Schedule(outbox.VerifactuSubmitJob(tenant, r2.ID))
	res.Outbox.Schedule(outbox.InvoiceUpdatedJob(tenant, inv.ID))
	return nil
}

// createSentRectification persiste la rectificativa ya emitida y carga su importe al cliente.
func (s *Service) createSentRectification(ctx context.Context, r *repository.Repos, rect *entity.Invoice) error {
	rect.Status = entity.InvoiceStatusSent
	rect.Balance = decimal.Zero
	rect.PaidToDate = decimal.Zero
	if err := r.Invoices.Create(ctx, rect); err != nil {
		return err
	}
	note := fmt.Sprintf("Rectificativa %s de %s", rect.Number, rect.Backup.ParentInvoiceNumber)
	if err := s.engine.UpdateInvoiceBalance(ctx, r, rect, rect.Amount, note); err != nil {
		return err
	}
	_, err := s.engine.UpdateClientBalance(ctx, r, rect.ClientID, rect.Amount)
	return err
}

// replicateNegated copia la factura con cantidades y recargos en negativo.
func replicateNegated(inv *entity.Invoice) *entity.Invoice {
	out := &entity.Invoice{
		CompanyID:        inv.CompanyID,
		ClientID:         inv.ClientID,
		LineItems:        make([]entity.LineItem, len(inv.LineItems)),
		CustomSurcharge1: inv.CustomSurcharge1.Neg(),
		CustomSurcharge2: inv.CustomSurcharge2.Neg(),
		CustomSurcharge3: inv.CustomSurcharge3.Neg(),
		CustomSurcharge4: inv.CustomSurcharge4.Neg(),
	}
	for i, li := range inv.LineItems {
		li.Quantity = li.Quantity.Neg()
		out.LineItems[i] = li
	}
	out.CalculateTotals()
	return out
}

// Reverse deshace una anulación no fiscal: devuelve el saldo y el estado previos. Solo una vez.
func (s *Service) Reverse(ctx context.Context, tenant entity.Tenant, invoiceID string) (*Result, error) {
	var res Result
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = Result{}
		company, err := loadCompany(ctx, r, tenant)
		if err != nil {
			return err
		}
		inv, err := lockInvoice(ctx, r, tenant, invoiceID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckReverse(inv, company.VerifactuEnabled); err != nil {
			return err
		}

		snap := inv.Backup.Cancellation
		if err := s.engine.UpdateInvoiceBalance(ctx, r, inv, snap.Adjustment.Neg(), fmt.Sprintf("Anulación de %s revertida", inv.Number)); err != nil {
			return err
		}
		now := s.now()
		inv.Status = snap.StatusID
		inv.Backup.Cancellation.ReversedAt = &now
		inv.UpdatedAt = now
		if err := r.Invoices.Save(ctx, inv); err != nil {
			return err
		}
		if _, err := s.engine.RecalculateClientBalance(ctx, r, inv.ClientID); err != nil {
			return err
		}

		res.Invoice = inv
		res.Outbox.Emit(outbox.EventInvoiceReversed, tenant.CompanyID, inv.ID, map[string]any{
			"adjustment": snap.Adjustment.Neg().StringFixed(2),
		})
		res.Outbox.Schedule(outbox.InvoiceUpdatedJob(tenant, inv.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", invoiceID).Msg("anulación revertida")
	return &res, nil
}

// Rectify crea una rectificativa parcial R1 con las líneas indicadas (importe total negativo).
func (s *Service) Rectify(ctx context.Context, tenant entity.Tenant, in RectifyInput) (*RectifyResult, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	var res RectifyResult
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = RectifyResult{}
		company, err := loadCompany(ctx, r, tenant)
		if err != nil {
			return err
		}
		parent, err := lockInvoice(ctx, r, tenant, in.InvoiceID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckRectify(parent); err != nil {
			return err
		}
		children, err := loadChildren(ctx, r, parent)
		if err != nil {
			return err
		}

		rect := &entity.Invoice{
			CompanyID: parent.CompanyID,
			ClientID:  parent.ClientID,
			LineItems: LinesFromRequest(in.Lines),
		}
		rect.CalculateTotals()
		if err := lifecycle.ValidateRectification(parent, children, rect.Amount); err != nil {
			return err
		}

		now := s.now()
		rect.ID = uuid.New().String()
		rect.Date = now
		rect.CreatedAt = now
		rect.UpdatedAt = now
		rect.Backup = entity.InvoiceBackup{
			GUID:                uuid.New().String(),
			DocumentType:        entity.DocumentTypeR1,
			ParentInvoiceID:     parent.ID,
			ParentInvoiceNumber: parent.Number,
			AdjustableAmount:    rect.Amount,
			Notes:               in.Reason,
		}
		assignNumber(rect, parent)
		if err := s.createSentRectification(ctx, r, rect); err != nil {
			return err
		}

		parent.Backup.ChildInvoiceIDs = append(parent.Backup.ChildInvoiceIDs, rect.ID)
		parent.UpdatedAt = now
		if err := r.Invoices.Save(ctx, parent); err != nil {
			return err
		}

		res.Invoice = parent
		res.Rectification = rect
		res.Outbox.Emit(outbox.EventInvoiceRectified, tenant.CompanyID, parent.ID, map[string]any{
			"rectification_id": rect.ID,
			"document_type":    string(entity.DocumentTypeR1),
			"amount":           rect.Amount.StringFixed(2),
		})
		if company.VerifactuEnabled {
			res.Outbox.Schedule(outbox.VerifactuSubmitJob(tenant, rect.ID))
		}
		res.Outbox.Schedule(outbox.InvoiceUpdatedJob(tenant, parent.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", in.InvoiceID).Str("rectification_id", res.Rectification.ID).Msg("factura rectificada")
	return &res, nil
}

func loadChildren(ctx context.Context, r *repository.Repos, parent *entity.Invoice) ([]*entity.Invoice, error) {
	children := make([]*entity.Invoice, 0, len(parent.Backup.ChildInvoiceIDs))
	for _, id := range parent.Backup.ChildInvoiceIDs {
		child, err := r.Invoices.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if child != nil {
			children = append(children, child)
		}
	}
	return children, nil
}

// Delete elimina lógicamente la factura. Una factura ya registrada en Verifactu no se puede eliminar.
func (s *Service) Delete(ctx context.Context, tenant entity.Tenant, invoiceID string) (*Result, error) {
	var res Result
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = Result{}
		return s.delete(ctx, r, tenant, invoiceID, &res)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", invoiceID).Msg("factura eliminada")
	return &res, nil
}

func (s *Service) delete(ctx context.Context, r *repository.Repos, tenant entity.Tenant, invoiceID string, res *Result) error {
	company, err := loadCompany(ctx, r, tenant)
	if err != nil {
		return err
	}
	inv, err := lockInvoice(ctx, r, tenant, invoiceID)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckDelete(inv, company.VerifactuEnabled); err != nil {
		return err
	}
	logged, err := r.VerifactuLogs.GetByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	if logged != nil {
		return domain.Reject(domain.RejectInvoiceNotDeletable, "invoice", map[string]string{"number": inv.Number})
	}

	now := s.now()
	inv.IsDeleted = true
	inv.DeletedAt = &now
	inv.UpdatedAt = now
	if err := r.Invoices.Save(ctx, inv); err != nil {
		return err
	}
	if _, err := s.engine.RecalculateClientBalance(ctx, r, inv.ClientID); err != nil {
		return err
	}

	res.Invoice = inv
	res.Outbox.Emit(outbox.EventInvoiceDeleted, tenant.CompanyID, inv.ID, map[string]any{"number": inv.Number})
	return nil
}

// Restore recupera una factura eliminada y vuelve a contar su saldo en el cliente.
func (s *Service) Restore(ctx context.Context, tenant entity.Tenant, invoiceID string) (*Result, error) {
	var res Result
	err := s.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		res = Result{}
		return s.restore(ctx, r, tenant, invoiceID, &res)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", invoiceID).Msg("factura restaurada")
	return &res, nil
}

func (s *Service) restore(ctx context.Context, r *repository.Repos, tenant entity.Tenant, invoiceID string, res *Result) error {
	inv, err := lockInvoice(ctx, r, tenant, invoiceID)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckRestore(inv); err != nil {
		return err
	}
	inv.IsDeleted = false
	inv.DeletedAt = nil
	inv.UpdatedAt = s.now()
	if err := r.Invoices.Save(ctx, inv); err != nil {
		return err
	}
	if _, err := s.engine.RecalculateClientBalance(ctx, r, inv.ClientID); err != nil {
		return err
	}
	res.Invoice = inv
	res.Outbox.Emit(outbox.EventInvoiceRestored, tenant.CompanyID, inv.ID, map[string]any{"number": inv.Number})
	return nil
}
