// Package verifactu orquesta la cadena fiscal Verifactu de cada empresa: construye, firma y envía
// el registro de alta bajo el candado de la secuencia fiscal y solo lo anota si la AEAT lo aceptó.
package verifactu

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/internal/domain/repository"
	domverifactu "github.com/jhoicas/invorya-ledger/internal/domain/verifactu"
	infraverifactu "github.com/jhoicas/invorya-ledger/internal/infrastructure/verifactu"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

// StatusSkipped la factura ya tenía registro en la cadena.
const StatusSkipped = "Skipped"

// ChainBuilder extiende la cadena de registros de alta de una empresa.
type ChainBuilder struct {
	tx         ports.TxRunner
	builder    *infraverifactu.XMLBuilder
	signer     pkgverifactu.Signer
	submitter  infraverifactu.Submitter
	archive    ports.DocumentArchive
	cert       tls.Certificate
	dispatcher *outbox.Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

// NewChainBuilder construye el orquestador. archive puede ser nil; sin certificado no se firma (dev).
func NewChainBuilder(
	tx ports.TxRunner,
	builder *infraverifactu.XMLBuilder,
	signer pkgverifactu.Signer,
	submitter infraverifactu.Submitter,
	archive ports.DocumentArchive,
	cert tls.Certificate,
	log zerolog.Logger,
) *ChainBuilder {
	return &ChainBuilder{
		tx:        tx,
		builder:   builder,
		signer:    signer,
		submitter: submitter,
		archive:   archive,
		cert:      cert,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithDispatcher despacha los efectos de los envíos hechos desde la cola.
func (c *ChainBuilder) WithDispatcher(d *outbox.Dispatcher) *ChainBuilder {
	c.dispatcher = d
	return c
}

// SubmitOutcome resultado del envío. Un Incorrecto no deja registro y no es un error.
type SubmitOutcome struct {
	InvoiceID string
	Status    string
	CSV       string
	Hash      string
	Errors    []string
	Log       *entity.VerifactuLog
	Outbox    outbox.Outbox
}

// Skipped indica que la factura ya estaba en la cadena.
func (o *SubmitOutcome) Skipped() bool { return o.Status == StatusSkipped }

// Submit envía el registro de alta de la factura dentro de una transacción que mantiene el candado
// de la secuencia fiscal de la empresa hasta el commit. La fila del log solo se inserta con
// Correcto o ParcialmenteCorrecto.
func (c *ChainBuilder) Submit(ctx context.Context, tenant entity.Tenant, invoiceID string) (*SubmitOutcome, error) {
	out := &SubmitOutcome{InvoiceID: invoiceID}
	var signed []byte

	err := c.tx.RunInTx(ctx, tenant, func(r *repository.Repos) error {
		company, err := r.Companies.GetByID(ctx, tenant.CompanyID)
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("empresa %s: %w", tenant.CompanyID, domain.ErrNotFound)
		}
		if !company.VerifactuEnabled {
			return fmt.Errorf("empresa %s sin Verifactu: %w", company.ID, domain.ErrConflict)
		}
		if err := r.Companies.LockFiscalSequence(ctx, company.ID); err != nil {
			return err
		}

		inv, err := r.Invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
		}
		if inv.CompanyID != company.ID {
			return domain.ErrForbidden
		}
		if inv.Status == entity.InvoiceStatusDraft || inv.Number == "" {
			return fmt.Errorf("factura %s sin emitir: %w", inv.ID, domain.ErrConflict)
		}

		existing, err := r.VerifactuLogs.GetByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			out.Status = StatusSkipped
			out.CSV = existing.Status
			out.Hash = existing.Hash
			out.Log = existing
			return nil
		}

		latest, err := r.VerifactuLogs.LatestByCompany(ctx, company.ID)
		if err != nil {
			return err
		}
		client, err := r.Clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return err
		}
		var parent *entity.Invoice
		if inv.Backup.ParentInvoiceID != "" {
			if parent, err = r.Invoices.GetByID(ctx, inv.Backup.ParentInvoiceID); err != nil {
				return err
			}
		}

		in := infraverifactu.BuildInput{
			Company:     company,
			Client:      client,
			Invoice:     inv,
			Parent:      parent,
			GeneratedAt: c.now().In(company.Location()),
		}
		if latest != nil {
			in.Previous = &infraverifactu.PreviousRecord{
				NIF: latest.NIF, Number: latest.InvoiceNumber, Date: latest.Date, Hash: latest.Hash,
			}
		}
		record, err := c.builder.Build(in)
		if err != nil {
			return fmt.Errorf("construir registro %s: %w", inv.Number, err)
		}

		signed = record.XML
		if len(c.cert.Certificate) > 0 {
			if signed, err = c.signer.Sign(record.XML, c.cert); err != nil {
				return fmt.Errorf("firmar registro %s: %w", inv.Number, err)
			}
		}

		result, err := c.submitter.Submit(ctx, infraverifactu.SubmitRequest{
			NIF:      company.NIF,
			Name:     company.Name,
			Registro: signed,
			Hash:     record.Hash,
		})
		if err != nil {
			return err
		}
		out.Status, out.CSV, out.Errors, out.Hash = result.Status, result.CSV, result.Errors, record.Hash

		if !pkgverifactu.IsAccepted(result.Status) {
			c.log.Warn().Str("invoice_id", inv.ID).Str("number", inv.Number).
				Strs("errors", result.Errors).Msg("verifactu: registro rechazado por la AEAT")
			signed = nil
			return nil
		}

		state, err := json.Marshal(record.Params)
		if err != nil {
			return err
		}
		response, err := json.Marshal(result)
		if err != nil {
			return err
		}
		entry := &entity.VerifactuLog{
			ID:            uuid.New().String(),
			CompanyID:     company.ID,
			InvoiceID:     inv.ID,
			NIF:           record.Params.IDEmisorFactura,
			Date:          inv.Date,
			InvoiceNumber: inv.Number,
			Hash:          record.Hash,
			PreviousHash:  record.Params.HuellaAnterior,
			Status:        result.CSV,
			Response:      response,
			State:         state,
			CreatedAt:     c.now(),
		}
		if err := r.VerifactuLogs.Create(ctx, entry); err != nil {
			return err
		}
		out.Log = entry
		out.Outbox.Emit(outbox.EventVerifactuSubmitted, company.ID, inv.ID, map[string]any{
			"number": inv.Number,
			"status": result.Status,
			"csv":    result.CSV,
			"hash":   record.Hash,
		})
		return nil
	})
	if err != nil && out.Log != nil && !out.Skipped() {
		// la AEAT ya aceptó el registro: reenviarlo duplicaría el eslabón
		c.log.Error().Err(err).Str("invoice_id", invoiceID).Str("csv", out.CSV).Str("hash", out.Hash).
			Msg("verifactu: registro aceptado sin fila de log, requiere conciliación")
		return nil, fmt.Errorf("registro %s aceptado (CSV %s) sin fila de log: %v: %w", invoiceID, out.CSV, err, domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	if out.Log != nil && !out.Skipped() && len(signed) > 0 {
		c.archiveRecord(ctx, out.Log, signed)
	}
	return out, nil
}

// archiveRecord copia el XML firmado al archivo documental. Los fallos solo se registran.
func (c *ChainBuilder) archiveRecord(ctx context.Context, entry *entity.VerifactuLog, signed []byte) {
	if c.archive == nil {
		return
	}
	if err := c.archive.Put(ctx, ArchiveKey(entry), signed, "application/xml"); err != nil {
		c.log.Warn().Err(err).Str("invoice_id", entry.InvoiceID).Msg("verifactu: archivar registro firmado")
	}
}

// ArchiveKey ruta del registro firmado en el archivo: verifactu/{empresa}/{yyyy}/{numero}-{huella[:12]}.xml
func ArchiveKey(entry *entity.VerifactuLog) string {
	h := entry.Hash
	if len(h) > 12 {
		h = h[:12]
	}
	return fmt.Sprintf("verifactu/%s/%d/%s-%s.xml", entry.CompanyID, entry.Date.Year(), entry.InvoiceNumber, h)
}

// ── Verificación ─────────────────────────────────────────────────────────────

// BrokenLink registro cuya huella o enlace no cuadra.
type BrokenLink struct {
	LogID         string
	InvoiceNumber string
	Reason        string
}

// ChainReport resultado de recorrer la cadena de una empresa.
type ChainReport struct {
	CompanyID string
	Rows      int
	Broken    []BrokenLink
}

// Valid indica una cadena íntegra.
func (r *ChainReport) Valid() bool { return len(r.Broken) == 0 }

// VerifyChain recorre el log en orden de creación comprobando el enlace con el registro anterior
// y recalculando cada huella a partir de los campos guardados.
func (c *ChainBuilder) VerifyChain(ctx context.Context, tenant entity.Tenant) (*ChainReport, error) {
	report := &ChainReport{CompanyID: tenant.CompanyID}
	prev := ""
	err := c.tx.Repos(tenant).VerifactuLogs.StreamByCompany(ctx, tenant.CompanyID, func(l *entity.VerifactuLog) error {
		report.Rows++
		broken := func(reason string) {
			report.Broken = append(report.Broken, BrokenLink{LogID: l.ID, InvoiceNumber: l.InvoiceNumber, Reason: reason})
		}
		if l.PreviousHash != prev {
			broken(fmt.Sprintf("huella anterior %q, se esperaba %q", l.PreviousHash, prev))
		}
		var params domverifactu.HashParams
		if err := json.Unmarshal(l.State, &params); err != nil {
			broken("estado ilegible: " + err.Error())
		} else {
			params.HuellaAnterior = l.PreviousHash
			h, err := domverifactu.CalculateHash(params)
			switch {
			case err != nil:
				broken(err.Error())
			case h != l.Hash:
				broken("la huella no corresponde con los campos registrados")
			}
		}
		prev = l.Hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ── Trabajo diferido ─────────────────────────────────────────────────────────

// Handle atiende verifactu.submit. Los rechazos de la AEAT y los errores permanentes se registran y
// no se reintentan; los fallos de envío y los transitorios vuelven a la cola.
func (c *ChainBuilder) Handle(ctx context.Context, job outbox.JobRequest) error {
	p, ok := job.Payload.(outbox.InvoiceEventPayload)
	if !ok {
		c.log.Error().Str("job", job.Type).Msgf("verifactu: payload %T", job.Payload)
		return nil
	}
	res, err := c.Submit(ctx, job.Tenant, p.InvoiceID)
	if err != nil {
		if domain.IsRetryable(err) || errors.Is(err, domain.ErrFiscalSubmission) {
			return err
		}
		c.log.Error().Err(err).Str("invoice_id", p.InvoiceID).Msg("verifactu: envío descartado")
		return nil
	}
	if c.dispatcher != nil {
		c.dispatcher.Dispatch(ctx, res.Outbox)
	}
	c.log.Info().Str("invoice_id", p.InvoiceID).Str("status", res.Status).Str("csv", res.CSV).Msg("verifactu: envío procesado")
	return nil
}
