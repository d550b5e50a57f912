// Package bootstrap arma el núcleo del ledger a partir de la configuración; lo comparten la API y ledgerctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/invorya-ledger/internal/application/actions"
	"github.com/jhoicas/invorya-ledger/internal/application/billing"
	"github.com/jhoicas/invorya-ledger/internal/application/ledger"
	"github.com/jhoicas/invorya-ledger/internal/application/outbox"
	"github.com/jhoicas/invorya-ledger/internal/application/payment"
	"github.com/jhoicas/invorya-ledger/internal/application/ports"
	"github.com/jhoicas/invorya-ledger/internal/application/txevents"
	"github.com/jhoicas/invorya-ledger/internal/application/usecase"
	appverifactu "github.com/jhoicas/invorya-ledger/internal/application/verifactu"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/archive"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/cache"
	infrapdf "github.com/jhoicas/invorya-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/queue"
	"github.com/jhoicas/invorya-ledger/internal/infrastructure/report"
	infraverifactu "github.com/jhoicas/invorya-ledger/internal/infrastructure/verifactu"
	"github.com/jhoicas/invorya-ledger/pkg/config"
	"github.com/jhoicas/invorya-ledger/pkg/logger"
)

// Core servicios del ledger listos para usar.
type Core struct {
	Pools      *postgres.Pools
	Tx         ports.TxRunner
	Companies  *usecase.CompanyUseCase
	Invoices   *billing.Service
	Bulk       *billing.BulkService
	Payments   *payment.Service
	Chain      *appverifactu.ChainBuilder
	Documents  *appverifactu.DocumentUseCase
	Reports    *report.TaxReporter
	Scheduler  *queue.Scheduler
	Dispatcher *outbox.Dispatcher
}

// New abre las bases de datos, la caché de acciones y el cliente AEAT, y registra los trabajos
// en segundo plano. Close libera lo abierto.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Core, error) {
	pools, err := postgres.NewPools(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	tx := postgres.NewTxRunner(pools, cfg.DB.LockTimeout)

	// Redis opcional; sin él (o caído) el candado vive en memoria del proceso
	var primary ports.ActionCache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, candado de acciones en memoria")
		} else {
			primary = rdb
		}
	}
	actionCache := cache.NewFallback(primary, cache.NewMemory(), log.WithComponent("cache"))
	lock := actions.NewLock(actionCache, cfg.Ledger.ActionLockTTL, cfg.Ledger.ActionLockMaxTTL)

	engine := ledger.NewEngine(log.WithComponent("ledger"))
	invoices := billing.NewService(tx, engine, log.WithComponent("invoices"))
	payments := payment.NewService(tx, engine, log.WithComponent("payments"))

	chain, err := newChain(ctx, cfg, tx, log)
	if err != nil {
		pools.Close()
		return nil, err
	}

	scheduler := queue.NewScheduler(queue.Options{
		DelayMin: cfg.Ledger.JobDelayMin,
		DelayMax: cfg.Ledger.JobDelayMax,
		Retries:  cfg.Ledger.JobRetries,
	}, log.WithComponent("queue"))
	recorder := txevents.NewRecorder(tx, log.WithComponent("txevents"))
	scheduler.Register(outbox.JobPaymentAdjustment, recorder)
	scheduler.Register(outbox.JobInvoiceUpdated, recorder)
	scheduler.Register(outbox.JobPaymentCash, recorder)
	scheduler.Register(outbox.JobClientRecalculate, ledger.NewRecalculator(tx, engine))
	scheduler.Register(outbox.JobVerifactuSubmit, chain)

	dispatcher := outbox.NewDispatcher(nil, scheduler, log.WithComponent("outbox"))
	chain.WithDispatcher(dispatcher)

	return &Core{
		Pools:      pools,
		Tx:         tx,
		Companies:  usecase.NewCompanyUseCase(tx),
		Invoices:   invoices,
		Bulk:       billing.NewBulkService(invoices, payments, lock, log.WithComponent("bulk")),
		Payments:   payments,
		Chain:      chain,
		Documents:  appverifactu.NewDocumentUseCase(tx, infrapdf.NewMarotoPDFGenerator(), cfg.Verifactu.AppEnv),
		Reports:    report.NewTaxReporter(tx),
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
	}, nil
}

func newChain(ctx context.Context, cfg *config.Config, tx ports.TxRunner, log *logger.Logger) (*appverifactu.ChainBuilder, error) {
	vc := cfg.Verifactu
	cert, err := infraverifactu.LoadCertificate(vc.CertPath, vc.CertKeyPath, vc.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("certificado verifactu: %w", err)
	}
	submitter, err := infraverifactu.NewSOAPClient(vc.AppEnv, cert)
	if err != nil {
		return nil, err
	}
	builder := infraverifactu.NewXMLBuilder(infraverifactu.SoftwareInfo{
		Name:               vc.SoftwareName,
		NIF:                vc.SoftwareNIF,
		ID:                 vc.SoftwareID,
		Version:            vc.SoftwareVersion,
		InstallationNumber: vc.InstallationNumber,
	})

	var docs ports.DocumentArchive
	if cfg.Archive.Enabled {
		s3, err := archive.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archivo S3: %w", err)
		}
		docs = s3
	}
	return appverifactu.NewChainBuilder(tx, builder, infraverifactu.NewXMLDSigSigner(), submitter, docs, cert,
		log.WithComponent("verifactu")), nil
}

// Close espera los trabajos en curso y cierra las bases de datos.
func (c *Core) Close(ctx context.Context) error {
	err := c.Scheduler.Shutdown(ctx)
	c.Pools.Close()
	return err
}
