package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/invorya-ledger/internal/bootstrap"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	"github.com/jhoicas/invorya-ledger/pkg/config"
	"github.com/jhoicas/invorya-ledger/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operación del ledger: migraciones, cadena Verifactu e informes fiscales",
	Long: `ledgerctl ejecuta tareas de operación sobre la base del ledger con la misma
configuración que la API (variables de entorno o .env).`,
	SilenceUsage: true,
}

// Execute ejecuta el comando raíz.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("company", "", "ID de la empresa (tenant)")
	rootCmd.PersistentFlags().String("db", "", "Base de datos del tenant (shard de DB_SHARDS)")
}

// tenantFlags lee --company/--db; la empresa es obligatoria.
func tenantFlags(cmd *cobra.Command) (entity.Tenant, error) {
	company, _ := cmd.Flags().GetString("company")
	db, _ := cmd.Flags().GetString("db")
	if company == "" {
		return entity.Tenant{}, fmt.Errorf("--company es obligatorio")
	}
	return entity.Tenant{CompanyID: company, DB: db}, nil
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Output: os.Stderr})
	return cfg, log, nil
}

// withCore abre el núcleo del ledger, ejecuta fn y lo cierra.
func withCore(ctx context.Context, fn func(core *bootstrap.Core) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	core, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("cerrar ledger")
		}
	}()
	return fn(core)
}
