package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/invorya-ledger/internal/bootstrap"
	httpRouter "github.com/jhoicas/invorya-ledger/internal/interfaces/http"
	"github.com/jhoicas/invorya-ledger/pkg/config"
	"github.com/jhoicas/invorya-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("verifactu_env", cfg.Verifactu.AppEnv).
		Msg("iniciando aplicación")

	core, err := bootstrap.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar ledger")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Companies: httpRouter.NewCompanyHandler(core.Companies),
		Invoices:  httpRouter.NewInvoiceHandler(core.Invoices, core.Bulk, core.Dispatcher),
		Payments:  httpRouter.NewPaymentHandler(core.Payments, core.Dispatcher),
		Verifactu: httpRouter.NewVerifactuHandler(core.Chain, core.Documents, core.Reports, core.Dispatcher),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := core.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Int("pendientes", core.Scheduler.Pending()).Msg("trabajos en curso sin terminar")
	}

	log.Info().Msg("aplicación detenida")
}
