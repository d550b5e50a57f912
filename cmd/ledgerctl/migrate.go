package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/invorya-ledger/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Aplica o revierte el esquema del ledger",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	dsn := cfg.DB.ConnectionString()
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		shard, ok := cfg.DB.Shards[db]
		if !ok {
			return fmt.Errorf("base de datos %q no configurada en DB_SHARDS", db)
		}
		dsn = shard
	}

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
		log.Info().Msg("migraciones aplicadas")
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
		log.Info().Msg("migraciones revertidas")
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "versión %d (dirty=%t)\n", v, dirty)
	}
	return nil
}
