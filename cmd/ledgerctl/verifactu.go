package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/invorya-ledger/internal/bootstrap"
)

var verifyChainCmd = &cobra.Command{
	Use:   "verify-chain",
	Short: "Recorre la cadena Verifactu de la empresa y recalcula cada huella",
	Example: `  ledgerctl verify-chain --company co-1
  ledgerctl verify-chain --company co-1 --db eu`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenant, err := tenantFlags(cmd)
		if err != nil {
			return err
		}
		return withCore(cmd.Context(), func(core *bootstrap.Core) error {
			rep, err := core.Chain.VerifyChain(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "empresa %s: %d registros\n", rep.CompanyID, rep.Rows)
			for _, b := range rep.Broken {
				fmt.Fprintf(out, "  %s (%s): %s\n", b.LogID, b.InvoiceNumber, b.Reason)
			}
			if !rep.Valid() {
				return fmt.Errorf("cadena rota: %d registros con incidencias", len(rep.Broken))
			}
			fmt.Fprintln(out, "cadena íntegra")
			return nil
		})
	},
}

var submitCmd = &cobra.Command{
	Use:     "submit",
	Short:   "Envía a la AEAT el registro de alta de una factura",
	Example: `  ledgerctl submit --company co-1 --invoice 6f1c...`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenant, err := tenantFlags(cmd)
		if err != nil {
			return err
		}
		invoiceID, _ := cmd.Flags().GetString("invoice")
		if invoiceID == "" {
			return fmt.Errorf("--invoice es obligatorio")
		}
		return withCore(cmd.Context(), func(core *bootstrap.Core) error {
			res, err := core.Chain.Submit(cmd.Context(), tenant, invoiceID)
			if err != nil {
				return err
			}
			core.Dispatcher.Dispatch(cmd.Context(), res.Outbox)
			out := cmd.OutOrStdout()
			switch {
			case res.Skipped():
				fmt.Fprintf(out, "factura ya registrada (huella %s)\n", res.Hash)
			case res.Log == nil:
				fmt.Fprintf(out, "%s:\n", res.Status)
				for _, e := range res.Errors {
					fmt.Fprintf(out, "  %s\n", e)
				}
			default:
				fmt.Fprintf(out, "%s CSV=%s huella=%s\n", res.Status, res.CSV, res.Hash)
			}
			return nil
		})
	},
}

var taxReportCmd = &cobra.Command{
	Use:     "tax-report",
	Short:   "Genera el libro xlsx de eventos fiscales de un rango de periodos",
	Example: `  ledgerctl tax-report --company co-1 --from 2025-01-01 --to 2025-03-31 --out T1.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenant, err := tenantFlags(cmd)
		if err != nil {
			return err
		}
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		path, _ := cmd.Flags().GetString("out")
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("--from inválido, usar YYYY-MM-DD: %w", err)
		}
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return fmt.Errorf("--to inválido, usar YYYY-MM-DD: %w", err)
		}
		return withCore(cmd.Context(), func(core *bootstrap.Core) error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := core.Reports.Write(cmd.Context(), tenant, from, to, f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "informe escrito en %s\n", path)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyChainCmd, submitCmd, taxReportCmd)

	submitCmd.Flags().String("invoice", "", "ID de la factura")

	taxReportCmd.Flags().String("from", "", "Primer periodo (YYYY-MM-DD)")
	taxReportCmd.Flags().String("to", "", "Último periodo (YYYY-MM-DD)")
	taxReportCmd.Flags().String("out", "impuestos.xlsx", "Archivo de salida")
}
