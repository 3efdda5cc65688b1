// Package cmd holds the stocketl commands.
package cmd

import (
	"github.com/spf13/cobra"

	"stock_etl/internal/platform/config"
	"stock_etl/internal/platform/logging"
)

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	envFile string
	cfg     config.Config
}

// NewRootCmd builds the stocketl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "stocketl",
		Short: "Intraday stock bar ETL for Alpha Vantage and PostgreSQL",
		Long: `stocketl pulls 30 minute bars from Alpha Vantage into the stocks_data table.

Commands:
    ingest SYMBOL      incremental sync of the current month since the last watermark
    ingest-all         incremental sync of every symbol in SYMBOLS_FILE
    backfill SYMBOL    full history from 2000-01, one month per call
    serve              read API over stored bars and watermarks
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newIngestCmd(a),
		newIngestAllCmd(a),
		newBackfillCmd(a),
		newServeCmd(a),
	)
	return root
}
