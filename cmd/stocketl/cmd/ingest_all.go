package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"stock_etl/internal/app/di"
	"stock_etl/internal/platform/config"
)

func newIngestAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest-all [SYMBOL...]",
		Short: "Run ingest for several symbols, defaulting to SYMBOLS_FILE",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			symbols, err := symbolsFor(a.cfg, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			res, err := di.OpenResources(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer res.Close()

			reports, err := di.NewLoader(a.cfg, res).LoadAll(ctx, symbols)
			for _, rep := range reports {
				printLoadReport(cmd, rep)
			}
			return err
		},
	}
}

// symbolsFor returns the symbols given on the command line, or the configured list.
func symbolsFor(cfg config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return config.LoadSymbols(cfg.SymbolsFile)
	}
	out := make([]string, 0, len(args))
	for _, s := range args {
		out = append(out, strings.ToUpper(s))
	}
	return out, nil
}
