package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stock_etl/internal/app/di"
	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest SYMBOL",
		Short: "Load bars newer than the symbol's watermark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			res, err := di.OpenResources(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer res.Close()

			rep, err := di.NewLoader(a.cfg, res).Load(ctx, strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			printLoadReport(cmd, rep)
			return nil
		},
	}
}

func printLoadReport(cmd *cobra.Command, rep usecase.LoadReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: fetched=%d inserted=%d skipped=%d watermark=%s advanced=%t\n",
		rep.Symbol, rep.Fetched, rep.Inserted, rep.Skipped, entity.FormatTimestamp(rep.Watermark), rep.Advanced)
}
