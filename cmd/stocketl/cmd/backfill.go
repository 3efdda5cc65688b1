package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stock_etl/internal/app/di"
	"stock_etl/internal/feature/bars/domain/entity"
)

func newBackfillCmd(a *app) *cobra.Command {
	var archiveDir string

	cmd := &cobra.Command{
		Use:   "backfill SYMBOL",
		Short: "Load the full monthly history of a symbol",
		Long: `backfill requests every month from 2000-01 through the current month,
waiting BACKFILL_CALL_DELAY between calls. Months that fail are logged and skipped.`,
		Args: cobra.ExactArgs(1),
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

			rep, err := di.NewBackfillRunner(a.cfg, res, archiveDir).Run(ctx, strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: months=%d failed=%d records=%d inserted=%d skipped=%d watermark=%s\n",
				rep.Symbol, rep.Stats.Attempted, rep.Stats.Failed, rep.Records, rep.Inserted, rep.Skipped,
				entity.FormatTimestamp(rep.Watermark))
			return nil
		},
	}
	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "also write each month to DIR/SYMBOL/YYYY-MM.parquet")
	return cmd
}
