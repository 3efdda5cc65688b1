package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"stock_etl/internal/app/di"
	"stock_etl/internal/app/router"
	barshandler "stock_etl/internal/feature/bars/transport/handler"
	"stock_etl/internal/feature/bars/usecase"
	"stock_etl/internal/platform/http/handler"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored bars and watermarks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.Join(a.cfg.RequireDatabase(), a.cfg.ValidateWatermark()); err != nil {
				return err
			}
			ctx := cmd.Context()

			res, err := di.OpenResources(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer res.Close()

			store := di.NewBarStore(res.DB, res.Redis)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			h := barshandler.NewBarsHandler(usecase.NewBarsUsecase(store), di.NewWatermarkRepository(a.cfg, res.Redis))

			checks := map[string]handler.Check{"database": res.PingDB}
			if res.Redis != nil {
				checks["redis"] = res.PingRedis
			}

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           router.NewRouter(h, checks),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return runServer(ctx, srv)
		},
	}
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
