package cmd

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_etl/internal/platform/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ALPHAVANTAGE_API_KEY", "alphavantage_API_KEY", "DB_NAME", "DB_USER",
		"WATERMARK_BACKEND", "REDIS_HOST", "BACKFILL_CALL_DELAY", "ALPHAVANTAGE_CALLS_PER_MINUTE",
		"SYMBOLS_FILE", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngest_RequiresExactlyOneSymbol(t *testing.T) {
	clearEnv(t)

	for _, args := range [][]string{{"ingest"}, {"ingest", "IBM", "AAPL"}} {
		_, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestIngest_MissingAPIKeyFailsBeforeIO(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_NAME", "stocks")
	t.Setenv("DB_USER", "etl")

	_, err := execute(t, "ingest", "IBM")

	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestBackfill_MissingDatabaseFailsBeforeIO(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALPHAVANTAGE_API_KEY", "key")

	_, err := execute(t, "backfill", "IBM", "--archive-dir", t.TempDir())

	assert.ErrorIs(t, err, config.ErrMissingDatabase)
}

func TestServe_MissingDatabase(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "serve")

	assert.ErrorIs(t, err, config.ErrMissingDatabase)
}

func TestIngestAll_MissingSymbolsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALPHAVANTAGE_API_KEY", "key")
	t.Setenv("DB_NAME", "stocks")
	t.Setenv("DB_USER", "etl")
	t.Setenv("SYMBOLS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := execute(t, "ingest-all")

	assert.ErrorContains(t, err, "read symbols")
}

func TestSymbolsFor_Args(t *testing.T) {
	t.Parallel()

	got, err := symbolsFor(config.Config{}, []string{"ibm", "brk-b"})

	require.NoError(t, err)
	assert.Equal(t, []string{"IBM", "BRK-B"}, got)
}

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
