package di

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/platform/config"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestNewWatermarkRepository(t *testing.T) {
	t.Parallel()

	rdb, _ := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	fileCfg := config.Config{WatermarkBackend: config.BackendFile, CDCPath: "x.json"}
	redisCfg := config.Config{WatermarkBackend: config.BackendRedis, CDCPath: "x.json"}

	assert.Equal(t, "*adapters.watermarkFile", typeName(NewWatermarkRepository(fileCfg, rdb)))
	assert.Equal(t, "*adapters.watermarkRedis", typeName(NewWatermarkRepository(redisCfg, rdb)))
	// Redis selected but not connected falls back to the file.
	assert.Equal(t, "*adapters.watermarkFile", typeName(NewWatermarkRepository(redisCfg, nil)))
}

func TestNewLoader_EndToEnd(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Time Series (30min)": {
			"2025-11-07 00:30:00": {"1. open": "1", "2. high": "2", "3. low": "0.5", "4. close": "1.5", "5. volume": "10"},
			"2025-11-07 01:00:00": {"1. open": "1.5", "2. high": "2", "3. low": "1", "4. close": "1.75", "5. volume": "20"}
		}}`))
	}))
	defer server.Close()

	var cfg config.Config
	cfg.AlphaVantage.APIKey = "key"
	cfg.AlphaVantage.BaseURL = server.URL
	cfg.AlphaVantage.Timeout = 5 * time.Second
	cfg.AlphaVantage.MaxAttempts = 1
	cfg.WatermarkBackend = config.BackendFile
	cfg.CDCPath = filepath.Join(t.TempDir(), "cdc_", "last_cdc.json")
	cfg.CallsPerMinute = 5

	res := &Resources{DB: openSQLite(t)}
	loader := NewLoader(cfg, res)

	rep, err := loader.Load(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Inserted)
	assert.True(t, rep.Advanced)
	assert.Equal(t, "2025-11-07 01:00:00", entity.FormatTimestamp(rep.Watermark))

	// A second cycle sees nothing new.
	rep, err = loader.Load(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Fetched)
	assert.False(t, rep.Advanced)

	bars, err := NewBarStore(res.DB, nil).Latest(context.Background(), "IBM", 10)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestNewBackfillRunner_Archive(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.WatermarkBackend = config.BackendFile
	cfg.CDCPath = filepath.Join(t.TempDir(), "last_cdc.json")

	res := &Resources{DB: openSQLite(t)}

	assert.NotNil(t, NewBackfillRunner(cfg, res, ""))
	assert.NotNil(t, NewBackfillRunner(cfg, res, t.TempDir()))
}

func TestResources_PingDB(t *testing.T) {
	t.Parallel()

	res := &Resources{DB: openSQLite(t)}

	assert.NoError(t, res.PingDB(context.Background()))
	res.Close()
	assert.Error(t, res.PingDB(context.Background()))
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
