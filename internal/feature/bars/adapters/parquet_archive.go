package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
)

// ArchiveBar is the parquet row of one archived bar. Prices are kept as
// decimal strings so the archive holds exactly what the provider sent.
type ArchiveBar struct {
	TradeTimestampUTC int64  `parquet:"trade_timestamp_utc"` // unix milliseconds
	Symbol            string `parquet:"symbol"`
	Open              string `parquet:"open"`
	High              string `parquet:"high"`
	Low               string `parquet:"low"`
	Close             string `parquet:"close"`
	Volume            int64  `parquet:"volume"`
}

// parquetArchive writes one parquet file per symbol and month:
// <dir>/<SYMBOL>/<YYYY-MM>.parquet
type parquetArchive struct {
	dir string
}

var _ usecase.ChunkArchive = (*parquetArchive)(nil)

func NewParquetArchive(dir string) *parquetArchive {
	return &parquetArchive{dir: dir}
}

// WriteChunk replaces the month's file with bars.
func (a *parquetArchive) WriteChunk(ctx context.Context, symbol string, bucket entity.MonthBucket, bars []entity.Bar) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(a.dir, symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	rows := make([]ArchiveBar, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, ArchiveBar{
			TradeTimestampUTC: b.Time.UTC().UnixMilli(),
			Symbol:            b.Symbol,
			Open:              b.Open.String(),
			High:              b.High.String(),
			Low:               b.Low.String(),
			Close:             b.Close.String(),
			Volume:            b.Volume,
		})
	}

	path := a.path(symbol, bucket)
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (a *parquetArchive) path(symbol string, bucket entity.MonthBucket) string {
	return filepath.Join(a.dir, symbol, bucket.String()+".parquet")
}
