package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
)

// insertBatchSize bounds the number of rows sent in one INSERT statement.
const insertBatchSize = 500

type barPostgres struct {
	db       *gorm.DB
	migrated atomic.Bool
}

var (
	_ usecase.BarRepository = (*barPostgres)(nil)
	_ usecase.BarReader     = (*barPostgres)(nil)
)

func NewBarRepository(db *gorm.DB) *barPostgres {
	return &barPostgres{db: db}
}

// BarModel is the row of the stocks_data table.
type BarModel struct {
	TradeTimestampUTC time.Time `gorm:"column:trade_timestamp_utc;not null;uniqueIndex:stocks_data_symbol_ts_key,priority:2"`
	Symbol            string    `gorm:"column:symbol;size:20;not null;uniqueIndex:stocks_data_symbol_ts_key,priority:1"`

	Open   decimal.Decimal `gorm:"column:open;type:decimal(10,4);not null"`
	High   decimal.Decimal `gorm:"column:high;type:decimal(10,4);not null"`
	Low    decimal.Decimal `gorm:"column:low;type:decimal(10,4);not null"`
	Close  decimal.Decimal `gorm:"column:close;type:decimal(10,4);not null"`
	Volume int64           `gorm:"column:volume;not null"`
}

func (BarModel) TableName() string {
	return "stocks_data"
}

func toModel(e entity.Bar) BarModel {
	return BarModel{
		TradeTimestampUTC: e.Time.UTC(),
		Symbol:            e.Symbol,
		Open:              e.Open,
		High:              e.High,
		Low:               e.Low,
		Close:             e.Close,
		Volume:            e.Volume,
	}
}

func toEntity(m BarModel) entity.Bar {
	return entity.Bar{
		Symbol: m.Symbol,
		Time:   m.TradeTimestampUTC.In(entity.Exchange),
		Open:   m.Open,
		High:   m.High,
		Low:    m.Low,
		Close:  m.Close,
		Volume: m.Volume,
	}
}

// EnsureSchema creates stocks_data and its unique key. Objects that already
// exist are not an error.
func (r *barPostgres) EnsureSchema(ctx context.Context) error {
	if r.migrated.Load() {
		return nil
	}
	if err := r.db.WithContext(ctx).AutoMigrate(&BarModel{}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("migrate stocks_data: %w", err)
	}
	r.migrated.Store(true)
	return nil
}

// isAlreadyExists reports duplicate table, duplicate object and
// multiple primary key errors.
func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42P07", "42710", "42P16":
		return true
	}
	return false
}

// InsertBatch inserts bars in one transaction. Rows whose (symbol,
// trade_timestamp_utc) already exist are skipped and counted as such.
func (r *barPostgres) InsertBatch(ctx context.Context, bars []entity.Bar) (usecase.InsertResult, error) {
	if len(bars) == 0 {
		return usecase.InsertResult{}, nil
	}
	ms := make([]BarModel, 0, len(bars))
	for _, b := range bars {
		ms = append(ms, toModel(b))
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_timestamp_utc"}},
			DoNothing: true,
		}).CreateInBatches(&ms, insertBatchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return usecase.InsertResult{}, fmt.Errorf("insert stocks_data: %w", err)
	}
	return usecase.InsertResult{Inserted: int(inserted), Skipped: len(bars) - int(inserted)}, nil
}

// Latest returns up to limit bars of symbol, newest first.
func (r *barPostgres) Latest(ctx context.Context, symbol string, limit int) ([]entity.Bar, error) {
	var rows []BarModel
	q := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("trade_timestamp_utc DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Bar, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}
