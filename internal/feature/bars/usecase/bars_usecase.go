package usecase

import (
	"context"

	"stock_etl/internal/feature/bars/domain/entity"
)

const (
	// DefaultLimit is the default number of bars returned by a query.
	DefaultLimit = 200
	// MaxLimit is the largest number of bars a query may return.
	MaxLimit = 5000
)

// barsUsecase serves stored bars to the read API.
type barsUsecase struct {
	bars BarReader
}

// NewBarsUsecase creates a new instance of barsUsecase.
func NewBarsUsecase(bars BarReader) *barsUsecase {
	return &barsUsecase{bars: bars}
}

// GetBars returns the newest bars of symbol, at most limit of them.
func (bu *barsUsecase) GetBars(ctx context.Context, symbol string, limit int) ([]entity.Bar, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return bu.bars.Latest(ctx, symbol, limit)
}
