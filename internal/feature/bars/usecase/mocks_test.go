package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock_etl/internal/feature/bars/domain/entity"
)

var (
	ErrMarketAPI = errors.New("market API error")
	ErrDB        = errors.New("database error")
)

// mockMarketRepository is a mock implementation of the MarketRepository interface.
type mockMarketRepository struct {
	FetchMonthFunc func(ctx context.Context, symbol string, bucket entity.MonthBucket) (entity.Result, error)
	Buckets        []entity.MonthBucket
}

func (m *mockMarketRepository) FetchMonth(ctx context.Context, symbol string, bucket entity.MonthBucket) (entity.Result, error) {
	m.Buckets = append(m.Buckets, bucket)
	if m.FetchMonthFunc != nil {
		return m.FetchMonthFunc(ctx, symbol, bucket)
	}
	return entity.Result{}, errors.New("FetchMonthFunc is not implemented")
}

// memWatermarks is an in-memory WatermarkRepository.
type memWatermarks struct {
	mu       sync.Mutex
	values   map[string]time.Time
	GetErr   error
	SetErr   error
	GetCalls int
	SetCalls int
}

func newMemWatermarks() *memWatermarks {
	return &memWatermarks{values: map[string]time.Time{}}
}

func (m *memWatermarks) Get(_ context.Context, symbol string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return time.Time{}, m.GetErr
	}
	if v, ok := m.values[symbol]; ok {
		return v, nil
	}
	return entity.DefaultWatermark, nil
}

func (m *memWatermarks) Set(_ context.Context, symbol string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[symbol] = ts
	return nil
}

// memBars is an in-memory BarRepository that skips duplicate (symbol, time) rows.
type memBars struct {
	rows         map[string]entity.Bar
	EnsureErr    error
	InsertErr    error
	InsertCalls  int
	EnsureCalls  int
	FailOnInsert func(bars []entity.Bar) bool
}

func newMemBars() *memBars {
	return &memBars{rows: map[string]entity.Bar{}}
}

func (m *memBars) EnsureSchema(context.Context) error {
	m.EnsureCalls++
	return m.EnsureErr
}

func (m *memBars) InsertBatch(_ context.Context, bars []entity.Bar) (InsertResult, error) {
	m.InsertCalls++
	if m.InsertErr != nil {
		return InsertResult{}, m.InsertErr
	}
	if m.FailOnInsert != nil && m.FailOnInsert(bars) {
		return InsertResult{}, ErrDB
	}
	var res InsertResult
	for _, b := range bars {
		key := b.Symbol + "|" + b.Time.UTC().String()
		if _, ok := m.rows[key]; ok {
			res.Skipped++
			continue
		}
		m.rows[key] = b
		res.Inserted++
	}
	return res, nil
}

func (m *memBars) Latest(_ context.Context, symbol string, limit int) ([]entity.Bar, error) {
	var out []entity.Bar
	for _, b := range m.rows {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockRateLimiter counts Wait calls without sleeping.
type mockRateLimiter struct {
	WaitCalls int
	Err       error
}

func (m *mockRateLimiter) Wait(context.Context) error {
	m.WaitCalls++
	return m.Err
}

func mustTime(s string) time.Time {
	t, err := entity.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(symbol, ts string) entity.Bar {
	return entity.Bar{
		Symbol: symbol,
		Time:   mustTime(ts),
		Open:   decimal.RequireFromString("100.0000"),
		High:   decimal.RequireFromString("101.0000"),
		Low:    decimal.RequireFromString("99.5000"),
		Close:  decimal.RequireFromString("100.2500"),
		Volume: 1000,
	}
}

func success(bars ...entity.Bar) entity.Result {
	return entity.Result{Kind: entity.ResultSuccess, Bars: bars}
}
