package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
	"stock_etl/internal/platform/externalapi/alphavantage/dto"
)

const (
	function = "TIME_SERIES_INTRADAY"
	interval = "30min"
)

var (
	// ErrServer is returned when the provider keeps answering with 5xx.
	ErrServer = errors.New("alphavantage server error")
	// ErrInvalidBar is returned for a point with a non-positive price or a
	// negative volume.
	ErrInvalidBar = errors.New("invalid bar")
)

// AlphaVantageMarket fetches intraday bars from Alpha Vantage.
type AlphaVantageMarket struct {
	cfg    Config
	client *http.Client
}

// Compile-time check that AlphaVantageMarket implements MarketRepository.
var _ usecase.MarketRepository = (*AlphaVantageMarket)(nil)

// NewAlphaVantageMarket creates a new AlphaVantageMarket with the given config and HTTP client.
func NewAlphaVantageMarket(cfg Config, client *http.Client) *AlphaVantageMarket {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &AlphaVantageMarket{cfg: cfg, client: client}
}

// FetchMonth fetches every 30 minute bar of symbol in bucket.
//
// Timeouts, connection errors and 5xx responses are retried with a fixed
// backoff; the error is returned once the attempts are exhausted. A response
// without a time series is not an error: it yields ResultRateLimited.
func (a *AlphaVantageMarket) FetchMonth(ctx context.Context, symbol string, bucket entity.MonthBucket) (entity.Result, error) {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("month", bucket.String())
	q.Set("outputsize", "full")
	q.Set("apikey", a.cfg.APIKey)
	u := fmt.Sprintf("%s/query?%s", a.cfg.BaseURL, q.Encode())

	var body dto.TimeSeriesResponse
	attempt := 0
	op := func() error {
		attempt++
		var b dto.TimeSeriesResponse
		if err := a.get(ctx, u, &b); err != nil {
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("API call failed, retrying", "symbol", symbol, "month", bucket.String(),
			"attempt", attempt, "max_attempts", a.cfg.MaxAttempts, "wait", wait, "error", err)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.cfg.RetryWait), uint64(a.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return entity.Result{}, fmt.Errorf("fetch %s %s: %w", symbol, bucket.String(), err)
	}

	return toResult(symbol, bucket, &body)
}

// get performs one request. Errors that retrying cannot fix are wrapped
// with backoff.Permanent.
func (a *AlphaVantageMarket) get(ctx context.Context, u string, out *dto.TimeSeriesResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return backoff.Permanent(redact(err))
	}

	res, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return redact(err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case res.StatusCode >= 500:
		return fmt.Errorf("%w: http %d", ErrServer, res.StatusCode)
	case res.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("alphavantage http %d", res.StatusCode))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// toResult classifies the decoded body and builds bars from it. The field
// order of the first point decides which value is open, high, low, close and
// volume for every point of the response.
func toResult(symbol string, bucket entity.MonthBucket, body *dto.TimeSeriesResponse) (entity.Result, error) {
	if !body.HasSeries {
		msg := firstNonEmpty(body.Note, body.Information, body.ErrorMessage,
			"check API key or symbol, or API rate limits")
		slog.Warn("no time series in response", "symbol", symbol, "month", bucket.String(), "message", msg)
		return entity.Result{Kind: entity.ResultRateLimited, Message: msg}, nil
	}
	if len(body.Points) == 0 {
		return entity.Result{Kind: entity.ResultEmpty}, nil
	}

	keys := make([]string, 0, len(body.Points[0].Fields))
	for _, f := range body.Points[0].Fields {
		keys = append(keys, f.Key)
	}
	if len(keys) != 5 {
		return entity.Result{}, fmt.Errorf("expected 5 fields per point, got %d", len(keys))
	}

	bars := make([]entity.Bar, 0, len(body.Points))
	for _, p := range body.Points {
		b, err := toBar(symbol, p, keys)
		if err != nil {
			return entity.Result{}, err
		}
		bars = append(bars, b)
	}
	slices.SortFunc(bars, func(x, y entity.Bar) int { return x.Time.Compare(y.Time) })

	return entity.Result{Kind: entity.ResultSuccess, Bars: bars}, nil
}

func toBar(symbol string, p dto.Point, keys []string) (entity.Bar, error) {
	tm, err := entity.ParseTimestamp(p.Timestamp)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse time %q: %w", p.Timestamp, err)
	}

	byKey := make(map[string]string, len(p.Fields))
	for _, f := range p.Fields {
		byKey[f.Key] = f.Value
	}
	vals := make([]string, len(keys))
	for i, k := range keys {
		v, ok := byKey[k]
		if !ok {
			return entity.Bar{}, fmt.Errorf("point %q: missing field %q", p.Timestamp, k)
		}
		vals[i] = v
	}

	names := [4]string{"open", "high", "low", "close"}
	var prices [4]decimal.Decimal
	for i := range prices {
		d, err := decimal.NewFromString(vals[i])
		if err != nil {
			return entity.Bar{}, fmt.Errorf("parse %s %q: %w", names[i], vals[i], err)
		}
		if !d.IsPositive() {
			return entity.Bar{}, fmt.Errorf("point %q: %w: %s %s", p.Timestamp, ErrInvalidBar, names[i], vals[i])
		}
		prices[i] = d
	}
	vol, err := strconv.ParseInt(vals[4], 10, 64)
	if err != nil {
		return entity.Bar{}, fmt.Errorf("parse volume %q: %w", vals[4], err)
	}
	if vol < 0 {
		return entity.Bar{}, fmt.Errorf("point %q: %w: volume %d", p.Timestamp, ErrInvalidBar, vol)
	}

	return entity.Bar{
		Symbol: symbol,
		Time:   tm,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: vol,
	}, nil
}

// redact rewrites errors carrying the request URL so the API key is not
// logged or printed.
func redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", uerr.Op, redactURL(uerr.URL), uerr.Err)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable url>"
	}
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
