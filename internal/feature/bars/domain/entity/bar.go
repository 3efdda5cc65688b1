// Package entity defines the domain models for the bars feature.
package entity

import (
	"time"
	_ "time/tzdata" // exchange location must resolve on hosts without zoneinfo

	"github.com/shopspring/decimal"
)

// TimestampLayout is the wire format the provider uses for bar timestamps and
// the format the watermark document stores.
const TimestampLayout = "2006-01-02 15:04:05"

// Exchange is the location bar timestamps are expressed in by the provider.
var Exchange = mustLoadLocation("America/New_York")

// Bar represents one OHLCV (Open, High, Low, Close, Volume) observation
// for a stock symbol at a specific point in time.
type Bar struct {
	Symbol string          // Stock ticker symbol (e.g., "IBM", "BRK-B")
	Time   time.Time       // Start of the bar in exchange-local time
	Open   decimal.Decimal // Opening price
	High   decimal.Decimal // Highest price during the bar
	Low    decimal.Decimal // Lowest price during the bar
	Close  decimal.Decimal // Closing price
	Volume int64           // Trading volume
}

// ParseTimestamp parses a provider/watermark timestamp as exchange-local time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, Exchange)
}

// FormatTimestamp renders t in exchange-local wall clock time.
func FormatTimestamp(t time.Time) string {
	return t.In(Exchange).Format(TimestampLayout)
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
