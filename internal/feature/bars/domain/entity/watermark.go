package entity

import "time"

// DefaultWatermark is returned for symbols that have never been loaded. It sits
// far enough in the past that the first run picks up everything the provider
// returns for the queried window.
var DefaultWatermark = time.Date(1900, time.January, 1, 0, 0, 0, 0, Exchange)

// WatermarkKey returns the document key used to store the watermark of symbol.
func WatermarkKey(symbol string) string {
	return symbol + "_cdc"
}
