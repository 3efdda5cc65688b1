// Package dto holds the JSON shapes of the bars read API.
package dto

import "github.com/shopspring/decimal"

// BarResponse is one bar. Prices are decimal strings.
type BarResponse struct {
	Time   string          `json:"time"` // exchange-local, YYYY-MM-DD HH:MM:SS
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// WatermarkResponse is the stored watermark of one symbol.
type WatermarkResponse struct {
	Symbol    string `json:"symbol"`
	Key       string `json:"key"`
	Watermark string `json:"watermark"`
}

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}
