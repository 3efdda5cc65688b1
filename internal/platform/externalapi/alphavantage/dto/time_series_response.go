// Package dto defines data transfer objects for the Alpha Vantage API responses.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TimeSeriesKey is the response key holding 30 minute intraday bars.
const TimeSeriesKey = "Time Series (30min)"

// Field is one named value of a time series point, e.g. {"1. open", "150.0000"}.
type Field struct {
	Key   string
	Value string
}

// Point is one timestamp of the time series with its fields in document order.
type Point struct {
	Timestamp string
	Fields    []Field
}

// TimeSeriesResponse represents the JSON response of TIME_SERIES_INTRADAY.
// Points and fields keep the order they have in the document.
type TimeSeriesResponse struct {
	HasSeries    bool
	Points       []Point
	Note         string
	Information  string
	ErrorMessage string
}

// UnmarshalJSON decodes the response without losing key order.
func (r *TimeSeriesResponse) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}

	r.Note = stringField(top, "Note")
	r.Information = stringField(top, "Information")
	r.ErrorMessage = stringField(top, "Error Message")

	raw, ok := top[TimeSeriesKey]
	if !ok {
		return nil
	}
	r.HasSeries = true
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	pts, err := decodeSeries(raw)
	if err != nil {
		return fmt.Errorf("decode %q: %w", TimeSeriesKey, err)
	}
	r.Points = pts
	return nil
}

func stringField(top map[string]json.RawMessage, key string) string {
	raw, ok := top[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func decodeSeries(raw json.RawMessage) ([]Point, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var pts []Point
	for dec.More() {
		ts, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		fields, err := decodeFields(dec)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", ts, err)
		}
		pts = append(pts, Point{Timestamp: ts, Fields: fields})
	}
	return pts, expectDelim(dec, '}')
}

func decodeFields(dec *json.Decoder) ([]Field, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var fields []Field
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: v})
	}
	return fields, expectDelim(dec, '}')
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
