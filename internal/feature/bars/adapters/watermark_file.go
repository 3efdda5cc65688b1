package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/feature/bars/usecase"
)

// DefaultWatermarkPath is where the watermark document lives unless CDC_PATH says otherwise.
const DefaultWatermarkPath = "cdc_/last_cdc.json"

// watermarkFile stores every symbol's watermark in one JSON document of the
// form {"IBM_cdc": "2025-11-07 00:30:00"}.
type watermarkFile struct {
	mu   sync.Mutex
	path string
}

var _ usecase.WatermarkRepository = (*watermarkFile)(nil)

func NewWatermarkFile(path string) *watermarkFile {
	if path == "" {
		path = DefaultWatermarkPath
	}
	return &watermarkFile{path: path}
}

// Get returns the watermark of symbol. A missing document, a missing key or
// an unparsable value all yield entity.DefaultWatermark.
func (w *watermarkFile) Get(_ context.Context, symbol string) (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := w.read()
	v, ok := doc[entity.WatermarkKey(symbol)]
	if !ok {
		return entity.DefaultWatermark, nil
	}
	ts, err := entity.ParseTimestamp(v)
	if err != nil {
		slog.Warn("invalid watermark value, using default", "symbol", symbol, "value", v, "error", err)
		return entity.DefaultWatermark, nil
	}
	return ts, nil
}

// Set writes ts for symbol and keeps every other key of the document.
func (w *watermarkFile) Set(_ context.Context, symbol string, ts time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := w.read()
	doc[entity.WatermarkKey(symbol)] = entity.FormatTimestamp(ts)

	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode watermarks: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create watermark dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp watermark file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write watermarks: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync watermarks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close watermarks: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace watermarks: %w", err)
	}
	return nil
}

// read loads the document. Missing or corrupt documents read as empty.
func (w *watermarkFile) read() map[string]string {
	doc := map[string]string{}
	b, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read watermark file", "path", w.path, "error", err)
		}
		return doc
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		slog.Warn("corrupt watermark file, starting fresh", "path", w.path, "error", err)
		return map[string]string{}
	}
	return doc
}
