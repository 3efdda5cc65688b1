package usecase

import (
	"context"
	"log/slog"
	"time"

	"stock_etl/internal/feature/bars/domain/entity"
	"stock_etl/internal/platform/runid"
)

// ChunkArchive stores a backfilled month outside the database.
type ChunkArchive interface {
	WriteChunk(ctx context.Context, symbol string, bucket entity.MonthBucket, bars []entity.Bar) error
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Symbol    string
	RunID     string
	Stats     BackfillStats
	Records   int // bars received from the stream
	Inserted  int
	Skipped   int
	Watermark time.Time
	Advanced  bool
}

// BackfillRunner drains a backfill stream and persists every chunk.
type BackfillRunner struct {
	fetcher   *BackfillFetcher
	bars      BarRepository
	watermark WatermarkRepository
	archive   ChunkArchive
}

// NewBackfillRunner creates a BackfillRunner. archive may be nil.
func NewBackfillRunner(fetcher *BackfillFetcher, bars BarRepository, watermark WatermarkRepository, archive ChunkArchive) *BackfillRunner {
	return &BackfillRunner{fetcher: fetcher, bars: bars, watermark: watermark, archive: archive}
}

// Run backfills symbol. Chunks that fail to persist are logged and skipped.
// Afterwards the watermark is moved to the newest persisted bar if that is
// ahead of the stored one.
func (r *BackfillRunner) Run(ctx context.Context, symbol string) (BackfillReport, error) {
	rep := BackfillReport{Symbol: symbol, RunID: runid.New()}
	log := slog.With("symbol", symbol, "run_id", rep.RunID)

	if err := r.bars.EnsureSchema(ctx); err != nil {
		return rep, err
	}

	var newest time.Time
	stream := r.fetcher.Backfill(symbol)
	for {
		chunk, ok := stream.Next(ctx)
		if !ok {
			break
		}
		rep.Records += len(chunk.Bars)
		log.Info("received chunk", "month", chunk.Bucket.String(), "records", len(chunk.Bars))

		if r.archive != nil {
			if err := r.archive.WriteChunk(ctx, symbol, chunk.Bucket, chunk.Bars); err != nil {
				log.Error("failed to archive chunk", "month", chunk.Bucket.String(), "error", err)
			}
		}

		res, err := r.bars.InsertBatch(ctx, chunk.Bars)
		if err != nil {
			log.Error("failed to insert chunk", "month", chunk.Bucket.String(), "error", err)
			continue
		}
		rep.Inserted += res.Inserted
		rep.Skipped += res.Skipped
		for _, b := range chunk.Bars {
			if b.Time.After(newest) {
				newest = b.Time
			}
		}
	}
	rep.Stats = stream.Stats()
	if err := stream.Err(); err != nil {
		return rep, err
	}

	current := readWatermark(ctx, r.watermark, symbol)
	rep.Watermark = current
	if newest.After(current) {
		if err := r.watermark.Set(ctx, symbol, newest); err != nil {
			log.Error("failed to update watermark", "error", err)
		} else {
			rep.Watermark = newest
			rep.Advanced = true
		}
	}

	log.Info("finished backfill", "records", rep.Records, "inserted", rep.Inserted, "skipped", rep.Skipped,
		"watermark", entity.FormatTimestamp(rep.Watermark))
	return rep, nil
}
