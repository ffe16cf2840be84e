package downloader

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/downloader")

// Fetcher is a single best-effort export attempt keyed by tariff id,
// safe to call from multiple goroutines.
type Fetcher interface {
	FetchExport(ctx context.Context, id int) ([]byte, error)
}

type Options struct {
	// fetch attempts per identifier, defaults to 3
	RetryAttempts int
	// fixed pause between attempts, defaults to 2s
	RetryPause time.Duration
	// cap on identifiers processed this run, 0 means all
	MaxItems int
	// concurrent fetch workers, defaults to 4
	Workers int
}

type Service struct {
	fetcher Fetcher
	store   Store
	opts    Options
}

func New(fetcher Fetcher, store Store, opts Options) Service {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryPause == 0 {
		opts.RetryPause = time.Second * 2
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return Service{fetcher: fetcher, store: store, opts: opts}
}

type Report struct {
	Total      int
	Skipped    int
	Downloaded int
	Failed     int
	FailedIDs  []int
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeDownloaded
	outcomeFailed
)

// Run processes the identifier set in ascending order: skip when the
// artifact already exists, otherwise fetch with the per-item retry
// budget and persist atomically. A single failure never aborts the run.
// Cancellation is observed between identifiers, never mid-fetch.
func (s Service) Run(ctx context.Context, ids []int) Report {
	ctx, span := tracer.Start(ctx, "downloader:Run")
	defer span.End()

	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	if s.opts.MaxItems > 0 && len(ordered) > s.opts.MaxItems {
		ordered = ordered[:s.opts.MaxItems]
	}

	report := Report{Total: len(ordered)}
	mu := sync.Mutex{}
	wg := sync.WaitGroup{}
	work := make(chan int)

	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				result := s.processOne(ctx, id)

				mu.Lock()
				switch result {
				case outcomeSkipped:
					report.Skipped++
				case outcomeDownloaded:
					report.Downloaded++
				case outcomeFailed:
					report.Failed++
					report.FailedIDs = append(report.FailedIDs, id)
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ordered {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "run cancelled, remaining identifiers left for the next run")
			break
		}
		work <- id
	}
	close(work)
	wg.Wait()

	slices.Sort(report.FailedIDs)
	span.SetAttributes(
		attribute.Int("total", report.Total),
		attribute.Int("skipped", report.Skipped),
		attribute.Int("downloaded", report.Downloaded),
		attribute.Int("failed", report.Failed),
	)
	return report
}

func (s Service) processOne(ctx context.Context, id int) outcome {
	if s.store.Exists(id) {
		slog.InfoContext(ctx, "artifact already exists, skipping", "tariff_id", id)
		return outcomeSkipped
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.RetryAttempts; attempt++ {
		data, err := s.fetcher.FetchExport(ctx, id)
		if err == nil {
			if err := s.store.Write(id, data); err != nil {
				lastErr = err
				break
			}
			slog.InfoContext(ctx, "downloaded tariff export", "tariff_id", id, "bytes", len(data))
			return outcomeDownloaded
		}

		lastErr = err
		slog.WarnContext(ctx, "export fetch failed",
			"tariff_id", id, "attempt", attempt, "attempts", s.opts.RetryAttempts, "err", err)
		if attempt < s.opts.RetryAttempts {
			select {
			case <-ctx.Done():
				slog.ErrorContext(ctx, "giving up on tariff export", "tariff_id", id, "err", ctx.Err())
				return outcomeFailed
			case <-time.After(s.opts.RetryPause):
			}
		}
	}

	slog.ErrorContext(ctx, "giving up on tariff export", "tariff_id", id, "err", lastErr)
	return outcomeFailed
}
