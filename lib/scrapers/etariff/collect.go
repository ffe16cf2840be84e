package etariff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CollectOptions struct {
	// hard stop after this many pages, 0 means no cap
	PageCap int
}

// CollectIDs paginates the whole tariff grid and returns every
// identifier found, deduplicated and sorted ascending for a
// deterministic, resumable run order.
//
// Termination, in priority order: the pager reports no further pages,
// the configured page cap is reached, or twice the estimated total page
// count is exceeded (guards an undetected infinite pager loop).
func CollectIDs(ctx context.Context, nav *GridNavigator, opts CollectOptions) ([]int, error) {
	ctx, span := tracer.Start(ctx, "CollectIDs")
	defer span.End()

	if err := nav.Activate(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to activate tariff grid")
		return nil, fmt.Errorf("activate tariff grid: %w", err)
	}
	if err := nav.WaitReady(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grid never rendered")
		return nil, fmt.Errorf("initial grid load: %w", err)
	}

	estimated := nav.EstimateTotalPages(ctx)
	runawayCap := estimated * 2
	slog.InfoContext(ctx, "starting id collection", "estimated_pages", estimated)

	seen := map[int]struct{}{}
	page := 0
	for {
		page++

		ids, err := nav.ExtractIdentifiers(ctx)
		if err != nil {
			// transient, the page is skipped rather than aborting the run
			slog.WarnContext(ctx, "failed to extract identifiers", "page", page, "err", err)
		}

		added := 0
		for id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				added++
			}
		}
		if added == 0 && page > 1 {
			// legitimate when a retried navigation re-surfaced a page
			slog.InfoContext(ctx, "page yielded no new identifiers", "page", page)
		}
		slog.DebugContext(ctx, "collected page", "page", page, "new_ids", added, "total_ids", len(seen))

		if opts.PageCap > 0 && page >= opts.PageCap {
			slog.WarnContext(ctx, "page cap reached, stopping collection", "pages", page)
			break
		}
		if page >= runawayCap {
			slog.WarnContext(ctx, "exceeded runaway page guard, stopping collection",
				"pages", page, "estimated_pages", estimated)
			break
		}

		err = nav.Advance(ctx)
		if errors.Is(err, ErrNoMorePages) {
			slog.InfoContext(ctx, "last page reached", "pages", page)
			break
		}
		if err != nil {
			slog.WarnContext(ctx, "page advance failed, retrying once", "page", page, "err", err)
			err = nav.Advance(ctx)
			if errors.Is(err, ErrNoMorePages) {
				break
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "pagination aborted")
				return sortedIDs(seen), fmt.Errorf("advance past page %d: %w", page, err)
			}
		}

		if err := nav.WaitReady(ctx); err != nil {
			slog.WarnContext(ctx, "next page never became ready", "page", page+1, "err", err)
		}

		if ctx.Err() != nil {
			return sortedIDs(seen), ctx.Err()
		}
	}

	span.SetAttributes(
		attribute.Int("pages", page),
		attribute.Int("identifiers", len(seen)),
	)
	return sortedIDs(seen), nil
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
