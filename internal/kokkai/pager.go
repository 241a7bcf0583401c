package kokkai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

// PageFetcher fetches one page of a windowed query.
type PageFetcher interface {
	FetchPage(ctx context.Context, w Window, start int) (*Page, error)
}

// FetchAll pages through a window until the reported total is reached or
// a page comes back empty, waiting interval between requests. Any fetch
// error aborts the whole run; nothing partial is returned.
func FetchAll(ctx context.Context, f PageFetcher, w Window, interval time.Duration, logger zerolog.Logger) ([]normalize.SourceRecord, error) {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	var all []normalize.SourceRecord
	start := 1
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for next page: %w", err)
		}

		page, err := f.FetchPage(ctx, w, start)
		if err != nil {
			return nil, fmt.Errorf("fetching records from %d: %w", start, err)
		}
		if len(page.Records) == 0 {
			break
		}
		all = append(all, page.Records...)
		logger.Info().Int("fetched", len(all)).Int("total", page.Total).Msg("fetched page")

		if len(all) >= page.Total {
			break
		}
		next := page.NextRecordPosition
		if next <= start {
			next = start + len(page.Records)
		}
		start = next
	}
	return all, nil
}
