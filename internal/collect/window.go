package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/kokkai"
)

// DefaultSince seeds the incremental window when the store holds no speeches.
const DefaultSince = "2024-01-01"

// WindowOptions selects how a speech collection window is chosen.
type WindowOptions struct {
	From     string // explicit backfill start
	Until    string // explicit backfill end
	DaysBack int    // "last N days" when no explicit range is given
	Since    string // seed date for an empty store
}

// LatestDater reports the newest stored speech date.
type LatestDater interface {
	LatestSpeechDate(ctx context.Context) (string, error)
}

// ResolveWindow picks the window for a run: an explicit from/until wins,
// then a last-N-days window, then the incremental window after the newest
// stored speech.
func ResolveWindow(ctx context.Context, store LatestDater, opts WindowOptions, today time.Time) (kokkai.Window, error) {
	todayStr := today.Format(database.DateLayout)

	if opts.From != "" || opts.Until != "" {
		w := kokkai.Window{From: opts.From, Until: opts.Until}
		if w.Until == "" {
			w.Until = todayStr
		}
		if w.From == "" {
			return w, fmt.Errorf("--until needs --from")
		}
		return w, validateWindow(w)
	}

	if opts.DaysBack > 0 {
		return kokkai.Window{
			From:  today.AddDate(0, 0, -opts.DaysBack).Format(database.DateLayout),
			Until: todayStr,
		}, nil
	}

	latest, err := store.LatestSpeechDate(ctx)
	if err != nil {
		return kokkai.Window{}, err
	}
	if latest == "" {
		latest = opts.Since
		if latest == "" {
			latest = DefaultSince
		}
	}
	return IncrementalWindow(latest, today)
}

// IncrementalWindow starts one day before latest, so records stored late
// for that day are picked up, and ends today.
func IncrementalWindow(latest string, today time.Time) (kokkai.Window, error) {
	from, err := database.AddDays(latest, -1)
	if err != nil {
		return kokkai.Window{}, err
	}
	return kokkai.Window{From: from, Until: today.Format(database.DateLayout)}, nil
}

func validateWindow(w kokkai.Window) error {
	from, err := time.Parse(database.DateLayout, w.From)
	if err != nil {
		return fmt.Errorf("invalid from date %q", w.From)
	}
	until, err := time.Parse(database.DateLayout, w.Until)
	if err != nil {
		return fmt.Errorf("invalid until date %q", w.Until)
	}
	if until.Before(from) {
		return fmt.Errorf("window ends before it starts: %s..%s", w.From, w.Until)
	}
	return nil
}
