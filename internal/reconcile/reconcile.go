// Package reconcile writes deduplicated drafts to the store in two phases:
// parents first, then children with foreign keys resolved from a re-read
// of exactly the parents just written. Children whose parent cannot be
// resolved are dropped and counted, never written.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

// Store is the persistence the reconciler needs. *database.DB satisfies it,
// both directly and inside WithTx or DryRun.
type Store interface {
	InsertMeetings(ctx context.Context, meetings []database.Meeting) (int, error)
	MeetingIDs(ctx context.Context, issueIDs []string) (map[string]int64, error)
	InsertSpeeches(ctx context.Context, speeches []database.Speech) (int, error)

	LegislatorsByName(ctx context.Context, names []string) (map[string]database.Legislator, error)
	InsertLegislators(ctx context.Context, legislators []database.Legislator) (int, error)
	AdvanceLegislator(ctx context.Context, l database.Legislator) (bool, error)

	InsertBills(ctx context.Context, bills []database.Bill) (int, error)
	BillIDs(ctx context.Context, keys []database.BillKey) (map[database.BillKey]int64, error)
	InsertVotes(ctx context.Context, votes []database.Vote) (int, error)
}

// BatchSizes bounds how many rows go into one statement.
type BatchSizes struct {
	Meetings    int
	Speeches    int
	Legislators int
	Bills       int
	Votes       int
	Resolve     int // keys per identity re-read
}

// DefaultBatchSizes match the store-side limits the ingester was tuned for.
var DefaultBatchSizes = BatchSizes{
	Meetings:    500,
	Speeches:    200,
	Legislators: 200,
	Bills:       200,
	Votes:       200,
	Resolve:     200,
}

// Input holds deduplicated drafts. Any family may be empty.
type Input struct {
	Meetings    []database.Meeting
	Speeches    []normalize.SpeechDraft
	Legislators []database.Legislator
	Bills       []normalize.BillDraft
	Votes       []normalize.VoteDraft
}

// Reconciler applies Input to a Store.
type Reconciler struct {
	store Store
	sizes BatchSizes
	log   zerolog.Logger
}

// New creates a reconciler. Zero batch sizes fall back to the defaults.
func New(store Store, sizes BatchSizes, logger zerolog.Logger) *Reconciler {
	def := DefaultBatchSizes
	pick := func(n, fallback int) int {
		if n <= 0 {
			return fallback
		}
		return n
	}
	sizes = BatchSizes{
		Meetings:    pick(sizes.Meetings, def.Meetings),
		Speeches:    pick(sizes.Speeches, def.Speeches),
		Legislators: pick(sizes.Legislators, def.Legislators),
		Bills:       pick(sizes.Bills, def.Bills),
		Votes:       pick(sizes.Votes, def.Votes),
		Resolve:     pick(sizes.Resolve, def.Resolve),
	}
	return &Reconciler{store: store, sizes: sizes, log: logger}
}

// Reconcile writes every family in dependency order and returns what
// happened. A failed chunk is recorded and the run continues; the report's
// Err is non-nil if anything failed. Cancellation is honored between chunks.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) *Report {
	rep := &Report{}

	if len(in.Meetings) > 0 || len(in.Speeches) > 0 {
		r.reconcileMeetings(ctx, in, rep)
	}
	if len(in.Legislators) > 0 {
		r.reconcileLegislators(ctx, in.Legislators, rep)
	}
	if len(in.Bills) > 0 || len(in.Votes) > 0 {
		r.reconcileBills(ctx, in, rep)
	}

	r.log.Info().
		Int("meetings_inserted", rep.Meetings.Inserted).
		Int("speeches_inserted", rep.Speeches.Inserted).
		Int("speeches_dropped", rep.Speeches.Dropped).
		Int("legislators_inserted", rep.Legislators.Inserted).
		Int("legislators_updated", rep.Legislators.Updated).
		Int("bills_inserted", rep.Bills.Inserted).
		Int("votes_inserted", rep.Votes.Inserted).
		Int("votes_dropped", rep.Votes.Dropped).
		Int("errors", len(rep.Errs)).
		Msg("reconciliation complete")
	return rep
}

// chunks splits n items into [start, end) ranges of at most size.
func chunks(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// insertChunks writes items chunk by chunk and tallies the outcome.
func insertChunks[T any](ctx context.Context, r *Reconciler, entity string, items []T, size int,
	insert func(context.Context, []T) (int, error), counts *Counts, rep *Report,
) {
	for _, c := range chunks(len(items), size) {
		if err := ctx.Err(); err != nil {
			counts.Failed += len(items) - c[0]
			rep.fail(fmt.Errorf("%s: %w", entity, err))
			return
		}
		batch := items[c[0]:c[1]]
		n, err := insert(ctx, batch)
		if err != nil {
			counts.Failed += len(batch)
			rep.fail(fmt.Errorf("%s rows %d-%d: %w", entity, c[0], c[1]-1, err))
			r.log.Error().Err(err).Str("entity", entity).Int("rows", len(batch)).Msg("chunk failed")
			continue
		}
		counts.Inserted += n
		counts.Unchanged += len(batch) - n
		r.log.Debug().Str("entity", entity).Int("inserted", n).Int("rows", len(batch)).Msg("chunk written")
	}
}
