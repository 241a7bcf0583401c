package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/config"
	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/dedupe"
	"github.com/TobiSchelling/kokkaisync/internal/kokkai"
	"github.com/TobiSchelling/kokkaisync/internal/link"
	"github.com/TobiSchelling/kokkaisync/internal/normalize"
	"github.com/TobiSchelling/kokkaisync/internal/reconcile"
)

// Result holds the results of one collection or import.
type Result struct {
	Source    string
	Window    kokkai.Window
	Fetched   int
	Malformed int
	Report    *reconcile.Report
	Link      link.Result
	DryRun    bool
}

// Collector runs fetch, normalize, dedupe, reconcile and link for one source.
type Collector struct {
	db       *database.DB
	fetcher  kokkai.PageFetcher
	sizes    reconcile.BatchSizes
	interval time.Duration
	linkPage int
	linkMax  int
	dryRun   bool
	log      zerolog.Logger
}

// NewCollector creates a collector. fetcher may be nil when only bill
// imports are run.
func NewCollector(cfg *config.Config, db *database.DB, fetcher kokkai.PageFetcher, dryRun bool, logger zerolog.Logger) *Collector {
	b := cfg.Batch
	return &Collector{
		db:      db,
		fetcher: fetcher,
		sizes: reconcile.BatchSizes{
			Meetings:    b.Meetings,
			Speeches:    b.Speeches,
			Legislators: b.Legislators,
			Bills:       b.Bills,
			Votes:       b.Votes,
			Resolve:     b.Resolve,
		},
		interval: cfg.Kokkai.RequestInterval,
		linkPage: cfg.Link.PageSize,
		linkMax:  cfg.Link.MaxPages,
		dryRun:   dryRun,
		log:      logger,
	}
}

// CollectSpeeches fetches every speech in w, writes it, and links any
// speeches that can now be attributed. A fetch error aborts before anything
// is written.
func (c *Collector) CollectSpeeches(ctx context.Context, w kokkai.Window) (*Result, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("no speech API client configured")
	}
	r := &Result{Source: normalize.SpeechAPI.String(), Window: w, DryRun: c.dryRun}

	c.log.Info().Str("from", w.From).Str("until", w.Until).Msg("collecting speeches")
	recs, err := kokkai.FetchAll(ctx, c.fetcher, w, c.interval, c.log)
	if err != nil {
		return r, err
	}
	r.Fetched = len(recs)

	in := c.prepare(recs, normalize.SpeechAPI, r)
	err = c.write(ctx, func(store *database.DB) error {
		r.Report = reconcile.New(store, c.sizes, c.log).Reconcile(ctx, in)
		lr, err := link.New(store, c.linkPage, c.linkMax, c.log).Run(ctx)
		r.Link = lr
		return err
	})
	return r, c.finish(r, err)
}

// ImportBills reads a bill CSV export and writes its bills and votes.
func (c *Collector) ImportBills(ctx context.Context, path string, kind normalize.SourceKind) (*Result, error) {
	r := &Result{Source: kind.String(), DryRun: c.dryRun}

	recs, err := ReadCSV(path)
	if err != nil {
		return r, err
	}
	r.Fetched = len(recs)
	c.log.Info().Str("path", path).Str("source", kind.String()).Int("rows", len(recs)).Msg("importing bills")

	in := c.prepare(recs, kind, r)
	err = c.write(ctx, func(store *database.DB) error {
		r.Report = reconcile.New(store, c.sizes, c.log).Reconcile(ctx, in)
		return nil
	})
	return r, c.finish(r, err)
}

// ImportMembers reads a member roster CSV, with full group names taken
// from the optional group list at partiesPath, and writes its legislators
// as seen on asOf. Speeches that now match a legislator are linked.
func (c *Collector) ImportMembers(ctx context.Context, rosterPath, partiesPath, asOf string) (*Result, error) {
	r := &Result{Source: normalize.CouncillorsRoster.String(), DryRun: c.dryRun}

	ro := normalize.Roster{AsOf: asOf}
	if partiesPath != "" {
		recs, err := ReadCSV(partiesPath)
		if err != nil {
			return r, err
		}
		ro.Parties = normalize.PartyNames(recs)
	}
	recs, err := ReadCSV(rosterPath)
	if err != nil {
		return r, err
	}
	r.Fetched = len(recs)
	c.log.Info().Str("path", rosterPath).Int("rows", len(recs)).Int("parties", len(ro.Parties)).
		Str("as_of", asOf).Msg("importing members")

	drafts, diags, skipped := ro.NormalizeAll(recs)
	in := c.input(drafts, diags, skipped, r)
	err = c.write(ctx, func(store *database.DB) error {
		r.Report = reconcile.New(store, c.sizes, c.log).Reconcile(ctx, in)
		lr, err := link.New(store, c.linkPage, c.linkMax, c.log).Run(ctx)
		r.Link = lr
		return err
	})
	return r, c.finish(r, err)
}

// Link attributes stored speeches that have no legislator yet.
func (c *Collector) Link(ctx context.Context) (link.Result, error) {
	var lr link.Result
	err := c.write(ctx, func(store *database.DB) error {
		var err error
		lr, err = link.New(store, c.linkPage, c.linkMax, c.log).Run(ctx)
		return err
	})
	return lr, err
}

// prepare normalizes and deduplicates records into reconciler input.
func (c *Collector) prepare(recs []normalize.SourceRecord, kind normalize.SourceKind, r *Result) reconcile.Input {
	drafts, diags, skipped := normalize.NormalizeAll(recs, kind)
	return c.input(drafts, diags, skipped, r)
}

func (c *Collector) input(drafts normalize.Drafts, diags []normalize.Diagnostic, skipped int, r *Result) reconcile.Input {
	r.Malformed = skipped
	for _, d := range diags {
		ev := c.log.Debug()
		if d.Skipped {
			ev = c.log.Warn()
		}
		ev.Str("source", d.Kind.String()).Int("line", d.Line).Bool("skipped", d.Skipped).Msg(d.Reason)
	}

	bills := dedupe.Bills(drafts.Bills)
	return reconcile.Input{
		Meetings:    dedupe.Meetings(drafts.Meetings).Values(),
		Speeches:    dedupe.Speeches(drafts.Speeches).Values(),
		Legislators: dedupe.Legislators(drafts.Legislators).Values(),
		Bills:       bills.Values(),
		Votes:       dedupe.Votes(drafts.Votes, bills).Values(),
	}
}

// write runs fn against the store, or against a rolled-back transaction
// when the collector is in dry-run mode.
func (c *Collector) write(ctx context.Context, fn func(store *database.DB) error) error {
	if c.dryRun {
		return c.db.DryRun(ctx, fn)
	}
	return fn(c.db)
}

func (c *Collector) finish(r *Result, err error) error {
	if err != nil {
		return err
	}
	if r.Report != nil {
		return r.Report.Err()
	}
	return nil
}
