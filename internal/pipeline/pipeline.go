package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/collect"
	"github.com/TobiSchelling/kokkaisync/internal/config"
	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/kokkai"
	"github.com/TobiSchelling/kokkaisync/internal/metrics"
	"github.com/TobiSchelling/kokkaisync/internal/news"
)

// Run statuses stored in run reports.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusDryRun = "dry-run"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	PeriodID string
	RunID    string
	Steps    []StepResult
	Report   database.RunReport
}

// Err returns the first step error.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Pipeline orchestrates the daily run: window, speeches, news, run report
// and metrics.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	fetcher kokkai.PageFetcher
	metrics *metrics.Recorder
	dryRun  bool
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, fetcher kokkai.PageFetcher, dryRun bool, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		db:      db,
		fetcher: fetcher,
		metrics: metrics.New(),
		dryRun:  dryRun,
		log:     logger,
		now:     time.Now,
	}
}

// Run executes the full pipeline for the window selected by opts.
func (p *Pipeline) Run(ctx context.Context, opts collect.WindowOptions) *Result {
	rep := p.NewReport("run", "")
	r := &Result{RunID: rep.RunID}

	// Step 1: Window
	w, err := collect.ResolveWindow(ctx, p.db, opts, p.now())
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Window", Err: err})
		r.Report, _ = p.Finish(ctx, rep, err)
		return r
	}
	r.PeriodID = database.MakePeriodID(w.From, w.Until)
	rep.PeriodID = r.PeriodID
	r.Steps = append(r.Steps, StepResult{
		Name:    "Window",
		Summary: fmt.Sprintf("Collecting %s", database.FormatPeriodDisplay(r.PeriodID)),
	})

	// Step 2: Speeches and linking
	step, cr := p.runCollect(ctx, w)
	r.Steps = append(r.Steps, step)
	if cr != nil {
		ApplyCollect(&rep, cr)
	}
	if step.Err != nil {
		r.Report, _ = p.Finish(ctx, rep, step.Err)
		return r
	}

	// Step 3: News
	if p.cfg.News.Enabled {
		step, nr := p.News(ctx)
		r.Steps = append(r.Steps, step)
		if nr != nil {
			ApplyNews(&rep, nr)
		}
	}

	// Step 4: Run report and metrics
	var stepErr error
	r.Report, stepErr = p.Finish(ctx, rep, r.Err())
	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Recorded run %s (%s)", r.Report.RunID, r.Report.Status),
		Err:     stepErr,
	})
	return r
}

func (p *Pipeline) runCollect(ctx context.Context, w kokkai.Window) (StepResult, *collect.Result) {
	p.log.Info().Msg("collecting speeches")
	c := collect.NewCollector(p.cfg, p.db, p.fetcher, p.dryRun, p.log)
	res, err := c.CollectSpeeches(ctx, w)
	if res == nil || res.Report == nil {
		return StepResult{Name: "Speeches", Err: err}, res
	}
	rep := res.Report
	return StepResult{
		Name: "Speeches",
		Summary: fmt.Sprintf("Fetched %d records (%d malformed): %d meetings, %d speeches, %d legislators new; %d speeches linked",
			res.Fetched, res.Malformed, rep.Meetings.Inserted, rep.Speeches.Inserted, rep.Legislators.Inserted, res.Link.Linked),
		Err: err,
	}, res
}

// News collects legislator news and, when configured, fetches article
// text. It runs inside a rolled-back transaction on a dry run.
func (p *Pipeline) News(ctx context.Context) (StepResult, *news.Result) {
	p.log.Info().Msg("collecting legislator news")
	var res *news.Result
	err := p.write(ctx, func(store *database.DB) error {
		var err error
		res, err = news.NewCollector(p.cfg.News, store, p.log).Collect(ctx)
		return err
	})
	if err != nil {
		return StepResult{Name: "News", Err: err}, res
	}
	summary := fmt.Sprintf("Found %d articles, %d new", res.Found, res.New)

	if p.cfg.News.FetchContent && !p.dryRun {
		fr, err := news.NewContentFetcher(p.db, 15*time.Second, p.log).FetchMissingContent(ctx, 100)
		if err != nil {
			return StepResult{Name: "News", Summary: summary, Err: err}, res
		}
		summary += fmt.Sprintf("; fetched text for %d, %d failed", fr.Fetched, fr.Failed)
	}
	return StepResult{Name: "News", Summary: summary}, res
}

func (p *Pipeline) write(ctx context.Context, fn func(store *database.DB) error) error {
	if p.dryRun {
		return p.db.DryRun(ctx, fn)
	}
	return fn(p.db)
}

// NewReport starts a run report for a command of the given kind.
func (p *Pipeline) NewReport(kind, periodID string) database.RunReport {
	return database.RunReport{
		RunID:     uuid.NewString(),
		Kind:      kind,
		PeriodID:  periodID,
		StartedAt: database.Timestamp(p.now()),
	}
}

// Finish closes a run report with runErr, stores it unless this is a dry
// run, and exports metrics to the configured textfile.
func (p *Pipeline) Finish(ctx context.Context, rep database.RunReport, runErr error) (database.RunReport, error) {
	finished := p.now()
	rep.FinishedAt = ptr(database.Timestamp(finished))
	switch {
	case runErr != nil:
		rep.Status = StatusFailed
		rep.ErrorText = ptr(runErr.Error())
	case p.dryRun:
		rep.Status = StatusDryRun
	default:
		rep.Status = StatusOK
	}

	if p.dryRun {
		return rep, nil
	}

	var errs []error
	if err := p.db.InsertRunReport(ctx, rep); err != nil {
		errs = append(errs, err)
	}
	p.metrics.ObserveReport(rep, finished)
	if err := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	return rep, errors.Join(errs...)
}

// ApplyCollect copies a collection's outcome into a run report.
func ApplyCollect(rep *database.RunReport, res *collect.Result) {
	rep.Fetched += res.Fetched
	rep.Malformed += res.Malformed
	rep.Linked += res.Link.Linked
	if res.Report != nil {
		rep.Counts = append(rep.Counts, res.Report.Entities()...)
	}
	if rep.PeriodID == "" && res.Window.From != "" {
		rep.PeriodID = database.MakePeriodID(res.Window.From, res.Window.Until)
	}
}

// ApplyNews copies a news collection's outcome into a run report.
func ApplyNews(rep *database.RunReport, res *news.Result) {
	rep.Counts = append(rep.Counts, database.EntityCounts{
		Entity:    "news_articles",
		Inserted:  res.New,
		Unchanged: res.Duplicates,
		Failed:    res.FailedFeeds,
	})
}

func ptr(s string) *string { return &s }
