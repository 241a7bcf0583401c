package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/kokkaisync/internal/collect"
	"github.com/TobiSchelling/kokkaisync/internal/config"
	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/kokkai"
	"github.com/TobiSchelling/kokkaisync/internal/logging"
	"github.com/TobiSchelling/kokkaisync/internal/normalize"
	"github.com/TobiSchelling/kokkaisync/internal/pipeline"
	"github.com/TobiSchelling/kokkaisync/internal/report"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "kokkaisync",
	Short:        "Diet proceedings ingester",
	Long:         "kokkaisync collects Diet speeches and bill records, reconciles them into a relational store, and links speeches to legislators.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logger = logging.Setup(logging.Options{Verbose: verbose})
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = logging.Setup(logging.Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Verbose: verbose,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(importBillsCmd)
	rootCmd.AddCommand(importMembersCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kokkaisync", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/kokkaisync/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the store, batch sizes and news feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store contents and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Store: %s (%s)\n", db.Path(), db.Dialect())
		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Proceedings:")
		fmt.Printf("  Meetings: %d\n", stats.Meetings)
		fmt.Printf("  Speeches: %d (%d unlinked)\n", stats.Speeches, stats.UnlinkedSpeeches)
		latest := stats.LatestSpeechDate
		if latest == "" {
			latest = "-"
		}
		fmt.Printf("  Latest speech: %s\n", latest)
		fmt.Printf("  Legislators: %d (%d members)\n", stats.Legislators, stats.Members)
		fmt.Println("\nBills:")
		fmt.Printf("  Bills: %d\n", stats.Bills)
		fmt.Printf("  Party votes: %d\n", stats.Votes)
		fmt.Println("\nNews:")
		fmt.Printf("  Articles: %d\n", stats.NewsArticles)

		runs, err := db.RecentRunReports(ctx, 5)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		fmt.Printf("\nRecent runs (%d total):\n", stats.RunReports)
		if len(runs) == 0 {
			fmt.Println("  none")
			return nil
		}
		rows := make([][]string, len(runs))
		for i, r := range runs {
			rows[i] = []string{
				r.StartedAt, r.Kind, database.FormatPeriodDisplay(r.PeriodID), r.Status,
				strconv.Itoa(r.Fetched), strconv.Itoa(r.Malformed), strconv.Itoa(r.Linked),
			}
		}
		return report.WriteTable(os.Stdout,
			[]string{"started", "kind", "period", "status", "fetched", "malformed", "linked"}, rows)
	},
}

// --- collect command ---

var (
	dryRun    bool
	daysBack  int
	fromDate  string
	untilDate string
)

// daysFromConfig is what a bare --days parses to.
const daysFromConfig = -1

func windowOptions() collect.WindowOptions {
	days := daysBack
	if days == daysFromConfig {
		days = cfg.Kokkai.DaysBack
	}
	return collect.WindowOptions{
		From:     fromDate,
		Until:    untilDate,
		DaysBack: days,
		Since:    cfg.Kokkai.Since,
	}
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&daysBack, "days", 0, "Collect the last N days instead of the incremental window (--days alone uses kokkai.days_back)")
	cmd.Flags().Lookup("days").NoOptDefVal = strconv.Itoa(daysFromConfig)
	cmd.Flags().StringVar(&fromDate, "from", "", "Backfill start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&untilDate, "until", "", "Backfill end date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the writes without committing them")
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect speeches from the Diet speech API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		w, err := collect.ResolveWindow(ctx, db, windowOptions(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Collecting speeches %s...\n", database.FormatPeriodDisplay(database.MakePeriodID(w.From, w.Until)))

		pipe := pipeline.New(cfg, db, nil, dryRun, logger)
		rep := pipe.NewReport("speeches", database.MakePeriodID(w.From, w.Until))

		c := collect.NewCollector(cfg, db, newClient(), dryRun, logging.Component(logger, "collect"))
		res, runErr := c.CollectSpeeches(ctx, w)
		if res != nil {
			pipeline.ApplyCollect(&rep, res)
			printCollect(res)
		}
		return finish(ctx, pipe, rep, runErr)
	},
}

func init() {
	addWindowFlags(collectCmd)
}

// --- import-bills command ---

var (
	shuPath string
	sanPath string
)

var importBillsCmd = &cobra.Command{
	Use:   "import-bills",
	Short: "Import bill CSV exports of the House of Representatives (--shu) and Councillors (--san)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if shuPath == "" && sanPath == "" {
			return errors.New("give at least one of --shu or --san")
		}
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, nil, dryRun, logger)
		c := collect.NewCollector(cfg, db, nil, dryRun, logging.Component(logger, "bills"))

		var errs []error
		for _, f := range []struct {
			path string
			kind normalize.SourceKind
		}{{shuPath, normalize.ShugiinBills}, {sanPath, normalize.SangiinBills}} {
			if f.path == "" {
				continue
			}
			fmt.Printf("Importing %s (%s)...\n", f.path, f.kind)
			rep := pipe.NewReport("bills", filepath.Base(f.path))
			res, runErr := c.ImportBills(ctx, f.path, f.kind)
			if res != nil {
				pipeline.ApplyCollect(&rep, res)
				printCollect(res)
			}
			if err := finish(ctx, pipe, rep, runErr); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	importBillsCmd.Flags().StringVar(&shuPath, "shu", "", "House of Representatives bill CSV")
	importBillsCmd.Flags().StringVar(&sanPath, "san", "", "House of Councillors bill CSV")
	importBillsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the writes without committing them")
}

// --- import-members command ---

var (
	giinPath  string
	kaihaPath string
	asOfDate  string
)

var importMembersCmd = &cobra.Command{
	Use:   "import-members",
	Short: "Import the House of Councillors member roster (--giin) with group names (--kaiha)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if giinPath == "" {
			return errors.New("--giin is required")
		}
		asOf := asOfDate
		if asOf == "" {
			asOf = database.GetToday()
		}
		if _, err := time.Parse(database.DateLayout, asOf); err != nil {
			return fmt.Errorf("invalid --as-of %q: want YYYY-MM-DD", asOf)
		}

		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, nil, dryRun, logger)
		rep := pipe.NewReport("members", asOf)

		fmt.Printf("Importing %s (%s)...\n", giinPath, normalize.CouncillorsRoster)
		c := collect.NewCollector(cfg, db, nil, dryRun, logging.Component(logger, "members"))
		res, runErr := c.ImportMembers(ctx, giinPath, kaihaPath, asOf)
		if res != nil {
			pipeline.ApplyCollect(&rep, res)
			printCollect(res)
		}
		return finish(ctx, pipe, rep, runErr)
	},
}

func init() {
	importMembersCmd.Flags().StringVar(&giinPath, "giin", "", "Member roster CSV (giin.csv)")
	importMembersCmd.Flags().StringVar(&kaihaPath, "kaiha", "", "Group list CSV mapping abbreviations to full names (kaiha.csv)")
	importMembersCmd.Flags().StringVar(&asOfDate, "as-of", "", "Date the roster describes (YYYY-MM-DD, default today)")
	importMembersCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the writes without committing them")
}

// --- link command ---

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Attribute unlinked speeches to legislators",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, nil, dryRun, logger)
		rep := pipe.NewReport("link", database.GetToday())

		c := collect.NewCollector(cfg, db, nil, dryRun, logging.Component(logger, "link"))
		res, runErr := c.Link(ctx)
		rep.Linked = res.Linked

		fmt.Println("\nLinking complete:")
		fmt.Printf("  Scanned: %d\n", res.Scanned)
		fmt.Printf("  Linked: %d\n", res.Linked)
		fmt.Printf("  Unmatched: %d\n", res.Unmatched)
		fmt.Printf("  Ambiguous: %d\n", res.Ambiguous)
		return finish(ctx, pipe, rep, runErr)
	},
}

func init() {
	linkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the links without committing them")
}

// --- news command ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Collect news articles about recently active legislators",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, nil, dryRun, logging.Component(logger, "news"))
		rep := pipe.NewReport("news", database.GetToday())

		step, res := pipe.News(ctx)
		if res != nil {
			pipeline.ApplyNews(&rep, res)
		}
		printStep(1, step)
		return finish(ctx, pipe, rep, step.Err)
	},
}

func init() {
	newsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the inserts without committing them")
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline: window -> speeches -> link -> news -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, newClient(), dryRun, logging.Component(logger, "pipeline"))
		result := pipe.Run(ctx, windowOptions())

		for i, step := range result.Steps {
			printStep(i+1, step)
		}
		if dryRun {
			fmt.Println("\nDry run: nothing was committed.")
		}
		return result.Err()
	},
}

func init() {
	addWindowFlags(runCmd)
}

// --- report command ---

var (
	reportOut   string
	reportLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render recent run reports as markdown or HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.RecentRunReports(ctx, reportLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		out := report.Markdown(runs)

		if reportOut == "" {
			fmt.Print(out)
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(reportOut)); ext == ".html" || ext == ".htm" {
			if out, err = report.HTML(out); err != nil {
				return err
			}
		}
		if err := os.WriteFile(reportOut, []byte(out), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Wrote %d runs to %s\n", len(runs), reportOut)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write to file (.html renders HTML, otherwise markdown)")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 10, "Number of runs to include")
}

// --- helpers ---

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newClient() *kokkai.Client {
	k := cfg.Kokkai
	return kokkai.NewClient(k.BaseURL, k.PageSize, k.Timeout)
}

func openDB(ctx context.Context) (*database.DB, error) {
	if cfg.Store.Driver == "postgres" {
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, err
		}
		return database.OpenPostgres(ctx, dsn)
	}

	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "kokkaisync.db"))
}

// finish records the run report and returns the run error, or the
// recording error when the run itself succeeded.
func finish(ctx context.Context, pipe *pipeline.Pipeline, rep database.RunReport, runErr error) error {
	rep, err := pipe.Finish(ctx, rep, runErr)
	if err != nil {
		logger.Error().Err(err).Str("run_id", rep.RunID).Msg("recording run report")
	}
	fmt.Printf("\nRun %s: %s\n", rep.RunID, rep.Status)
	if runErr != nil {
		return runErr
	}
	return err
}

func printCollect(res *collect.Result) {
	prefix := ""
	if res.DryRun {
		prefix = "[dry-run] "
	}
	fmt.Printf("\n%sRead %d records (%d malformed)\n", prefix, res.Fetched, res.Malformed)
	if res.Report != nil {
		if counts := res.Report.Entities(); len(counts) > 0 {
			report.WriteTable(os.Stdout, report.CountsHeader, report.CountsRows(counts))
		}
	}
	if res.Link.Scanned > 0 {
		fmt.Printf("%sLinked %d of %d unlinked speeches (%d unmatched, %d ambiguous)\n",
			prefix, res.Link.Linked, res.Link.Scanned, res.Link.Unmatched, res.Link.Ambiguous)
	}
}

func printStep(n int, step pipeline.StepResult) {
	fmt.Printf("\nStep %d: %s\n", n, step.Name)
	if step.Err != nil {
		fmt.Printf("  Error: %v\n", step.Err)
	} else {
		fmt.Printf("  %s\n", step.Summary)
	}
}
