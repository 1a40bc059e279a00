// Command mapharvest harvests Google Maps customer reviews for a set of
// organizations across a set of locations. It runs once by default,
// serves an HTTP trigger API with -serve, and loads previous output
// into the staging database with -load.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/mapharvest/harvest"
	"github.com/hazyhaar/mapharvest/harvest/staging"
)

const (
	exitOK          = 0
	exitFailed      = 1
	exitInterrupted = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		orgs       = flag.String("orgs", "", "comma-separated organizations to search (overrides config)")
		locations  = flag.String("locations", "", "comma-separated locations (overrides config)")
		maxReviews = flag.Int("max-reviews", 0, "max reviews per branch (overrides config)")
		workers    = flag.Int("workers", 0, "concurrent browser sessions (overrides config)")
		headful    = flag.Bool("headful", false, "run Chrome with a visible window")
		output     = flag.String("output", "", "output file, .json or .csv (overrides config)")
		logLevel   = flag.String("log-level", "", "debug | info | warn | error")
		serve      = flag.String("serve", "", "serve the trigger API on this address instead of running once")
		load       = flag.String("load", "", "load an output file into the staging database and exit")
		stage      = flag.Bool("stage", false, "with -serve, load each run's output into the staging database")
		stagingDB  = flag.String("staging-db", "db/staging.db", "staging database path (with -load or -stage)")
	)
	flag.Parse()

	cfg := &harvest.Config{}
	if *configPath != "" {
		loaded, err := harvest.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			return exitFailed
		}
		cfg = loaded
	}
	if *orgs != "" {
		cfg.Targets.Organizations = splitList(*orgs)
	}
	if *locations != "" {
		cfg.Targets.Locations = splitList(*locations)
	}
	if *maxReviews > 0 {
		cfg.Crawl.MaxReviews = *maxReviews
	}
	if *workers > 0 {
		cfg.Crawl.Workers = *workers
	}
	if *headful {
		headless := false
		cfg.Browser.Headless = &headless
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	cfg.ApplyDefaults()

	log := harvest.NewLogger(cfg.Logging)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *load != "" {
		return loadStaging(ctx, log, *stagingDB, *load)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}
	if *serve != "" {
		dbPath := ""
		if *stage {
			dbPath = *stagingDB
		}
		return serveTrigger(ctx, log, cfg, *serve, dbPath)
	}
	return runOnce(ctx, log, cfg)
}

func runOnce(ctx context.Context, log *slog.Logger, cfg *harvest.Config) int {
	sessions, shutdown, err := harvest.NewSessionFactory(ctx, cfg, log)
	if err != nil {
		log.Error("browser start failed", "error", err)
		return exitFailed
	}
	defer shutdown()

	runner, err := harvest.NewRunner(cfg, log, sessions)
	if err != nil {
		log.Error("runner setup failed", "error", err)
		return exitFailed
	}
	summary, err := runner.Run(ctx)
	if summary != nil {
		printSummary(summary)
	}
	switch {
	case summary != nil && summary.State == harvest.StateInterrupted:
		return exitInterrupted
	case err != nil:
		log.Error("run failed", "error", err)
		return exitFailed
	default:
		return exitOK
	}
}

func serveTrigger(ctx context.Context, log *slog.Logger, cfg *harvest.Config, addr, stagingPath string) int {
	runOne := func(ctx context.Context, cfg *harvest.Config) (*harvest.Summary, error) {
		sessions, shutdown, err := harvest.NewSessionFactory(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		defer shutdown()
		runner, err := harvest.NewRunner(cfg, log, sessions)
		if err != nil {
			return nil, err
		}
		return runner.Run(ctx)
	}

	trigger := harvest.NewTrigger(cfg, runOne, log)
	if stagingPath != "" {
		store, err := staging.Open(stagingPath, log)
		if err != nil {
			log.Error("staging open failed", "error", err)
			return exitFailed
		}
		defer store.Close()
		trigger.WithStaging(store)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           trigger.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("trigger API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("serve failed", "error", err)
		return exitFailed
	}
	return exitOK
}

func loadStaging(ctx context.Context, log *slog.Logger, dbPath, file string) int {
	store, err := staging.Open(dbPath, log)
	if err != nil {
		log.Error("staging open failed", "error", err)
		return exitFailed
	}
	defer store.Close()

	n, err := store.LoadFile(ctx, file)
	if err != nil {
		log.Error("staging load failed", "file", file, "error", err)
		return exitFailed
	}
	fmt.Printf("loaded %d rows from %s into %s\n", n, file, dbPath)
	return exitOK
}

func printSummary(s *harvest.Summary) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
