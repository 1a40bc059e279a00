package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
	"github.com/hazyhaar/mapharvest/harvest/internal/crawl"
	"github.com/hazyhaar/mapharvest/harvest/internal/discover"
	"github.com/hazyhaar/mapharvest/harvest/internal/idgen"
	"github.com/hazyhaar/mapharvest/harvest/internal/normalize"
	"github.com/hazyhaar/mapharvest/harvest/internal/sink"
	"github.com/hazyhaar/mapharvest/harvest/record"
)

// State describes where a run is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateInterrupted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateInterrupted:
		return "interrupted"
	default:
		return "failed"
	}
}

// Summary is the outcome of one run.
type Summary struct {
	RunID      string        `json:"run_id"`
	State      State         `json:"-"`
	StateName  string        `json:"state"`
	Targets    int           `json:"targets"`
	Entities   int           `json:"entities"`
	Reviews    int           `json:"reviews"`
	Failures   int           `json:"failures"`
	OutputPath string        `json:"output_path"`
	Elapsed    time.Duration `json:"elapsed"`
}

// SessionFactory opens an isolated browser session for one worker.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// Runner executes one harvest campaign. Each worker owns one session
// for its whole lifetime; targets are handed out over a channel, and
// results accumulate under a lock. Cancellation is observed between
// units of work, never mid-extraction, so partial output is always
// well-formed.
type Runner struct {
	cfg      *Config
	log      *slog.Logger
	sessions SessionFactory
	norm     normalize.Normalizer
	writer   sink.Writer
	now      func() time.Time
	newRunID idgen.Generator

	newSessionTag idgen.Generator

	mu       sync.Mutex
	state    State
	results  []record.ReviewRecord
	entities int
	slots    int // workers that obtained a session
	failures int
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithNormalizer replaces the default parallel normalizer.
func WithNormalizer(n normalize.Normalizer) RunnerOption {
	return func(r *Runner) { r.norm = n }
}

// WithClock fixes the runner's clock, for tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithRunID fixes the run-ID generator, for tests.
func WithRunID(gen idgen.Generator) RunnerOption {
	return func(r *Runner) { r.newRunID = gen }
}

// NewRunner wires a runner from a validated config and a session
// factory.
func NewRunner(cfg *Config, log *slog.Logger, sessions SessionFactory, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sessions == nil {
		return nil, fmt.Errorf("harvest: nil session factory")
	}
	if log == nil {
		log = slog.Default()
	}
	w, err := sink.ForPath(cfg.Output.Path)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		writer:   w,
		now:      time.Now,
		newRunID: idgen.Run,
		state:    StateIdle,

		newSessionTag: idgen.NanoID(8),
	}
	for _, o := range opts {
		o(r)
	}
	if r.norm == nil {
		r.norm = &normalize.Parallel{
			Classifier: normalize.NewLinguaClassifier(),
			Workers:    cfg.Crawl.Workers,
		}
	}
	return r, nil
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run executes the campaign and blocks until every target is done or
// ctx is cancelled. On cancellation the accumulated records still land
// in a timestamped partial file. Failed is reserved for runs where no
// worker obtained a browser session; target-level errors are counted
// and the run still completes, writing whatever was collected.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return nil, fmt.Errorf("harvest: run already in progress")
	}
	r.state = StateRunning
	r.results = nil
	r.entities = 0
	r.slots = 0
	r.failures = 0
	r.mu.Unlock()

	runID := r.newRunID()
	started := r.now()
	log := r.log.With("run_id", runID)

	targets := r.targets()
	log.Info("harvest: run starting",
		"targets", len(targets), "workers", r.cfg.Crawl.Workers,
		"output", r.cfg.Output.Path)

	jobs := make(chan record.Target, len(targets))
	for _, t := range targets {
		jobs <- t
	}
	close(jobs)

	workers := r.cfg.Crawl.Workers
	if workers > len(targets) {
		workers = len(targets)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			r.worker(ctx, log.With("worker", slot), jobs)
		}(w)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	interrupted := false
	select {
	case <-done:
		interrupted = ctx.Err() != nil
	case <-ctx.Done():
		interrupted = true
		// workers stop between units; give them a bounded window
		select {
		case <-done:
		case <-time.After(r.cfg.Output.GraceTimeout):
			log.Warn("harvest: grace timeout expired, abandoning workers")
		}
	}

	return r.finish(ctx, log, runID, started, len(targets), interrupted)
}

// worker drains the target channel with one dedicated session,
// reopening it after hard failures.
func (r *Runner) worker(ctx context.Context, log *slog.Logger, jobs <-chan record.Target) {
	sess, err := r.sessions(ctx)
	if err != nil {
		log.Error("harvest: session open failed", "error", err)
		return
	}
	defer sess.Close()
	log = log.With("session", r.newSessionTag())
	r.mu.Lock()
	r.slots++
	r.mu.Unlock()

	crawler := crawl.NewTargetCrawler(crawl.TargetConfig{
		NavigationTimeout: r.cfg.Crawl.NavigationTimeout,
		Settle:            r.cfg.Crawl.Settle,
		MaxCandidates:     r.cfg.Crawl.MaxCandidates,
		Keywords:          r.cfg.Targets.Keywords,
		Discover:          discover.Config{Settle: r.cfg.Crawl.Settle},
		Logger:            log,
	})
	extractor := crawl.NewReviewExtractor(crawl.ReviewConfig{
		NavigationTimeout: r.cfg.Crawl.NavigationTimeout,
		Settle:            r.cfg.Crawl.Settle,
		MaxReviews:        r.cfg.Crawl.MaxReviews,
		Discover:          discover.Config{Settle: r.cfg.Crawl.Settle},
		Now:               r.now,
		Logger:            log,
	})

	for target := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := r.harvestTarget(ctx, sess, crawler, extractor, target); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Warn("harvest: target failed",
				"organization", target.Organization, "location", target.Location,
				"error", err)
			r.mu.Lock()
			r.failures++
			r.mu.Unlock()
		}
		r.pace(ctx)
	}
}

func (r *Runner) harvestTarget(ctx context.Context, sess browser.Session, crawler *crawl.TargetCrawler, extractor *crawl.ReviewExtractor, target record.Target) error {
	entities, err := crawler.Collect(ctx, sess, target)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.entities += len(entities)
	r.mu.Unlock()

	for i, ent := range entities {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			r.pace(ctx)
		}
		recs, err := extractor.Extract(ctx, sess, ent)
		if err != nil {
			r.log.Warn("harvest: entity skipped", "entity", ent.Name, "error", err)
			continue
		}
		r.mu.Lock()
		r.results = append(r.results, recs...)
		r.mu.Unlock()
	}
	return nil
}

// pace sleeps a randomized interval so concurrent workers do not hit
// the site in lockstep.
func (r *Runner) pace(ctx context.Context) {
	min, max := r.cfg.Crawl.PacingMin, r.cfg.Crawl.PacingMax
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *Runner) finish(ctx context.Context, log *slog.Logger, runID string, started time.Time, targets int, interrupted bool) (*Summary, error) {
	r.mu.Lock()
	raw := r.results
	entities := r.entities
	slots := r.slots
	failures := r.failures
	r.mu.Unlock()

	// normalization must run even after cancellation
	recs := r.norm.Normalize(context.WithoutCancel(ctx), raw)

	outPath := r.cfg.Output.Path
	state := StateCompleted
	switch {
	case interrupted:
		state = StateInterrupted
		outPath = sink.PartialPath(outPath, r.now())
	case targets > 0 && slots == 0:
		state = StateFailed
	}

	var writeErr error
	if state != StateFailed {
		writeErr = r.writer.Write(outPath, recs)
		if writeErr != nil {
			state = StateFailed
			log.Error("harvest: output write failed", "path", outPath, "error", writeErr)
		}
	}

	r.mu.Lock()
	r.state = state
	r.mu.Unlock()

	s := &Summary{
		RunID:      runID,
		State:      state,
		StateName:  state.String(),
		Targets:    targets,
		Entities:   entities,
		Reviews:    len(recs),
		Failures:   failures,
		OutputPath: outPath,
		Elapsed:    r.now().Sub(started),
	}
	log.Info("harvest: run finished",
		"state", s.StateName, "entities", s.Entities, "reviews", s.Reviews,
		"failures", s.Failures, "output", s.OutputPath, "elapsed", s.Elapsed)
	if state == StateFailed {
		if writeErr != nil {
			return s, writeErr
		}
		return s, fmt.Errorf("harvest: no browser session could be opened")
	}
	return s, nil
}

// targets expands the configured organizations and locations into their
// cartesian product, in configuration order.
func (r *Runner) targets() []record.Target {
	var out []record.Target
	for _, org := range r.cfg.Targets.Organizations {
		for _, loc := range r.cfg.Targets.Locations {
			out = append(out, record.Target{Organization: org, Location: loc})
		}
	}
	return out
}
