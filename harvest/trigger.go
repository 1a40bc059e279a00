package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RunFunc starts a harvest for the given config and returns its
// summary. Injected so the HTTP surface can be tested without a
// browser.
type RunFunc func(ctx context.Context, cfg *Config) (*Summary, error)

// Stager loads a finished output file into the staging store. Satisfied
// by *staging.Store.
type Stager interface {
	LoadFile(ctx context.Context, path string) (int, error)
}

// Trigger exposes harvest runs over HTTP, for driving campaigns from an
// orchestrator instead of cron. One run at a time; a request arriving
// while a run is active gets 409.
type Trigger struct {
	base   *Config
	run    RunFunc
	stager Stager
	log    *slog.Logger

	mu   sync.Mutex
	busy bool
	last *Summary
}

// NewTrigger builds the HTTP surface around a base config. Request
// bodies override the base per-field.
func NewTrigger(base *Config, run RunFunc, log *slog.Logger) *Trigger {
	if log == nil {
		log = slog.Default()
	}
	return &Trigger{base: base, run: run, log: log}
}

// WithStaging makes the trigger load each run's output into the staging
// store after a successful run.
func (t *Trigger) WithStaging(s Stager) *Trigger {
	t.stager = s
	return t
}

// Router mounts the trigger endpoints.
func (t *Trigger) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", t.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", t.handleRun)
		r.Get("/runs/last", t.handleLast)
	})
	return r
}

// runRequest is the subset of config a caller may override per run.
type runRequest struct {
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
	MaxReviews    int      `json:"max_reviews"`
	Output        string   `json:"output"`
}

func (t *Trigger) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}
	}

	cfg := *t.base
	if len(req.Organizations) > 0 {
		cfg.Targets.Organizations = req.Organizations
	}
	if len(req.Locations) > 0 {
		cfg.Targets.Locations = req.Locations
	}
	if req.MaxReviews > 0 {
		cfg.Crawl.MaxReviews = req.MaxReviews
	}
	if req.Output != "" {
		cfg.Output.Path = req.Output
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "run already in progress"})
		return
	}
	t.busy = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()
	}()

	summary, err := t.run(r.Context(), &cfg)
	if summary != nil {
		t.mu.Lock()
		t.last = summary
		t.mu.Unlock()
	}
	if err != nil {
		t.log.Error("trigger: run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}
	if summary == nil {
		t.log.Error("trigger: run returned no summary")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "run returned no summary"})
		return
	}

	staged := 0
	if t.stager != nil && summary.Reviews > 0 {
		staged, err = t.stager.LoadFile(r.Context(), summary.OutputPath)
		if err != nil {
			t.log.Error("trigger: staging load failed", "path", summary.OutputPath, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":     summary,
		"output_path": summary.OutputPath,
		"rows":        summary.Reviews,
		"staged_rows": staged,
	})
}

func (t *Trigger) handleLast(w http.ResponseWriter, _ *http.Request) {
	t.mu.Lock()
	last := t.last
	t.mu.Unlock()
	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (t *Trigger) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
