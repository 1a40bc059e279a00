package harvest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func triggerBase(t *testing.T) *Config {
	cfg := &Config{
		Targets: TargetsConfig{Organizations: []string{"Attijariwafa Bank"}},
		Output:  OutputConfig{Path: filepath.Join(t.TempDir(), "reviews.json")},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestTriggerRun(t *testing.T) {
	var gotCfg *Config
	run := func(ctx context.Context, cfg *Config) (*Summary, error) {
		gotCfg = cfg
		return &Summary{RunID: "run_x", State: StateCompleted, StateName: "completed", Reviews: 7}, nil
	}
	srv := httptest.NewServer(NewTrigger(triggerBase(t), run, nil).Router())
	defer srv.Close()

	body := strings.NewReader(`{"locations":["Rabat"],"max_reviews":5}`)
	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Summary Summary `json:"summary"`
		Rows    int     `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Summary.Reviews != 7 || out.Summary.StateName != "completed" {
		t.Errorf("summary = %+v", out.Summary)
	}
	if out.Rows != 7 {
		t.Errorf("rows = %d, want 7", out.Rows)
	}
	if gotCfg == nil || len(gotCfg.Targets.Locations) != 1 || gotCfg.Targets.Locations[0] != "Rabat" {
		t.Errorf("override not applied: %+v", gotCfg)
	}
	if gotCfg.Crawl.MaxReviews != 5 {
		t.Errorf("max_reviews override = %d", gotCfg.Crawl.MaxReviews)
	}

	// the last summary is now queryable
	resp2, err := http.Get(srv.URL + "/v1/runs/last")
	if err != nil {
		t.Fatalf("GET last: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("last status = %d", resp2.StatusCode)
	}
}

type fakeStager struct {
	path string
	rows int
}

func (f *fakeStager) LoadFile(_ context.Context, path string) (int, error) {
	f.path = path
	return f.rows, nil
}

func TestTriggerStagesAfterRun(t *testing.T) {
	run := func(ctx context.Context, cfg *Config) (*Summary, error) {
		return &Summary{
			State: StateCompleted, StateName: "completed",
			Reviews: 4, OutputPath: "out/reviews.json",
		}, nil
	}
	stager := &fakeStager{rows: 4}
	srv := httptest.NewServer(NewTrigger(triggerBase(t), run, nil).WithStaging(stager).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		StagedRows int `json:"staged_rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.StagedRows != 4 {
		t.Errorf("staged_rows = %d, want 4", out.StagedRows)
	}
	if stager.path != "out/reviews.json" {
		t.Errorf("staged path = %q", stager.path)
	}
}

func TestTriggerRunWithoutSummary(t *testing.T) {
	run := func(ctx context.Context, cfg *Config) (*Summary, error) {
		return nil, nil
	}
	srv := httptest.NewServer(NewTrigger(triggerBase(t), run, nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] != "run returned no summary" {
		t.Errorf("error = %q", out["error"])
	}
}

func TestTriggerRejectsInvalidConfig(t *testing.T) {
	run := func(ctx context.Context, cfg *Config) (*Summary, error) {
		t.Fatal("run must not start")
		return nil, nil
	}
	base := triggerBase(t)
	base.Targets.Organizations = nil
	srv := httptest.NewServer(NewTrigger(base, run, nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTriggerConflictWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	run := func(ctx context.Context, cfg *Config) (*Summary, error) {
		close(started)
		<-release
		return &Summary{State: StateCompleted, StateName: "completed"}, nil
	}
	srv := httptest.NewServer(NewTrigger(triggerBase(t), run, nil).Router())
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Post(srv.URL+"/v1/runs", "application/json", nil)
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-started

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	close(release)
	<-done
}

func TestTriggerHealth(t *testing.T) {
	srv := httptest.NewServer(NewTrigger(triggerBase(t), nil, nil).Router())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTriggerNoLastRun(t *testing.T) {
	srv := httptest.NewServer(NewTrigger(triggerBase(t), nil, nil).Router())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/v1/runs/last")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
