package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/cachescan/internal/classify"
	"github.com/nao1215/cachescan/internal/config"
	"github.com/nao1215/cachescan/internal/metrics"
	"github.com/nao1215/cachescan/internal/model"
)

// assetHandler serves a catalog at /metadata.json and assets under /files/.
type assetHandler struct {
	catalog string
	assets  map[string]func(w http.ResponseWriter, r *http.Request)
}

func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/metadata.json" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(h.catalog)) //nolint:errcheck
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/files/")
	serve, ok := h.assets[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	serve(w, r)
}

func cached(age string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("cf-cache-status", "HIT")
		w.Header().Set("Age", age)
	}
}

func wall(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><head><title>BYR Docs</title></head><body>" + //nolint:errcheck
		config.DefaultWallMarker + "</body></html>"))
}

func testConfig(serverURL, wallDir string) *config.Config {
	cfg := config.NewConfig()
	cfg.CatalogURL = serverURL + "/metadata.json"
	cfg.BaseURL = serverURL
	cfg.WallDir = wallDir
	return cfg
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("step order", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		p := DefaultPipeline(http.DefaultClient, cfg, nil)
		want := []string{"catalog", "expand", "probe", "classify", "diagnostics", "aggregate"}
		got := p.StepNames()
		if len(got) != len(want) {
			t.Fatalf("expected steps %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d: expected %q, got %q", i, want[i], got[i])
			}
		}

		cfg.MetricsFile = "metrics.prom"
		p = DefaultPipeline(http.DefaultClient, cfg, nil)
		if names := p.StepNames(); names[len(names)-1] != "metrics" {
			t.Errorf("expected metrics step last, got %v", names)
		}
	})

	t.Run("all variants cached", func(t *testing.T) {
		t.Parallel()

		handler := &assetHandler{
			catalog: `[{"id":"a","data":{"filetype":"pdf"}}]`,
			assets: map[string]func(http.ResponseWriter, *http.Request){
				"a.pdf":  cached("10"),
				"a.jpg":  cached("20"),
				"a.webp": cached("30"),
			},
		}
		server := httptest.NewServer(handler)
		defer server.Close()

		cfg := testConfig(server.URL, t.TempDir())
		metricsFile := filepath.Join(t.TempDir(), "cachescan.prom")
		cfg.MetricsFile = metricsFile

		var progressCalls atomic.Int32
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())},
			WithPipelineProgress(func(_, _ int) { progressCalls.Add(1) }),
		)
		report := model.NewAuditReport(model.CheckModeAll, cfg.CatalogURL)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := model.RunStats{Total: 3, Hit: 3, TotalAgeSeconds: 60}
		if report.Stats != want {
			t.Errorf("expected stats %+v, got %+v", want, report.Stats)
		}
		if report.Summary.CacheRatioPct == nil || *report.Summary.CacheRatioPct != 100 {
			t.Errorf("expected cache ratio 100, got %v", report.Summary.CacheRatioPct)
		}
		if report.Summary.MeanHitAgeSeconds == nil || *report.Summary.MeanHitAgeSeconds != 20 {
			t.Errorf("expected mean age 20, got %v", report.Summary.MeanHitAgeSeconds)
		}
		if v, ok := report.Results["a.webp"].(model.Hit); !ok || v.AgeSeconds != 30 {
			t.Errorf("expected a.webp HIT age 30, got %v", report.Results["a.webp"])
		}
		if got := progressCalls.Load(); got != 3 {
			t.Errorf("expected 3 progress calls, got %d", got)
		}
		if _, err := os.Stat(metricsFile); err != nil {
			t.Errorf("expected metrics file: %v", err)
		}
	})

	t.Run("mixed verdicts", func(t *testing.T) {
		t.Parallel()

		handler := &assetHandler{
			catalog: `[{"id":"a","data":{"filetype":"zip"}},{"id":"b","data":{"filetype":"zip"}},{"id":"c","data":{"filetype":"docx"}}]`,
			assets: map[string]func(http.ResponseWriter, *http.Request){
				"a.zip": cached("100"),
				"b.zip": func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "application/zip")
					w.Header().Set("cf-cache-status", "MISS")
				},
				"c.docx": func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "application/msword")
					w.Header().Set("cf-cache-status", "EXPIRED")
				},
			},
		}
		server := httptest.NewServer(handler)
		defer server.Close()

		cfg := testConfig(server.URL, t.TempDir())
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())})
		report := model.NewAuditReport(model.CheckModeFile, cfg.CatalogURL)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := model.RunStats{Total: 3, Hit: 1, Miss: 1, Unknown: 1, TotalAgeSeconds: 100}
		if report.Stats != want {
			t.Errorf("expected stats %+v, got %+v", want, report.Stats)
		}
		if got := report.Results["c.docx"]; got != (model.Unknown{Detail: "EXPIRED"}) {
			t.Errorf("expected UNKNOWN: EXPIRED, got %v", got)
		}
		if *report.Summary.CacheRatioPct != 33 {
			t.Errorf("expected cache ratio 33, got %d", *report.Summary.CacheRatioPct)
		}
	})

	t.Run("unauthenticated wall aborts the run", func(t *testing.T) {
		t.Parallel()

		handler := &assetHandler{
			catalog: `[{"id":"a","data":{"filetype":"pdf"}}]`,
			assets: map[string]func(http.ResponseWriter, *http.Request){
				"a.pdf":  wall,
				"a.jpg":  wall,
				"a.webp": wall,
			},
		}
		server := httptest.NewServer(handler)
		defer server.Close()

		wallDir := t.TempDir()
		cfg := testConfig(server.URL, wallDir)
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())})
		report := model.NewAuditReport(model.CheckModeAll, cfg.CatalogURL)

		err := p.Execute(context.Background(), report)
		if !errors.Is(err, classify.ErrAuthWall) {
			t.Fatalf("expected ErrAuthWall, got %v", err)
		}
		if !report.Aborted {
			t.Error("expected report to be aborted")
		}
		if len(report.Verdicts) != 0 {
			t.Errorf("expected no verdicts, got %d", len(report.Verdicts))
		}
		entries, _ := os.ReadDir(wallDir) //nolint:errcheck
		if len(entries) != 0 {
			t.Errorf("expected no saved pages, got %d", len(entries))
		}
	})

	t.Run("authenticated wall is saved as an anomaly", func(t *testing.T) {
		t.Parallel()

		handler := &assetHandler{
			catalog: `[{"id":"a","data":{"filetype":"pdf"}}]`,
			assets: map[string]func(http.ResponseWriter, *http.Request){
				"a.pdf": wall,
				"a.jpg": cached("5"),
				"a.webp": func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "image/webp")
					w.Header().Set("cf-cache-status", "MISS")
				},
			},
		}
		server := httptest.NewServer(handler)
		defer server.Close()

		wallDir := filepath.Join(t.TempDir(), "walls")
		cfg := testConfig(server.URL, wallDir)
		cfg.Cookie = "session=abc"
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())})
		report := model.NewAuditReport(model.CheckModeAll, cfg.CatalogURL)

		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		anomaly, ok := report.Results["a.pdf"].(model.AnomalyHTMLWall)
		if !ok {
			t.Fatalf("expected anomaly for a.pdf, got %v", report.Results["a.pdf"])
		}
		if anomaly.Title != "BYR Docs" {
			t.Errorf("expected title 'BYR Docs', got %q", anomaly.Title)
		}
		wantPath := filepath.Join(wallDir, "a.pdf.html")
		if anomaly.Path != wantPath {
			t.Errorf("expected path %q, got %q", wantPath, anomaly.Path)
		}
		data, err := os.ReadFile(wantPath)
		if err != nil {
			t.Fatalf("expected saved page: %v", err)
		}
		if !strings.Contains(string(data), config.DefaultWallMarker) {
			t.Error("expected saved page to contain the wall body")
		}

		want := model.RunStats{Total: 3, Hit: 1, Miss: 1, Anomaly: 1, TotalAgeSeconds: 5}
		if report.Stats != want {
			t.Errorf("expected stats %+v, got %+v", want, report.Stats)
		}
	})

	t.Run("saved page keeps the served bytes", func(t *testing.T) {
		t.Parallel()

		served := "<html><head><meta charset=\"iso-8859-1\"><title>caf\xe9</title></head>" +
			"<body>acc\xe8s refus\xe9</body></html>"
		handler := &assetHandler{
			catalog: `[{"id":"a","data":{"filetype":"zip"}}]`,
			assets: map[string]func(http.ResponseWriter, *http.Request){
				"a.zip": func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "text/html")
					_, _ = w.Write([]byte(served)) //nolint:errcheck
				},
			},
		}
		server := httptest.NewServer(handler)
		defer server.Close()

		wallDir := filepath.Join(t.TempDir(), "walls")
		cfg := testConfig(server.URL, wallDir)
		cfg.Cookie = "session=abc"
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())})
		report := model.NewAuditReport(model.CheckModeFile, cfg.CatalogURL)

		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		anomaly, ok := report.Results["a.zip"].(model.AnomalyHTMLWall)
		if !ok {
			t.Fatalf("expected anomaly for a.zip, got %v", report.Results["a.zip"])
		}
		if anomaly.Title != "caf\u00e9" {
			t.Errorf("expected decoded title, got %q", anomaly.Title)
		}
		if anomaly.Size != len(served) {
			t.Errorf("expected size %d, got %d", len(served), anomaly.Size)
		}

		data, err := os.ReadFile(anomaly.Path)
		if err != nil {
			t.Fatalf("expected saved page: %v", err)
		}
		if string(data) != served {
			t.Errorf("expected saved page to match the served body\nwant %q\ngot  %q", served, data)
		}
	})

	t.Run("catalog ids cannot escape the wall directory", func(t *testing.T) {
		t.Parallel()

		handler := &assetHandler{
			catalog: `[{"id":"../escaped","data":{"filetype":"zip"}}]`,
			assets: map[string]func(http.ResponseWriter, *http.Request){
				"../escaped.zip": wall,
			},
		}
		server := httptest.NewServer(handler)
		defer server.Close()

		root := t.TempDir()
		wallDir := filepath.Join(root, "walls")
		cfg := testConfig(server.URL, wallDir)
		cfg.Cookie = "session=abc"
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())})
		report := model.NewAuditReport(model.CheckModeFile, cfg.CatalogURL)

		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		anomaly, ok := report.Results["../escaped.zip"].(model.AnomalyHTMLWall)
		if !ok {
			t.Fatalf("expected anomaly, got %v", report.Results["../escaped.zip"])
		}
		if filepath.Dir(anomaly.Path) != wallDir {
			t.Errorf("expected page inside %s, got %s", wallDir, anomaly.Path)
		}
		if _, err := os.Stat(filepath.Join(root, "escaped.zip.html")); !os.IsNotExist(err) {
			t.Error("expected nothing written outside the wall directory")
		}
		if _, err := os.Stat(anomaly.Path); err != nil {
			t.Errorf("expected saved page: %v", err)
		}
	})

	t.Run("catalog failure stops the run", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := testConfig(server.URL, t.TempDir())
		p := DefaultPipeline(server.Client(), cfg, []Option{WithLogger(discardLogger())})
		report := model.NewAuditReport(model.CheckModeAll, cfg.CatalogURL)

		if err := p.Execute(context.Background(), report); err == nil {
			t.Fatal("expected error")
		}
		if !report.Aborted {
			t.Error("expected report to be aborted")
		}
	})
}

func TestClassifyStep(t *testing.T) {
	t.Parallel()

	t.Run("records verdicts in outcome order", func(t *testing.T) {
		t.Parallel()

		report := model.NewAuditReport(model.CheckModeAll, "test")
		report.Outcomes = []model.Outcome{
			&model.Failure{Name: "b.pdf", Reason: "timeout"},
			&model.Response{Name: "a.pdf"},
		}

		step := NewClassifyStep(classify.New(), discardLogger())
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Verdicts) != 2 {
			t.Fatalf("expected 2 verdicts, got %d", len(report.Verdicts))
		}
		if report.Verdicts[0].Target != "b.pdf" {
			t.Errorf("expected first verdict for b.pdf, got %s", report.Verdicts[0].Target)
		}
		if got := report.Results["a.pdf"]; got != (model.Unknown{Detail: "no content-type"}) {
			t.Errorf("expected no content-type verdict, got %v", got)
		}
	})

	t.Run("returns ErrAuthWall", func(t *testing.T) {
		t.Parallel()

		report := model.NewAuditReport(model.CheckModeAll, "test")
		report.Outcomes = []model.Outcome{&model.Response{
			Name:        "a.pdf",
			ContentType: model.Field("text/html"),
			Page:        &model.Page{Body: []byte(config.DefaultWallMarker)},
		}}

		step := NewClassifyStep(classify.New(), discardLogger())
		if err := step.Do(context.Background(), report); !errors.Is(err, classify.ErrAuthWall) {
			t.Errorf("expected ErrAuthWall, got %v", err)
		}
	})
}

func TestAggregateStep(t *testing.T) {
	t.Parallel()

	report := model.NewAuditReport(model.CheckModeAll, "test")
	report.Record("a", model.Hit{AgeSeconds: 90065, AgeKnown: true})
	report.Record("b", model.Miss{})
	report.Record("c", model.ProbeError{Detail: "x"})
	report.Record("d", model.AnomalyHTMLWall{Path: "d.html"})

	if err := NewAggregateStep().Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.RunStats{Total: 4, Hit: 1, Miss: 1, Unknown: 1, Anomaly: 1, TotalAgeSeconds: 90065}
	if report.Stats != want {
		t.Errorf("expected %+v, got %+v", want, report.Stats)
	}
	if *report.Summary.CacheRatioPct != 25 {
		t.Errorf("expected ratio 25, got %d", *report.Summary.CacheRatioPct)
	}
}

func TestMetricsStep(t *testing.T) {
	t.Parallel()

	report := model.NewAuditReport(model.CheckModeAll, "test")
	report.Outcomes = []model.Outcome{&model.Response{Name: "a"}}
	report.Record("a", model.Miss{})
	report.Stats = model.Fold(report.VerdictList())

	path := filepath.Join(t.TempDir(), "run.prom")
	step := NewMetricsStep(metrics.NewRecorder(), path)
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(string(data), `cachescan_probes_total{status="MISS"} 1`) {
		t.Errorf("expected MISS counter in metrics, got:\n%s", data)
	}
}
