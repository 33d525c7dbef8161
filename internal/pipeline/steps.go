package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/cachescan/internal/catalog"
	"github.com/nao1215/cachescan/internal/classify"
	"github.com/nao1215/cachescan/internal/config"
	"github.com/nao1215/cachescan/internal/metrics"
	"github.com/nao1215/cachescan/internal/model"
	"github.com/nao1215/cachescan/internal/probe"
)

// CatalogStep loads the catalog entries into the report.
type CatalogStep struct {
	source catalog.Source
	logger *slog.Logger
}

// NewCatalogStep creates a step that reads the catalog from source.
func NewCatalogStep(source catalog.Source, logger *slog.Logger) *CatalogStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogStep{source: source, logger: logger}
}

// Name returns the step name.
func (s *CatalogStep) Name() string {
	return "catalog"
}

// Do executes the catalog step.
func (s *CatalogStep) Do(ctx context.Context, report *model.AuditReport) error {
	entries, err := s.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog from %s: %w", s.source.Location(), err)
	}
	report.Entries = entries
	s.logger.Info("catalog loaded", "source", s.source.Location(), "entries", len(entries))
	return nil
}

// ExpandStep turns catalog entries into probe targets for the report's mode.
type ExpandStep struct{}

// NewExpandStep creates a new ExpandStep.
func NewExpandStep() *ExpandStep {
	return &ExpandStep{}
}

// Name returns the step name.
func (s *ExpandStep) Name() string {
	return "expand"
}

// Do executes the expand step.
func (s *ExpandStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Targets = model.ExpandAll(report.Entries, report.Mode)
	return nil
}

// ProbeStep probes every target through the scheduler.
type ProbeStep struct {
	scheduler *Scheduler
}

// NewProbeStep creates a step that probes with scheduler.
func NewProbeStep(scheduler *Scheduler) *ProbeStep {
	return &ProbeStep{scheduler: scheduler}
}

// Name returns the step name.
func (s *ProbeStep) Name() string {
	return "probe"
}

// Do executes the probe step. Outcomes collected before a fatal
// condition are kept in the report.
func (s *ProbeStep) Do(ctx context.Context, report *model.AuditReport) error {
	outcomes, err := s.scheduler.Run(ctx, report.Targets)
	report.Outcomes = outcomes
	return err
}

// ClassifyStep classifies every outcome and records the verdicts.
type ClassifyStep struct {
	classifier *classify.Classifier
	logger     *slog.Logger
}

// NewClassifyStep creates a step that classifies with classifier.
func NewClassifyStep(classifier *classify.Classifier, logger *slog.Logger) *ClassifyStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStep{classifier: classifier, logger: logger}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classify step.
func (s *ClassifyStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Verdicts = make([]model.FileResult, 0, len(report.Outcomes))
	for _, out := range report.Outcomes {
		v, err := s.classifier.Classify(out)
		if err != nil {
			return fmt.Errorf("%s: %w", out.Target(), err)
		}

		switch v := v.(type) {
		case model.Unknown:
			if v.Detail == "no content-type" {
				s.logger.Warn("response without content-type", "target", out.Target())
			}
		case model.AnomalyHTMLWall:
			s.logger.Warn("html page served in place of asset",
				"target", out.Target(),
				"title", v.Title,
				"fingerprint", v.Fingerprint,
			)
		}
		report.Record(out.Target(), v)
	}
	return nil
}

// DiagnosticsStep saves the HTML pages behind wall anomalies for inspection.
type DiagnosticsStep struct {
	logger *slog.Logger
}

// NewDiagnosticsStep creates a new DiagnosticsStep.
func NewDiagnosticsStep(logger *slog.Logger) *DiagnosticsStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagnosticsStep{logger: logger}
}

// Name returns the step name.
func (s *DiagnosticsStep) Name() string {
	return "diagnostics"
}

// Do executes the diagnostics step.
// Verdicts and outcomes are paired by position, as recorded by ClassifyStep.
func (s *DiagnosticsStep) Do(_ context.Context, report *model.AuditReport) error {
	for i, fr := range report.Verdicts {
		wall, ok := fr.Verdict.(model.AnomalyHTMLWall)
		if !ok || i >= len(report.Outcomes) {
			continue
		}
		resp, ok := report.Outcomes[i].(*model.Response)
		if !ok || resp.Page == nil {
			continue
		}
		if err := savePage(wall.Path, resp.Page.Raw); err != nil {
			return err
		}
		s.logger.Info("saved html page", "target", fr.Target, "path", wall.Path)
	}
	return nil
}

func savePage(path string, body []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create wall directory: %w", err)
		}
	}
	if err := os.WriteFile(path, body, 0600); err != nil {
		return fmt.Errorf("failed to save html page: %w", err)
	}
	return nil
}

// AggregateStep folds the verdicts into run statistics.
type AggregateStep struct{}

// NewAggregateStep creates a new AggregateStep.
func NewAggregateStep() *AggregateStep {
	return &AggregateStep{}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do executes the aggregate step.
func (s *AggregateStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Stats = model.Fold(report.VerdictList())
	report.Summary = report.Stats.Derive()
	return nil
}

// MetricsStep exports the run as Prometheus metrics.
type MetricsStep struct {
	recorder *metrics.Recorder
	path     string
}

// NewMetricsStep creates a step that records into recorder and, when path
// is not empty, writes a textfile there.
func NewMetricsStep(recorder *metrics.Recorder, path string) *MetricsStep {
	return &MetricsStep{recorder: recorder, path: path}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Do executes the metrics step.
func (s *MetricsStep) Do(_ context.Context, report *model.AuditReport) error {
	for i, fr := range report.Verdicts {
		var latency time.Duration
		if i < len(report.Outcomes) {
			latency = report.Outcomes[i].Latency()
		}
		s.recorder.ObserveProbe(fr.Verdict.Status(), latency)
	}
	s.recorder.ObserveRun(report.Stats, time.Now())

	if s.path == "" {
		return nil
	}
	return s.recorder.WriteTextfile(s.path)
}

// DefaultPipelineConfig holds the collaborators of the default pipeline
// that do not come from config.Config.
type DefaultPipelineConfig struct {
	// Progress is called once per completed probe.
	Progress ProgressFunc

	// Recorder receives metrics. A recorder is created when MetricsFile is
	// set and none was supplied.
	Recorder *metrics.Recorder
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineProgress sets the progress callback.
func WithPipelineProgress(fn ProgressFunc) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Progress = fn
	}
}

// WithPipelineRecorder sets the metrics recorder.
func WithPipelineRecorder(r *metrics.Recorder) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Recorder = r
	}
}

// DefaultPipeline creates the standard audit pipeline from cfg:
// catalog, expand, probe, classify, diagnostics, aggregate and,
// when metrics are requested, metrics.
func DefaultPipeline(client *http.Client, cfg *config.Config, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	pc := &DefaultPipelineConfig{}
	for _, opt := range configOpts {
		opt(pc)
	}

	prober := probe.NewHTTPProber(cfg.BaseURL,
		probe.WithClient(client),
		probe.WithCookie(cfg.Cookie),
		probe.WithCacheHeader(cfg.CacheHeader),
		probe.WithUserAgent(cfg.UserAgent),
		probe.WithMaxBodySize(cfg.MaxBodySize),
		probe.WithLogger(p.logger),
	)
	classifier := classify.New(
		classify.WithMarker(cfg.WallMarker),
		classify.WithWallDir(cfg.WallDir),
	)
	scheduler := NewScheduler(prober,
		WithConcurrency(cfg.Concurrency),
		WithGuard(classifier.Check),
		WithProgress(pc.Progress),
		WithSchedulerLogger(p.logger),
	)

	p.AddSteps(
		NewCatalogStep(catalog.NewSource(cfg.CatalogURL, client), p.logger),
		NewExpandStep(),
		NewProbeStep(scheduler),
		NewClassifyStep(classifier, p.logger),
		NewDiagnosticsStep(p.logger),
		NewAggregateStep(),
	)

	if pc.Recorder == nil && cfg.MetricsFile != "" {
		pc.Recorder = metrics.NewRecorder()
	}
	if pc.Recorder != nil {
		p.AddStep(NewMetricsStep(pc.Recorder, cfg.MetricsFile))
	}
	return p
}
