package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/cachescan/internal/classify"
	"github.com/nao1215/cachescan/internal/config"
	cslog "github.com/nao1215/cachescan/internal/log"
	"github.com/nao1215/cachescan/internal/model"
	"github.com/nao1215/cachescan/internal/pipeline"
	"github.com/nao1215/cachescan/internal/report"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [webp|jpg|file|all]",
		Short: "Check the CDN cache state of every catalog asset",
		Long: `Check loads the metadata catalog, probes every asset variant selected by the
mode, and reports the CDN cache verdict of each file plus overall statistics.

Modes:
  file   original files only
  jpg    JPEG previews of PDF files
  webp   WebP previews of PDF files
  all    original files and, for PDFs, both previews (default)

The asset host answers unauthenticated clients with an HTML notice instead of
the file. When that happens without a credential the run stops immediately;
pass one with --cookie or the CACHESCAN_COOKIE environment variable.

Examples:
  # Check every variant
  cachescan check --cookie "token=..."

  # Check only WebP previews with 50 probes in flight
  cachescan check webp -n 50

  # Write a Markdown report and Prometheus metrics
  cachescan check -m -o report.md --metrics-file /var/lib/node_exporter/cachescan.prom`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"webp", "jpg", "file", "all"},
		RunE:      runCheckCmd,
	}

	cmd.Flags().StringP("cookie", "c", "",
		"Credential sent as the Cookie header (default: $"+config.CookieEnv+")")
	cmd.Flags().StringP("config", "C", "",
		"Configuration file path (default: .cachescan in current or home directory)")

	// Probe behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of probes in flight at once")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP exchange")
	cmd.Flags().String("catalog", config.DefaultCatalogURL,
		"Catalog URL or local JSON file")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Delivery host URL; assets are probed at <base-url>/files/<name>")
	cmd.Flags().String("wall-dir", config.DefaultWallDir,
		"Directory HTML pages served in place of assets are saved to")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in textfile format to this path")
	cmd.Flags().Bool("no-progress", false,
		"Disable the progress bar")
	cmd.Flags().Bool("summary-only", false,
		"Omit per-file results from the console report")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(args)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	summaryOnly, err := cmd.Flags().GetBool("summary-only")
	if err != nil {
		return err
	}

	return runCheck(ctx, cfg, mode, logger, cmd.ErrOrStderr(), summaryOnly)
}

// parseMode reads the optional positional mode argument.
func parseMode(args []string) (model.CheckMode, error) {
	if len(args) == 0 {
		return model.CheckModeAll, nil
	}
	return model.ParseCheckMode(args[0])
}

// buildConfig creates a Config from the config file, the environment and flags,
// in increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly given config file must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(f)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if cookie := os.Getenv(config.CookieEnv); cookie != "" {
		cfg.Cookie = cookie
	}

	if flags.Changed("cookie") {
		if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("catalog") {
		if cfg.CatalogURL, err = flags.GetString("catalog"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("wall-dir") {
		if cfg.WallDir, err = flags.GetString("wall-dir"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.NoProgress, err = flags.GetBool("no-progress"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	return cfg, nil
}

// getBoolFlag retrieves a boolean flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the credential-masking logger.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	if getBoolFlag(cmd, "log-json") {
		return cslog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return cslog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// runCheck executes the audit and writes the report.
func runCheck(ctx context.Context, cfg *config.Config, mode model.CheckMode, logger *slog.Logger, progressOut io.Writer, summaryOnly bool) error {
	logger.Info("starting audit",
		"mode", mode,
		"catalog", cfg.CatalogURL,
		"base_url", cfg.BaseURL,
		"concurrency", cfg.Concurrency,
		"authenticated", cfg.HasCredential(),
	)
	if !cfg.HasCredential() {
		logger.Warn("no credential supplied; the asset host may refuse the audit",
			"hint", "use --cookie or "+config.CookieEnv)
	}

	client := &http.Client{Timeout: cfg.Timeout}

	var configOpts []pipeline.DefaultPipelineOption
	var bar *progress
	if !cfg.NoProgress {
		bar = newProgress(progressOut)
		configOpts = append(configOpts, pipeline.WithPipelineProgress(bar.Tick))
	}

	p := pipeline.DefaultPipeline(client, cfg, []pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
	auditReport := model.NewAuditReport(mode, cfg.CatalogURL)

	err := p.Execute(ctx, auditReport)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if errors.Is(err, classify.ErrAuthWall) {
			return fmt.Errorf("%w; use --cookie or set %s to supply a credential", err, config.CookieEnv)
		}
		if errors.Is(err, context.Canceled) {
			return errors.New("audit interrupted")
		}
		return err
	}

	return outputReport(cfg, auditReport, summaryOnly)
}

// outputReport writes the report in the requested format to stdout or the output file.
func outputReport(cfg *config.Config, auditReport *model.AuditReport, summaryOnly bool) error {
	var output io.Writer = os.Stdout
	toFile := false
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
		toFile = true
	}

	format := report.FormatSimple
	switch {
	case cfg.JSONReport:
		format = report.FormatJSON
	case cfg.MarkdownReport:
		format = report.FormatMarkdown
	}

	opts := []report.SimpleWriterOption{report.WithSummaryOnly(summaryOnly)}
	if toFile {
		opts = append(opts, report.WithColor(false))
	}

	_, err := report.NewWriter(output, format, opts...).Write(auditReport)
	return err
}

// progress renders a progress bar sized on the first completed probe,
// since the number of targets is only known once the catalog is expanded.
type progress struct {
	out  io.Writer
	once sync.Once
	bar  *progressbar.ProgressBar
}

func newProgress(out io.Writer) *progress {
	return &progress{out: out}
}

// Tick records one completed probe. It is safe for concurrent use.
func (p *progress) Tick(_, total int) {
	p.once.Do(func() {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("probing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	})
	_ = p.bar.Add(1) //nolint:errcheck
}

// Finish clears the bar. Call after all probes have resolved.
func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish() //nolint:errcheck
	}
}
