package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nao1215/cachescan/internal/model"
)

// SimpleWriter outputs the console report: every target with its verdict,
// sorted by name, followed by the run statistics.
type SimpleWriter struct {
	baseWriter

	// colored forces ANSI colors on or off.
	colored bool

	// hideResults omits the per-file section.
	hideResults bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithColor enables or disables ANSI colors.
// The default follows color.NoColor (off when output is not a terminal).
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colored = enabled
	}
}

// WithSummaryOnly omits the per-file results.
func WithSummaryOnly(summaryOnly bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.hideResults = summaryOnly
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		colored:    !color.NoColor,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// paint returns a color.Color that honours the writer's color setting.
func (w *SimpleWriter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if w.colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	if !w.hideResults {
		w.writeResults(&sb, report)
	}
	w.writeWalls(&sb, report)
	w.writeStats(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeResults writes one line per target.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.AuditReport) {
	heading := w.paint(color.FgBlue, color.Bold)
	sb.WriteString("\n")
	sb.WriteString(heading.Sprint("Detailed results:"))
	sb.WriteString("\n")

	for _, fr := range report.Results.Sorted() {
		fmt.Fprintf(sb, "  %s: %s\n", fr.Target, w.verdictText(fr.Verdict))
	}
}

// verdictText colors a verdict by status.
func (w *SimpleWriter) verdictText(v model.Verdict) string {
	switch v.Status() {
	case model.StatusHit:
		return w.paint(color.FgGreen).Sprint(v.String())
	case model.StatusMiss:
		return w.paint(color.FgRed).Sprint(v.String())
	case model.StatusAnomaly:
		return w.paint(color.FgMagenta).Sprint(v.String())
	default:
		return w.paint(color.FgYellow).Sprint(v.String())
	}
}

// writeWalls lists the HTML pages served in place of assets, grouped by content.
func (w *SimpleWriter) writeWalls(sb *strings.Builder, report *model.AuditReport) {
	groups := groupWalls(report.Walls())
	if len(groups) == 0 {
		return
	}

	heading := w.paint(color.FgMagenta, color.Bold)
	sb.WriteString("\n")
	sb.WriteString(heading.Sprint("HTML pages served in place of assets:"))
	sb.WriteString("\n")

	for _, g := range groups {
		title := g.title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(sb, "  [%s] %q, %s, %s\n",
			g.fingerprint, title,
			humanize.Bytes(uint64(g.size)), //nolint:gosec // size is a non-negative length
			pluralize(len(g.targets), "target"),
		)
		for _, target := range g.targets {
			fmt.Fprintf(sb, "    - %s\n", target)
		}
	}
}

// writeStats writes the fleet-wide statistics.
func (w *SimpleWriter) writeStats(sb *strings.Builder, report *model.AuditReport) {
	heading := w.paint(color.FgBlue, color.Bold)
	stats := report.Stats

	sb.WriteString("\n")
	sb.WriteString(heading.Sprint("Statistics:"))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Total files:     %s\n", humanize.Comma(int64(stats.Total)))
	fmt.Fprintf(sb, "  Cached:          %s\n", humanize.Comma(int64(stats.Hit)))
	fmt.Fprintf(sb, "  Uncached:        %s\n", humanize.Comma(int64(stats.Miss)))
	fmt.Fprintf(sb, "  Unknown:         %s\n", humanize.Comma(int64(stats.Unknown)))
	if stats.Anomaly > 0 {
		fmt.Fprintf(sb, "  HTML anomalies:  %s\n", humanize.Comma(int64(stats.Anomaly)))
	}

	if ratio, ok := stats.CacheRatio(); ok {
		fmt.Fprintf(sb, "  Cache ratio:     %d%%\n", ratio)
		if age, ok := stats.MeanHitAge(); ok {
			fmt.Fprintf(sb, "  Mean cache age:  %s\n", model.FormatDuration(age))
		}
	}

	if elapsed := report.Elapsed(); elapsed > 0 {
		fmt.Fprintf(sb, "  Elapsed:         %s\n", elapsed.Round(time.Millisecond))
	}
	if report.Aborted {
		fmt.Fprintf(sb, "  Status:          %s\n", w.paint(color.FgRed).Sprint(statusText(report)))
	}
}

// pluralize formats a count with a noun.
func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
