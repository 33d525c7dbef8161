package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/cachescan/internal/model"
)

// Cache ratio thresholds for the summary alert.
const (
	healthyCacheRatio  = 90
	degradedCacheRatio = 50
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStats(md, report)
	w.writeWalls(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Cache Audit Report")
	md.PlainText("")

	status := "✅ Complete"
	if report.Aborted {
		status = "❌ " + statusText(report)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Catalog", "`" + report.CatalogSource + "`"},
			{"Mode", "`" + report.Mode.String() + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed().Round(time.Millisecond).String()},
			{"Status", status},
		},
	})
	md.PlainText("")
}

// writeStats writes the statistics table, chart and alert.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, report *model.AuditReport) {
	stats := report.Stats

	md.H2("Statistics")
	md.PlainText("")

	rows := [][]string{
		{"Total files", humanize.Comma(int64(stats.Total))},
		{"🟢 Cached", humanize.Comma(int64(stats.Hit))},
		{"🔴 Uncached", humanize.Comma(int64(stats.Miss))},
		{"🟡 Unknown", humanize.Comma(int64(stats.Unknown))},
		{"🟣 HTML anomalies", humanize.Comma(int64(stats.Anomaly))},
	}
	if ratio, ok := stats.CacheRatio(); ok {
		rows = append(rows, []string{"**Cache ratio**", "**" + strconv.Itoa(ratio) + "%**"})
	}
	if age, ok := stats.MeanHitAge(); ok {
		rows = append(rows, []string{"Mean cache age", model.FormatDuration(age)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if stats.Total > 0 {
		w.writePieChart(md, stats)
	}
	w.writeAlert(md, stats)
}

// writePieChart writes a mermaid pie chart of the verdict distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, stats model.RunStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Cache Verdicts"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		count int
	}{
		{"Hit", stats.Hit},
		{"Miss", stats.Miss},
		{"Unknown", stats.Unknown},
		{"Anomaly", stats.Anomaly},
	}
	for _, s := range slices {
		if s.count > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.count)) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert keyed on the cache ratio.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, stats model.RunStats) {
	ratio, ok := stats.CacheRatio()
	switch {
	case !ok:
		md.Note("No files were probed.")
	case stats.Anomaly > 0:
		md.Cautionf(
			"%d file(s) were answered with an HTML page instead of the asset.",
			stats.Anomaly,
		)
	case ratio >= healthyCacheRatio:
		md.Tip(fmt.Sprintf("%d%% of files are served from cache.", ratio))
	case ratio >= degradedCacheRatio:
		md.Importantf("Only %d%% of files are served from cache.", ratio)
	default:
		md.Warningf("Only %d%% of files are served from cache; most requests reach the origin.", ratio)
	}
	md.PlainText("")
}

// writeWalls writes the HTML pages grouped by content.
func (w *MarkdownWriter) writeWalls(md *markdown.Markdown, report *model.AuditReport) {
	groups := groupWalls(report.Walls())
	if len(groups) == 0 {
		return
	}

	md.H2("HTML Pages")
	md.PlainText("")

	rows := make([][]string, len(groups))
	for i, g := range groups {
		title := g.title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			"`" + g.fingerprint + "`",
			truncateString(title, 50),
			humanize.Bytes(uint64(g.size)), //nolint:gosec // size is a non-negative length
			strconv.Itoa(len(g.targets)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Fingerprint", "Title", "Size", "Targets"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeResults writes one row per target.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Results")
	md.PlainText("")

	results := report.Results.Sorted()
	if len(results) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(results))
	for i, fr := range results {
		rows[i] = []string{"`" + fr.Target + "`", string(fr.Verdict.Status()), detailText(fr.Verdict)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Status", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// detailText returns the verdict's detail column.
func detailText(v model.Verdict) string {
	switch v := v.(type) {
	case model.Hit:
		if v.AgeKnown {
			return "age " + model.FormatDuration(v.AgeSeconds)
		}
	case model.Unknown:
		return truncateString(v.Detail, 60)
	case model.ProbeError:
		return truncateString(v.Detail, 60)
	case model.AnomalyHTMLWall:
		return "saved as `" + v.Path + "`"
	}
	return "-"
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [cachescan](https://github.com/nao1215/cachescan)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
