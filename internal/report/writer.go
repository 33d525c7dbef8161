package report

import (
	"io"

	"github.com/nao1215/cachescan/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)
}

// Format selects a report format.
type Format int

const (
	// FormatSimple is the colored console report.
	FormatSimple Format = iota
	// FormatJSON is the JSON report.
	FormatJSON
	// FormatMarkdown is the Markdown report.
	FormatMarkdown
)

// NewWriter returns the writer for format. Options are passed to the
// SimpleWriter and ignored by the other formats.
func NewWriter(output io.Writer, format Format, opts ...SimpleWriterOption) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output, opts...)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText returns a one-line run status.
func statusText(report *model.AuditReport) string {
	if report.Aborted {
		if report.ErrorMessage != "" {
			return "aborted: " + report.ErrorMessage
		}
		return "aborted"
	}
	return "complete"
}

// wallGroup is a set of targets that were served the same HTML page.
type wallGroup struct {
	fingerprint string
	title       string
	size        int
	targets     []string
}

// groupWalls groups wall anomalies by page fingerprint, in first-seen target order.
func groupWalls(walls []model.FileResult) []wallGroup {
	var groups []wallGroup
	index := make(map[string]int)
	for _, fr := range walls {
		wall, ok := fr.Verdict.(model.AnomalyHTMLWall)
		if !ok {
			continue
		}
		i, seen := index[wall.Fingerprint]
		if !seen {
			i = len(groups)
			index[wall.Fingerprint] = i
			groups = append(groups, wallGroup{
				fingerprint: wall.Fingerprint,
				title:       wall.Title,
				size:        wall.Size,
			})
		}
		groups[i].targets = append(groups[i].targets, fr.Target)
	}
	return groups
}
