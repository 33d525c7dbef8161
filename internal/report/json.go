package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/cachescan/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport is the serialized report: run metadata and statistics from
// the AuditReport plus the sorted per-file results.
type jsonReport struct {
	*model.AuditReport
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	Results        []model.FileResult `json:"results"`
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	out := jsonReport{
		AuditReport:    report,
		ElapsedSeconds: report.Elapsed().Seconds(),
		Results:        report.Results.Sorted(),
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(out, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
