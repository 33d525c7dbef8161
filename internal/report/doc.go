// Package report renders a finished audit.
//
// This package contains writers for different output formats:
//   - SimpleWriter: colored console output with per-file results and statistics
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: Markdown with tables and a mermaid chart for sharing
//
// Writers implement the Writer interface and read only the finished
// model.AuditReport.
package report
