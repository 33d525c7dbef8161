package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestNewAuditReport tests report construction.
func TestNewAuditReport(t *testing.T) {
	t.Parallel()

	before := time.Now()
	report := NewAuditReport(CheckModeJpg, "catalog.json")

	if report.Mode != CheckModeJpg {
		t.Errorf("expected mode jpg, got %s", report.Mode)
	}
	if report.CatalogSource != "catalog.json" {
		t.Errorf("expected catalog source, got %q", report.CatalogSource)
	}
	if report.StartedAt.Before(before) {
		t.Error("expected StartedAt to be set")
	}
	if report.Results == nil {
		t.Fatal("expected Results to be initialized")
	}
	if report.Elapsed() != 0 {
		t.Errorf("expected zero elapsed before finish, got %s", report.Elapsed())
	}
}

// TestAuditReportRecord tests that duplicate targets keep the last verdict
// while every probe stays in the verdict list.
func TestAuditReportRecord(t *testing.T) {
	t.Parallel()

	report := NewAuditReport(CheckModeAll, "")
	report.Record("a.pdf", Miss{})
	report.Record("a.pdf", Hit{AgeSeconds: 4, AgeKnown: true})
	report.Record("b.zip", AnomalyHTMLWall{Path: "b.zip.html"})

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if got := report.Results["a.pdf"]; got.Status() != StatusHit {
		t.Errorf("expected last write to win, got %s", got)
	}
	if len(report.VerdictList()) != 3 {
		t.Errorf("expected 3 verdicts, got %d", len(report.VerdictList()))
	}

	walls := report.Walls()
	if len(walls) != 1 || walls[0].Target != "b.zip" {
		t.Errorf("expected one wall for b.zip, got %+v", walls)
	}
}

// TestResultSetSorted tests deterministic ordering.
func TestResultSetSorted(t *testing.T) {
	t.Parallel()

	rs := NewResultSet()
	rs.Put("c.pdf", Miss{})
	rs.Put("a.pdf", Miss{})
	rs.Put("b.pdf", Hit{})

	sorted := rs.Sorted()
	names := make([]string, len(sorted))
	for i, r := range sorted {
		names[i] = r.Target
	}
	if strings.Join(names, ",") != "a.pdf,b.pdf,c.pdf" {
		t.Errorf("unexpected order: %v", names)
	}

	counts := rs.CountByStatus()
	if counts[StatusMiss] != 2 || counts[StatusHit] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

// TestVerdictString tests the console forms of each verdict.
func TestVerdictString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		verdict Verdict
		status  Status
		want    string
	}{
		{Hit{AgeSeconds: 90065, AgeKnown: true}, StatusHit, "HIT (age: 1d1h)"},
		{Hit{}, StatusHit, "HIT"},
		{Miss{}, StatusMiss, "MISS"},
		{Unknown{Detail: "EXPIRED"}, StatusUnknown, "UNKNOWN: EXPIRED"},
		{ProbeError{Detail: "connection refused"}, StatusError, "ERROR: connection refused"},
		{AnomalyHTMLWall{Path: "x.pdf.html"}, StatusAnomaly, "ANOMALY: html page saved as x.pdf.html"},
		{AnomalyHTMLWall{Path: "x.pdf.html", Title: "Login"}, StatusAnomaly, `ANOMALY: html page "Login" saved as x.pdf.html`},
	}

	for _, tt := range tests {
		if tt.verdict.Status() != tt.status {
			t.Errorf("%#v: status = %s, want %s", tt.verdict, tt.verdict.Status(), tt.status)
		}
		if got := tt.verdict.String(); got != tt.want {
			t.Errorf("%#v: String() = %q, want %q", tt.verdict, got, tt.want)
		}
	}
}

// TestFileResultMarshalJSON tests the flattened JSON form.
func TestFileResultMarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("hit with age", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(FileResult{Target: "a.pdf", Verdict: Hit{AgeSeconds: 0, AgeKnown: true}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), `"age_seconds":0`) {
			t.Errorf("expected explicit zero age, got %s", data)
		}
		if !strings.Contains(string(data), `"status":"HIT"`) {
			t.Errorf("expected HIT status, got %s", data)
		}
	})

	t.Run("hit without age omits it", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(FileResult{Target: "a.pdf", Verdict: Hit{}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(string(data), "age_seconds") {
			t.Errorf("expected no age, got %s", data)
		}
	})

	t.Run("wall carries path", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(FileResult{
			Target:  "a.pdf",
			Verdict: AnomalyHTMLWall{Path: "a.pdf.html", Fingerprint: "abc", Size: 12},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{`"status":"ANOMALY"`, `"path":"a.pdf.html"`, `"fingerprint":"abc"`, `"size":12`} {
			if !strings.Contains(string(data), want) {
				t.Errorf("expected %s in %s", want, data)
			}
		}
	})
}
