package model

import "time"

// AuditReport is the result of one audit run.
// It is created before the pipeline starts and filled in by each step.
type AuditReport struct {
	// === Run Parameters ===

	// Mode is the variant selector used for expansion.
	Mode CheckMode `json:"mode"`

	// CatalogSource is the URL or path the catalog was read from.
	CatalogSource string `json:"catalog_source"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at"`

	// === Intermediate State ===
	// Not serialized: they are large and only live for the duration of the run.

	// Entries is the decoded catalog.
	Entries []CatalogEntry `json:"-"`

	// Targets is the expanded probe target list in catalog order.
	Targets []string `json:"-"`

	// Outcomes holds one raw probe outcome per completed probe,
	// in completion order.
	Outcomes []Outcome `json:"-"`

	// Verdicts holds one classified verdict per outcome, in the same order.
	// Duplicate targets appear once per probe here but only once in Results.
	Verdicts []FileResult `json:"-"`

	// === Results ===

	// Results maps each target to its verdict.
	Results ResultSet `json:"-"`

	// Stats are the folded counters.
	Stats RunStats `json:"stats"`

	// Summary is derived from Stats.
	Summary Summary `json:"summary"`

	// Aborted is true when the run stopped early (auth wall or cancellation).
	Aborted bool `json:"aborted,omitempty"`

	// ErrorMessage is the reason the run stopped early, if any.
	ErrorMessage string `json:"error,omitempty"`
}

// NewAuditReport creates an empty report for the given mode and catalog source.
func NewAuditReport(mode CheckMode, catalogSource string) *AuditReport {
	return &AuditReport{
		Mode:          mode,
		CatalogSource: catalogSource,
		StartedAt:     time.Now(),
		Results:       NewResultSet(),
	}
}

// Elapsed returns the run duration, or zero if the run has not finished.
func (r *AuditReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Record stores a classified verdict for a target.
func (r *AuditReport) Record(target string, v Verdict) {
	r.Verdicts = append(r.Verdicts, FileResult{Target: target, Verdict: v})
	r.Results.Put(target, v)
}

// VerdictList returns the verdicts of every probe, duplicates included.
func (r *AuditReport) VerdictList() []Verdict {
	verdicts := make([]Verdict, len(r.Verdicts))
	for i, fr := range r.Verdicts {
		verdicts[i] = fr.Verdict
	}
	return verdicts
}

// Walls returns the HTML wall anomalies in target order.
func (r *AuditReport) Walls() []FileResult {
	var walls []FileResult
	for _, fr := range r.Results.Sorted() {
		if fr.Verdict.Status() == StatusAnomaly {
			walls = append(walls, fr)
		}
	}
	return walls
}
