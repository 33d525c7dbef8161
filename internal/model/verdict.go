package model

import (
	"encoding/json"
	"fmt"
)

// Status is the coarse category of a Verdict.
type Status string

const (
	// StatusHit means the CDN served the target from cache.
	StatusHit Status = "HIT"

	// StatusMiss means the CDN fetched the target from origin.
	StatusMiss Status = "MISS"

	// StatusUnknown means the cache state could not be determined.
	StatusUnknown Status = "UNKNOWN"

	// StatusAnomaly means an HTML page was served in place of the asset.
	StatusAnomaly Status = "ANOMALY"

	// StatusError means the probe failed at the transport level.
	StatusError Status = "ERROR"
)

// Verdict is the classified cache verdict of one probe target.
// Implementations: Hit, Miss, Unknown, AnomalyHTMLWall, ProbeError.
type Verdict interface {
	// Status returns the verdict category.
	Status() Status

	// String returns the one-line form used in console reports.
	String() string

	isVerdict()
}

// Hit is a cache hit. AgeKnown is false when the Age header was missing or
// not a number; AgeSeconds is zero then.
type Hit struct {
	AgeSeconds uint64
	AgeKnown   bool
}

// Status implements Verdict.
func (Hit) Status() Status { return StatusHit }

func (h Hit) String() string {
	if !h.AgeKnown {
		return "HIT"
	}
	return fmt.Sprintf("HIT (age: %s)", FormatDuration(h.AgeSeconds))
}

func (Hit) isVerdict() {}

// Miss is a cache miss.
type Miss struct{}

// Status implements Verdict.
func (Miss) Status() Status { return StatusMiss }

func (Miss) String() string { return "MISS" }

func (Miss) isVerdict() {}

// Unknown is a response whose cache state could not be determined.
type Unknown struct {
	Detail string
}

// Status implements Verdict.
func (Unknown) Status() Status { return StatusUnknown }

func (u Unknown) String() string { return "UNKNOWN: " + u.Detail }

func (Unknown) isVerdict() {}

// AnomalyHTMLWall is an HTML page served in place of the asset,
// usually a login wall. The page is saved to Path for inspection.
type AnomalyHTMLWall struct {
	Path        string
	Title       string
	Fingerprint string
	Size        int
}

// Status implements Verdict.
func (AnomalyHTMLWall) Status() Status { return StatusAnomaly }

func (a AnomalyHTMLWall) String() string {
	if a.Title != "" {
		return fmt.Sprintf("ANOMALY: html page %q saved as %s", a.Title, a.Path)
	}
	return "ANOMALY: html page saved as " + a.Path
}

func (AnomalyHTMLWall) isVerdict() {}

// ProbeError is a transport failure.
type ProbeError struct {
	Detail string
}

// Status implements Verdict.
func (ProbeError) Status() Status { return StatusError }

func (e ProbeError) String() string { return "ERROR: " + e.Detail }

func (ProbeError) isVerdict() {}

// FileResult pairs a probe target with its verdict.
type FileResult struct {
	Target  string
	Verdict Verdict
}

// fileResultJSON is the serialized form of a FileResult.
type fileResultJSON struct {
	Target      string  `json:"target"`
	Status      Status  `json:"status"`
	AgeSeconds  *uint64 `json:"age_seconds,omitempty"`
	Detail      string  `json:"detail,omitempty"`
	Path        string  `json:"path,omitempty"`
	Title       string  `json:"title,omitempty"`
	Fingerprint string  `json:"fingerprint,omitempty"`
	Size        int     `json:"size,omitempty"`
}

// MarshalJSON flattens the verdict variant into a single object.
func (r FileResult) MarshalJSON() ([]byte, error) {
	out := fileResultJSON{Target: r.Target}
	if r.Verdict == nil {
		return json.Marshal(out)
	}
	out.Status = r.Verdict.Status()

	switch v := r.Verdict.(type) {
	case Hit:
		if v.AgeKnown {
			age := v.AgeSeconds
			out.AgeSeconds = &age
		}
	case Unknown:
		out.Detail = v.Detail
	case ProbeError:
		out.Detail = v.Detail
	case AnomalyHTMLWall:
		out.Path = v.Path
		out.Title = v.Title
		out.Fingerprint = v.Fingerprint
		out.Size = v.Size
	}
	return json.Marshal(out)
}
