package model

import "math"

// RunStats holds fleet-wide counters for one audit run.
//
// Total counts every verdict. Hit, Miss and Unknown are the cache buckets;
// ProbeError verdicts count as Unknown. HTML wall anomalies are counted in
// Total and in Anomaly only, so Hit+Miss+Unknown is smaller than Total when
// anomalies occur.
type RunStats struct {
	Total           int    `json:"total"`
	Hit             int    `json:"hit"`
	Miss            int    `json:"miss"`
	Unknown         int    `json:"unknown"`
	Anomaly         int    `json:"anomaly"`
	TotalAgeSeconds uint64 `json:"total_age_seconds"`
}

// Add folds a single verdict into the counters.
func (s *RunStats) Add(v Verdict) {
	s.Total++

	switch v := v.(type) {
	case Hit:
		s.Hit++
		if v.AgeKnown {
			s.TotalAgeSeconds += v.AgeSeconds
		}
	case Miss:
		s.Miss++
	case Unknown, ProbeError:
		s.Unknown++
	case AnomalyHTMLWall:
		s.Anomaly++
	}
}

// Fold computes RunStats over a sequence of verdicts.
func Fold(verdicts []Verdict) RunStats {
	var s RunStats
	for _, v := range verdicts {
		s.Add(v)
	}
	return s
}

// CacheRatio returns round(hit/total*100). ok is false when nothing was probed.
func (s RunStats) CacheRatio() (pct int, ok bool) {
	if s.Total == 0 {
		return 0, false
	}
	return int(math.Round(float64(s.Hit) / float64(s.Total) * 100)), true
}

// MeanHitAge returns the mean cache age of hits in seconds.
// Hits without a valid age contribute zero. ok is false when there are no hits.
func (s RunStats) MeanHitAge() (seconds uint64, ok bool) {
	if s.Hit == 0 {
		return 0, false
	}
	return s.TotalAgeSeconds / uint64(s.Hit), true
}

// Summary is the derived view of RunStats.
type Summary struct {
	CacheRatioPct     *int    `json:"cache_ratio_pct,omitempty"`
	MeanHitAgeSeconds *uint64 `json:"mean_hit_age_seconds,omitempty"`
}

// Derive computes the Summary, omitting metrics that are undefined.
func (s RunStats) Derive() Summary {
	var sum Summary
	if pct, ok := s.CacheRatio(); ok {
		sum.CacheRatioPct = &pct
	}
	if age, ok := s.MeanHitAge(); ok {
		sum.MeanHitAgeSeconds = &age
	}
	return sum
}
