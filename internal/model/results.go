package model

import "sort"

// ResultSet maps probe targets to their verdicts.
// A target recorded twice keeps the last verdict.
type ResultSet map[string]Verdict

// NewResultSet creates an empty ResultSet.
func NewResultSet() ResultSet {
	return make(ResultSet)
}

// Put records the verdict for a target, replacing any previous one.
func (rs ResultSet) Put(target string, v Verdict) {
	rs[target] = v
}

// Sorted returns the results ordered by target name.
func (rs ResultSet) Sorted() []FileResult {
	results := make([]FileResult, 0, len(rs))
	for target, v := range rs {
		results = append(results, FileResult{Target: target, Verdict: v})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Target < results[j].Target
	})
	return results
}

// CountByStatus returns how many targets fall into each status.
func (rs ResultSet) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, v := range rs {
		counts[v.Status()]++
	}
	return counts
}
