// Package model defines the core data structures used throughout cachescan.
//
// This package contains the following main types:
//   - CatalogEntry and CheckMode: the catalog input and the variant selector
//   - Outcome: the raw result of one probe (Response or Failure)
//   - Verdict: the classified cache verdict of one probe target
//   - RunStats and Summary: fleet-wide counters and derived metrics
//   - AuditReport: the state threaded through one audit run
//
// Types that several packages (probe, classify, pipeline, report) exchange live here
// so that those packages never import each other for data definitions.
package model
