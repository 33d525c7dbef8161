// Package pipeline runs an audit as a sequence of steps over a shared
// model.AuditReport: load the catalog, expand it into probe targets, probe
// every target, classify the outcomes, save diagnostics, and fold statistics.
//
// Probing is the only concurrent step. The Scheduler fans probes out with
// errgroup under a fixed concurrency limit and cancels the whole group as soon
// as its guard reports a fatal outcome.
package pipeline
