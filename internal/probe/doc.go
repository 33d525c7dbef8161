// Package probe performs the network side of a cache audit: one lightweight
// metadata request per target, plus a full fetch of any HTML page served in
// place of an asset.
//
// Probes never return errors. Transport failures are reported as
// *model.Failure outcomes so that one bad target cannot stop a run.
package probe
