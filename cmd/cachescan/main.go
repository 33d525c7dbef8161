// Package main provides the entry point for the cachescan CLI.
//
// cachescan audits whether the assets listed in a metadata catalog are served
// from the CDN cache. It probes every asset variant, classifies the CDN's cache
// verdict, and reports per-file results with fleet-wide cache statistics.
//
// Usage:
//
//	cachescan check [webp|jpg|file|all] [--cookie <credential>]
//
// See --help for all available options.
package main

// main is the entry point for cachescan.
func main() {
	Execute()
}
