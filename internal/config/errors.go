package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoCatalog is returned when no catalog location is configured.
	ErrNoCatalog = errors.New("no catalog specified: set catalog_url or use --catalog")

	// ErrNoBaseURL is returned when the delivery host is empty.
	ErrNoBaseURL = errors.New("no base URL specified: set base_url or use --base-url")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNoCacheHeader is returned when the cache-status header name is empty.
	ErrNoCacheHeader = errors.New("no cache header specified")

	// ErrNoWallMarker is returned when the wall marker is empty. An empty marker
	// would match every HTML page and make every wall fatal.
	ErrNoWallMarker = errors.New("no wall marker specified")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")
)
