package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultCatalogURL is the metadata catalog of the asset fleet.
	DefaultCatalogURL = "https://files.byrdocs.org/metadata2.json"

	// DefaultBaseURL is the delivery host. Assets are served from <base>/files/<name>.
	DefaultBaseURL = "https://byrdocs.org"

	// DefaultConcurrency is the number of probes in flight at once.
	DefaultConcurrency = 20

	// DefaultTimeout bounds a single HTTP exchange so a stalled edge
	// becomes an ERROR verdict instead of a hang.
	DefaultTimeout = 60 * time.Second

	// DefaultCacheHeader is the CDN cache-status response header.
	DefaultCacheHeader = "cf-cache-status"

	// DefaultWallMarker is the text of the notice the asset host serves to
	// clients outside the campus network.
	DefaultWallMarker = "您没有使用北邮校园网(IPv6)访问本站"

	// DefaultWallDir is where HTML wall pages are saved.
	DefaultWallDir = "."

	// DefaultUserAgent identifies cachescan in HTTP requests.
	DefaultUserAgent = "cachescan/1.0 (+https://github.com/nao1215/cachescan)"

	// DefaultMaxBodySize limits how much of an HTML wall page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "cachescan"

	// CookieEnv is the environment variable read when --cookie is not given.
	CookieEnv = "CACHESCAN_COOKIE"
)

// Config holds all options for one audit run.
// It is populated from the config file and CLI flags and passed down explicitly.
type Config struct {
	// CatalogURL is the catalog location: an http(s) URL or a local file path.
	CatalogURL string

	// BaseURL is the delivery host URL without trailing slash.
	BaseURL string

	// Cookie is the opaque credential sent as the Cookie header.
	// Empty means no credential.
	Cookie string

	// Concurrency is the maximum number of probes in flight.
	Concurrency int

	// Timeout bounds each HTTP exchange.
	Timeout time.Duration

	// CacheHeader is the name of the CDN cache-status header.
	CacheHeader string

	// WallMarker is the text that identifies the unauthenticated wall page.
	WallMarker string

	// WallDir is the directory HTML wall pages are written to.
	WallDir string

	// UserAgent is the User-Agent header sent with probes.
	UserAgent string

	// MaxBodySize is the maximum number of bytes read from an HTML page.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// MetricsFile writes Prometheus metrics in textfile format when set.
	MetricsFile string

	// NoProgress disables the progress bar.
	NoProgress bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		CatalogURL:  DefaultCatalogURL,
		BaseURL:     DefaultBaseURL,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		CacheHeader: DefaultCacheHeader,
		WallMarker:  DefaultWallMarker,
		WallDir:     DefaultWallDir,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// HasCredential reports whether a credential was supplied.
func (c *Config) HasCredential() bool {
	return c.Cookie != ""
}

// Apply overrides fields with the non-zero values from a config file.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	if f.CatalogURL != "" {
		c.CatalogURL = f.CatalogURL
	}
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.Cookie != "" {
		c.Cookie = f.Cookie
	}
	if f.Concurrency > 0 {
		c.Concurrency = f.Concurrency
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.CacheHeader != "" {
		c.CacheHeader = f.CacheHeader
	}
	if f.WallMarker != "" {
		c.WallMarker = f.WallMarker
	}
	if f.WallDir != "" {
		c.WallDir = f.WallDir
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxBodySize > 0 {
		c.MaxBodySize = f.MaxBodySize
	}
}

// XDGConfigDir returns the XDG config directory for cachescan.
// On Linux: ~/.config/cachescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return ErrNoCatalog
	}
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CacheHeader == "" {
		return ErrNoCacheHeader
	}
	if c.WallMarker == "" {
		return ErrNoWallMarker
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
