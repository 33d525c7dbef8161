package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/cachescan/internal/config"
	"github.com/nao1215/cachescan/internal/model"
)

// filesPath is the path prefix assets are served under on the delivery host.
const filesPath = "/files/"

// HTTPProber probes asset URLs on the delivery host.
// It is safe for concurrent use.
type HTTPProber struct {
	client      *http.Client
	baseURL     string
	cookie      string
	cacheHeader string
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures an HTTPProber.
type Option func(*HTTPProber)

// WithClient sets the HTTP client. The client's Timeout bounds each exchange.
func WithClient(client *http.Client) Option {
	return func(p *HTTPProber) {
		if client != nil {
			p.client = client
		}
	}
}

// WithCookie sets the credential sent as the Cookie header.
func WithCookie(cookie string) Option {
	return func(p *HTTPProber) {
		p.cookie = cookie
	}
}

// WithCacheHeader sets the name of the CDN cache-status header.
func WithCacheHeader(name string) Option {
	return func(p *HTTPProber) {
		if name != "" {
			p.cacheHeader = name
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *HTTPProber) {
		p.userAgent = ua
	}
}

// WithMaxBodySize limits how much of an HTML page is read.
func WithMaxBodySize(size int64) Option {
	return func(p *HTTPProber) {
		if size > 0 {
			p.maxBodySize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *HTTPProber) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewHTTPProber creates a prober for assets under baseURL.
func NewHTTPProber(baseURL string, opts ...Option) *HTTPProber {
	p := &HTTPProber{
		client:      &http.Client{Timeout: config.DefaultTimeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		cacheHeader: config.DefaultCacheHeader,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the delivery URL of a target.
func (p *HTTPProber) URL(target string) string {
	return p.baseURL + filesPath + url.PathEscape(target)
}

// Probe sends a HEAD request for the target and records the response metadata.
// When the response is HTML, the page body is fetched with a GET.
func (p *HTTPProber) Probe(ctx context.Context, target string) model.Outcome {
	start := time.Now()
	assetURL := p.URL(target)

	resp, err := p.do(ctx, http.MethodHead, assetURL)
	if err != nil {
		p.logger.Debug("probe failed", "target", target, "error", err)
		return &model.Failure{Name: target, Reason: err.Error(), Elapsed: time.Since(start)}
	}
	resp.Body.Close()

	out := &model.Response{
		Name:          target,
		StatusCode:    resp.StatusCode,
		ContentType:   headerField(resp.Header, "Content-Type"),
		CacheStatus:   headerField(resp.Header, p.cacheHeader),
		Age:           headerField(resp.Header, "Age"),
		Authenticated: p.cookie != "",
	}

	if out.IsHTML() {
		p.logger.Warn("html page served in place of asset", "target", target, "status", resp.StatusCode)
		out.Page = p.fetchPage(ctx, assetURL)
	}

	out.Elapsed = time.Since(start)
	p.logger.Debug("probe completed",
		"target", target,
		"status", out.StatusCode,
		"cache_status", out.CacheStatus.Value,
		"age", out.Age.Value,
		"elapsed", out.Elapsed,
	)
	return out
}

// do issues a request carrying the credential and User-Agent.
// The Cookie header is always sent, empty when no credential was supplied.
func (p *HTTPProber) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cookie", p.cookie)
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	return p.client.Do(req)
}

// headerField reads the first value of a header with presence tracking.
func headerField(h http.Header, name string) model.HeaderField {
	values := h.Values(name)
	if len(values) == 0 {
		return model.HeaderField{}
	}
	return model.Field(values[0])
}
