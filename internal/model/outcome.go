package model

import (
	"strings"
	"time"
)

// Outcome is the raw result of one probe. It is either a *Response or a *Failure;
// the set of implementations is closed by the unexported marker method.
type Outcome interface {
	// Target returns the probe target the outcome belongs to.
	Target() string

	// Latency returns how long the network exchange took.
	Latency() time.Duration

	isOutcome()
}

// HeaderField is a single response header value with presence tracking,
// so an absent header can be told apart from an empty one.
type HeaderField struct {
	Value   string
	Present bool
}

// Field builds a present HeaderField.
func Field(value string) HeaderField {
	return HeaderField{Value: value, Present: true}
}

// Page is the body of an HTML response, fetched with a secondary GET
// when the metadata request reports a text/html content type.
type Page struct {
	// Raw is the body exactly as served, truncated at the max body size.
	// It is what gets saved for inspection.
	Raw []byte

	// Body is Raw decoded to NFC-normalised UTF-8. The marker, title and
	// fingerprint are taken from it.
	Body []byte

	// Title is the contents of the <title> element, if any.
	Title string

	// Fingerprint is a short content hash used to group identical pages.
	Fingerprint string

	// Err holds the reason the secondary fetch failed; Raw and Body are empty then.
	Err string
}

// Response is a completed HTTP exchange.
type Response struct {
	// Name is the probe target.
	Name string

	// StatusCode is the HTTP status of the metadata request.
	StatusCode int

	// ContentType is the Content-Type header.
	ContentType HeaderField

	// CacheStatus is the CDN cache-status header (cf-cache-status by default).
	CacheStatus HeaderField

	// Age is the Age header in seconds, as sent.
	Age HeaderField

	// Authenticated reports whether the request carried a credential.
	Authenticated bool

	// Page is set when the response was HTML.
	Page *Page

	// Elapsed is the duration of the exchange.
	Elapsed time.Duration
}

// Target implements Outcome.
func (r *Response) Target() string { return r.Name }

// Latency implements Outcome.
func (r *Response) Latency() time.Duration { return r.Elapsed }

func (*Response) isOutcome() {}

// IsHTML reports whether the content type announces an HTML document.
func (r *Response) IsHTML() bool {
	return r.ContentType.Present && strings.HasPrefix(r.ContentType.Value, "text/html")
}

// Failure is a transport-level failure (DNS, connect, timeout, cancellation).
type Failure struct {
	// Name is the probe target.
	Name string

	// Reason is the transport error message.
	Reason string

	// Elapsed is the time spent before the failure.
	Elapsed time.Duration
}

// Target implements Outcome.
func (f *Failure) Target() string { return f.Name }

// Latency implements Outcome.
func (f *Failure) Latency() time.Duration { return f.Elapsed }

func (*Failure) isOutcome() {}
