package classify

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/cachescan/internal/config"
	"github.com/nao1215/cachescan/internal/model"
)

// ErrAuthWall is returned when the delivery host serves its campus-network
// notice to a request that carried no credential. The run cannot produce
// meaningful results without one.
var ErrAuthWall = errors.New("not authenticated: the asset host served its access wall")

const (
	cacheHit  = "HIT"
	cacheMiss = "MISS"
)

// Classifier maps outcomes to verdicts.
type Classifier struct {
	marker  []byte
	wallDir string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMarker sets the text that identifies the unauthenticated wall page.
func WithMarker(marker string) Option {
	return func(c *Classifier) {
		if marker != "" {
			c.marker = norm.NFC.Bytes([]byte(marker))
		}
	}
}

// WithWallDir sets the directory wall pages are saved to.
func WithWallDir(dir string) Option {
	return func(c *Classifier) {
		if dir != "" {
			c.wallDir = dir
		}
	}
}

// New creates a Classifier with the default marker and wall directory.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		marker:  norm.NFC.Bytes([]byte(config.DefaultWallMarker)),
		wallDir: config.DefaultWallDir,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WallPath returns where the HTML page served for target is saved.
// Path separators in target are replaced so the file always lands
// directly inside the wall directory.
func (c *Classifier) WallPath(target string) string {
	return filepath.Join(c.wallDir, wallFileName(target))
}

// wallFileName flattens a target into a single path element.
// Targets come from catalog ids, which the catalog host controls.
func wallFileName(target string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, target)
	return name + ".html"
}

// Classify returns the verdict for an outcome, or ErrAuthWall when the
// outcome shows the unauthenticated wall.
func (c *Classifier) Classify(out model.Outcome) (model.Verdict, error) {
	switch o := out.(type) {
	case *model.Failure:
		return model.ProbeError{Detail: o.Reason}, nil
	case *model.Response:
		return c.classifyResponse(o)
	default:
		return model.ProbeError{Detail: "no outcome"}, nil
	}
}

// Check reports ErrAuthWall, wrapped with the target name, exactly when
// Classify would.
func (c *Classifier) Check(out model.Outcome) error {
	resp, ok := out.(*model.Response)
	if !ok {
		return nil
	}
	if c.isAuthWall(resp) {
		return fmt.Errorf("%w: %s", ErrAuthWall, resp.Name)
	}
	return nil
}

func (c *Classifier) classifyResponse(r *model.Response) (model.Verdict, error) {
	if !r.ContentType.Present {
		return model.Unknown{Detail: "no content-type"}, nil
	}

	if r.IsHTML() {
		if c.isAuthWall(r) {
			return nil, ErrAuthWall
		}
		if r.Page == nil {
			return model.ProbeError{Detail: "fetch html page: no body"}, nil
		}
		if r.Page.Err != "" {
			return model.ProbeError{Detail: "fetch html page: " + r.Page.Err}, nil
		}
		return model.AnomalyHTMLWall{
			Path:        c.WallPath(r.Name),
			Title:       r.Page.Title,
			Fingerprint: r.Page.Fingerprint,
			Size:        len(r.Page.Raw),
		}, nil
	}

	if !r.CacheStatus.Present || r.CacheStatus.Value == "" {
		return model.Unknown{Detail: "none"}, nil
	}
	switch r.CacheStatus.Value {
	case cacheHit:
		age, known := parseAge(r.Age)
		return model.Hit{AgeSeconds: age, AgeKnown: known}, nil
	case cacheMiss:
		return model.Miss{}, nil
	default:
		return model.Unknown{Detail: r.CacheStatus.Value}, nil
	}
}

// isAuthWall reports whether an unauthenticated HTML response carries the wall marker.
func (c *Classifier) isAuthWall(r *model.Response) bool {
	if r.Authenticated || !r.IsHTML() || r.Page == nil {
		return false
	}
	return bytes.Contains(r.Page.Body, c.marker)
}

// parseAge reads the Age header as whole seconds.
func parseAge(f model.HeaderField) (uint64, bool) {
	if !f.Present {
		return 0, false
	}
	age, err := strconv.ParseUint(strings.TrimSpace(f.Value), 10, 64)
	if err != nil {
		return 0, false
	}
	return age, true
}
