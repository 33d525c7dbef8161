package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nao1215/cachescan/internal/model"
)

// ErrUnexpectedStatus is returned when the catalog host answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected catalog response status")

// Source provides catalog entries.
type Source interface {
	// Fetch returns every catalog entry in catalog order.
	Fetch(ctx context.Context) ([]model.CatalogEntry, error)

	// Location returns the URL or path the catalog is read from.
	Location() string
}

// NewSource returns an HTTP source for http(s) locations and a file source otherwise.
func NewSource(location string, client *http.Client) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, client)
	}
	return NewFileSource(location)
}

// HTTPSource fetches the catalog over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for the catalog at url.
// A nil client selects http.DefaultClient.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client}
}

// Location implements Source.
func (s *HTTPSource) Location() string { return s.url }

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return decode(resp.Body)
}

// FileSource reads the catalog from a local JSON file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the catalog file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Location implements Source.
func (s *FileSource) Location() string { return s.path }

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context) ([]model.CatalogEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) ([]model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return entries, nil
}
