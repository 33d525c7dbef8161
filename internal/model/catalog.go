package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// pdfFiletype is the only filetype that has derived preview images.
const pdfFiletype = "pdf"

// ErrInvalidCheckMode is returned by ParseCheckMode for unknown mode names.
var ErrInvalidCheckMode = errors.New("invalid check mode: must be one of webp, jpg, file, all")

// CatalogEntry is one known asset from the catalog.
// The catalog encodes it as {"id": "...", "data": {"filetype": "..."}}.
type CatalogEntry struct {
	// ID is the asset identifier, used as the file name stem.
	ID string

	// Filetype is the extension of the original file (e.g. "pdf", "zip").
	Filetype string
}

// catalogRecord mirrors the on-the-wire catalog layout.
type catalogRecord struct {
	ID   string `json:"id"`
	Data struct {
		Filetype string `json:"filetype"`
	} `json:"data"`
}

// UnmarshalJSON decodes the nested catalog layout into a flat entry.
func (e *CatalogEntry) UnmarshalJSON(data []byte) error {
	var r catalogRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	e.ID = r.ID
	e.Filetype = r.Data.Filetype
	return nil
}

// IsPDF reports whether the entry has preview variants.
func (e CatalogEntry) IsPDF() bool {
	return e.Filetype == pdfFiletype
}

// CheckMode selects which variants of a catalog entry are probed.
type CheckMode string

const (
	// CheckModeFile probes only the original file.
	CheckModeFile CheckMode = "file"

	// CheckModeJpg probes only the JPEG preview of PDF entries.
	CheckModeJpg CheckMode = "jpg"

	// CheckModeWebp probes only the WebP preview of PDF entries.
	CheckModeWebp CheckMode = "webp"

	// CheckModeAll probes the original file and, for PDFs, both previews.
	CheckModeAll CheckMode = "all"
)

// CheckModes lists every valid mode in CLI order.
var CheckModes = []CheckMode{CheckModeWebp, CheckModeJpg, CheckModeFile, CheckModeAll}

// ParseCheckMode converts a CLI argument into a CheckMode.
// The empty string selects CheckModeAll.
func ParseCheckMode(s string) (CheckMode, error) {
	if s == "" {
		return CheckModeAll, nil
	}
	mode := CheckMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range CheckModes {
		if m == mode {
			return mode, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCheckMode, s)
}

// String returns the mode name.
func (m CheckMode) String() string {
	return string(m)
}

// Expand turns one catalog entry into its probe targets for the given mode.
// Non-PDF entries produce no targets under the preview-only modes.
func Expand(entry CatalogEntry, mode CheckMode) []string {
	file := entry.ID + "." + entry.Filetype
	jpg := entry.ID + ".jpg"
	webp := entry.ID + ".webp"

	switch mode {
	case CheckModeFile:
		return []string{file}
	case CheckModeJpg:
		if entry.IsPDF() {
			return []string{jpg}
		}
	case CheckModeWebp:
		if entry.IsPDF() {
			return []string{webp}
		}
	case CheckModeAll:
		if entry.IsPDF() {
			return []string{file, jpg, webp}
		}
		return []string{file}
	}
	return nil
}

// ExpandAll expands every entry in catalog order.
func ExpandAll(entries []CatalogEntry, mode CheckMode) []string {
	targets := make([]string, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, Expand(e, mode)...)
	}
	return targets
}
