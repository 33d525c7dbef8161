package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// TestExpand tests variant expansion for every mode.
func TestExpand(t *testing.T) {
	t.Parallel()

	pdf := CatalogEntry{ID: "a", Filetype: "pdf"}
	zip := CatalogEntry{ID: "b", Filetype: "zip"}

	tests := []struct {
		name  string
		entry CatalogEntry
		mode  CheckMode
		want  []string
	}{
		{name: "file mode on pdf", entry: pdf, mode: CheckModeFile, want: []string{"a.pdf"}},
		{name: "file mode on zip", entry: zip, mode: CheckModeFile, want: []string{"b.zip"}},
		{name: "jpg mode on pdf", entry: pdf, mode: CheckModeJpg, want: []string{"a.jpg"}},
		{name: "jpg mode on zip", entry: zip, mode: CheckModeJpg, want: nil},
		{name: "webp mode on pdf", entry: pdf, mode: CheckModeWebp, want: []string{"a.webp"}},
		{name: "webp mode on zip", entry: zip, mode: CheckModeWebp, want: nil},
		{name: "all mode on pdf", entry: pdf, mode: CheckModeAll, want: []string{"a.pdf", "a.jpg", "a.webp"}},
		{name: "all mode on zip", entry: zip, mode: CheckModeAll, want: []string{"b.zip"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Expand(tt.entry, tt.mode)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand(%+v, %s) = %v, want %v", tt.entry, tt.mode, got, tt.want)
			}
		})
	}
}

// TestExpandPreviewModesSkipNonPDF checks that preview modes never emit
// targets for entries that are not PDFs.
func TestExpandPreviewModesSkipNonPDF(t *testing.T) {
	t.Parallel()

	for _, ft := range []string{"zip", "docx", "PDF", "", "jpg"} {
		entry := CatalogEntry{ID: "x", Filetype: ft}
		for _, mode := range []CheckMode{CheckModeJpg, CheckModeWebp} {
			if got := Expand(entry, mode); len(got) != 0 {
				t.Errorf("Expand(%q, %s) = %v, want empty", ft, mode, got)
			}
		}
	}
}

// TestExpandAll tests that entries are expanded in catalog order.
func TestExpandAll(t *testing.T) {
	t.Parallel()

	entries := []CatalogEntry{
		{ID: "a", Filetype: "pdf"},
		{ID: "b", Filetype: "zip"},
		{ID: "c", Filetype: "pdf"},
	}

	got := ExpandAll(entries, CheckModeAll)
	want := []string{"a.pdf", "a.jpg", "a.webp", "b.zip", "c.pdf", "c.jpg", "c.webp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandAll = %v, want %v", got, want)
	}

	got = ExpandAll(entries, CheckModeWebp)
	want = []string{"a.webp", "c.webp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandAll(webp) = %v, want %v", got, want)
	}
}

// TestParseCheckMode tests CLI mode parsing.
func TestParseCheckMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    CheckMode
		wantErr bool
	}{
		{input: "", want: CheckModeAll},
		{input: "all", want: CheckModeAll},
		{input: "file", want: CheckModeFile},
		{input: "jpg", want: CheckModeJpg},
		{input: "WEBP", want: CheckModeWebp},
		{input: "png", wantErr: true},
		{input: "files", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCheckMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCheckMode) {
					t.Errorf("expected ErrInvalidCheckMode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCheckMode(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

// TestCatalogEntryUnmarshalJSON tests decoding of the nested catalog layout.
func TestCatalogEntryUnmarshalJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`[
		{"id": "abc", "type": "book", "data": {"filetype": "pdf", "title": "x"}},
		{"id": "def", "data": {"filetype": "zip"}}
	]`)

	var entries []CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []CatalogEntry{
		{ID: "abc", Filetype: "pdf"},
		{ID: "def", Filetype: "zip"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("got %+v, want %+v", entries, want)
	}
}
