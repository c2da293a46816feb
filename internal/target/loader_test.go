package target

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeList writes lines to a temporary URL list and returns its path.
func writeList(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "websites.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write list: %v", err)
	}
	return path
}

// TestLoad tests loading URL lists from disk.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("normalizes schemes and skips blank lines", func(t *testing.T) {
		t.Parallel()

		path := writeList(t, "example.com\nhttps://foo.org\n\nbar.net\n")
		got, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"http://example.com", "https://foo.org", "http://bar.net"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps duplicates and order", func(t *testing.T) {
		t.Parallel()

		path := writeList(t, "b.com\na.com\nb.com\n")
		got, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"http://b.com", "http://a.com", "http://b.com"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("handles CRLF and surrounding whitespace", func(t *testing.T) {
		t.Parallel()

		path := writeList(t, "  example.com  \r\n\t\r\nhttp://x.org\r\n")
		got, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"http://example.com", "http://x.org"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty file yields no URLs", func(t *testing.T) {
		t.Parallel()

		got, err := Load(writeList(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no URLs, got %v", got)
		}
	})

	t.Run("missing file is a not-found error", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected fs.ErrNotExist, got %v", err)
		}
	})
}

// TestNormalize tests single-line normalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"example.com", "http://example.com", true},
		{"https://foo.org", "https://foo.org", true},
		{"HTTP://Upper.org", "HTTP://Upper.org", true},
		{"example.com/contact?x=1", "http://example.com/contact?x=1", true},
		{"localhost:8080", "http://localhost:8080", true},
		{"ftp://files.example.com", "ftp://files.example.com", true},
		{"", "", false},
		{"   ", "", false},
		{"#section", "http://#section", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			got, ok := Normalize(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// TestLoadReader tests reading from an arbitrary reader.
func TestLoadReader(t *testing.T) {
	t.Parallel()

	got, err := LoadReader(strings.NewReader("a.com\n#section\nb.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"http://a.com", "http://#section", "http://b.com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadReader() mismatch (-want +got):\n%s", diff)
	}
}
