package target

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
)

// DefaultScheme is prepended to addresses that carry no scheme.
const DefaultScheme = "http://"

// ErrNotFound is returned when the URL list file does not exist.
var ErrNotFound = errors.New("url list not found")

// Load reads the URL list at path.
// A missing file yields an error matching both ErrNotFound and fs.ErrNotExist.
func Load(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open url list: %w", err)
	}
	defer f.Close()

	return LoadReader(f)
}

// LoadReader reads a URL list from r.
func LoadReader(r io.Reader) ([]string, error) {
	urls := make([]string, 0)

	scanner := bufio.NewScanner(r)
	// Long query strings occasionally exceed the default 64KB token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if u, ok := Normalize(scanner.Text()); ok {
			urls = append(urls, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}

	return urls, nil
}

// Normalize trims a line and defaults its scheme.
// It returns false for blank lines.
func Normalize(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if hasScheme(line) {
		return line, true
	}
	return DefaultScheme + line, true
}

// hasScheme reports whether s is an absolute hierarchical URL.
// "localhost:8080" parses with scheme "localhost" but no "//" authority, so it
// is treated as scheme-less.
func hasScheme(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Opaque == ""
}
