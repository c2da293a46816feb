package heuristic

import (
	"fmt"
	"net/url"
	"strings"
)

// ContactKeywords are the substrings that mark a URL as a contact page.
var ContactKeywords = []string{"contact", "support", "form"}

// IsContactURL reports whether the address already looks like a contact page.
// The check is a case-insensitive substring match over the whole address.
func IsContactURL(address string) bool {
	lower := strings.ToLower(address)
	for _, keyword := range ContactKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ResolveLink turns an href into an absolute address.
// Hrefs that already start with "http" are returned unchanged; anything else
// is resolved against base.
func ResolveLink(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty link href")
	}
	if strings.HasPrefix(href, "http") {
		return href, nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
