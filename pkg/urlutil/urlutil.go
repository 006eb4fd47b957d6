package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonicalize maps equivalent spellings of a resource URL to one form.
//
//   - Scheme and host are lowercased
//   - Trailing slashes are removed from the path, except for root "/"
//   - Fragments are removed
//   - Default ports are omitted (:80 for http, :443 for https)
//
// The query is kept: thumbnail and API URLs carry meaningful parameters.
// Canonicalize is idempotent.
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
		if canonical.RawPath != "" {
			canonical.RawPath = stripTrailingSlash(canonical.RawPath)
		}
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""

	return canonical
}

// ResolveResource parses raw and returns its canonical absolute form.
// Protocol-relative references ("//host/path") take defaultScheme.
// Anything that is not an absolute http(s) URL afterwards is rejected.
func ResolveResource(raw string, defaultScheme string) (url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return url.URL{}, fmt.Errorf("empty url")
	}
	if strings.HasPrefix(raw, "//") {
		raw = defaultScheme + ":" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return url.URL{}, err
	}
	canonical := Canonicalize(*parsed)
	if canonical.Scheme != "http" && canonical.Scheme != "https" {
		return url.URL{}, fmt.Errorf("unsupported scheme %q", canonical.Scheme)
	}
	if canonical.Host == "" {
		return url.URL{}, fmt.Errorf("missing host in %q", raw)
	}
	return canonical, nil
}

// lowerASCII converts ASCII characters to lowercase, returning s unchanged
// when it has no uppercase letters.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
