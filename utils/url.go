package utils

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// ErrInvalidURL is returned when input can't be turned into an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

const assumedScheme = "https://"

// ValidURL reports whether NormalizeURL would accept input.
func ValidURL(input string) bool {
	_, err := NormalizeURL(input)
	return err == nil
}

// NormalizeURL trims input and returns it when it already is an absolute
// URL, or with https:// prepended when that makes it one. The scheme is
// lower-cased. The result is the exact string keys are derived from, so every
// caller must go through here.
func NormalizeURL(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", ErrInvalidURL
	}

	if abs, ok := absolute(s); ok {
		return abs, nil
	}
	// Some other scheme was given explicitly, don't wrap it.
	if strings.Contains(s, "://") || foreignScheme(s) {
		return "", ErrInvalidURL
	}

	if abs, ok := absolute(assumedScheme + s); ok {
		return abs, nil
	}
	return "", ErrInvalidURL
}

// EnsureScheme prefixes stored values that lack an http(s) scheme.
func EnsureScheme(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return assumedScheme + raw
}

// HostOf returns the lower-cased host name of a normalized URL.
func HostOf(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// absolute returns s with a lower-cased scheme when it is an http(s) URL
// with a host.
func absolute(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := u.Hostname()
	if host == "" || strings.HasPrefix(host, ".") || strings.HasSuffix(host, "..") {
		return "", false
	}
	return scheme + s[len(u.Scheme):], true
}

// foreignScheme reports whether s starts with a non-http scheme such as
// "mailto:". "example.com:8080" and "localhost:3000" parse with a scheme too
// but are host:port and get wrapped.
func foreignScheme(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return !strings.Contains(scheme, ".") && scheme != "localhost"
}
