// Package urlutil resolves the URLs used in steps against the configured
// base URL of the site under test.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kuitang/browserhooks/internal/errs"
)

// IsAbsolute reports whether target carries its own scheme, for example
// https://, file:// or about:blank.
func IsAbsolute(target string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	return err == nil && u.Scheme != ""
}

// Resolve returns target unchanged when it is absolute and joins it to
// base otherwise. A relative target without a base is an error.
func Resolve(base, target string) (string, error) {
	target = strings.TrimSpace(target)
	if IsAbsolute(target) {
		return target, nil
	}
	base = normalizeBaseURL(base)
	if base == "" {
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("relative URL %q needs a base URL", target))
	}
	if !IsAbsolute(base) {
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("base URL %q has no scheme", base))
	}
	return BuildAbsolute(base, target), nil
}

// BuildAbsolute joins a base URL and a path with exactly one slash.
func BuildAbsolute(base, path string) string {
	base = normalizeBaseURL(base)
	switch {
	case path == "":
		return base
	case IsAbsolute(path):
		return path
	case strings.HasPrefix(path, "/"):
		return base + path
	default:
		return base + "/" + path
	}
}

func normalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}
