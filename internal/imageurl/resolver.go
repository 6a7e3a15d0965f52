// Package imageurl qualifies media paths returned by the content API.
package imageurl

import (
	"regexp"
	"strings"
)

// scheme matches the prefixes passed through untouched: web URLs and the
// data URIs of inline placeholders. Any other scheme is treated as a path.
var scheme = regexp.MustCompile(`(?i)^(https?://|data:)`)

// Resolver turns possibly-relative media paths into absolute URLs against a
// fixed origin. It is safe for concurrent use.
type Resolver struct {
	origin string
}

// New returns a Resolver for origin. A trailing "/" on origin is ignored.
func New(origin string) *Resolver {
	return &Resolver{origin: strings.TrimSuffix(origin, "/")}
}

// Origin returns the configured origin without a trailing separator.
func (r *Resolver) Origin() string {
	return r.origin
}

// Resolve returns "" for an empty path, path unchanged when it is already
// absolute, and origin + "/" + path otherwise with at most one leading "/"
// removed from path.
func (r *Resolver) Resolve(path string) string {
	if path == "" {
		return ""
	}
	if IsAbsolute(path) {
		return path
	}
	return r.origin + "/" + strings.TrimPrefix(path, "/")
}

// IsAbsolute reports whether path is an http(s) URL or a data URI.
func IsAbsolute(path string) bool {
	return scheme.MatchString(path)
}
