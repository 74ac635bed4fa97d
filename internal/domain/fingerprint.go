package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeURL lower-cases scheme and host and strips one trailing slash from
// the path. Params, query and fragment are kept byte for byte; nothing is
// decoded or re-escaped, so malformed escapes and raw UTF-8 pass through.
func NormalizeURL(raw string) string {
	scheme, rest := splitScheme(raw)

	var authority string
	hasAuthority := strings.HasPrefix(rest, "//")
	if hasAuthority {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		authority, rest = strings.ToLower(rest[:end]), rest[end:]
	}

	rest, fragment, hasFragment := strings.Cut(rest, "#")
	path, query, hasQuery := strings.Cut(rest, "?")

	// params belong to the last path segment only
	var params string
	last := strings.LastIndexByte(path, '/') + 1
	if i := strings.IndexByte(path[last:], ';'); i >= 0 {
		path, params = path[:last+i], path[last+i:]
	}

	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	b.Grow(len(raw) + 1)
	if scheme != "" {
		b.WriteString(strings.ToLower(scheme))
		b.WriteString(":")
	}
	if hasAuthority || scheme != "" {
		b.WriteString("//")
		b.WriteString(authority)
	}
	b.WriteString(path)
	b.WriteString(params)
	if hasQuery && query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	if hasFragment && fragment != "" {
		b.WriteString("#")
		b.WriteString(fragment)
	}
	return b.String()
}

// splitScheme returns the scheme and the remainder starting at "//". A
// "://" that appears after a path, query or invalid scheme character is not
// a scheme separator.
func splitScheme(raw string) (string, string) {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return "", raw
	}
	for j, c := range raw[:i] {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", raw
		}
	}
	return raw[:i], raw[i+1:]
}

// Fingerprint is the dedup key of an article: hex SHA-256 of the normalized URL.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return hex.EncodeToString(sum[:])
}
