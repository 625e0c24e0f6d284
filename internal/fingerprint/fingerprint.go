package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"

	"VCRadar/internal/domain"
)

// Fingerprint is an opaque hex identifier used as a history key.
// It is derived with md5 for compatibility with existing history files
// and is never used for anything security-sensitive.
type Fingerprint string

// Content hashes title and raw link together. It is total: malformed or
// empty fields still produce a stable fingerprint.
func Content(item domain.NewsItem) Fingerprint {
	return hash(item.Title + "|" + item.Link)
}

// URL hashes the normalized link alone, catching the same story syndicated
// through different feeds with different tracking parameters. The second
// return value is false when the item has no link at all.
func URL(item domain.NewsItem) (Fingerprint, bool) {
	if item.Link == "" {
		return "", false
	}
	return hash(normalizeLink(item.Link)), true
}

// normalizeLink keeps scheme, host, and path, dropping query string,
// fragment, and any trailing slash. Links that fail to parse are kept
// as-is (minus trailing slash) so the result stays deterministic.
func normalizeLink(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	normalized := url.URL{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
	}
	return strings.TrimRight(normalized.String(), "/")
}

func hash(input string) Fingerprint {
	sum := md5.Sum([]byte(input))
	return Fingerprint(hex.EncodeToString(sum[:]))
}
