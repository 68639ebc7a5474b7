package media

import (
	"net/url"
	"strings"
)

// ReferenceExtractor recovers the bucket-relative storage path from a public
// locator. It reports false when the locator carries no bucket marker.
type ReferenceExtractor interface {
	ExtractPath(locator, bucket string) (string, bool)
}

// PathExtractor understands the two locator shapes seen so far: the storage
// API form ".../object/public/{bucket}/{path}" and anything that merely
// contains "{bucket}/" (direct endpoints, CDN rewrites).
type PathExtractor struct{}

func (PathExtractor) ExtractPath(locator, bucket string) (string, bool) {
	return ExtractPath(locator, bucket)
}

// ExtractPath is pure and deterministic.
func ExtractPath(locator, bucket string) (string, bool) {
	if locator == "" || bucket == "" {
		return "", false
	}

	if u, err := url.Parse(locator); err == nil {
		marker := "/object/public/" + bucket + "/"
		escaped := u.EscapedPath()
		if i := strings.Index(escaped, marker); i >= 0 {
			if ref, ok := decodeReference(escaped[i+len(marker):]); ok {
				return ref, true
			}
		}
	}

	marker := bucket + "/"
	i := strings.Index(locator, marker)
	if i < 0 {
		return "", false
	}
	rest := locator[i+len(marker):]
	if q := strings.IndexAny(rest, "?#"); q >= 0 {
		rest = rest[:q]
	}
	return decodeReference(rest)
}

func decodeReference(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil || decoded == "" {
		return "", false
	}
	return decoded, true
}
