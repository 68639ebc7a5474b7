package storage

import (
	"net/url"
	"strings"
)

// PublicObjectURL joins base, bucket and an object path, escaping each path
// segment.
func PublicObjectURL(base, bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
