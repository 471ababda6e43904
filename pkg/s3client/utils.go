package s3client

import (
	"net/url"
	"strings"
)

// trimS3KeyPrefix strips "prefix/" from key. A key equal to the prefix
// without a trailing slash is left untouched.
func trimS3KeyPrefix(key, prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix+"/")
}

// copySource builds the URL-encoded "bucket/key" value for CopyObject,
// escaping each key segment and keeping the separators.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}
