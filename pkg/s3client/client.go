// Package s3client is the object-store capability consumed by the sync engine.
package s3client

import (
	"context"
	"io"
	"time"

	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/tags"
)

// ItemMetadata describes a listed object. Path is relative to the listed prefix.
type ItemMetadata struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Checksum string
}

type ObjectInfo struct {
	Size     int64
	Checksum string
}

type ListObjectsRequest struct {
	Bucket string
	Prefix string
}

type HeadObjectRequest struct {
	Bucket string
	Key    string
}

type PutObjectRequest struct {
	Bucket     string
	Key        string
	Body       io.Reader
	Size       int64
	ACL        string
	Attributes rules.Attributes
}

// CopyObjectRequest rewrites an object onto itself, replacing its metadata.
type CopyObjectRequest struct {
	Bucket     string
	Key        string
	ACL        string
	Attributes rules.Attributes
}

type Client interface {
	ListObjects(ctx context.Context, req *ListObjectsRequest) ([]ItemMetadata, error)
	HeadObject(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error)
	PutObject(ctx context.Context, req *PutObjectRequest) error
	CopyObject(ctx context.Context, req *CopyObjectRequest) error
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
	GetBucketTagging(ctx context.Context, bucket string) ([]tags.Tag, error)
	PutBucketTagging(ctx context.Context, bucket string, tagSet []tags.Tag) error
}
