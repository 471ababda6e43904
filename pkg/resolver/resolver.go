// Package resolver resolves the bucket a site syncs to, either from its
// literal bucketName or from a deployment stack output.
package resolver

import (
	"context"
	"fmt"

	"github.com/yuya-takeyama/site-s3-sync/pkg/config"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncerr"
)

// StackOutputResolver looks up a stack output value by key. A missing key
// is reported as an error wrapping syncerr.ErrNotFound.
type StackOutputResolver interface {
	Resolve(ctx context.Context, outputKey string) (string, error)
}

type BucketNameResolver struct {
	outputs StackOutputResolver
}

// NewBucketNameResolver creates a resolver. outputs may be nil when no stack
// is configured; sites using bucketNameKey then fail with a ConfigError.
func NewBucketNameResolver(outputs StackOutputResolver) *BucketNameResolver {
	return &BucketNameResolver{outputs: outputs}
}

// Check reports configuration problems that would make Resolve fail without
// touching the network.
func (r *BucketNameResolver) Check(site *config.Site) error {
	switch {
	case site.BucketName != "":
		return nil
	case site.BucketNameKey == "":
		return syncerr.Config("%s: one of bucketName or bucketNameKey is required", site.LocalDir)
	case r.outputs == nil:
		return syncerr.Config("%s: bucketNameKey %q requires a stack name", site.LocalDir, site.BucketNameKey)
	}
	return nil
}

func (r *BucketNameResolver) Resolve(ctx context.Context, site *config.Site) (string, error) {
	if err := r.Check(site); err != nil {
		return "", err
	}
	if site.BucketName != "" {
		return site.BucketName, nil
	}

	name, err := r.outputs.Resolve(ctx, site.BucketNameKey)
	if err != nil {
		return "", syncerr.Resolution("resolve", fmt.Errorf("bucketNameKey %s: %w", site.BucketNameKey, err)).WithSite(site.LocalDir)
	}
	return name, nil
}
