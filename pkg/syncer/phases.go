package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuya-takeyama/site-s3-sync/internal/walker"
	"github.com/yuya-takeyama/site-s3-sync/pkg/config"
	"github.com/yuya-takeyama/site-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/site-s3-sync/pkg/metadata"
	"github.com/yuya-takeyama/site-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncerr"
	"github.com/yuya-takeyama/site-s3-sync/pkg/tags"
)

// Sync uploads changed files and deletes remote objects missing locally.
func (o *Orchestrator) Sync(ctx context.Context, sites []config.Site) (*Report, error) {
	return o.run(ctx, sites, o.syncSite)
}

// SyncMetadata rewrites the attributes of every uploaded file in place.
func (o *Orchestrator) SyncMetadata(ctx context.Context, sites []config.Site) (*Report, error) {
	return o.run(ctx, sites, o.syncMetadataSite)
}

// SyncTags merges each site's bucketTags into its bucket's tag set.
func (o *Orchestrator) SyncTags(ctx context.Context, sites []config.Site) (*Report, error) {
	return o.run(ctx, sites, o.syncTagsSite)
}

// Remove deletes every object under each site's prefix.
func (o *Orchestrator) Remove(ctx context.Context, sites []config.Site) (*Report, error) {
	return o.run(ctx, sites, o.removeSite)
}

func (o *Orchestrator) syncSite(ctx context.Context, r *siteRun) error {
	if r.site.PreCommand != "" {
		if o.opts.DryRun {
			r.log.Info("skipping preCommand: " + r.site.PreCommand)
		} else {
			r.log.Info("running preCommand: " + r.site.PreCommand)
			if err := o.runner.Run(ctx, r.site.PreCommand, o.inv.ServicePath); err != nil {
				return fmt.Errorf("preCommand for %s: %w", r.site.LocalDir, err)
			}
		}
	}

	w := o.walker(r)
	files := w.Walk()

	remote, err := o.client.ListObjects(ctx, &s3client.ListObjectsRequest{
		Bucket: r.bucket,
		Prefix: r.site.KeyPrefix(),
	})
	if err != nil {
		return syncerr.Transfer("list", r.bucket, err).WithSite(r.site.LocalDir)
	}

	opts := o.plannerOptions(r)
	if w.RootMissing() {
		if opts.DeleteRemoved {
			r.log.Warn(fmt.Sprintf("local directory %s is missing, keeping remote objects", r.localDir))
		}
		opts.DeleteRemoved = false
	}
	opts.Protected = w.Skipped()

	plan := planner.Compute(files, remote, o.matcher(r), opts)
	r.plan = &SitePlan{Site: r.site.LocalDir, Bucket: r.bucket, Plan: plan}

	exec := executor.NewExecutor(o.client, r.log, executor.Options{
		Concurrency: o.opts.Concurrency,
		DryRun:      o.opts.DryRun,
		Progress:    o.progress(r),
	})
	return o.tally(r, exec.Execute(ctx, executor.Target{Bucket: r.bucket, ACL: r.site.ACL}, plan))
}

func (o *Orchestrator) syncMetadataSite(ctx context.Context, r *siteRun) error {
	entries := planner.Entries(o.walker(r).Walk(), o.matcher(r), o.plannerOptions(r))
	ops := metadata.Reconcile(r.site, r.bucket, entries)
	r.plan = &SitePlan{Site: r.site.LocalDir, Bucket: r.bucket, Copies: ops}

	rec := metadata.NewReconciler(o.client, r.log, metadata.Options{
		Concurrency: o.opts.Concurrency,
		DryRun:      o.opts.DryRun,
	})
	copied, err := rec.Apply(ctx, ops)
	r.summary.Copied = copied
	r.summary.Failed = len(ops) - copied
	if err != nil {
		return fmt.Errorf("site %s: %w", r.site.LocalDir, err)
	}
	return nil
}

func (o *Orchestrator) syncTagsSite(ctx context.Context, r *siteRun) error {
	if len(r.site.BucketTags) == 0 {
		r.log.Debug("no bucketTags configured")
		return nil
	}

	existing, err := o.client.GetBucketTagging(ctx, r.bucket)
	if err != nil {
		return syncerr.Tagging("get", r.bucket, err).WithSite(r.site.LocalDir)
	}

	merged := tags.Merge(existing, tags.FromMap(r.site.BucketTags))
	if tags.Equal(existing, merged) {
		r.log.Info(fmt.Sprintf("tags of bucket %s are up to date", r.bucket))
		return nil
	}

	r.log.Info(fmt.Sprintf("updating %d tags on bucket %s", len(merged), r.bucket))
	if o.opts.DryRun {
		return nil
	}
	if err := o.client.PutBucketTagging(ctx, r.bucket, merged); err != nil {
		return syncerr.Tagging("put", r.bucket, err).WithSite(r.site.LocalDir)
	}
	return nil
}

func (o *Orchestrator) removeSite(ctx context.Context, r *siteRun) error {
	prefix := r.site.KeyPrefix()
	remote, err := o.client.ListObjects(ctx, &s3client.ListObjectsRequest{
		Bucket: r.bucket,
		Prefix: prefix,
	})
	if err != nil {
		return syncerr.Transfer("list", r.bucket, err).WithSite(r.site.LocalDir)
	}

	plan := &planner.Plan{Uploads: []planner.FileEntry{}, Deletes: make([]string, 0, len(remote))}
	for _, item := range remote {
		plan.Deletes = append(plan.Deletes, prefix+item.Path)
	}
	r.plan = &SitePlan{Site: r.site.LocalDir, Bucket: r.bucket, Plan: plan}

	exec := executor.NewExecutor(o.client, r.log, executor.Options{
		Concurrency: o.opts.Concurrency,
		DryRun:      o.opts.DryRun,
		Progress:    o.progress(r),
	})
	return o.tally(r, exec.Execute(ctx, executor.Target{Bucket: r.bucket}, plan))
}

func (o *Orchestrator) walker(r *siteRun) *walker.Walker {
	return walker.New(r.localDir, walker.Options{
		FollowSymlinks: r.site.FollowSymlinks,
		Excludes:       r.site.Exclude,
		Logger:         r.log,
	})
}

func (o *Orchestrator) matcher(r *siteRun) *rules.Matcher {
	return rules.NewMatcher(r.localDir, r.site.AllRules())
}

func (o *Orchestrator) plannerOptions(r *siteRun) planner.Options {
	return planner.Options{
		Env:                o.inv.Env,
		KeyPrefix:          r.site.KeyPrefix(),
		DeleteRemoved:      r.site.ShouldDeleteRemoved(),
		DefaultContentType: r.site.DefaultContentType,
		Excludes:           r.site.Exclude,
	}
}

func (o *Orchestrator) progress(r *siteRun) func(executor.Result) {
	if o.opts.Progress == nil {
		return nil
	}
	return func(res executor.Result) { o.opts.Progress(r.site.LocalDir, r.bucket, res) }
}

// tally fills the site summary and turns failed results into transfer errors.
func (o *Orchestrator) tally(r *siteRun, results []executor.Result) error {
	var errs []error
	for _, res := range results {
		if res.Error != nil {
			r.summary.Failed++
			errs = append(errs, syncerr.Transfer(string(res.Action), r.bucket, res.Error).WithKey(res.Key).WithSite(r.site.LocalDir))
			continue
		}
		switch res.Action {
		case executor.ActionUpload:
			r.summary.Uploaded++
			r.summary.BytesUploaded += res.Size
		case executor.ActionSkip:
			r.summary.Skipped++
		case executor.ActionDelete:
			r.summary.Deleted++
		}
	}
	return errors.Join(errs...)
}
