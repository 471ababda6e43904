// Package syncer drives every configured site through one sync phase.
//
// Sites run concurrently and independently. A failing site never cancels
// its siblings; the orchestrator waits for all of them and then reports
// every failure together.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yuya-takeyama/site-s3-sync/internal/runner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/config"
	"github.com/yuya-takeyama/site-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/site-s3-sync/pkg/metadata"
	"github.com/yuya-takeyama/site-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/resolver"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
)

// InvocationContext carries the per-invocation options every site sees.
type InvocationContext struct {
	// Env is the current deployment environment, compared with OnlyForEnv.
	Env string

	// Bucket restricts the invocation to sites resolving to this bucket.
	Bucket string

	// ServicePath is the base for relative localDir values and the working
	// directory of preCommand.
	ServicePath string
}

type Options struct {
	Concurrency int
	DryRun      bool

	// Progress, when set, receives every settled upload, skip and delete.
	Progress func(site, bucket string, r executor.Result)
}

// SitePlan is what a site did, or would do in a dry run.
type SitePlan struct {
	Site   string                   `json:"site"`
	Bucket string                   `json:"bucket"`
	Plan   *planner.Plan            `json:"plan,omitempty"`
	Copies []metadata.CopyOperation `json:"copies,omitempty"`
}

// Report collects per-site outcomes in configuration order.
type Report struct {
	Sites []logger.SiteSummary
	Plans []SitePlan
}

type Orchestrator struct {
	client   s3client.Client
	resolver *resolver.BucketNameResolver
	runner   runner.ProcessRunner
	logger   logger.Logger
	inv      InvocationContext
	opts     Options
}

func New(client s3client.Client, res *resolver.BucketNameResolver, run runner.ProcessRunner, log logger.Logger, inv InvocationContext, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = config.DefaultConcurrency
	}
	return &Orchestrator{
		client:   client,
		resolver: res,
		runner:   run,
		logger:   log,
		inv:      inv,
		opts:     opts,
	}
}

// siteRun is the state of one site pipeline.
type siteRun struct {
	site     *config.Site
	localDir string
	bucket   string
	log      logger.Logger
	summary  *logger.SiteSummary
	plan     *SitePlan
}

type phaseFunc func(ctx context.Context, run *siteRun) error

// run validates every enabled site, then fans out phase over them. A
// configuration error aborts before any site starts.
func (o *Orchestrator) run(ctx context.Context, sites []config.Site, phase phaseFunc) (*Report, error) {
	runs := make([]*siteRun, 0, len(sites))
	var configErrs []error
	for i := range sites {
		site := &sites[i]
		if !site.IsEnabled() {
			o.logger.Debug(fmt.Sprintf("site %s is disabled", site.LocalDir))
			continue
		}
		if err := site.Validate(); err != nil {
			configErrs = append(configErrs, err)
			continue
		}
		if err := o.resolver.Check(site); err != nil {
			configErrs = append(configErrs, err)
			continue
		}
		localDir, err := site.ResolveLocalDir(o.inv.ServicePath)
		if err != nil {
			configErrs = append(configErrs, fmt.Errorf("%s: %w", site.LocalDir, err))
			continue
		}
		runs = append(runs, &siteRun{
			site:     site,
			localDir: localDir,
			log:      logger.ForSite(o.logger, site.LocalDir),
			summary:  &logger.SiteSummary{Site: site.LocalDir},
		})
	}
	if len(configErrs) > 0 {
		return nil, errors.Join(configErrs...)
	}

	var wg sync.WaitGroup
	for _, r := range runs {
		wg.Add(1)
		go func(r *siteRun) {
			defer wg.Done()
			r.summary.Err = o.runSite(ctx, r, phase)
		}(r)
	}
	wg.Wait()

	report := &Report{}
	var errs []error
	for _, r := range runs {
		report.Sites = append(report.Sites, *r.summary)
		if r.plan != nil {
			report.Plans = append(report.Plans, *r.plan)
		}
		if r.summary.Err != nil {
			errs = append(errs, r.summary.Err)
		}
	}
	return report, errors.Join(errs...)
}

func (o *Orchestrator) runSite(ctx context.Context, r *siteRun, phase phaseFunc) error {
	bucket, err := o.resolver.Resolve(ctx, r.site)
	if err != nil {
		return err
	}
	r.bucket = bucket
	r.summary.Bucket = bucket
	r.log = logger.ForBucket(r.log, bucket)

	if o.inv.Bucket != "" && o.inv.Bucket != bucket {
		r.summary.Ignored = true
		r.log.Debug(fmt.Sprintf("skipping bucket %s, restricted to %s", bucket, o.inv.Bucket))
		return nil
	}
	return phase(ctx, r)
}
