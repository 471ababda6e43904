// Package metadata rewrites object attributes in place with same-object
// copies, without transferring file contents again.
package metadata

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yuya-takeyama/site-s3-sync/pkg/config"
	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/site-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncerr"
)

// CopyOperation replaces the metadata of Bucket/Key with Attributes.
type CopyOperation struct {
	Bucket     string           `json:"bucket"`
	Key        string           `json:"key"`
	ACL        string           `json:"acl"`
	Attributes rules.Attributes `json:"attributes,omitempty"`
}

// Reconcile returns one copy operation per included entry, ordered by key.
// Entries already carry the detected content type merged under the rule
// attributes.
func Reconcile(site *config.Site, bucket string, entries []planner.FileEntry) []CopyOperation {
	ops := make([]CopyOperation, 0, len(entries))
	for _, e := range entries {
		if !e.Include {
			continue
		}
		ops = append(ops, CopyOperation{
			Bucket:     bucket,
			Key:        e.Key,
			ACL:        site.ACL,
			Attributes: e.Attributes.Clone(),
		})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Key < ops[j].Key })
	return ops
}

type Options struct {
	Concurrency int
	DryRun      bool
}

type Reconciler struct {
	client s3client.Client
	logger logger.Logger
	opts   Options
}

func NewReconciler(client s3client.Client, log logger.Logger, opts Options) *Reconciler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = config.DefaultConcurrency
	}
	return &Reconciler{client: client, logger: log, opts: opts}
}

// Apply issues every copy and returns how many succeeded. Failed copies are
// joined into the returned error; copies that already succeeded stay applied.
func (r *Reconciler) Apply(ctx context.Context, ops []CopyOperation) (int, error) {
	sem := make(chan struct{}, r.opts.Concurrency)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		copied int
		errs   []error
	)

	for _, op := range ops {
		wg.Add(1)
		go func(op CopyOperation) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			r.logger.Copy("s3://" + op.Bucket + "/" + op.Key)
			var err error
			if !r.opts.DryRun {
				err = r.client.CopyObject(ctx, &s3client.CopyObjectRequest{
					Bucket:     op.Bucket,
					Key:        op.Key,
					ACL:        op.ACL,
					Attributes: op.Attributes,
				})
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Error("copy", "s3://"+op.Bucket+"/"+op.Key, err)
				errs = append(errs, syncerr.Transfer("copy", op.Bucket, err).WithKey(op.Key))
				return
			}
			copied++
		}(op)
	}

	wg.Wait()
	return copied, errors.Join(errs...)
}
