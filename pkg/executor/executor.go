// Package executor applies a site plan to the object store. Uploads skip
// objects whose content is unchanged.
package executor

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/yuya-takeyama/site-s3-sync/internal/checksum"
	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/site-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
)

const DefaultConcurrency = 32

type Action string

const (
	ActionUpload Action = "upload"
	ActionSkip   Action = "skip"
	ActionDelete Action = "delete"
)

// Target is where a plan is applied.
type Target struct {
	Bucket string
	ACL    string
}

type Result struct {
	Action    Action
	Key       string
	LocalPath string
	Size      int64
	Reason    string
	Error     error
}

type Options struct {
	Concurrency int
	DryRun      bool

	// Progress, when set, is called after each operation settles. It may be
	// called from several goroutines at once.
	Progress func(Result)
}

type Executor struct {
	client s3client.Client
	logger logger.Logger
	opts   Options
}

func NewExecutor(client s3client.Client, log logger.Logger, opts Options) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Executor{
		client: client,
		logger: log,
		opts:   opts,
	}
}

// Execute uploads every changed file and then deletes the planned keys.
// Every operation is attempted; failures are reported in the results.
func (e *Executor) Execute(ctx context.Context, target Target, plan *planner.Plan) []Result {
	results := make([]Result, 0, len(plan.Uploads)+len(plan.Deletes))
	results = append(results, e.upload(ctx, target, plan.Uploads)...)
	results = append(results, e.delete(ctx, target, plan.Deletes)...)
	return results
}

func (e *Executor) upload(ctx context.Context, target Target, entries []planner.FileEntry) []Result {
	results := make([]Result, len(entries))

	sem := make(chan struct{}, e.opts.Concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, entry planner.FileEntry) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			res := e.uploadEntry(ctx, target, entry)
			if res.Error != nil {
				e.logger.Error("upload", s3URI(target.Bucket, entry.Key), res.Error)
			}
			results[idx] = res
			e.progress(res)
		}(i, entry)
	}

	wg.Wait()
	return results
}

func (e *Executor) uploadEntry(ctx context.Context, target Target, entry planner.FileEntry) Result {
	res := Result{
		Action:    ActionUpload,
		Key:       entry.Key,
		LocalPath: entry.AbsolutePath,
		Size:      entry.Size,
	}

	reason, changed, err := e.compare(ctx, target.Bucket, entry)
	if err != nil {
		res.Error = err
		return res
	}
	res.Reason = reason
	if !changed {
		res.Action = ActionSkip
		e.logger.Skip(entry.AbsolutePath, s3URI(target.Bucket, entry.Key), reason)
		return res
	}

	e.logger.Upload(entry.AbsolutePath, s3URI(target.Bucket, entry.Key))
	if e.opts.DryRun {
		return res
	}

	file, err := os.Open(entry.AbsolutePath)
	if err != nil {
		res.Error = fmt.Errorf("failed to open file: %w", err)
		return res
	}
	defer file.Close()

	err = e.client.PutObject(ctx, &s3client.PutObjectRequest{
		Bucket:     target.Bucket,
		Key:        entry.Key,
		Body:       file,
		Size:       entry.Size,
		ACL:        target.ACL,
		Attributes: entry.Attributes,
	})
	if err != nil {
		res.Error = fmt.Errorf("failed to upload: %w", err)
	}
	return res
}

// compare decides whether entry differs from its remote object: a missing
// object or a size difference settles it, otherwise the CRC64NVME checksums
// are compared.
func (e *Executor) compare(ctx context.Context, bucket string, entry planner.FileEntry) (string, bool, error) {
	if entry.Remote == nil {
		return "new file", true, nil
	}
	if entry.Remote.Size != entry.Size {
		return "size differs", true, nil
	}

	local, err := checksum.CalculateFileCRC64NVME(entry.AbsolutePath)
	if err != nil {
		return "", false, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	remote := entry.Remote.Checksum
	if remote == "" {
		info, err := e.client.HeadObject(ctx, &s3client.HeadObjectRequest{
			Bucket: bucket,
			Key:    entry.Key,
		})
		if err != nil {
			return "", false, fmt.Errorf("failed to head object: %w", err)
		}
		remote = info.Checksum
	}

	if checksum.Equal(local, remote) {
		return "unchanged", false, nil
	}
	if remote == "" {
		return "no remote checksum", true, nil
	}
	return "checksum differs", true, nil
}

func (e *Executor) delete(ctx context.Context, target Target, keys []string) []Result {
	results := make([]Result, len(keys))
	for i, key := range keys {
		e.logger.Delete(s3URI(target.Bucket, key))
		results[i] = Result{Action: ActionDelete, Key: key, Reason: "deleted locally"}
	}
	if len(keys) == 0 || e.opts.DryRun {
		for _, r := range results {
			e.progress(r)
		}
		return results
	}

	if err := e.client.DeleteObjects(ctx, target.Bucket, keys); err != nil {
		err = fmt.Errorf("failed to delete: %w", err)
		e.logger.Error("delete", s3URI(target.Bucket, ""), err)
		for i := range results {
			results[i].Error = err
		}
	}
	for _, r := range results {
		e.progress(r)
	}
	return results
}

func (e *Executor) progress(r Result) {
	if e.opts.Progress != nil {
		e.opts.Progress(r)
	}
}

func s3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
