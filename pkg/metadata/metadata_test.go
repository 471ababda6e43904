package metadata

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/site-s3-sync/pkg/config"
	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/site-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncerr"
)

type copyClient struct {
	s3client.Client

	fail   map[string]bool
	mu     sync.Mutex
	copies []*s3client.CopyObjectRequest
}

func (c *copyClient) CopyObject(ctx context.Context, req *s3client.CopyObjectRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copies = append(c.copies, req)
	if c.fail[req.Key] {
		return fmt.Errorf("NoSuchKey: %s", req.Key)
	}
	return nil
}

func TestReconcile(t *testing.T) {
	site := &config.Site{ACL: "public-read"}
	entries := []planner.FileEntry{
		{Key: "www/index.html", Include: true, Attributes: rules.Attributes{"ContentType": "text/html", "CacheControl": "max-age=0"}},
		{Key: "www/debug.log", Include: false, Attributes: rules.Attributes{"ContentType": "text/plain"}},
		{Key: "www/app.js", Include: true, Attributes: rules.Attributes{"ContentType": "application/javascript"}},
	}

	ops := Reconcile(site, "b1", entries)

	assert.Equal(t, []CopyOperation{
		{Bucket: "b1", Key: "www/app.js", ACL: "public-read", Attributes: rules.Attributes{"ContentType": "application/javascript"}},
		{Bucket: "b1", Key: "www/index.html", ACL: "public-read", Attributes: rules.Attributes{"ContentType": "text/html", "CacheControl": "max-age=0"}},
	}, ops)

	ops[0].Attributes["ContentType"] = "changed"
	assert.Equal(t, "application/javascript", entries[2].Attributes["ContentType"])
}

func TestApply(t *testing.T) {
	client := &copyClient{}
	r := NewReconciler(client, logger.NullLogger{}, Options{Concurrency: 2})

	copied, err := r.Apply(context.Background(), []CopyOperation{
		{Bucket: "b1", Key: "a.html", ACL: "private"},
		{Bucket: "b1", Key: "b.html", ACL: "private"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, copied)
	assert.Len(t, client.copies, 2)
}

func TestApplyFailureIsTransferError(t *testing.T) {
	client := &copyClient{fail: map[string]bool{"missing.html": true}}
	r := NewReconciler(client, logger.NullLogger{}, Options{})

	copied, err := r.Apply(context.Background(), []CopyOperation{
		{Bucket: "b1", Key: "ok.html"},
		{Bucket: "b1", Key: "missing.html"},
	})
	assert.Equal(t, 1, copied)
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerr.ErrTransfer)
	assert.ErrorContains(t, err, "s3://b1/missing.html")
	assert.Len(t, client.copies, 2)
}

func TestApplyDryRun(t *testing.T) {
	client := &copyClient{}
	r := NewReconciler(client, logger.NullLogger{}, Options{DryRun: true})

	copied, err := r.Apply(context.Background(), []CopyOperation{{Bucket: "b1", Key: "a.html"}})
	require.NoError(t, err)
	assert.Equal(t, 1, copied)
	assert.Empty(t, client.copies)
}
