package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/site-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/site-s3-sync/pkg/metadata"
	"github.com/yuya-takeyama/site-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncer"
)

func TestBuildPlanResult(t *testing.T) {
	plans := []syncer.SitePlan{
		{
			Site:   "dist",
			Bucket: "b1",
			Plan: &planner.Plan{
				Uploads: []planner.FileEntry{
					{AbsolutePath: "/srv/dist/index.html", Key: "index.html", Attributes: rules.Attributes{"ContentType": "text/html"}},
					{AbsolutePath: "/srv/dist/app.js", Key: "app.js", Remote: &s3client.ItemMetadata{Path: "app.js"}},
				},
				Deletes: []string{"old.html"},
			},
		},
		{
			Site:   "docs",
			Bucket: "b2",
			Copies: []metadata.CopyOperation{{Bucket: "b2", Key: "readme.html"}},
		},
	}

	got := buildPlanResult(plans)
	assert.Equal(t, PlanSummary{Create: 1, Update: 1, Delete: 1, Copy: 1}, got.Summary)
	require.Len(t, got.Files, 4)
	assert.Equal(t, PlanFile{
		Site:       "dist",
		Action:     "create",
		Source:     "/srv/dist/index.html",
		Target:     "s3://b1/index.html",
		Attributes: map[string]string{"ContentType": "text/html"},
	}, got.Files[0])
	assert.Equal(t, "update", got.Files[1].Action)
	assert.Equal(t, "s3://b1/old.html", got.Files[2].Target)
	assert.Equal(t, "s3://b2/readme.html", got.Files[3].Target)
}

func TestBuildSyncResult(t *testing.T) {
	results := []siteResult{
		{site: "dist", bucket: "b1", Result: executor.Result{Action: executor.ActionUpload, Key: "b.html", LocalPath: "/srv/dist/b.html"}},
		{site: "dist", bucket: "b1", Result: executor.Result{Action: executor.ActionSkip, Key: "a.html", LocalPath: "/srv/dist/a.html", Reason: "unchanged"}},
		{site: "dist", bucket: "b1", Result: executor.Result{Action: executor.ActionDelete, Key: "c.html", Error: errors.New("denied")}},
	}

	got := buildSyncResult(results)
	assert.Equal(t, ResultSummary{Skipped: 1, Uploaded: 1, Failed: 1}, got.Summary)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "skipped", got.Files[0].Action)
	assert.Equal(t, "s3://b1/a.html", got.Files[0].Target)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, ErrorFile{Site: "dist", Action: "delete", Target: "s3://b1/c.html", Error: "denied"}, got.Errors[0])
}

func TestBuildSyncResultSharedLocalDir(t *testing.T) {
	results := []siteResult{
		{site: "dist", bucket: "staging", Result: executor.Result{Action: executor.ActionUpload, Key: "index.html"}},
		{site: "dist", bucket: "prod", Result: executor.Result{Action: executor.ActionUpload, Key: "index.html"}},
	}

	got := buildSyncResult(results)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "s3://prod/index.html", got.Files[0].Target)
	assert.Equal(t, "s3://staging/index.html", got.Files[1].Target)
}

func TestResultCollector(t *testing.T) {
	c := &resultCollector{}
	c.add("dist", "b1", executor.Result{Action: executor.ActionDelete, Key: "old.html"})

	got := c.list()
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].bucket)
	assert.Equal(t, "old.html", got[0].Key)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, writePlanResult(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got PlanResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Empty(t, got.Files)
	assert.NotNil(t, got.Files)
}
