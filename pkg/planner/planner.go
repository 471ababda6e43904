// Package planner turns a local file listing and a remote listing into the
// uploads and deletions for a site.
package planner

import (
	"sort"
	"strings"

	"github.com/yuya-takeyama/site-s3-sync/internal/walker"
	"github.com/yuya-takeyama/site-s3-sync/pkg/fnmatch"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
)

// Entries evaluates the rules for every local file. Entries excluded for the
// current environment are returned with Include set to false.
func Entries(files []walker.File, matcher *rules.Matcher, opts Options) []FileEntry {
	entries := make([]FileEntry, 0, len(files))
	for _, f := range files {
		attrs, include := matcher.Match(f.Path, opts.Env)

		contentType := ContentType(f.RelPath, opts.DefaultContentType)
		merged := rules.Attributes{}
		if contentType != "" {
			merged[rules.ContentTypeKey] = contentType
		}
		for k, v := range attrs {
			merged[k] = v
		}

		entries = append(entries, FileEntry{
			AbsolutePath: f.Path,
			RelativeKey:  f.RelPath,
			Key:          opts.KeyPrefix + f.RelPath,
			ContentType:  merged[rules.ContentTypeKey],
			Attributes:   merged,
			Include:      include,
			Size:         f.Size,
		})
	}
	return entries
}

// Compute builds the plan for one site. remote holds keys relative to
// opts.KeyPrefix. Files excluded for the current environment are neither
// uploaded nor deleted.
func Compute(files []walker.File, remote []s3client.ItemMetadata, matcher *rules.Matcher, opts Options) *Plan {
	remoteMap := make(map[string]s3client.ItemMetadata, len(remote))
	for _, item := range remote {
		remoteMap[item.Path] = item
	}

	plan := &Plan{
		Uploads: []FileEntry{},
		Deletes: []string{},
	}

	localKeys := make(map[string]bool, len(files))
	for _, entry := range Entries(files, matcher, opts) {
		localKeys[entry.RelativeKey] = true
		if !entry.Include {
			continue
		}
		if item, ok := remoteMap[entry.RelativeKey]; ok {
			entry.Remote = &item
		}
		plan.Uploads = append(plan.Uploads, entry)
	}

	if opts.DeleteRemoved {
		for path := range remoteMap {
			if localKeys[path] {
				continue
			}
			// patterns are validated with the config
			if excluded, _ := fnmatch.MatchAny(opts.Excludes, path); excluded {
				continue
			}
			if protected(opts.Protected, path) {
				continue
			}
			plan.Deletes = append(plan.Deletes, opts.KeyPrefix+path)
		}
	}

	sort.Slice(plan.Uploads, func(i, j int) bool {
		return plan.Uploads[i].Key < plan.Uploads[j].Key
	})
	sort.Strings(plan.Deletes)
	return plan
}

// protected reports whether path is one of paths or lies under one of the
// directories among them.
func protected(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
		if (p == "" || strings.HasSuffix(p, "/")) && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
