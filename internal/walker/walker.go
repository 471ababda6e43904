package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/yuya-takeyama/site-s3-sync/pkg/fnmatch"
	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
)

// File represents a readable regular file under the walk root
type File struct {
	Path    string // Absolute path
	RelPath string // Slash-separated path relative to root
	Size    int64
	ModTime time.Time
}

// Options controls what the walker descends into
type Options struct {
	FollowSymlinks bool
	Excludes       []string
	Logger         logger.Logger
}

// Walker enumerates local files for one site
type Walker struct {
	root string
	opts Options

	missing bool
	skipped []string
}

// New creates a walker rooted at root. A missing root is not an error here;
// Walk reports it and returns no files.
func New(root string, opts Options) *Walker {
	if opts.Logger == nil {
		opts.Logger = logger.NullLogger{}
	}
	return &Walker{
		root: filepath.Clean(root),
		opts: opts,
	}
}

// Walk returns every readable regular file under the root, depth-first in
// lexical order. Unreadable entries are skipped with a warning and recorded
// in Skipped.
func (w *Walker) Walk() []File {
	w.missing = false
	w.skipped = nil

	info, err := os.Stat(w.root)
	if err != nil {
		w.missing = true
		w.opts.Logger.Warn(fmt.Sprintf("local directory %s not found, nothing to sync: %v", w.root, err))
		return []File{}
	}
	if !info.IsDir() {
		w.missing = true
		w.opts.Logger.Warn(fmt.Sprintf("local path %s is not a directory, nothing to sync", w.root))
		return []File{}
	}

	ancestors := map[string]bool{}
	if real, err := filepath.EvalSymlinks(w.root); err == nil {
		ancestors[real] = true
	}

	files := w.walkDir(w.root, "", ancestors)
	if files == nil {
		return []File{}
	}
	return files
}

// RootMissing reports whether the last Walk found no directory at the root.
func (w *Walker) RootMissing() bool {
	return w.missing
}

// Skipped returns the relative paths the last Walk could not read. Directories
// carry a trailing slash and the root itself is recorded as "".
func (w *Walker) Skipped() []string {
	return w.skipped
}

// walkDir returns the files under dir; rel is dir's path relative to the root
// and ancestors holds the real paths of the directories above it.
func (w *Walker) walkDir(dir, rel string, ancestors map[string]bool) []File {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// ReadDir may still return the entries read before the failure
		w.opts.Logger.Warn(fmt.Sprintf("cannot read directory %s, skipping: %v", dir, err))
		if rel == "" {
			w.skipped = append(w.skipped, "")
		} else {
			w.skipped = append(w.skipped, rel+"/")
		}
	}

	var files []File
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		relPath := entry.Name()
		if rel != "" {
			relPath = rel + "/" + entry.Name()
		}

		info, ok := w.resolve(path, entry)
		if !ok {
			continue
		}
		if info == nil {
			w.skipped = append(w.skipped, relPath)
			continue
		}

		if info.IsDir() {
			if w.isExcluded(relPath + "/") {
				continue
			}
			next, ok := w.descend(path, ancestors)
			if !ok {
				continue
			}
			files = append(files, w.walkDir(path, relPath, next)...)
			continue
		}

		if !info.Mode().IsRegular() || w.isExcluded(relPath) {
			continue
		}
		if !w.readable(path) {
			w.skipped = append(w.skipped, relPath)
			continue
		}

		files = append(files, File{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files
}

// resolve returns the info for entry, following symlinks only when enabled.
// A nil info with ok set means the entry exists but could not be stat'ed.
func (w *Walker) resolve(path string, entry fs.DirEntry) (fs.FileInfo, bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		if !w.opts.FollowSymlinks {
			w.opts.Logger.Debug(fmt.Sprintf("skipping symlink %s", path))
			return nil, false
		}
		info, err := os.Stat(path)
		if err != nil {
			w.opts.Logger.Warn(fmt.Sprintf("cannot follow symlink %s, skipping: %v", path, err))
			return nil, false
		}
		return info, true
	}

	info, err := entry.Info()
	if err != nil {
		w.opts.Logger.Warn(fmt.Sprintf("cannot stat %s, skipping: %v", path, err))
		return nil, true
	}
	return info, true
}

// descend returns the ancestor set for a child directory. Only followed
// symlinks can form loops, so real paths are tracked only when following.
func (w *Walker) descend(path string, ancestors map[string]bool) (map[string]bool, bool) {
	if !w.opts.FollowSymlinks {
		return ancestors, true
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.opts.Logger.Warn(fmt.Sprintf("cannot resolve %s, skipping: %v", path, err))
		return nil, false
	}
	if ancestors[real] {
		w.opts.Logger.Warn(fmt.Sprintf("skipping symlink loop at %s", path))
		return nil, false
	}

	next := make(map[string]bool, len(ancestors)+1)
	for k := range ancestors {
		next[k] = true
	}
	next[real] = true
	return next, true
}

func (w *Walker) readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		w.opts.Logger.Warn(fmt.Sprintf("cannot read file %s, skipping: %v", path, err))
		return false
	}
	f.Close()
	return true
}

// isExcluded checks if a relative path matches any exclude pattern
func (w *Walker) isExcluded(relPath string) bool {
	excluded, err := fnmatch.MatchAny(w.opts.Excludes, relPath)
	return err == nil && excluded
}
