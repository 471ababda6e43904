package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
)

type warnLogger struct {
	logger.NullLogger
	warnings []string
}

func (l *warnLogger) Warn(message string) {
	l.warnings = append(l.warnings, message)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(files []File) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	return paths
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":          "<html></html>",
		"assets/app.js":       "console.log(1)",
		"assets/css/site.css": "body{}",
		"b.txt":               "b",
	})

	w := New(root, Options{})
	files := w.Walk()

	assert.Equal(t, []string{"assets/app.js", "assets/css/site.css", "b.txt", "index.html"}, relPaths(files))
	assert.False(t, w.RootMissing())
	assert.Empty(t, w.Skipped())
	assert.Equal(t, filepath.Join(root, "assets", "app.js"), files[0].Path)
	assert.Equal(t, int64(len("console.log(1)")), files[0].Size)
	assert.False(t, files[0].ModTime.IsZero())
}

func TestWalkMissingRoot(t *testing.T) {
	log := &warnLogger{}
	w := New(filepath.Join(t.TempDir(), "missing"), Options{Logger: log})
	files := w.Walk()

	assert.True(t, w.RootMissing())
	assert.NotNil(t, files)
	assert.Empty(t, files)
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "not found")
}

func TestWalkRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"file.txt": "x"})

	log := &warnLogger{}
	w := New(filepath.Join(root, "file.txt"), Options{Logger: log})
	files := w.Walk()

	assert.True(t, w.RootMissing())
	assert.Empty(t, files)
	assert.Len(t, log.warnings, 1)
}

func TestWalkExcludes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":       "x",
		"app.js":           "x",
		"app.js.map":       "x",
		"drafts/post.html": "x",
		".DS_Store":        "x",
	})

	files := New(root, Options{Excludes: []string{"*.map", "drafts/*", ".DS_Store"}}).Walk()

	assert.Equal(t, []string{"app.js", "index.html"}, relPaths(files))
}

func TestWalkSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	base := t.TempDir()
	root := filepath.Join(base, "site")
	shared := filepath.Join(base, "shared")
	writeFiles(t, root, map[string]string{"index.html": "x"})
	writeFiles(t, shared, map[string]string{"logo.png": "x"})

	require.NoError(t, os.Symlink(shared, filepath.Join(root, "shared")))
	require.NoError(t, os.Symlink(filepath.Join(root, "index.html"), filepath.Join(root, "home.html")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(base, "gone"), filepath.Join(root, "dangling")))

	t.Run("not followed", func(t *testing.T) {
		files := New(root, Options{}).Walk()
		assert.Equal(t, []string{"index.html"}, relPaths(files))
	})

	t.Run("followed", func(t *testing.T) {
		log := &warnLogger{}
		files := New(root, Options{FollowSymlinks: true, Logger: log}).Walk()

		assert.Equal(t, []string{"home.html", "index.html", "shared/logo.png"}, relPaths(files))
		assert.Len(t, log.warnings, 2) // dangling link and loop
	})
}

func TestWalkUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed")
	}

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":         "x",
		"private/secret.txt": "x",
	})
	private := filepath.Join(root, "private")
	require.NoError(t, os.Chmod(private, 0o000))
	t.Cleanup(func() { _ = os.Chmod(private, 0o755) })

	log := &warnLogger{}
	w := New(root, Options{Logger: log})
	files := w.Walk()

	assert.Equal(t, []string{"index.html"}, relPaths(files))
	assert.Equal(t, []string{"private/"}, w.Skipped())
	assert.False(t, w.RootMissing())
	assert.Len(t, log.warnings, 1)
}

func TestWalkUnreadableFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed")
	}

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":      "x",
		"assets/lock.txt": "x",
	})
	locked := filepath.Join(root, "assets", "lock.txt")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	w := New(root, Options{Logger: &warnLogger{}})
	files := w.Walk()

	assert.Equal(t, []string{"index.html"}, relPaths(files))
	assert.Equal(t, []string{"assets/lock.txt"}, w.Skipped())
}
