package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/gatherings/internal/importer"
	"github.com/hyperjump/gatherings/internal/storage"
)

const (
	testDebounce = 100 * time.Millisecond
	waitFor      = 3 * time.Second
	tick         = 20 * time.Millisecond
)

// recordingImporter records the paths it is asked to import and remove.
type recordingImporter struct {
	mu       sync.Mutex
	imported []string
	removed  []string
}

func (r *recordingImporter) ImportFile(_ context.Context, path string) (*importer.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported = append(r.imported, path)
	return &importer.Result{Path: path}, nil
}

func (r *recordingImporter) RemoveFile(_ context.Context, path string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
	return 0, nil
}

func (r *recordingImporter) Imported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.imported...)
}

func (r *recordingImporter) Removed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

func hasSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, imp Importer, roots []string, recursive bool) *Watcher {
	t.Helper()
	w := New(imp, roots, []string{".yaml", ".yml"}, recursive, WithDebounce(testDebounce))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, &recordingImporter{}, nil, true)

	require.NoError(t, w.AddDirectory(dir, false))
	require.NoError(t, w.AddDirectory(dir, false))
	assert.Equal(t, []string{filepath.Clean(dir)}, w.Directories())

	require.NoError(t, w.RemoveDirectory(dir))
	assert.Empty(t, w.Directories())
	require.NoError(t, w.RemoveDirectory(dir), "removing an unknown root is a no-op")
}

func TestWatcher_AddDirectoryBeforeStart(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingImporter{}
	w := New(rec, nil, []string{".yaml"}, true, WithDebounce(testDebounce))
	require.NoError(t, w.AddDirectory(dir, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "late.yaml"), "locations: []\n")
	assert.Eventually(t, func() bool { return hasSuffix(rec.Imported(), "late.yaml") }, waitFor, tick)
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingImporter{}
	startWatcher(t, rec, []string{dir}, true)

	path := filepath.Join(dir, "venues.yaml")
	for i := 0; i < 5; i++ {
		writeFile(t, path, strings.Repeat("#", i+1))
	}
	writeFile(t, filepath.Join(dir, "notes.txt"), "skip")

	assert.Eventually(t, func() bool { return hasSuffix(rec.Imported(), "venues.yaml") }, waitFor, tick)
	time.Sleep(4 * testDebounce)
	imported := rec.Imported()
	assert.Len(t, imported, 1, "rapid writes collapse into one import: %v", imported)
	assert.False(t, hasSuffix(imported, "notes.txt"))
}

func TestWatcher_RemoveAndRename(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "locations: []\n")
	writeFile(t, b, "locations: []\n")

	rec := &recordingImporter{}
	startWatcher(t, rec, []string{dir}, true)

	require.NoError(t, os.Remove(a))
	assert.Eventually(t, func() bool { return hasSuffix(rec.Removed(), "a.yaml") }, waitFor, tick)

	renamed := filepath.Join(dir, "c.yml")
	require.NoError(t, os.Rename(b, renamed))
	assert.Eventually(t, func() bool {
		return hasSuffix(rec.Removed(), "b.yaml") && hasSuffix(rec.Imported(), "c.yml")
	}, waitFor, tick)
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingImporter{}
	startWatcher(t, rec, []string{dir}, true)

	nested := filepath.Join(dir, "level1", "level2")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(nested, "deep.yaml"), "locations: []\n")
	writeFile(t, filepath.Join(nested, "ignore.xyz"), "skip")

	assert.Eventually(t, func() bool { return hasSuffix(rec.Imported(), "deep.yaml") }, waitFor, tick)
	assert.False(t, hasSuffix(rec.Imported(), "ignore.xyz"))
}

func TestWatcher_NonRecursiveIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeFile(t, filepath.Join(dir, "top.yaml"), "locations: []\n")
	writeFile(t, filepath.Join(sub, "nested.yaml"), "locations: []\n")

	rec := &recordingImporter{}
	w := startWatcher(t, rec, []string{dir}, false)
	w.SyncExistingFiles()

	imported := rec.Imported()
	assert.True(t, hasSuffix(imported, "top.yaml"))
	assert.False(t, hasSuffix(imported, "nested.yaml"))
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "locations: []\n")
	writeFile(t, filepath.Join(dir, "ignore.xyz"), "x")

	rec := &recordingImporter{}
	w := startWatcher(t, rec, []string{dir}, true)
	w.SyncExistingFiles()

	imported := rec.Imported()
	require.Len(t, imported, 1)
	assert.True(t, strings.HasSuffix(imported[0], "a.yaml"))
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, &recordingImporter{}, []string{root}, true)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWatcher_ImportsIntoStore(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "watch.db"))
	require.NoError(t, err)
	defer store.Close()
	imp := importer.New(store)
	startWatcher(t, imp, []string{dir}, true)

	ctx := context.Background()
	path := filepath.Join(dir, "venues.yaml")
	writeFile(t, path, "locations:\n  - title: Corner Cafe\n  - title: Library\n")
	assert.Eventually(t, func() bool {
		n, err := store.CountLocations(ctx)
		return err == nil && n == 2
	}, waitFor, tick)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		n, err := store.CountLocations(ctx)
		return err == nil && n == 0
	}, waitFor, tick)
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.yaml", []string{".yaml"}, true},
		{"/a/b.YAML", []string{".yaml"}, true},
		{"/a/b.xlsx", []string{"xlsx"}, true},
		{"/a/b.md", []string{".yaml"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.yaml", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
