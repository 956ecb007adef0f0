package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestIsArchive(t *testing.T) {
	exts := []string{".zip", ".tar", ".gz", ".bz2", ".xz", ".rar", ".7z", ".zst"}
	for _, e := range exts {
		if !IsArchive("x" + e) {
			t.Errorf("expected archive for %s", e)
		}
	}
	if !IsArchive("X.ZIP") {
		t.Errorf("extension check must ignore case")
	}
	if IsArchive("file.txt") {
		t.Errorf("txt is not archive")
	}
}

func TestDepthCount(t *testing.T) {
	if depthCount("") != 0 {
		t.Fatal("empty rel should be 0")
	}
	if depthCount("a") != 1 || depthCount(filepath.Join("a", "b")) != 2 {
		t.Fatal("depthCount wrong")
	}
}

func walkPaths(t *testing.T, fs afero.Fs, opts ScanOptions) ([]string, []error) {
	t.Helper()
	var seen []string
	var errs []error
	err := NewWalker(fs, opts).Walk(context.Background(), opts.Root, func(task FileTask) error {
		seen = append(seen, task.DisplayPath())
		return nil
	}, func(err error) { errs = append(errs, err) })
	require.NoError(t, err)
	return seen, errs
}

func TestWalker_YieldsRegularFilesOnly(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/data/a.txt":      "a",
		"/data/sub/b.txt":  "b",
		"/data/sub/deep/c": "c",
		"/data/z.py":       "z",
	})
	require.NoError(t, fs.MkdirAll("/data/empty", 0755))

	seen, errs := walkPaths(t, fs, ScanOptions{Root: "/data"})
	require.Empty(t, errs)
	require.Equal(t, []string{
		"/data/a.txt",
		"/data/sub/b.txt",
		"/data/sub/deep/c",
		"/data/z.py",
	}, seen)
}

func TestWalker_Depth(t *testing.T) {
	dir := t.TempDir()
	// a/, a/b/, a/b/c.txt
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "b", "c.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "top.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	fs := afero.NewOsFs()

	// depth=2 reaches a/top.txt but not a/b/c.txt
	seen, _ := walkPaths(t, fs, ScanOptions{Root: dir, Depth: 2})
	if len(seen) != 1 || filepath.Base(seen[0]) != "top.txt" {
		t.Fatalf("unexpected files with depth=2: %v", seen)
	}

	// depth=0 unlimited should see c.txt
	seen, _ = walkPaths(t, fs, ScanOptions{Root: dir})
	found := false
	for _, p := range seen {
		if filepath.Base(p) == "c.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to see c.txt with depth=0")
	}
}

func TestWalker_DoesNotFollowSymlinkedDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "f.txt"), []byte("x"), 0644))
	// a/loop -> dir would recurse forever if followed
	if err := os.Symlink(dir, filepath.Join(dir, "a", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "a", "f.txt"), filepath.Join(dir, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "dangling")))

	seen, errs := walkPaths(t, afero.NewOsFs(), ScanOptions{Root: dir})
	require.Empty(t, errs)
	require.Equal(t, []string{
		filepath.Join(dir, "a", "f.txt"),
		filepath.Join(dir, "link.txt"),
	}, seen)
}

// failingFs refuses to open the listed paths.
type failingFs struct {
	afero.Fs
	deny map[string]bool
}

func (f failingFs) Open(name string) (afero.File, error) {
	if f.deny[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func TestWalker_UnreadableDirIsSkipped(t *testing.T) {
	fs := failingFs{
		Fs: memFs(t, map[string]string{
			"/data/a.txt":        "a",
			"/data/locked/b.txt": "b",
			"/data/z.txt":        "z",
		}),
		deny: map[string]bool{"/data/locked": true},
	}
	seen, errs := walkPaths(t, fs, ScanOptions{Root: "/data"})
	require.Equal(t, []string{"/data/a.txt", "/data/z.txt"}, seen)
	require.Len(t, errs, 1)
	require.Equal(t, EntryMetadataError, KindOf(errs[0]))
	require.Equal(t, "/data/locked", pathOf(errs[0]))
}

func TestWalker_StopsOnEmitError(t *testing.T) {
	fs := memFs(t, map[string]string{"/data/a": "", "/data/b": "", "/data/c": ""})
	n := 0
	err := NewWalker(fs, ScanOptions{Root: "/data"}).Walk(context.Background(), "/data", func(FileTask) error {
		n++
		return os.ErrClosed
	}, func(error) {})
	require.ErrorIs(t, err, os.ErrClosed)
	require.Equal(t, 1, n)
}

func TestWalker_TaskCarriesFilter(t *testing.T) {
	fs := memFs(t, map[string]string{"/data/a.txt": ""})
	var got FileTask
	err := NewWalker(fs, ScanOptions{Root: "/data", Pattern: "p", Extension: "txt"}).Walk(context.Background(), "/data", func(task FileTask) error {
		got = task
		return nil
	}, func(error) {})
	require.NoError(t, err)
	require.Equal(t, Filter{Pattern: "p", Extension: "txt"}, got.Filter)
}

func TestCheckRoot(t *testing.T) {
	fs := memFs(t, map[string]string{"/data/a.txt": ""})
	require.NoError(t, CheckRoot(fs, "/data"))

	err := CheckRoot(fs, "/nope")
	require.Equal(t, RootTraversalError, KindOf(err))
	require.ErrorIs(t, err, os.ErrNotExist)

	err = CheckRoot(fs, "/data/a.txt")
	require.Equal(t, RootTraversalError, KindOf(err))
}

func TestWalker_FollowsSymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.txt"), []byte("hello\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "sub", "b.txt"), []byte("hello\n"), 0644))
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	// link2 -> link -> real, relative target
	require.NoError(t, os.Symlink("link", filepath.Join(dir, "link2")))

	fs := afero.NewOsFs()
	for _, root := range []string{link, filepath.Join(dir, "link2")} {
		require.NoError(t, CheckRoot(fs, root))
		seen, errs := walkPaths(t, fs, ScanOptions{Root: root})
		require.Empty(t, errs)
		require.Equal(t, []string{
			filepath.Join(root, "a.txt"),
			filepath.Join(root, "sub", "b.txt"),
		}, seen)
	}

	seen, _ := walkPaths(t, fs, ScanOptions{Root: link, Depth: 1})
	require.Equal(t, []string{filepath.Join(link, "a.txt")}, seen)
}
