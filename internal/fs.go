package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	maxArchiveFiles = 10000 // zip-bomb protection
	maxRootLinks    = 40
)

var errArchiveLimit = errors.New("archive file limit reached")

// IsArchive by extension. O(1) map lookup
var archiveExt = map[string]struct{}{
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {},
	".rar": {}, ".br": {}, ".lz4": {}, ".lz": {}, ".mz": {},
	".sz": {}, ".s2": {}, ".zz": {}, ".zst": {}, ".7z": {},
}

// FileTask describes a unit of work: one regular file, or one entry of an
// archive when Inner is set.
type FileTask struct {
	Path   string
	Inner  string
	Filter Filter
}

// Walker enumerates regular files below a root. Symlinked directories are
// leaves and never descended. A walk is not restartable; call Walk again
// for a new one.
type Walker struct {
	fs       afero.Fs
	filter   Filter
	depth    int
	archives bool
}

func NewWalker(fs afero.Fs, opts ScanOptions) *Walker {
	return &Walker{fs: fs, filter: opts.filter(), depth: opts.Depth, archives: opts.Archives}
}

// CheckRoot must pass before a walk starts.
func CheckRoot(fs afero.Fs, root string) error {
	st, err := fs.Stat(root)
	if err != nil {
		return &SearchError{Kind: RootTraversalError, Path: root, Err: err}
	}
	if !st.IsDir() {
		return &SearchError{Kind: RootTraversalError, Path: root, Err: errors.New("not a directory")}
	}
	return nil
}

// resolveRoot follows root while it is a symlink. Only the root is
// followed; links met during the walk stay leaves.
func resolveRoot(fs afero.Fs, root string) string {
	lst, ok := fs.(afero.Lstater)
	if !ok {
		return root
	}
	lr, ok := fs.(afero.LinkReader)
	if !ok {
		return root
	}
	cur := root
	for i := 0; i < maxRootLinks; i++ {
		info, lstatted, err := lst.LstatIfPossible(cur)
		if err != nil || !lstatted || info.Mode()&os.ModeSymlink == 0 {
			return cur
		}
		target, err := lr.ReadlinkIfPossible(cur)
		if err != nil {
			return cur
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(cur), target)
		}
		cur = target
	}
	return cur
}

// Walk calls emit for every regular file under root, in lexical order per
// directory. A symlinked root is followed, and paths are still reported
// under root. Unreadable entries go to report and are skipped. It stops on
// the first error emit returns, or when ctx is done.
func (w *Walker) Walk(ctx context.Context, root string, emit func(FileTask) error, report func(error)) error {
	walkRoot := resolveRoot(w.fs, root)
	if walkRoot != root {
		logrus.Debugf("Root %s resolved to %s", root, walkRoot)
	}
	return afero.Walk(w.fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkRoot != root {
			rel, _ := filepath.Rel(walkRoot, path)
			path = filepath.Join(root, rel)
		}
		if err != nil {
			report(&SearchError{Kind: EntryMetadataError, Path: path, Err: err})
			return nil
		}

		depth := 0
		if w.depth > 0 {
			rel, _ := filepath.Rel(root, path)
			if rel != "." {
				depth = depthCount(rel)
			}
		}
		if info.IsDir() {
			// children of this dir would already be too deep
			if w.depth > 0 && depth >= w.depth {
				return filepath.SkipDir
			}
			return nil
		}
		if w.depth > 0 && depth > w.depth {
			return nil
		}

		mode := info.Mode()
		switch {
		case mode.IsRegular():
		case mode&os.ModeSymlink != 0:
			target, err := w.fs.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				// dangling, or a directory we deliberately do not follow
				return nil
			}
		default:
			return nil
		}

		if w.archives && IsArchive(path) {
			return w.walkArchive(ctx, path, emit, report)
		}
		return emit(FileTask{Path: path, Filter: w.filter})
	})
}

// walkArchive feeds archive entries as tasks.
func (w *Walker) walkArchive(ctx context.Context, path string, emit func(FileTask) error, report func(error)) error {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		report(&SearchError{Kind: FileOpenError, Path: path, Err: err})
		return nil
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer closer.Close()
	}

	count := 0
	var emitErr error
	err = iofs.WalkDir(fsys, ".", func(inner string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			report(&SearchError{Kind: EntryMetadataError, Path: filepath.Join(path, filepath.FromSlash(inner)), Err: err})
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if count >= maxArchiveFiles {
			return errArchiveLimit
		}
		count++
		emitErr = emit(FileTask{Path: path, Inner: inner, Filter: w.filter})
		return emitErr
	})
	switch {
	case emitErr != nil:
		return emitErr
	case errors.Is(err, errArchiveLimit):
		logrus.Warnf("Archive %s truncated: too many files (>= %d)", path, maxArchiveFiles)
		return nil
	case err != nil && ctx.Err() == nil:
		report(&SearchError{Kind: FileOpenError, Path: path, Err: fmt.Errorf("read archive: %w", err)})
		return nil
	}
	return err
}

func depthCount(rel string) int {
	if rel == "" {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}

func IsArchive(path string) bool {
	_, ok := archiveExt[strings.ToLower(filepath.Ext(path))]
	return ok
}
