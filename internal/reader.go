package internal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/mholt/archives"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	readBufSize = 64 * 1024
	binarySniff = 8000 // same window grep uses
)

var errBinary = errors.New("binary content")

// MatchSet maps a 1-based line number to the line with every occurrence
// of the pattern highlighted. Empty means the file did not match.
type MatchSet map[int]string

// Lines returns the matched line numbers in ascending order.
func (m MatchSet) Lines() []int {
	lines := make([]int, 0, len(m))
	for n := range m {
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines
}

type badLines struct {
	count int
	first int
}

// matchReader streams lines and collects highlighted matches.
// Undecodable lines are skipped and counted. A read error ends the scan,
// keeping what matched so far.
func matchReader(r io.Reader, p *PlainPattern) (MatchSet, badLines, error) {
	matches := MatchSet{}
	var bad badLines

	br := bufio.NewReaderSize(r, readBufSize)
	head, err := br.Peek(binarySniff)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return matches, bad, err
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return matches, bad, errBinary
	}

	lineNum := 0
	for {
		b, err := br.ReadBytes('\n')
		if len(b) > 0 {
			lineNum++
			b = bytes.TrimSuffix(b, []byte{'\n'})
			b = bytes.TrimSuffix(b, []byte{'\r'})
			if !utf8.Valid(b) {
				if bad.count == 0 {
					bad.first = lineNum
				}
				bad.count++
			} else if line := string(b); p.Match(line) {
				matches[lineNum] = p.Highlight(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return matches, bad, nil
			}
			return matches, bad, err
		}
	}
}

// Matcher runs the per-file part of a search: filter, open, scan.
type Matcher struct {
	fs      afero.Fs
	pattern *PlainPattern
	timeout time.Duration
}

func NewMatcher(fs afero.Fs, pattern *PlainPattern, timeout time.Duration) *Matcher {
	return &Matcher{fs: fs, pattern: pattern, timeout: timeout}
}

// MatchFile returns the file's MatchSet and whether the file was opened.
// Every failure is handed to report and yields an empty MatchSet; nothing
// here stops the caller.
func (m *Matcher) MatchFile(ctx context.Context, t FileTask, report func(error)) (MatchSet, bool) {
	if t.Filter.Pattern == "" || !t.Filter.allowedName(t.Name()) {
		return MatchSet{}, false
	}

	f, closeFn, err := m.open(ctx, t)
	if err != nil {
		report(&SearchError{Kind: FileOpenError, Path: t.DisplayPath(), Err: err})
		return MatchSet{}, false
	}
	defer closeFn()

	fctx, cancel := ctx, context.CancelFunc(func() {})
	if m.timeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	defer cancel()
	// closing the file unblocks a pending read
	stop := context.AfterFunc(fctx, func() { _ = f.Close() })
	defer stop()

	matches, bad, err := matchReader(f, m.pattern)
	switch {
	case errors.Is(err, errBinary):
		logrus.WithField("file", t.DisplayPath()).Debug("skip binary file")
		return MatchSet{}, true
	case err != nil && ctx.Err() != nil:
		// run cancelled, partial results are expected
	case err != nil && fctx.Err() != nil:
		report(&SearchError{Kind: FileOpenError, Path: t.DisplayPath(), Err: fmt.Errorf("read timed out after %s", m.timeout)})
	case err != nil:
		report(&SearchError{Kind: FileOpenError, Path: t.DisplayPath(), Err: err})
	}
	if bad.count > 0 {
		report(&SearchError{
			Kind: DecodingError,
			Path: t.DisplayPath(),
			Err:  fmt.Errorf("skipped %d undecodable line(s), first at line %d", bad.count, bad.first),
		})
	}
	return matches, true
}

// open returns the file and a func releasing it and anything it lives in.
func (m *Matcher) open(ctx context.Context, t FileTask) (io.ReadCloser, func(), error) {
	if t.Inner == "" {
		f, err := m.fs.Open(t.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}

	fsys, err := archives.FileSystem(ctx, t.Path, nil)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if closer, ok := fsys.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	f, err := fsys.Open(t.Inner)
	if err != nil {
		release()
		return nil, nil, err
	}
	return f, func() { _ = f.Close(); release() }, nil
}

// Name is the base name the extension filter is checked against.
func (t FileTask) Name() string {
	if t.Inner != "" {
		return path.Base(t.Inner)
	}
	return filepath.Base(t.Path)
}

// DisplayPath is the key the task's results are reported under.
func (t FileTask) DisplayPath() string {
	if t.Inner != "" {
		return filepath.Join(t.Path, filepath.FromSlash(t.Inner))
	}
	return t.Path
}
