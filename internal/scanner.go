package internal

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// FileResult is what a worker hands to the Collector for every task it ran.
type FileResult struct {
	Path    string
	Matches MatchSet
	Scanned bool
}

// FileScanner runs the concurrent search pipeline:
// walker -> bounded queue -> pool of matchers -> collector.
type FileScanner struct {
	fs     afero.Fs
	errOut io.Writer
}

func NewFileScanner(fs afero.Fs, errOut io.Writer) *FileScanner {
	return &FileScanner{fs: fs, errOut: errOut}
}

// Scan searches opts.Root and returns the aggregated matches. Only argument
// and root errors are returned; everything else is written to the error
// stream. A cancelled ctx yields partial results, not an error.
func (fs *FileScanner) Scan(ctx context.Context, opts ScanOptions) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Prepare()
	if err := CheckRoot(fs.fs, opts.Root); err != nil {
		return nil, err
	}

	var stats AppStats
	stats.Start()

	pattern := NewPlainPattern(opts.Pattern, opts.Highlight)
	matcher := NewMatcher(fs.fs, pattern, opts.FileTimeout)
	walker := NewWalker(fs.fs, opts)

	taskCh := make(chan FileTask, opts.Queue)
	resultCh := make(chan FileResult, opts.Threads)
	errCh := make(chan error, opts.Threads)
	report := func(err error) { errCh <- err }

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(opts.Threads, func(i interface{}) {
		defer wg.Done()
		t := i.(FileTask)
		matches, scanned := matcher.MatchFile(ctx, t, report)
		resultCh <- FileResult{Path: t.DisplayPath(), Matches: matches, Scanned: scanned}
	})
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	defer pool.Release()

	bar := newProgress(fs.errOut, opts.Progress)
	collector := NewCollector(bar.observe)
	var g errgroup.Group

	// walker
	g.Go(func() error {
		defer close(taskCh)
		err := walker.Walk(ctx, opts.Root, func(t FileTask) error {
			select {
			case taskCh <- t:
				stats.FilesFound++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}, report)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("walk %s: %w", opts.Root, err)
		}
		return nil
	})

	// dispatcher
	g.Go(func() error {
		defer func() {
			wg.Wait()
			close(resultCh)
			close(errCh)
		}()
		for t := range taskCh {
			if ctx.Err() != nil {
				// drain so the walker never blocks on a full queue
				continue
			}
			wg.Add(1)
			if err := pool.Invoke(t); err != nil {
				wg.Done()
				logrus.WithError(err).Error("submit task")
				report(&SearchError{Kind: FileOpenError, Path: t.DisplayPath(), Err: err})
			}
		}
		return nil
	})

	g.Go(func() error {
		collector.Run(resultCh)
		return nil
	})

	g.Go(func() error {
		stats.Errors = int64(writeIssues(fs.errOut, errCh))
		return nil
	})

	walkErr := g.Wait()
	bar.finish()

	res := collector.Result()
	stats.FilesScanned = collector.scanned
	stats.FilesMatched = int64(len(res))
	stats.Matches = collector.lines
	stats.Finish()

	rep := &Report{Results: res, Stats: &stats, Partial: ctx.Err() != nil}
	if rep.Partial {
		logrus.WithError(ctx.Err()).Warn("Scan cancelled, reporting partial results")
	}
	if walkErr != nil {
		// the walker only fails on something other than a single entry;
		// what was found is still reported
		logrus.WithError(walkErr).Error("Scan walk aborted")
		rep.Partial = true
	}
	logrus.WithFields(logrus.Fields{
		"found":   stats.FilesFound,
		"scanned": stats.FilesScanned,
		"matched": stats.FilesMatched,
		"lines":   stats.Matches,
		"errors":  stats.Errors,
		"elapsed": stats.Elapsed().Round(time.Millisecond),
	}).Info("Scan finished")
	return rep, nil
}
