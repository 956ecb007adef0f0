package internal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// ListFiles prints every regular file under opts.Root whose name ends with
// opts.Extension and contains opts.Pattern, one path per line, in walk
// order. Nothing is opened or scanned and no workers are used.
func ListFiles(ctx context.Context, fs afero.Fs, opts ScanOptions, out, errOut io.Writer) (int, error) {
	opts.List = true
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	opts.Prepare()
	if err := CheckRoot(fs, opts.Root); err != nil {
		return 0, err
	}

	n := 0
	report := func(err error) {
		fmt.Fprintf(errOut, "ERROR: %s: %s\n", Cause(err), pathOf(err))
	}
	err := NewWalker(fs, opts).Walk(ctx, opts.Root, func(t FileTask) error {
		if !t.Filter.allowedName(t.Name()) || !strings.Contains(t.Name(), t.Filter.Pattern) {
			return nil
		}
		n++
		_, err := fmt.Fprintln(out, t.DisplayPath())
		return err
	}, report)
	if err != nil && ctx.Err() == nil {
		return n, fmt.Errorf("list %s: %w", opts.Root, err)
	}
	return n, nil
}
