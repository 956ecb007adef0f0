package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	DefaultThreads = 8
	maxThreads     = 1024
)

// Format selects how the Reporter renders results.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ScanOptions - the resolved search request built by the CLI.
// Read-only once Prepare has run; shared by every worker.
type ScanOptions struct {
	Root        string
	Pattern     string
	Extension   string
	Highlight   Style
	Threads     int
	Queue       int
	Depth       int
	Archives    bool
	FileTimeout time.Duration
	Format      Format
	List        bool
	Progress    bool
}

// Filter is the part of ScanOptions a single file task needs.
type Filter struct {
	Pattern   string
	Extension string
}

// Validate checks invariants and reports every problem at once.
func (o *ScanOptions) Validate() error {
	var result *multierror.Error
	if o.Root == "" {
		result = multierror.Append(result, errors.New("root directory is required"))
	}
	// list mode wins over search, so a pattern is optional there
	if !o.List && o.Pattern == "" {
		result = multierror.Append(result, errors.New("search pattern is required"))
	}
	if o.Threads < 0 || o.Threads > maxThreads {
		result = multierror.Append(result, fmt.Errorf("threads must be between 0 and %d, got %d", maxThreads, o.Threads))
	}
	if o.Queue < 0 {
		result = multierror.Append(result, fmt.Errorf("queue must not be negative, got %d", o.Queue))
	}
	if o.Depth < 0 {
		result = multierror.Append(result, fmt.Errorf("depth must not be negative, got %d", o.Depth))
	}
	if o.FileTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("file-timeout must not be negative, got %s", o.FileTimeout))
	}
	switch o.Format {
	case "", FormatText, FormatJSON, FormatYAML:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown format %q", o.Format))
	}
	if _, err := ParseStyle(string(o.Highlight)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return &SearchError{Kind: ArgumentError, Err: err}
	}
	return nil
}

// Prepare fills defaults.
func (o *ScanOptions) Prepare() {
	if o.Threads <= 0 {
		o.Threads = DefaultThreads
	}
	if o.Queue <= 0 {
		o.Queue = o.Threads * 2
	}
	if o.Format == "" {
		o.Format = FormatText
	}
	if o.Highlight == "" {
		o.Highlight = StyleAuto
	}
	o.Extension = strings.TrimSpace(o.Extension)
}

func (o *ScanOptions) filter() Filter {
	return Filter{Pattern: o.Pattern, Extension: o.Extension}
}

// allowedName reports whether a file name passes the extension filter.
// The filter is a plain suffix, compared against the name, never the path.
func (f Filter) allowedName(name string) bool {
	return f.Extension == "" || strings.HasSuffix(name, f.Extension)
}
