package internal

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"

	"github.com/sirupsen/logrus"
)

// ErrorKind classifies failures. Only ArgumentError and RootTraversalError
// abort a run; the rest skip one entry, file or line.
type ErrorKind int

const (
	ArgumentError ErrorKind = iota + 1
	RootTraversalError
	EntryMetadataError
	FileOpenError
	DecodingError
)

func (k ErrorKind) String() string {
	switch k {
	case ArgumentError:
		return "argument error"
	case RootTraversalError:
		return "root traversal error"
	case EntryMetadataError:
		return "entry metadata error"
	case FileOpenError:
		return "file open error"
	case DecodingError:
		return "decoding error"
	}
	return "unknown error"
}

// Fatal reports whether the kind aborts the whole run.
func (k ErrorKind) Fatal() bool {
	return k == ArgumentError || k == RootTraversalError
}

// SearchError ties a failure to the path it happened on.
type SearchError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *SearchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, Cause(e.Err), e.Path)
}

func (e *SearchError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first SearchError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// Cause strips the path from os errors, so "open /x: permission denied"
// becomes "permission denied".
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var se *SearchError
	if errors.As(err, &se) && se.Err != nil {
		err = se.Err
	}
	var pe *iofs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

func pathOf(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Path
	}
	return ""
}

// writeIssues owns the error stream. It prints one line per error until in is
// closed and returns how many it wrote.
func writeIssues(w io.Writer, in <-chan error) int {
	n := 0
	for err := range in {
		n++
		path := pathOf(err)
		logrus.WithFields(logrus.Fields{"file": path, "kind": KindOf(err).String(), "err": err}).Debug("process error")
		if _, werr := fmt.Fprintf(w, "ERROR: %s: %s\n", Cause(err), path); werr != nil {
			logrus.WithError(werr).Warn("write error stream")
		}
	}
	return n
}
