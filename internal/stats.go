package internal

import (
	"time"
)

// AppStats totals for one run. Each counter is written by exactly one
// pipeline stage and read only after the pipeline has stopped.
type AppStats struct {
	start        time.Time
	elapsed      time.Duration
	FilesFound   int64
	FilesScanned int64
	FilesMatched int64
	Matches      int64
	Errors       int64
}

func (s *AppStats) Start() {
	s.start = time.Now()
}

func (s *AppStats) Finish() {
	s.elapsed = time.Since(s.start)
}

// Elapsed is the run time once finished, the time so far before that.
func (s *AppStats) Elapsed() time.Duration {
	if s.elapsed > 0 {
		return s.elapsed
	}
	return time.Since(s.start)
}
