package internal

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const statsInterval = 2 * time.Second

// AggregateResult maps a file path to its MatchSet, for matched files only.
type AggregateResult map[string]MatchSet

// Paths returns the paths in lexicographic order.
func (r AggregateResult) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Collector is the single owner of the AggregateResult. Nothing else
// touches it, so it needs no lock; Result is only valid after Run returns.
type Collector struct {
	result  AggregateResult
	scanned int64
	lines   int64
	observe func(FileResult)
}

// NewCollector - observe, if not nil, sees every result in arrival order.
func NewCollector(observe func(FileResult)) *Collector {
	return &Collector{result: AggregateResult{}, observe: observe}
}

// Run consumes in until it is closed and drained.
func (c *Collector) Run(in <-chan FileResult) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case res, ok := <-in:
			if !ok {
				return
			}
			c.add(res)
		case <-ticker.C:
			logrus.Infof("Stats: scanned=%d matched=%d lines=%d", c.scanned, len(c.result), c.lines)
		}
	}
}

func (c *Collector) add(res FileResult) {
	if c.observe != nil {
		c.observe(res)
	}
	if res.Scanned {
		c.scanned++
	}
	if len(res.Matches) == 0 {
		return
	}
	if _, dup := c.result[res.Path]; dup {
		logrus.WithField("file", res.Path).Warn("duplicate result ignored")
		return
	}
	c.result[res.Path] = res.Matches
	c.lines += int64(len(res.Matches))
}

// Result returns the frozen aggregate.
func (c *Collector) Result() AggregateResult {
	return c.result
}
