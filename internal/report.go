package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Report is the outcome of one Scan.
type Report struct {
	Results AggregateResult
	Stats   *AppStats
	// Partial is set when the run was cancelled before the walk finished.
	Partial bool
}

type lineOutput struct {
	Line int    `json:"line" yaml:"line"`
	Text string `json:"text" yaml:"text"`
}

type fileOutput struct {
	Path    string       `json:"path" yaml:"path"`
	Matches []lineOutput `json:"matches" yaml:"matches"`
}

// Reporter renders an AggregateResult. Files come out sorted by path and
// lines by number, so the output does not depend on scheduling.
type Reporter struct {
	w      io.Writer
	format Format
}

func NewReporter(w io.Writer, format Format) *Reporter {
	if format == "" {
		format = FormatText
	}
	return &Reporter{w: w, format: format}
}

func (r *Reporter) Render(res AggregateResult) error {
	switch r.format {
	case FormatText:
		return r.renderText(res)
	case FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(ordered(res))
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(ordered(res)); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", r.format)
}

func (r *Reporter) renderText(res AggregateResult) error {
	bw := bufio.NewWriter(r.w)
	for _, path := range res.Paths() {
		fmt.Fprintln(bw, path)
		set := res[path]
		for _, n := range set.Lines() {
			fmt.Fprintf(bw, "    %d: %s\n", n, set[n])
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func ordered(res AggregateResult) []fileOutput {
	out := make([]fileOutput, 0, len(res))
	for _, path := range res.Paths() {
		set := res[path]
		f := fileOutput{Path: path, Matches: make([]lineOutput, 0, len(set))}
		for _, n := range set.Lines() {
			f.Matches = append(f.Matches, lineOutput{Line: n, Text: set[n]})
		}
		out = append(out, f)
	}
	return out
}
