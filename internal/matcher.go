package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Style - how matched occurrences are marked in a reported line.
type Style string

const (
	StyleAuto      Style = "auto"
	StyleUnderline Style = "underline"
	StyleBold      Style = "bold"
	StyleColor     Style = "color"
	StyleNone      Style = "none"
)

// ParseStyle accepts the empty string as auto.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleAuto, nil
	case StyleAuto, StyleUnderline, StyleBold, StyleColor, StyleNone:
		return st, nil
	}
	return "", fmt.Errorf("unknown highlight style %q", s)
}

// Resolve turns auto into a concrete style depending on whether out is a terminal.
func (s Style) Resolve(out *os.File) Style {
	if s != StyleAuto && s != "" {
		return s
	}
	if out != nil && (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())) {
		return StyleUnderline
	}
	return StyleNone
}

func (s Style) attributes() []color.Attribute {
	switch s {
	case StyleUnderline, StyleAuto:
		return []color.Attribute{color.Underline}
	case StyleBold:
		return []color.Attribute{color.Bold}
	case StyleColor:
		return []color.Attribute{color.FgRed, color.Bold}
	}
	return nil
}

// PlainPattern is a literal, case-sensitive substring.
type PlainPattern struct {
	s      string
	marked string
}

// NewPlainPattern builds a pattern whose occurrences are wrapped in style.
// Color output is forced on so the marker does not depend on the terminal
// the process happens to run in; StyleAuto must be resolved by the caller.
func NewPlainPattern(s string, style Style) *PlainPattern {
	p := &PlainPattern{s: s, marked: s}
	if attrs := style.attributes(); len(attrs) > 0 && s != "" {
		c := color.New(attrs...)
		c.EnableColor()
		p.marked = c.Sprint(s)
	}
	return p
}

// Match - an empty pattern matches nothing.
func (p *PlainPattern) Match(line string) bool {
	return p.s != "" && strings.Contains(line, p.s)
}

// Highlight wraps every non-overlapping occurrence, not just the first.
func (p *PlainPattern) Highlight(line string) string {
	if p.s == "" || p.marked == p.s {
		return line
	}
	return strings.ReplaceAll(line, p.s, p.marked)
}

// Strip undoes Highlight.
func (p *PlainPattern) Strip(line string) string {
	if p.s == "" || p.marked == p.s {
		return line
	}
	return strings.ReplaceAll(line, p.marked, p.s)
}

func (p *PlainPattern) Desc() string { return p.s }
