package clientgen

import (
	"fmt"
	"strings"
)

// Builder accumulates generated output as an ordered list of lines and
// joins them once in String.
type Builder struct {
	lines []string
}

// Line appends one line.
func (b *Builder) Line(s string) {
	b.lines = append(b.lines, s)
}

// Linef appends one formatted line.
func (b *Builder) Linef(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Lines appends several lines in order.
func (b *Builder) Lines(lines ...string) {
	b.lines = append(b.lines, lines...)
}

// Blank appends an empty line.
func (b *Builder) Blank() {
	b.lines = append(b.lines, "")
}

// Block appends a multi-line fragment with surrounding blank lines trimmed.
func (b *Builder) Block(text string) {
	b.lines = append(b.lines, strings.Split(strings.Trim(text, "\n"), "\n")...)
}

// Len returns the number of lines appended so far.
func (b *Builder) Len() int { return len(b.lines) }

// String joins the lines with "\n".
func (b *Builder) String() string {
	return strings.Join(b.lines, "\n")
}
