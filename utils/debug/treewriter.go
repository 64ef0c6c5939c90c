// Package debug holds shared helpers for the textual tree dumps which
// end up in debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialized document fragments can be arbitrarily long, only the head
// is of interest when eyeballing a dump.
const maxTextBlock = 400

// TreeWriter accumulates an indented textual rendering of a tree.
type TreeWriter struct {
	w      *strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w:      &strings.Builder{},
		indent: "  ",
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

// Line writes a single formatted line at the requested depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes a labeled quoted value at the requested depth,
// clipping it to maxTextBlock runes.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(quoteClipped(value))
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.w.WriteString(tw.indent)
	}
}

func quoteClipped(raw string) string {
	if raw == "" {
		return raw
	}
	if r := []rune(raw); len(r) > maxTextBlock {
		return strconv.Quote(string(r[:maxTextBlock])) + fmt.Sprintf(" +%d runes", len(r)-maxTextBlock)
	}
	return strconv.Quote(raw)
}
