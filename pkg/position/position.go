package position

import (
	"fmt"
	"sort"
)

// Position is a point in a document. Line and Column are zero-based, Column
// counts bytes from the start of the line.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Compare orders two positions by line, then column.
func (p Position) Compare(line, column int) int {
	switch {
	case p.Line < line:
		return -1
	case p.Line > line:
		return 1
	case p.Column < column:
		return -1
	case p.Column > column:
		return 1
	}
	return 0
}

// Range is a region of a document. Point containment is inclusive on both ends.
type Range struct {
	Start Position
	End   Position
}

// NewRange returns a zero-length range at p.
func NewRange(p Position) Range {
	return Range{Start: p, End: p}
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Includes reports whether the given line/column falls inside r.
func (r Range) Includes(line, column int) bool {
	return r.Start.Compare(line, column) <= 0 && r.End.Compare(line, column) >= 0
}

// IncludesOffset reports whether offset falls inside r.
func (r Range) IncludesOffset(offset int) bool {
	return r.Start.Offset <= offset && offset <= r.End.Offset
}

// WithEnd returns a copy of r ending at end.
func (r Range) WithEnd(end Position) Range {
	r.End = end
	return r
}

func (r Range) Len() int {
	return r.End.Offset - r.Start.Offset
}

func (r Range) IsZero() bool {
	return r == Range{}
}

// Span is a piece of source text together with the range it was read from.
type Span struct {
	Value string
	Range Range
}

func (s Span) String() string {
	return s.Value
}

// LineIndex maps byte offsets to positions using the start offset of every
// line. Line 0 always starts at offset 0.
type LineIndex struct {
	starts []int
	length int
}

// NewLineIndex scans text for line breaks. "\r\n" counts as a single break.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case '\n':
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, length: len(text)}
}

// NewLineIndexFromStarts wraps an already computed line start table.
func NewLineIndexFromStarts(starts []int, length int) *LineIndex {
	if len(starts) == 0 || starts[0] != 0 {
		starts = append([]int{0}, starts...)
	}
	return &LineIndex{starts: starts, length: length}
}

func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// LineStart returns the offset of the first byte on line, or -1.
func (li *LineIndex) LineStart(line int) int {
	if line < 0 || line >= len(li.starts) {
		return -1
	}
	return li.starts[line]
}

// Position converts offset into a Position. Offsets outside the indexed text
// yield the zero Position.
func (li *LineIndex) Position(offset int) Position {
	if li == nil || offset < 0 || offset > li.length {
		return Position{}
	}
	line := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	}) - 1
	return Position{Offset: offset, Line: line, Column: offset - li.starts[line]}
}

// Offset converts a line/column pair into a byte offset.
func (li *LineIndex) Offset(line, column int) (int, bool) {
	start := li.LineStart(line)
	if start < 0 || column < 0 {
		return 0, false
	}
	end := li.length
	if line+1 < len(li.starts) {
		end = li.starts[line+1]
	}
	if start+column > end {
		return 0, false
	}
	return start + column, true
}

// Range converts a pair of offsets into a Range.
func (li *LineIndex) Range(start, end int) Range {
	return Range{Start: li.Position(start), End: li.Position(end)}
}
