package bind

import (
	"sort"
	"strconv"
	"strings"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/embed"
	"github.com/walteh/go-aspx-typer/pkg/position"
)

const (
	sentinelOpen  = "/*§"
	sentinelClose = "*/"
)

// segment maps a slice of the reassembled code back to the document.
type segment struct {
	start, end int
	// doc is the document offset of start.
	doc int
	// verbatim segments map offset by offset; sentinels map every offset to
	// doc.
	verbatim bool
}

// Code is the statement code of a document joined into one compilation
// unit. Every inline expression is replaced by a sentinel comment that
// names its id.
type Code struct {
	Source   string
	segments []segment
	lines    *position.LineIndex
}

// Reassemble joins the statements of root in document order, one fragment
// per line.
func Reassemble(root *ast.Root) *Code {
	var sb strings.Builder
	c := &Code{lines: root.Lines}

	for _, n := range root.All {
		var (
			text     string
			doc      int
			verbatim bool
		)
		switch n := n.(type) {
		case *ast.Statement:
			text, doc, verbatim = n.Text.Value, n.Text.Range.Start.Offset, true
		case *ast.Expression:
			text, doc = sentinel(n.ID), n.Text.Range.Start.Offset
		default:
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		start := sb.Len()
		sb.WriteString(text)
		c.segments = append(c.segments, segment{start: start, end: sb.Len(), doc: doc, verbatim: verbatim})
	}

	c.Source = sb.String()
	return c
}

func sentinel(id int) string {
	return sentinelOpen + strconv.Itoa(id) + sentinelClose
}

// sentinelID extracts the expression id from a sentinel comment.
func sentinelID(text string) (int, bool) {
	if !strings.HasPrefix(text, sentinelOpen) || !strings.HasSuffix(text, sentinelClose) {
		return 0, false
	}
	id, err := strconv.Atoi(text[len(sentinelOpen) : len(text)-len(sentinelClose)])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Offset maps an offset of the reassembled code to a document offset.
// Offsets on a separator map to the end of the preceding fragment.
func (c *Code) Offset(off int) (int, bool) {
	if off < 0 || len(c.segments) == 0 {
		return 0, false
	}
	i := sort.Search(len(c.segments), func(i int) bool {
		return c.segments[i].start > off
	}) - 1
	if i < 0 {
		return 0, false
	}
	seg := c.segments[i]
	if !seg.verbatim {
		return seg.doc, true
	}
	if off > seg.end {
		off = seg.end
	}
	return seg.doc + off - seg.start, true
}

// Position maps an offset of the reassembled code to a document position,
// or the zero Position when it cannot be mapped.
func (c *Code) Position(off int) position.Position {
	doc, ok := c.Offset(off)
	if !ok {
		return position.Position{}
	}
	return c.lines.Position(doc)
}

// Range maps a span of the reassembled code to a document range.
func (c *Code) Range(s embed.Span) position.Range {
	return position.Range{Start: c.Position(s.Start), End: c.Position(s.End)}
}
