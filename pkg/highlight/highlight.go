// Package highlight answers document-highlight and rename requests for
// element tag names.
package highlight

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/position"
)

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   position.Range
	NewText string
}

func tagAt(ix ast.Index, line, column int) (*ast.Html, bool) {
	hit := ix.Query(line, column)
	if hit == nil || hit.Kind != ast.HitTagName {
		return nil, false
	}
	h, ok := hit.Node.(*ast.Html)
	return h, ok
}

func tagRanges(h *ast.Html) []position.Range {
	out := []position.Range{h.StartTag.Name.Range}
	if h.EndTag != nil {
		out = append(out, h.EndTag.Name.Range)
	}
	return out
}

// Highlight returns the start and end tag names of the element whose tag
// name is at line/column.
func Highlight(ix ast.Index, line, column int) []position.Range {
	h, ok := tagAt(ix, line, column)
	if !ok {
		return nil
	}
	return tagRanges(h)
}

// PrepareRename returns the range to rename, or false when line/column is
// not on a tag name.
func PrepareRename(ix ast.Index, line, column int) (position.Range, bool) {
	hit := ix.Query(line, column)
	if hit == nil || hit.Kind != ast.HitTagName {
		return position.Range{}, false
	}
	return hit.Range, true
}

// Rename renames both tags of the element at line/column.
func Rename(ix ast.Index, line, column int, newName string) ([]TextEdit, error) {
	if newName == "" || strings.ContainsAny(newName, " \t\r\n<>/=\"'") {
		return nil, errors.Errorf("invalid tag name %q", newName)
	}
	h, ok := tagAt(ix, line, column)
	if !ok {
		return nil, errors.New("no tag name at position")
	}
	var edits []TextEdit
	for _, r := range tagRanges(h) {
		edits = append(edits, TextEdit{Range: r, NewText: newName})
	}
	return edits, nil
}
