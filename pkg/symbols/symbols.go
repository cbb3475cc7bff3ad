// Package symbols builds the outline of a document.
package symbols

import (
	"fmt"
	"strings"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/position"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

// Kind uses the numbering of the language server protocol.
type Kind int

const (
	KindModule   Kind = 2
	KindClass    Kind = 5
	KindProperty Kind = 7
	KindFunction Kind = 12
	KindVariable Kind = 13
	KindObject   Kind = 19
	KindEvent    Kind = 24
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "directive"
	case KindClass:
		return "control"
	case KindProperty:
		return "property"
	case KindFunction:
		return "code"
	case KindVariable:
		return "expression"
	case KindEvent:
		return "binding"
	case KindObject:
		return "element"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const maxNameLen = 40

// Symbol is one entry of the outline.
type Symbol struct {
	Name           string
	Detail         string
	Kind           Kind
	Range          position.Range
	SelectionRange position.Range
	Children       []Symbol
}

// Build returns the outline of root. Elements in controls are reported as
// classes; other elements that carry a type are property elements.
func Build(root *ast.Root, controls map[*ast.Html]*types.CodeType) []Symbol {
	b := builder{controls: controls}
	return b.children(root)
}

type builder struct {
	controls map[*ast.Html]*types.CodeType
}

func (b builder) children(c ast.Container) []Symbol {
	var out []Symbol
	for _, n := range c.Children() {
		if s, ok := b.symbol(n); ok {
			out = append(out, s)
		}
	}
	return out
}

func (b builder) symbol(n ast.Node) (Symbol, bool) {
	switch n := n.(type) {
	case *ast.Html:
		s := Symbol{
			Name:           n.StartTag.QualifiedName(),
			Detail:         n.Type,
			Kind:           KindObject,
			Range:          n.Span(),
			SelectionRange: n.StartTag.NameRange(),
			Children:       b.children(n),
		}
		if _, ok := b.controls[n]; ok {
			s.Kind = KindClass
		} else if n.Type != "" {
			s.Kind = KindProperty
		}
		if id := n.Attributes.Value("id"); id != "" {
			s.Name += "#" + id
		}
		return s, true
	case *ast.Directive:
		var attrs []string
		for _, a := range n.Attributes.All() {
			attrs = append(attrs, a.Name.Value+"="+a.Value.Value)
		}
		return Symbol{
			Name:           "@" + n.DirectiveKind.String(),
			Detail:         strings.Join(attrs, " "),
			Kind:           KindModule,
			Range:          n.Span(),
			SelectionRange: n.Name.Range,
		}, true
	case *ast.Expression:
		s := Symbol{
			Name:           shorten(n.Text.Value),
			Kind:           KindVariable,
			Range:          n.Span(),
			SelectionRange: n.Text.Range,
		}
		if n.IsEval {
			s.Kind = KindEvent
			s.Detail = n.ItemType
		}
		return s, true
	case *ast.Statement:
		return Symbol{
			Name:           shorten(n.Text.Value),
			Kind:           KindFunction,
			Range:          n.Span(),
			SelectionRange: n.Text.Range,
		}, true
	}
	return Symbol{}, false
}

func shorten(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	if r := []rune(s); len(r) > maxNameLen {
		s = string(r[:maxNameLen-1]) + "…"
	}
	if s == "" {
		s = "(empty)"
	}
	return s
}
