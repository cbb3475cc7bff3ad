// Package parser builds the syntax tree of a page or control document from
// the lexer's token stream.
package parser

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/lexer"
	"github.com/walteh/go-aspx-typer/pkg/position"
)

const (
	headerTemplate = "HeaderTemplate"
	footerTemplate = "FooterTemplate"
)

// scope is a stack of open elements whose bottom is attached to base.
type scope struct {
	base  ast.Container
	stack []*ast.Html
}

func (s *scope) parent() ast.Container {
	if len(s.stack) == 0 {
		return s.base
	}
	return s.stack[len(s.stack)-1]
}

func (s *scope) push(h *ast.Html) {
	s.stack = append(s.stack, h)
}

func (s *scope) pop() *ast.Html {
	if len(s.stack) == 0 {
		return nil
	}
	h := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return h
}

type builder struct {
	lx   *lexer.Lexer
	root *ast.Root

	rootScope *scope
	current   *scope
	// header is shared by a HeaderTemplate and the FooterTemplate that
	// follows it, so markup opened in one can be closed in the other.
	header *scope

	nextID      int
	diagnostics []diagnostic.Diagnostic
}

// Parse builds the tree for text. Structural problems are reported as
// diagnostics; a tree is always returned.
func Parse(ctx context.Context, text string) (*ast.Root, []diagnostic.Diagnostic) {
	root := ast.NewRoot()
	rootScope := &scope{base: root}

	b := &builder{
		lx:        lexer.New(text),
		root:      root,
		rootScope: rootScope,
		current:   rootScope,
	}

	for {
		tok, ok := b.lx.Next()
		if !ok {
			break
		}
		b.consume(tok)
	}

	root.Lines = b.lx.LineIndex()
	root.Range = root.Lines.Range(0, len(text))

	zerolog.Ctx(ctx).Debug().
		Int("nodes", len(root.All)).
		Int("directives", len(root.Directives)).
		Int("expressions", len(root.Expressions)).
		Int("diagnostics", len(b.diagnostics)).
		Msg("parsed document")

	return root, b.diagnostics
}

func (b *builder) warn(r position.Range, format string, args ...any) {
	b.diagnostics = append(b.diagnostics, diagnostic.Warningf(r, format, args...))
}

func (b *builder) add(n ast.Node) {
	b.root.All = append(b.root.All, n)
	switch n := n.(type) {
	case *ast.Directive:
		b.root.Directives = append(b.root.Directives, n)
	case *ast.Html:
		b.root.Elements = append(b.root.Elements, n)
	case *ast.Expression:
		b.root.Expressions[n.ID] = n
	}
	ast.Append(b.current.parent(), n)
}

func (b *builder) peek(kind lexer.Kind) (lexer.Token, bool) {
	tok, ok := b.lx.Peek()
	if !ok || tok.Kind != kind {
		return lexer.Token{}, false
	}
	return tok, true
}

func (b *builder) consume(tok lexer.Token) {
	switch tok.Kind {
	case lexer.Expression:
		b.expression(tok, false)
	case lexer.EvalExpression:
		b.expression(tok, true)
	case lexer.Statement:
		b.add(ast.NewStatement(tok.Range, tok.Text))
	case lexer.TagOpen:
		b.openTag(tok.Range.Start)
	case lexer.TagOpenSlash:
		b.closeTag(tok.Range.Start)
	case lexer.StartDirective:
		b.directive(tok.Range.Start)
	}
}

func (b *builder) expression(tok lexer.Token, isEval bool) {
	e := ast.NewExpression(tok.Range, tok.Text, b.nextID, isEval)
	b.nextID++
	if isEval {
		e.ItemType = b.itemType()
	}
	b.add(e)
}

// itemType finds the nearest open element that declares an itemtype.
func (b *builder) itemType() string {
	for c := b.current.parent(); c != nil; c = c.Parent() {
		if h, ok := c.(*ast.Html); ok && h.ItemType != nil {
			return h.ItemType.Value
		}
	}
	return ""
}

// attributeValue takes the value that follows an attribute name, if any.
func (b *builder) attributeValue() position.Span {
	tok, ok := b.peek(lexer.AttributeValue)
	if !ok {
		return position.Span{}
	}
	b.lx.Next()
	return tok.Text
}

func (b *builder) directive(start position.Position) {
	d := ast.NewDirective(start)
	end := start
	first := true

	for {
		tok, ok := b.lx.Peek()
		if !ok {
			break
		}

		switch tok.Kind {
		case lexer.Attribute:
			b.lx.Next()
			value := b.attributeValue()
			end = tok.Range.End
			if value.Range.End.Offset > end.Offset {
				end = value.Range.End
			}
			if first {
				d.DirectiveKind = ast.ParseDirectiveKind(tok.Text.Value)
				d.Name = tok.Text
				first = false
			} else if !d.Attributes.Add(tok.Text, value) {
				b.warn(tok.Range, "Duplicate attribute '%s'", tok.Text.Value)
			}
			continue
		case lexer.EndDirective:
			b.lx.Next()
			ast.SetEnd(d, tok.Range.End)
			b.add(d)
			return
		case lexer.Expression, lexer.EvalExpression, lexer.Statement:
			b.lx.Next()
			b.consume(tok)
			continue
		}
		break
	}

	// unterminated: the directive ends after its last attribute
	ast.SetEnd(d, end)
	b.add(d)
}

func (b *builder) openTag(start position.Position) {
	h := ast.NewHtml(start)

	if tok, ok := b.peek(lexer.ElementNamespace); ok {
		b.lx.Next()
		ns := tok.Text
		h.StartTag.Namespace = &ns
	}

	name, ok := b.peek(lexer.ElementName)
	if !ok {
		return
	}
	b.lx.Next()
	h.StartTag.Name = name.Text

	b.add(h)
	b.current.push(h)

	selfClosed := false

loop:
	for {
		tok, ok := b.lx.Peek()
		if !ok {
			break
		}

		switch tok.Kind {
		case lexer.Attribute:
			b.lx.Next()
			b.attribute(h, tok.Text, b.attributeValue())
		case lexer.TagSlashClose:
			b.lx.Next()
			ast.SetEnd(h, tok.Range.End)
			b.current.pop()
			selfClosed = true
			break loop
		case lexer.TagClose:
			b.lx.Next()
			ast.SetEnd(h, tok.Range.End)
			break loop
		case lexer.Expression, lexer.EvalExpression, lexer.Statement, lexer.TagOpen:
			b.lx.Next()
			b.consume(tok)
		default:
			// the start tag was never closed
			break loop
		}
	}

	h.StartTag.Range = h.Range

	if selfClosed {
		return
	}

	switch h.StartTag.Name.Value {
	case headerTemplate:
		b.header = &scope{base: b.root}
		b.current = b.header
	case footerTemplate:
		if b.header == nil {
			b.warn(h.StartTag.Name.Range, "Footer template should be below the header template")
			break
		}
		b.current = b.header
	}
}

func (b *builder) attribute(h *ast.Html, name, value position.Span) {
	if strings.EqualFold(name.Value, "runat") && strings.EqualFold(value.Value, "server") {
		h.RunAt = ast.RunAtServer
		return
	}

	if !h.Attributes.Add(name, value) {
		b.warn(name.Range, "Duplicate attribute '%s'", name.Value)
		return
	}

	if strings.EqualFold(name.Value, "itemtype") {
		v := value
		h.ItemType = &v
	}
}

func (b *builder) closeTag(start position.Position) {
	var ns *position.Span
	if tok, ok := b.peek(lexer.ElementNamespace); ok {
		b.lx.Next()
		v := tok.Text
		ns = &v
	}

	name, ok := b.peek(lexer.ElementName)
	if !ok {
		return
	}
	b.lx.Next()

	if name.Text.Value == headerTemplate || name.Text.Value == footerTemplate {
		b.current = b.rootScope
	}

	end := name.Range.End
	if tok, ok := b.peek(lexer.TagClose); ok {
		b.lx.Next()
		end = tok.Range.End
	}

	tag := &ast.Tag{Namespace: ns, Name: name.Text, Range: position.Range{Start: start, End: end}}

	popped := b.current.pop()
	if popped == nil {
		b.warn(tag.NameRange(), "Unexpected end-tag %s", tag.QualifiedName())
		return
	}

	if !sameTag(popped.StartTag, *tag) {
		b.warn(tag.NameRange(), "Expected end-tag %s, but got %s instead", popped.StartTag.QualifiedName(), tag.QualifiedName())
		return
	}

	ast.SetEnd(popped, end)
	popped.EndTag = tag
}

func sameTag(open, close ast.Tag) bool {
	if !strings.EqualFold(open.Name.Value, close.Name.Value) {
		return false
	}
	if (open.Namespace == nil) != (close.Namespace == nil) {
		return false
	}
	return open.Namespace == nil || strings.EqualFold(open.Namespace.Value, close.Namespace.Value)
}
