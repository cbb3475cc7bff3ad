// Package treesitter implements embed.Parser on tree-sitter's C# grammar.
//
// The grammar is far more complete than the built-in parser; its trees are
// folded into the embed shapes the binders inspect, and everything else is
// kept as embed.Other so nested expressions are still bound.
package treesitter

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/embed"
)

// Parser implements embed.Parser. The zero value is ready to use.
type Parser struct {
	pool sync.Pool
}

var _ embed.Parser = (*Parser)(nil)

func New() *Parser {
	return &Parser{}
}

func (p *Parser) parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	tsp, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		tsp = sitter.NewParser()
		tsp.SetLanguage(csharp.GetLanguage())
	}
	defer p.pool.Put(tsp)

	tree, err := tsp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Errorf("tree-sitter parse: %w", err)
	}
	return tree, nil
}

// ParseStatements implements embed.Parser.
func (p *Parser) ParseStatements(ctx context.Context, src string) (*embed.File, error) {
	content := []byte(src)
	tree, err := p.parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	c := &converter{src: content, limit: len(content)}
	root := tree.RootNode()

	file := &embed.File{}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		file.Statements = append(file.Statements, c.convert(child))
	}
	c.collect(root)

	file.Comments = c.comments
	file.Diagnostics = c.diags

	zerolog.Ctx(ctx).Trace().
		Int("statements", len(file.Statements)).
		Int("diagnostics", len(file.Diagnostics)).
		Msg("tree-sitter parsed statements")

	return file, nil
}

// ParseExpression implements embed.Parser. The grammar has no expression
// entry point, so the source is parsed as an expression statement.
func (p *Parser) ParseExpression(ctx context.Context, src string) (*embed.Expr, error) {
	out := &embed.Expr{}
	if strings.TrimSpace(src) == "" {
		out.Diagnostics = append(out.Diagnostics, embed.Diagnostic{
			Span:    embed.Span{Start: 0, End: len(src)},
			Message: "Expected expression",
			Code:    "CS1733",
		})
		return out, nil
	}

	content := []byte(src + ";")
	tree, err := p.parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	c := &converter{src: content, limit: len(src)}
	root := tree.RootNode()

	stmt := firstOfType(root, "expression_statement")
	if stmt != nil && stmt.NamedChildCount() > 0 {
		out.X = c.convert(stmt.NamedChild(0))
	}
	c.collect(root)
	out.Diagnostics = c.diags

	return out, nil
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == typ {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstOfType(n.NamedChild(i), typ); found != nil {
			return found
		}
	}
	return nil
}

type converter struct {
	src      []byte
	limit    int
	comments []*embed.Comment
	diags    []embed.Diagnostic
}

func (c *converter) span(n *sitter.Node) embed.Span {
	start, end := int(n.StartByte()), int(n.EndByte())
	if start > c.limit {
		start = c.limit
	}
	if end > c.limit {
		end = c.limit
	}
	return embed.Span{Start: start, End: end}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

// collect gathers comments and syntax errors from the whole tree.
func (c *converter) collect(root *sitter.Node) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.Type() == "comment":
			c.comments = append(c.comments, embed.NewComment(c.span(n), c.text(n)))
			return
		case n.IsMissing():
			c.missing(n)
			return
		case n.IsError():
			c.diags = append(c.diags, embed.Diagnostic{
				Span:    c.span(n),
				Message: "Unexpected token '" + strings.TrimSpace(c.text(n)) + "'",
				Code:    "CS1073",
			})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)

	sort.SliceStable(c.comments, func(i, j int) bool {
		return c.comments[i].Span().Start < c.comments[j].Span().Start
	})
}

var missingCodes = map[string]string{
	";": "CS1002",
	")": "CS1026",
	"}": "CS1513",
	"{": "CS1514",
}

func (c *converter) missing(n *sitter.Node) {
	what := n.Type()
	code, ok := missingCodes[what]
	msg := what + " expected"
	if !ok {
		code = "CS1003"
		msg = "Syntax error, '" + what + "' expected"
	}
	c.diags = append(c.diags, embed.Diagnostic{Span: c.span(n), Message: msg, Code: code})
}

// field returns the child stored under name, falling back to the named
// child at index when the grammar version has no such field.
func field(n *sitter.Node, name string, index int) *sitter.Node {
	if child := n.ChildByFieldName(name); child != nil {
		return child
	}
	named := namedChildren(n)
	if index >= 0 && index < len(named) {
		return named[index]
	}
	if index < 0 && len(named)+index >= 0 {
		return named[len(named)+index]
	}
	return nil
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func (c *converter) convertOpt(n *sitter.Node) embed.Node {
	if n == nil {
		return nil
	}
	return c.convert(n)
}

func (c *converter) identifier(n *sitter.Node) *embed.Identifier {
	if n == nil {
		return nil
	}
	if n.Type() == "generic_name" {
		if id := field(n, "name", 0); id != nil {
			n = id
		}
	}
	return embed.NewIdentifier(c.span(n), c.text(n))
}

func (c *converter) arguments(list *sitter.Node) []embed.Node {
	if list == nil {
		return nil
	}
	var args []embed.Node
	for _, arg := range namedChildren(list) {
		if arg.Type() == "argument" {
			if expr := field(arg, "expression", -1); expr != nil {
				args = append(args, c.convert(expr))
			}
			continue
		}
		args = append(args, c.convert(arg))
	}
	return args
}

func (c *converter) typeText(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "implicit_type" || c.text(n) == "var" {
		return ""
	}
	return c.text(n)
}

func (c *converter) convert(n *sitter.Node) embed.Node {
	pos := c.span(n)

	switch n.Type() {
	case "identifier", "predefined_type":
		return embed.NewIdentifier(pos, c.text(n))
	case "generic_name":
		return c.identifier(n)
	case "this_expression", "this":
		return embed.NewIdentifier(pos, "this")
	case "base_expression", "base":
		return embed.NewIdentifier(pos, "base")

	case "member_access_expression":
		return embed.NewMemberAccess(pos, c.convertOpt(field(n, "expression", 0)), c.identifier(field(n, "name", -1)))
	case "conditional_access_expression":
		x := c.convertOpt(field(n, "condition", 0))
		binding := field(n, "", -1)
		if binding != nil && binding.Type() == "member_binding_expression" {
			return embed.NewMemberAccess(pos, x, c.identifier(field(binding, "name", -1)))
		}
		return embed.NewOther(pos, n.Type(), x)
	case "invocation_expression":
		return embed.NewInvocation(pos, c.convertOpt(field(n, "function", 0)), c.arguments(field(n, "arguments", -1)))
	case "element_access_expression":
		return embed.NewElementAccess(pos, c.convertOpt(field(n, "expression", 0)), c.arguments(field(n, "subscript", -1)))
	case "binary_expression":
		op := ""
		if o := n.ChildByFieldName("operator"); o != nil {
			op = c.text(o)
		}
		return embed.NewBinary(pos, op, c.convertOpt(field(n, "left", 0)), c.convertOpt(field(n, "right", -1)))
	case "assignment_expression":
		return embed.NewBinary(pos, "=", c.convertOpt(field(n, "left", 0)), c.convertOpt(field(n, "right", -1)))
	case "prefix_unary_expression":
		op := ""
		if n.ChildCount() > 0 {
			op = c.text(n.Child(0))
		}
		return embed.NewPrefixUnary(pos, op, c.convertOpt(field(n, "operand", -1)))
	case "conditional_expression":
		return embed.NewConditional(pos,
			c.convertOpt(field(n, "condition", 0)),
			c.convertOpt(field(n, "consequence", 1)),
			c.convertOpt(field(n, "alternative", 2)))
	case "parenthesized_expression":
		return embed.NewParen(pos, c.convertOpt(field(n, "", 0)))

	case "string_literal", "verbatim_string_literal", "raw_string_literal", "interpolated_string_expression":
		return embed.NewLiteral(pos, embed.StringLiteral, c.text(n))
	case "character_literal":
		return embed.NewLiteral(pos, embed.CharLiteral, c.text(n))
	case "integer_literal", "real_literal":
		return embed.NewLiteral(pos, embed.NumberLiteral, c.text(n))
	case "boolean_literal":
		return embed.NewLiteral(pos, embed.BoolLiteral, c.text(n))
	case "null_literal":
		return embed.NewLiteral(pos, embed.NullLiteral, c.text(n))

	case "lambda_expression", "anonymous_method_expression":
		return embed.NewOther(pos, "lambda")
	case "cast_expression":
		return embed.NewOther(pos, "cast", c.convertOpt(field(n, "value", -1)))

	case "global_statement":
		if inner := field(n, "", 0); inner != nil {
			return c.convert(inner)
		}
	case "block":
		var list []embed.Node
		for _, child := range namedChildren(n) {
			list = append(list, c.convert(child))
		}
		return embed.NewBlock(pos, list)
	case "expression_statement":
		return embed.NewExpressionStatement(pos, c.convertOpt(field(n, "", 0)))
	case "local_declaration_statement":
		return c.declaration(n, pos)
	case "foreach_statement":
		return embed.NewForeach(pos,
			c.typeText(field(n, "type", 0)),
			c.identifier(field(n, "left", 1)),
			c.convertOpt(field(n, "right", 2)),
			c.convertOpt(field(n, "body", -1)))
	case "if_statement":
		return embed.NewIf(pos,
			c.convertOpt(field(n, "condition", 0)),
			c.convertOpt(field(n, "consequence", 1)),
			c.convertOpt(n.ChildByFieldName("alternative")))
	case "while_statement":
		return embed.NewWhile(pos, c.convertOpt(field(n, "condition", 0)), c.convertOpt(field(n, "body", -1)))
	}

	var children []embed.Node
	for _, child := range namedChildren(n) {
		if child.IsError() || child.IsMissing() {
			continue
		}
		children = append(children, c.convert(child))
	}
	return embed.NewOther(pos, n.Type(), children...)
}

func (c *converter) declaration(n *sitter.Node, pos embed.Span) embed.Node {
	decl := firstOfType(n, "variable_declaration")
	if decl == nil {
		return embed.NewOther(pos, n.Type())
	}
	declarator := firstOfType(decl, "variable_declarator")
	if declarator == nil {
		return embed.NewOther(pos, n.Type())
	}

	name := field(declarator, "name", 0)
	var value embed.Node
	for _, child := range namedChildren(declarator) {
		if name != nil && child.StartByte() == name.StartByte() {
			continue
		}
		if child.Type() == "equals_value_clause" {
			child = field(child, "", 0)
		}
		if child != nil {
			value = c.convert(child)
		}
	}

	return embed.NewLocalDeclaration(pos, c.typeText(field(decl, "type", 0)), c.identifier(name), value)
}
