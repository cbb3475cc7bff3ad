// Package csharp is the built-in parser for the C# subset used in inline
// code blocks: expressions, blocks, local declarations and the common
// control-flow statements. Syntax errors are reported with the compiler's
// error codes.
package csharp

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/walteh/go-aspx-typer/pkg/embed"
)

// Parser implements embed.Parser.
type Parser struct{}

var _ embed.Parser = Parser{}

func New() Parser {
	return Parser{}
}

// ParseStatements implements embed.Parser.
func (Parser) ParseStatements(ctx context.Context, src string) (*embed.File, error) {
	p := newParser(src)

	file := &embed.File{}
	for !p.at(tokEOF) {
		start := p.idx
		if st := p.statement(); st != nil {
			file.Statements = append(file.Statements, st)
		}
		if p.idx == start {
			p.unexpected()
			p.advance()
		}
	}

	file.Comments = p.sc.comments
	file.Diagnostics = append(p.sc.diags, p.diags...)

	zerolog.Ctx(ctx).Trace().
		Int("statements", len(file.Statements)).
		Int("comments", len(file.Comments)).
		Int("diagnostics", len(file.Diagnostics)).
		Msg("parsed statements")

	return file, nil
}

// ParseExpression implements embed.Parser.
func (Parser) ParseExpression(ctx context.Context, src string) (*embed.Expr, error) {
	p := newParser(src)

	out := &embed.Expr{}
	if p.at(tokEOF) {
		p.errorf(p.cur().pos, "CS1733", "Expected expression")
	} else {
		out.X = p.expression()
		if !p.at(tokEOF) {
			p.unexpected()
		}
	}
	out.Diagnostics = append(p.sc.diags, p.diags...)

	return out, nil
}

func newDiagnostic(pos embed.Span, code, format string, args ...any) embed.Diagnostic {
	return embed.Diagnostic{
		Span:     pos,
		Message:  fmt.Sprintf(format, args...),
		Code:     code,
		Severity: embed.SeverityError,
	}
}

type parser struct {
	sc    *scanner
	toks  []token
	idx   int
	diags []embed.Diagnostic
}

func newParser(src string) *parser {
	sc := scan(src)
	return &parser{sc: sc, toks: sc.tokens}
}

func (p *parser) cur() token {
	return p.toks[p.idx]
}

func (p *parser) peekAt(n int) token {
	if p.idx+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.idx+n]
}

func (p *parser) prev() token {
	if p.idx == 0 {
		return p.toks[0]
	}
	return p.toks[p.idx-1]
}

func (p *parser) at(kind tokenKind) bool {
	return p.cur().kind == kind
}

func (p *parser) advance() token {
	tok := p.cur()
	if tok.kind != tokEOF {
		p.idx++
	}
	return tok
}

func (p *parser) accept(punct string) bool {
	if p.cur().punct(punct) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(pos embed.Span, code, format string, args ...any) {
	p.diags = append(p.diags, newDiagnostic(pos, code, format, args...))
}

// expect consumes punct or reports it missing after the previous token.
func (p *parser) expect(punct, code string) bool {
	if p.accept(punct) {
		return true
	}
	at := p.prev().pos.End
	if p.idx == 0 {
		at = p.cur().pos.Start
	}
	switch code {
	case "CS1002", "CS1026", "CS1513", "CS1514":
		p.errorf(embed.Span{Start: at, End: at}, code, "%s expected", punct)
	default:
		p.errorf(embed.Span{Start: at, End: at}, code, "Syntax error, '%s' expected", punct)
	}
	return false
}

func (p *parser) unexpected() {
	tok := p.cur()
	if tok.kind == tokEOF {
		return
	}
	p.errorf(tok.pos, "CS1073", "Unexpected token '%s'", tok.text)
}

func span(start, end int) embed.Span {
	return embed.Span{Start: start, End: end}
}

// statement parses one statement. It returns nil for an empty statement.
func (p *parser) statement() embed.Node {
	tok := p.cur()
	start := tok.pos.Start

	switch {
	case tok.punct(";"):
		p.advance()
		return nil
	case tok.punct("{"):
		return p.block()
	case tok.keyword("foreach"):
		return p.foreach()
	case tok.keyword("if"):
		return p.ifStatement()
	case tok.keyword("while"):
		p.advance()
		p.expect("(", "CS1003")
		cond := p.expression()
		p.expect(")", "CS1026")
		body := p.embedded()
		return embed.NewWhile(span(start, p.prev().pos.End), cond, body)
	case tok.keyword("for"):
		return p.forStatement()
	case tok.keyword("using"):
		p.advance()
		p.expect("(", "CS1003")
		var children []embed.Node
		if decl := p.declaration(false); decl != nil {
			children = append(children, decl)
		} else {
			children = append(children, p.expression())
		}
		p.expect(")", "CS1026")
		children = append(children, p.embedded())
		return embed.NewOther(span(start, p.prev().pos.End), "using", children...)
	case tok.keyword("return"), tok.keyword("throw"):
		p.advance()
		var children []embed.Node
		if !p.cur().punct(";") && !p.at(tokEOF) {
			children = append(children, p.expression())
		}
		p.expect(";", "CS1002")
		return embed.NewOther(span(start, p.prev().pos.End), tok.text, children...)
	case tok.keyword("break"), tok.keyword("continue"):
		p.advance()
		p.expect(";", "CS1002")
		return embed.NewOther(span(start, p.prev().pos.End), tok.text)
	case tok.keyword("try"):
		return p.tryStatement()
	}

	if decl := p.declaration(true); decl != nil {
		p.expect(";", "CS1002")
		decl.Pos.End = p.prev().pos.End
		return decl
	}

	x := p.expression()
	p.expect(";", "CS1002")
	return embed.NewExpressionStatement(span(start, p.prev().pos.End), x)
}

// embedded parses the body of a control-flow statement.
func (p *parser) embedded() embed.Node {
	if p.at(tokEOF) {
		p.errorf(p.cur().pos, "CS1525", "Invalid expression term ''")
		return embed.NewOther(p.cur().pos, "missing")
	}
	st := p.statement()
	if st == nil {
		return embed.NewOther(p.prev().pos, "empty")
	}
	return st
}

func (p *parser) block() embed.Node {
	start := p.advance().pos.Start
	var list []embed.Node
	for !p.cur().punct("}") && !p.at(tokEOF) {
		before := p.idx
		if st := p.statement(); st != nil {
			list = append(list, st)
		}
		if p.idx == before {
			p.unexpected()
			p.advance()
		}
	}
	p.expect("}", "CS1513")
	return embed.NewBlock(span(start, p.prev().pos.End), list)
}

func (p *parser) foreach() embed.Node {
	start := p.advance().pos.Start
	p.expect("(", "CS1003")

	typ := ""
	if !(p.cur().is(tokIdent, "var") && p.peekAt(1).kind == tokIdent) {
		typ = p.typeName()
	} else {
		p.advance()
	}

	var v *embed.Identifier
	if p.at(tokIdent) {
		tok := p.advance()
		v = embed.NewIdentifier(tok.pos, tok.text)
	} else {
		p.errorf(p.cur().pos, "CS1001", "Identifier expected")
	}

	if !p.cur().keyword("in") {
		p.errorf(p.cur().pos, "CS1515", "'in' expected")
	} else {
		p.advance()
	}

	x := p.expression()
	p.expect(")", "CS1026")
	body := p.embedded()

	return embed.NewForeach(span(start, p.prev().pos.End), typ, v, x, body)
}

func (p *parser) ifStatement() embed.Node {
	start := p.advance().pos.Start
	p.expect("(", "CS1003")
	cond := p.expression()
	p.expect(")", "CS1026")
	then := p.embedded()

	var els embed.Node
	if p.cur().keyword("else") {
		p.advance()
		els = p.embedded()
	}
	return embed.NewIf(span(start, p.prev().pos.End), cond, then, els)
}

func (p *parser) forStatement() embed.Node {
	start := p.advance().pos.Start
	p.expect("(", "CS1003")

	var children []embed.Node
	if !p.cur().punct(";") {
		if decl := p.declaration(true); decl != nil {
			children = append(children, decl)
		} else {
			children = append(children, p.expression())
		}
	}
	p.expect(";", "CS1002")
	if !p.cur().punct(";") {
		children = append(children, p.expression())
	}
	p.expect(";", "CS1002")
	for !p.cur().punct(")") && !p.at(tokEOF) {
		children = append(children, p.expression())
		if !p.accept(",") {
			break
		}
	}
	p.expect(")", "CS1026")
	children = append(children, p.embedded())

	return embed.NewOther(span(start, p.prev().pos.End), "for", children...)
}

func (p *parser) tryStatement() embed.Node {
	start := p.advance().pos.Start
	var children []embed.Node
	if p.cur().punct("{") {
		children = append(children, p.block())
	} else {
		p.expect("{", "CS1514")
	}
	for p.cur().keyword("catch") {
		p.advance()
		if p.accept("(") {
			for !p.cur().punct(")") && !p.at(tokEOF) {
				p.advance()
			}
			p.expect(")", "CS1026")
		}
		if p.cur().punct("{") {
			children = append(children, p.block())
		}
	}
	if p.cur().keyword("finally") {
		p.advance()
		if p.cur().punct("{") {
			children = append(children, p.block())
		}
	}
	return embed.NewOther(span(start, p.prev().pos.End), "try", children...)
}

// declaration parses "var x = value" or "Type x = value" when the tokens
// ahead have that shape; otherwise it consumes nothing and returns nil.
// The terminating semicolon is left to the caller.
func (p *parser) declaration(allowBare bool) *embed.LocalDeclaration {
	save := p.idx
	start := p.cur().pos.Start

	typ := ""
	switch {
	case p.cur().is(tokIdent, "var") && p.peekAt(1).kind == tokIdent:
		p.advance()
	case p.at(tokIdent) || p.at(tokKeyword) && typeKeywords[p.cur().text]:
		mark := len(p.diags)
		typ = p.typeName()
		if len(p.diags) != mark || !p.at(tokIdent) {
			p.diags = p.diags[:mark]
			p.idx = save
			return nil
		}
	default:
		return nil
	}

	if !p.at(tokIdent) {
		p.idx = save
		return nil
	}
	name := p.advance()
	next := p.cur()
	if !next.punct("=") && !(allowBare && (next.punct(";") || next.punct(","))) {
		p.idx = save
		return nil
	}

	var value embed.Node
	if p.accept("=") {
		value = p.expression()
	}
	for p.accept(",") {
		// further declarators share the type; only the first is bound
		if p.at(tokIdent) {
			p.advance()
		}
		if p.accept("=") {
			p.expression()
		}
	}

	return embed.NewLocalDeclaration(span(start, p.prev().pos.End), typ, embed.NewIdentifier(name.pos, name.text), value)
}

// typeName reads a type as written in a declaration: qualified name,
// generic arguments and array ranks.
func (p *parser) typeName() string {
	tok := p.cur()
	if !(tok.kind == tokIdent || tok.kind == tokKeyword && typeKeywords[tok.text]) {
		p.errorf(tok.pos, "CS1001", "Identifier expected")
		return ""
	}
	out := p.advance().text
	for p.cur().punct(".") && p.peekAt(1).kind == tokIdent {
		p.advance()
		out += "." + p.advance().text
	}
	if p.cur().punct("<") {
		p.advance()
		out += "<"
		for {
			out += p.typeName()
			if !p.accept(",") {
				break
			}
			out += ", "
		}
		if !p.accept(">") {
			p.errorf(p.cur().pos, "CS1003", "Syntax error, '>' expected")
		}
		out += ">"
	}
	for p.cur().punct("[") && p.peekAt(1).punct("]") {
		p.advance()
		p.advance()
		out += "[]"
	}
	if p.cur().punct("?") && (p.peekAt(1).kind == tokIdent) {
		p.advance()
	}
	return out
}

// Operator precedence, lowest first.
const (
	precNone = iota
	precAssign
	precConditional
	precCoalesce
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
)

var binaryPrec = map[string]int{
	"=": precAssign, "+=": precAssign, "-=": precAssign, "*=": precAssign,
	"/=": precAssign, "%=": precAssign, "&=": precAssign, "|=": precAssign,
	"??=": precAssign,
	"??":  precCoalesce,
	"||":  precOr,
	"&&":  precAnd,
	"|":   precBitOr,
	"^":   precBitXor,
	"&":   precBitAnd,
	"==":  precEquality, "!=": precEquality,
	"<": precRelational, ">": precRelational, "<=": precRelational, ">=": precRelational,
	"+": precAdditive, "-": precAdditive,
	"*": precMultiplicative, "/": precMultiplicative, "%": precMultiplicative,
}

func (p *parser) expression() embed.Node {
	return p.binary(precAssign)
}

func (p *parser) binary(min int) embed.Node {
	x := p.unary()

	for {
		tok := p.cur()

		if tok.keyword("is") || tok.keyword("as") {
			if precRelational < min {
				return x
			}
			p.advance()
			p.typeName()
			if tok.text == "is" && p.at(tokIdent) {
				p.advance()
			}
			x = embed.NewOther(span(x.Span().Start, p.prev().pos.End), tok.text, x)
			continue
		}

		if tok.punct("?") {
			if precConditional < min {
				return x
			}
			p.advance()
			then := p.binary(precAssign)
			p.expect(":", "CS1003")
			els := p.binary(precConditional)
			x = embed.NewConditional(span(x.Span().Start, p.prev().pos.End), x, then, els)
			continue
		}

		prec, ok := binaryPrec[tok.text]
		if tok.kind != tokPunct || !ok || prec < min {
			return x
		}
		p.advance()

		next := prec + 1
		if prec == precAssign || prec == precCoalesce {
			next = prec
		}
		y := p.binary(next)
		x = embed.NewBinary(span(x.Span().Start, y.Span().End), tok.text, x, y)
	}
}

func (p *parser) unary() embed.Node {
	tok := p.cur()
	switch {
	case tok.punct("!"), tok.punct("-"), tok.punct("+"), tok.punct("~"), tok.punct("++"), tok.punct("--"):
		p.advance()
		x := p.unary()
		return embed.NewPrefixUnary(span(tok.pos.Start, x.Span().End), tok.text, x)
	case tok.punct("(") && p.isCast():
		p.advance()
		p.typeName()
		p.expect(")", "CS1026")
		x := p.unary()
		return embed.NewOther(span(tok.pos.Start, x.Span().End), "cast", x)
	}
	return p.postfix(p.primary())
}

// isCast looks for "(Type)" followed by something that can start an operand.
func (p *parser) isCast() bool {
	i := p.idx + 1
	tok := p.toks[i]
	if !(tok.kind == tokIdent || tok.kind == tokKeyword && typeKeywords[tok.text]) {
		return false
	}
	i++
	for p.toks[i].punct(".") && p.toks[i+1].kind == tokIdent {
		i += 2
	}
	for p.toks[i].punct("[") && p.toks[i+1].punct("]") {
		i += 2
	}
	if !p.toks[i].punct(")") {
		return false
	}
	next := p.toks[i+1]
	if typeKeywords[tok.text] {
		return next.kind != tokEOF && !next.punct(")") && !next.punct(";")
	}
	switch next.kind {
	case tokIdent, tokNumber, tokString, tokChar:
		return true
	case tokKeyword:
		return next.text == "this" || next.text == "new" || next.text == "base" || next.text == "typeof"
	case tokPunct:
		return next.text == "(" || next.text == "!" || next.text == "~"
	}
	return false
}

func (p *parser) primary() embed.Node {
	tok := p.cur()

	switch tok.kind {
	case tokIdent:
		if p.peekAt(1).punct("=>") {
			return p.lambda()
		}
		p.advance()
		return embed.NewIdentifier(tok.pos, tok.text)
	case tokNumber:
		p.advance()
		return embed.NewLiteral(tok.pos, embed.NumberLiteral, tok.text)
	case tokString:
		p.advance()
		return embed.NewLiteral(tok.pos, embed.StringLiteral, tok.text)
	case tokChar:
		p.advance()
		return embed.NewLiteral(tok.pos, embed.CharLiteral, tok.text)
	case tokKeyword:
		switch tok.text {
		case "true", "false":
			p.advance()
			return embed.NewLiteral(tok.pos, embed.BoolLiteral, tok.text)
		case "null":
			p.advance()
			return embed.NewLiteral(tok.pos, embed.NullLiteral, tok.text)
		case "this", "base":
			p.advance()
			return embed.NewIdentifier(tok.pos, tok.text)
		case "new":
			return p.creation()
		case "typeof", "default":
			p.advance()
			if p.accept("(") {
				p.typeName()
				p.expect(")", "CS1026")
			}
			return embed.NewOther(span(tok.pos.Start, p.prev().pos.End), tok.text)
		}
		if typeKeywords[tok.text] {
			p.advance()
			return embed.NewIdentifier(tok.pos, tok.text)
		}
	case tokPunct:
		if tok.text == "(" {
			if p.isLambdaParams() {
				return p.lambda()
			}
			p.advance()
			x := p.expression()
			p.expect(")", "CS1026")
			return embed.NewParen(span(tok.pos.Start, p.prev().pos.End), x)
		}
	}

	text := tok.text
	if tok.kind == tokEOF {
		text = ""
	}
	p.errorf(tok.pos, "CS1525", "Invalid expression term '%s'", text)
	if tok.kind != tokEOF && !tok.punct(")") && !tok.punct(";") && !tok.punct("}") && !tok.punct(",") {
		p.advance()
	}
	return embed.NewOther(tok.pos, "missing")
}

func (p *parser) postfix(x embed.Node) embed.Node {
	for {
		tok := p.cur()
		switch {
		case tok.punct(".") || tok.punct("?."):
			p.advance()
			name := p.cur()
			if name.kind != tokIdent && !(name.kind == tokKeyword && !typeKeywords[name.text]) {
				p.errorf(span(tok.pos.End, tok.pos.End), "CS1001", "Identifier expected")
				return x
			}
			p.advance()
			x = embed.NewMemberAccess(span(x.Span().Start, name.pos.End), x, embed.NewIdentifier(name.pos, name.text))
		case tok.punct("("):
			p.advance()
			args := p.arguments(")")
			p.expect(")", "CS1026")
			x = embed.NewInvocation(span(x.Span().Start, p.prev().pos.End), x, args)
		case tok.punct("["):
			p.advance()
			args := p.arguments("]")
			p.expect("]", "CS1003")
			x = embed.NewElementAccess(span(x.Span().Start, p.prev().pos.End), x, args)
		case tok.punct("++") || tok.punct("--"):
			p.advance()
			x = embed.NewOther(span(x.Span().Start, tok.pos.End), "postfix "+tok.text, x)
		case tok.punct("!") && p.peekAt(1).punct("."):
			// null-forgiving operator
			p.advance()
		default:
			return x
		}
	}
}

func (p *parser) arguments(closing string) []embed.Node {
	var args []embed.Node
	if p.cur().punct(closing) {
		return args
	}
	for {
		if p.at(tokIdent) && p.peekAt(1).punct(":") {
			// named argument
			p.advance()
			p.advance()
		}
		if p.cur().is(tokIdent, "out") || p.cur().is(tokIdent, "ref") {
			p.advance()
		}
		args = append(args, p.expression())
		if !p.accept(",") {
			return args
		}
	}
}

// creation parses "new T(args) { init }", "new T[] { items }" and
// anonymous "new { A = b }".
func (p *parser) creation() embed.Node {
	start := p.advance().pos.Start
	var children []embed.Node

	if !p.cur().punct("{") && !p.cur().punct("[") {
		p.typeName()
	}
	for p.cur().punct("[") {
		p.advance()
		if !p.cur().punct("]") {
			children = append(children, p.arguments("]")...)
		}
		p.expect("]", "CS1003")
	}
	if p.accept("(") {
		children = append(children, p.arguments(")")...)
		p.expect(")", "CS1026")
	}
	if p.accept("{") {
		for !p.cur().punct("}") && !p.at(tokEOF) {
			if p.at(tokIdent) && p.peekAt(1).punct("=") {
				p.advance()
				p.advance()
			}
			children = append(children, p.expression())
			if !p.accept(",") {
				break
			}
		}
		p.expect("}", "CS1513")
	}
	return embed.NewOther(span(start, p.prev().pos.End), "new", children...)
}

func (p *parser) isLambdaParams() bool {
	depth := 0
	for i := p.idx; i < len(p.toks); i++ {
		tok := p.toks[i]
		switch {
		case tok.punct("("):
			depth++
		case tok.punct(")"):
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].punct("=>")
			}
		case tok.kind == tokEOF, tok.punct(";"), tok.punct("{"), tok.punct("}"):
			return false
		}
	}
	return false
}

// lambda parameters have no declared type here, so the body is skipped
// rather than bound.
func (p *parser) lambda() embed.Node {
	start := p.cur().pos.Start
	if p.accept("(") {
		depth := 1
		for depth > 0 && !p.at(tokEOF) {
			switch {
			case p.cur().punct("("):
				depth++
			case p.cur().punct(")"):
				depth--
			}
			p.advance()
		}
	} else {
		p.advance()
	}
	p.expect("=>", "CS1003")
	if p.cur().punct("{") {
		p.block()
	} else {
		p.expression()
	}
	return embed.NewOther(span(start, p.prev().pos.End), "lambda")
}
