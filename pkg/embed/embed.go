// Package embed defines the syntax tree the binders expect from a parser of
// the code embedded in documents, and the Parser interface implementations
// provide.
//
// Only the shapes the binders inspect are modelled precisely. Everything
// else a parser recognises becomes Other, which keeps its children so they
// are still visited.
package embed

import (
	"context"
)

// Span is a half-open byte range in the parsed source.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Node is implemented by every syntax node.
type Node interface {
	Span() Span
	node()
}

type base struct {
	Pos Span
}

func (b *base) Span() Span { return b.Pos }
func (*base) node()        {}

// Identifier is a simple name.
type Identifier struct {
	base
	Name string
}

// MemberAccess is X.Name.
type MemberAccess struct {
	base
	X    Node
	Name *Identifier
}

// Invocation is Fun(Args...).
type Invocation struct {
	base
	Fun  Node
	Args []Node
}

// ElementAccess is X[Args...].
type ElementAccess struct {
	base
	X    Node
	Args []Node
}

// Binary is X Op Y.
type Binary struct {
	base
	Op string
	X  Node
	Y  Node
}

// PrefixUnary is Op X.
type PrefixUnary struct {
	base
	Op string
	X  Node
}

// Conditional is Cond ? Then : Else.
type Conditional struct {
	base
	Cond Node
	Then Node
	Else Node
}

// Paren is (X).
type Paren struct {
	base
	X Node
}

// LiteralKind classifies literals.
type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	CharLiteral
	NumberLiteral
	BoolLiteral
	NullLiteral
)

type Literal struct {
	base
	Kind  LiteralKind
	Value string
}

// Other is a construct the binders do not inspect, such as a lambda, a cast
// or a statement kind without a dedicated node.
type Other struct {
	base
	Description string
	Children    []Node
}

// Block is { List... }.
type Block struct {
	base
	List []Node
}

// ExpressionStatement is X;.
type ExpressionStatement struct {
	base
	X Node
}

// LocalDeclaration is "var Name = Value;" or "Type Name = Value;". Type is
// empty for var.
type LocalDeclaration struct {
	base
	Type  string
	Name  *Identifier
	Value Node
}

// Foreach is foreach (Type Var in X) Body. Type is empty for var.
type Foreach struct {
	base
	Type string
	Var  *Identifier
	X    Node
	Body Node
}

// If is if (Cond) Then else Else.
type If struct {
	base
	Cond Node
	Then Node
	Else Node
}

// While is while (Cond) Body.
type While struct {
	base
	Cond Node
	Body Node
}

// Comment is a comment in the source, kept so binders can find markers
// placed in the code.
type Comment struct {
	base
	Text string
}

// New helpers let parsers outside this package fill in positions.

func NewIdentifier(pos Span, name string) *Identifier {
	return &Identifier{base: base{pos}, Name: name}
}

func NewMemberAccess(pos Span, x Node, name *Identifier) *MemberAccess {
	return &MemberAccess{base: base{pos}, X: x, Name: name}
}

func NewInvocation(pos Span, fun Node, args []Node) *Invocation {
	return &Invocation{base: base{pos}, Fun: fun, Args: args}
}

func NewElementAccess(pos Span, x Node, args []Node) *ElementAccess {
	return &ElementAccess{base: base{pos}, X: x, Args: args}
}

func NewBinary(pos Span, op string, x, y Node) *Binary {
	return &Binary{base: base{pos}, Op: op, X: x, Y: y}
}

func NewPrefixUnary(pos Span, op string, x Node) *PrefixUnary {
	return &PrefixUnary{base: base{pos}, Op: op, X: x}
}

func NewConditional(pos Span, cond, then, els Node) *Conditional {
	return &Conditional{base: base{pos}, Cond: cond, Then: then, Else: els}
}

func NewParen(pos Span, x Node) *Paren {
	return &Paren{base: base{pos}, X: x}
}

func NewLiteral(pos Span, kind LiteralKind, value string) *Literal {
	return &Literal{base: base{pos}, Kind: kind, Value: value}
}

func NewOther(pos Span, description string, children ...Node) *Other {
	return &Other{base: base{pos}, Description: description, Children: children}
}

func NewBlock(pos Span, list []Node) *Block {
	return &Block{base: base{pos}, List: list}
}

func NewExpressionStatement(pos Span, x Node) *ExpressionStatement {
	return &ExpressionStatement{base: base{pos}, X: x}
}

func NewLocalDeclaration(pos Span, typ string, name *Identifier, value Node) *LocalDeclaration {
	return &LocalDeclaration{base: base{pos}, Type: typ, Name: name, Value: value}
}

func NewForeach(pos Span, typ string, v *Identifier, x, body Node) *Foreach {
	return &Foreach{base: base{pos}, Type: typ, Var: v, X: x, Body: body}
}

func NewIf(pos Span, cond, then, els Node) *If {
	return &If{base: base{pos}, Cond: cond, Then: then, Else: els}
}

func NewWhile(pos Span, cond, body Node) *While {
	return &While{base: base{pos}, Cond: cond, Body: body}
}

func NewComment(pos Span, text string) *Comment {
	return &Comment{base: base{pos}, Text: text}
}

// Severity of a parser diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a problem the parser found. Span is relative to the parsed
// source.
type Diagnostic struct {
	Span     Span
	Message  string
	Code     string
	Severity Severity
}

// File is the result of parsing a sequence of statements. Comments are
// listed in source order.
type File struct {
	Statements  []Node
	Comments    []*Comment
	Diagnostics []Diagnostic
}

// Expr is the result of parsing a single expression. X is nil when the
// source holds no expression.
type Expr struct {
	X           Node
	Diagnostics []Diagnostic
}

// Parser parses embedded code. An error means the parser could not run at
// all; syntax problems are reported as diagnostics.
type Parser interface {
	ParseStatements(ctx context.Context, src string) (*File, error)
	ParseExpression(ctx context.Context, src string) (*Expr, error)
}

// Children lists the direct children of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil && !isNilIdentifier(c) {
				out = append(out, c)
			}
		}
	}

	switch n := n.(type) {
	case *MemberAccess:
		add(n.X, n.Name)
	case *Invocation:
		add(n.Fun)
		add(n.Args...)
	case *ElementAccess:
		add(n.X)
		add(n.Args...)
	case *Binary:
		add(n.X, n.Y)
	case *PrefixUnary:
		add(n.X)
	case *Conditional:
		add(n.Cond, n.Then, n.Else)
	case *Paren:
		add(n.X)
	case *Other:
		add(n.Children...)
	case *Block:
		add(n.List...)
	case *ExpressionStatement:
		add(n.X)
	case *LocalDeclaration:
		add(n.Name, n.Value)
	case *Foreach:
		add(n.Var, n.X, n.Body)
	case *If:
		add(n.Cond, n.Then, n.Else)
	case *While:
		add(n.Cond, n.Body)
	}
	return out
}

func isNilIdentifier(n Node) bool {
	id, ok := n.(*Identifier)
	return ok && id == nil
}

// Inspect traverses the tree rooted at n depth-first. If fn returns false
// the children of the node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}
