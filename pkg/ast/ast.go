// Package ast defines the syntax tree of a page or control document.
//
// ╭──────────────────────────────────────────────────────────╮
// │                      Tree Structure                      │
// │                                                          │
// │           Root                                           │
// │             ├─── Directive      <%@ Page ... %>          │
// │             ├─── Html           <asp:Repeater ...>       │
// │             │      ├─── Html                             │
// │             │      ├─── Expression  <%# Item.Name %>     │
// │             │      └─── Statement   <% if (x) { %>       │
// │             └─── Expression     <%= Title %>             │
// ╰──────────────────────────────────────────────────────────╯
//
// Root and Html own their children; every node keeps a non-owning link to
// its parent container. The set of node types is closed.
package ast

import (
	"strings"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

// Kind discriminates the node variants.
type Kind int

const (
	KindRoot Kind = iota
	KindHtml
	KindDirective
	KindExpression
	KindStatement
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindHtml:
		return "Html"
	case KindDirective:
		return "Directive"
	case KindExpression:
		return "Expression"
	case KindStatement:
		return "Statement"
	}
	return "Unknown"
}

// Node is implemented by *Root, *Html, *Directive, *Expression and *Statement.
type Node interface {
	Kind() Kind
	Span() position.Range
	Parent() Container
	setParent(Container)
	setEnd(position.Position)
}

// Container is a node that owns children.
type Container interface {
	Node
	Children() []Node
	appendChild(Node)
}

type node struct {
	Range  position.Range
	parent Container
}

func (n *node) Span() position.Range { return n.Range }
func (n *node) Parent() Container { return n.parent }
func (n *node) setParent(c Container) { n.parent = c }
func (n *node) setEnd(end position.Position) { n.Range = n.Range.WithEnd(end) }

type container struct {
	node
	children []Node
}

func (c *container) Children() []Node { return c.children }

// Root is the document node.
type Root struct {
	container

	// All lists every node except the root in document order.
	All         []Node
	Directives  []*Directive
	Elements    []*Html
	Expressions map[int]*Expression

	Lines *position.LineIndex
}

func NewRoot() *Root {
	return &Root{Expressions: map[int]*Expression{}}
}

func (*Root) Kind() Kind { return KindRoot }

func (r *Root) appendChild(n Node) {
	n.setParent(r)
	r.children = append(r.children, n)
}

// RunAt tells where an element is processed.
type RunAt int

const (
	RunAtClient RunAt = iota
	RunAtServer
)

func (r RunAt) String() string {
	if r == RunAtServer {
		return "server"
	}
	return "client"
}

// Tag is the start or end tag of an element.
type Tag struct {
	Namespace *position.Span
	Name      position.Span
	Range     position.Range
}

// QualifiedName is "ns:name", or just the name when there is no namespace.
func (t Tag) QualifiedName() string {
	if t.Namespace == nil {
		return t.Name.Value
	}
	return t.Namespace.Value + ":" + t.Name.Value
}

// NameRange covers the namespace (when present) and the name.
func (t Tag) NameRange() position.Range {
	if t.Namespace == nil {
		return t.Name.Range
	}
	return t.Namespace.Range.WithEnd(t.Name.Range.End)
}

// Html is a markup element.
type Html struct {
	container

	StartTag   Tag
	EndTag     *Tag
	RunAt      RunAt
	Attributes Attributes

	// ItemType is the itemtype attribute declared on this element.
	ItemType *position.Span

	// Type and Binding are filled in by the binder: the qualified name of the
	// type the element was resolved to, and the property or control key that
	// produced it.
	Type    string
	Binding string
}

func (*Html) Kind() Kind { return KindHtml }

func (h *Html) Name() position.Span { return h.StartTag.Name }

func (h *Html) Namespace() *position.Span { return h.StartTag.Namespace }

func (h *Html) appendChild(n Node) {
	n.setParent(h)
	h.children = append(h.children, n)
}

// IsServer reports whether the element carries runat="server".
func (h *Html) IsServer() bool { return h.RunAt == RunAtServer }

// DirectiveKind is the first word of a <%@ %> directive.
type DirectiveKind int

const (
	DirectiveUnknown DirectiveKind = iota
	DirectiveAssembly
	DirectiveControl
	DirectiveImplements
	DirectiveImport
	DirectiveMaster
	DirectiveMasterType
	DirectiveOutputCache
	DirectivePage
	DirectivePreviousPageType
	DirectiveReference
	DirectiveRegister
)

var directiveNames = map[DirectiveKind]string{
	DirectiveUnknown:          "Unknown",
	DirectiveAssembly:         "Assembly",
	DirectiveControl:          "Control",
	DirectiveImplements:       "Implements",
	DirectiveImport:           "Import",
	DirectiveMaster:           "Master",
	DirectiveMasterType:       "MasterType",
	DirectiveOutputCache:      "OutputCache",
	DirectivePage:             "Page",
	DirectivePreviousPageType: "PreviousPageType",
	DirectiveReference:        "Reference",
	DirectiveRegister:         "Register",
}

func (k DirectiveKind) String() string {
	return directiveNames[k]
}

// ParseDirectiveKind matches name case-insensitively.
func ParseDirectiveKind(name string) DirectiveKind {
	for k, v := range directiveNames {
		if k != DirectiveUnknown && strings.EqualFold(v, name) {
			return k
		}
	}
	return DirectiveUnknown
}

// Directive is a <%@ %> block. The first attribute names the directive kind
// and is not part of Attributes.
type Directive struct {
	node

	DirectiveKind DirectiveKind
	Name          position.Span
	Attributes    Attributes
}

func (*Directive) Kind() Kind { return KindDirective }

// Expression is a <%= %>, <%: %> or <%# %> block.
type Expression struct {
	node

	Text   position.Span
	ID     int
	IsEval bool

	// ItemType is inherited from the nearest enclosing element that declares
	// one. Only eval expressions carry it.
	ItemType string
}

func (*Expression) Kind() Kind { return KindExpression }

// Statement is a <% %> code block.
type Statement struct {
	node

	Text position.Span
}

func (*Statement) Kind() Kind { return KindStatement }

// SetEnd moves the end of n. Used by the tree builder once the closing token
// of a construct is known.
func SetEnd(n Node, end position.Position) {
	n.setEnd(end)
}

// Append adds child to parent and links it back.
func Append(parent Container, child Node) {
	parent.appendChild(child)
}

// NewHtml returns an element starting at start.
func NewHtml(start position.Position) *Html {
	h := &Html{}
	h.Range = position.NewRange(start)
	return h
}

// NewDirective returns a directive starting at start.
func NewDirective(start position.Position) *Directive {
	d := &Directive{}
	d.Range = position.NewRange(start)
	return d
}

// NewExpression returns an expression block covering r.
func NewExpression(r position.Range, text position.Span, id int, isEval bool) *Expression {
	e := &Expression{Text: text, ID: id, IsEval: isEval}
	e.Range = r
	return e
}

// NewStatement returns a statement block covering r.
func NewStatement(r position.Range, text position.Span) *Statement {
	s := &Statement{Text: text}
	s.Range = r
	return s
}

// Ancestors yields the containers above n, nearest first.
func Ancestors(n Node) []Container {
	var out []Container
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	if c, ok := n.(Container); ok {
		for _, child := range c.Children() {
			Walk(child, fn)
		}
	}
}
