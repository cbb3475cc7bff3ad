package bind

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/embed"
	"github.com/walteh/go-aspx-typer/pkg/position"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

const listType = "System.Collections.Generic.IList`1"

// scope holds the locals visible at one point of the statement code. A nil
// type marks a local whose type is unknown.
type scope struct {
	vars   map[string]*types.CodeType
	parent *scope
}

func (s *scope) child() *scope {
	return &scope{vars: map[string]*types.CodeType{}, parent: s}
}

func (s *scope) lookup(name string) (*types.CodeType, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// value is what an expression evaluates to: a method group or a value of
// type typ. A nil typ outside a method group is unknown and suppresses
// further checks.
type value struct {
	typ    *types.CodeType
	method *types.Member
}

func (v value) unknown() bool { return v.typ == nil && v.method == nil }

// statementWalker binds the reassembled statement code and dispatches the
// sentinel comments that stand for inline expressions.
type statementWalker struct {
	b        *binder
	code     *Code
	comments []*embed.Comment
	next     int
	parsed   map[int]*embed.Expr
}

func (b *binder) bindExpressions(ctx context.Context) error {
	parsed := make(map[int]*embed.Expr, len(b.root.Expressions))

	ids := make([]int, 0, len(b.root.Expressions))
	for id := range b.root.Expressions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		e := b.root.Expressions[id]
		expr, err := b.cfg.Parser.ParseExpression(ctx, e.Text.Value)
		if err != nil {
			return errors.Errorf("parsing expression %d: %w", id, err)
		}
		parsed[id] = expr
		locate := b.fragmentLocator(e)
		for _, d := range expr.Diagnostics {
			b.report(convert(d, locate(d.Span)))
		}
	}

	code := Reassemble(b.root)
	b.result.Code = code.Source

	file, err := b.cfg.Parser.ParseStatements(ctx, code.Source)
	if err != nil {
		return errors.Errorf("parsing statements: %w", err)
	}
	for _, d := range file.Diagnostics {
		b.report(convert(d, code.Range(d.Span)))
	}

	comments := append([]*embed.Comment(nil), file.Comments...)
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Span().Start < comments[j].Span().Start
	})

	w := &statementWalker{b: b, code: code, comments: comments, parsed: parsed}
	top := (&scope{}).child()
	for _, st := range file.Statements {
		w.statement(st, top)
	}
	w.flush(math.MaxInt, top)

	zerolog.Ctx(ctx).Trace().
		Int("expressions", len(parsed)).
		Int("statements", len(file.Statements)).
		Int("bytes", len(code.Source)).
		Msg("bound expressions")

	return nil
}

func (b *binder) fragmentLocator(e *ast.Expression) func(embed.Span) position.Range {
	base := e.Text.Range.Start.Offset
	return func(s embed.Span) position.Range {
		return b.root.Lines.Range(base+s.Start, base+s.End)
	}
}

func convert(d embed.Diagnostic, r position.Range) diagnostic.Diagnostic {
	sev := diagnostic.Error
	if d.Severity == embed.SeverityWarning {
		sev = diagnostic.Warning
	}
	return diagnostic.Diagnostic{Range: r, Message: d.Message, Severity: sev, Code: d.Code}
}

// flush dispatches the sentinels that start before upTo.
func (w *statementWalker) flush(upTo int, sc *scope) {
	for w.next < len(w.comments) && w.comments[w.next].Span().Start < upTo {
		c := w.comments[w.next]
		w.next++
		id, ok := sentinelID(c.Text)
		if !ok {
			continue
		}
		e, ok := w.b.root.Expressions[id]
		if !ok {
			continue
		}
		expr := w.parsed[id]
		if expr == nil || expr.X == nil {
			continue
		}
		in := &inspector{
			b:        w.b,
			scope:    sc,
			isEval:   e.IsEval,
			itemType: e.ItemType,
			locate:   w.b.fragmentLocator(e),
		}
		in.inspect(expr.X)
	}
}

func (w *statementWalker) inspector(sc *scope) *inspector {
	return &inspector{b: w.b, scope: sc, locate: w.code.Range}
}

func (w *statementWalker) statement(n embed.Node, sc *scope) {
	if n == nil {
		return
	}
	w.flush(n.Span().Start, sc)

	switch n := n.(type) {
	case *embed.Block:
		inner := sc.child()
		for _, st := range n.List {
			w.statement(st, inner)
		}
		w.flush(n.Span().End, inner)
	case *embed.Foreach:
		v := w.inspector(sc).inspect(n.X)
		inner := sc.child()
		if n.Var != nil {
			var elem *types.CodeType
			if n.Type != "" {
				elem = w.b.cfg.Types.Get(n.Type)
			} else if v.typ != nil {
				elem = v.typ.ElementType()
			}
			inner.vars[n.Var.Name] = elem
			w.b.resolve(Resolution{Range: w.code.Range(n.Var.Span()), Name: n.Var.Name, Kind: ResolvedLocal, Type: elem})
		}
		w.statement(n.Body, inner)
		w.flush(n.Span().End, inner)
	case *embed.If:
		w.inspector(sc).inspect(n.Cond)
		w.statement(n.Then, sc.child())
		w.statement(n.Else, sc.child())
	case *embed.While:
		w.inspector(sc).inspect(n.Cond)
		w.statement(n.Body, sc.child())
	case *embed.LocalDeclaration:
		var declared *types.CodeType
		if n.Type != "" {
			declared = w.b.cfg.Types.Get(n.Type)
		}
		if n.Value != nil {
			v := w.inspector(sc).inspect(n.Value)
			if declared == nil && n.Type == "" {
				declared = v.typ
			}
		}
		if n.Name != nil {
			sc.vars[n.Name.Name] = declared
			w.b.resolve(Resolution{Range: w.code.Range(n.Name.Span()), Name: n.Name.Name, Kind: ResolvedLocal, Type: declared})
		}
	case *embed.ExpressionStatement:
		w.inspector(sc).inspect(n.X)
	case *embed.Other:
		inner := sc.child()
		for _, c := range n.Children {
			w.statement(c, inner)
		}
		w.flush(n.Span().End, inner)
	case *embed.Comment:
	default:
		w.inspector(sc).inspect(n)
	}
}

// inspector binds one expression tree.
type inspector struct {
	b        *binder
	scope    *scope
	isEval   bool
	itemType string
	locate   func(embed.Span) position.Range
}

func (in *inspector) errorf(s embed.Span, format string, args ...any) {
	in.b.report(diagnostic.Errorf(in.locate(s), format, args...))
}

func (in *inspector) inspect(n embed.Node) value {
	switch n := n.(type) {
	case nil:
		return value{}
	case *embed.Identifier:
		return in.identifier(n)
	case *embed.MemberAccess:
		return in.memberAccess(n)
	case *embed.Invocation:
		fun := in.inspect(n.Fun)
		for _, a := range n.Args {
			in.inspect(a)
		}
		if fun.unknown() {
			return value{}
		}
		if fun.method == nil {
			in.errorf(n.Fun.Span(), "Method, delegate or event is expected")
			return value{}
		}
		return value{typ: fun.typ}
	case *embed.ElementAccess:
		x := in.inspect(n.X)
		for _, a := range n.Args {
			in.inspect(a)
		}
		if x.typ == nil {
			return value{}
		}
		return value{typ: indexerType(x.typ)}
	case *embed.Binary:
		in.inspect(n.X)
		return in.inspect(n.Y)
	case *embed.PrefixUnary:
		return in.inspect(n.X)
	case *embed.Conditional:
		in.inspect(n.Cond)
		then := in.inspect(n.Then)
		in.inspect(n.Else)
		return then
	case *embed.Paren:
		return in.inspect(n.X)
	case *embed.Literal:
		return value{typ: in.literal(n)}
	case *embed.Other:
		for _, c := range n.Children {
			in.inspect(c)
		}
		return value{}
	}
	return value{}
}

func (in *inspector) literal(l *embed.Literal) *types.CodeType {
	switch l.Kind {
	case embed.StringLiteral:
		return in.b.cfg.Types.Get("string")
	case embed.CharLiteral:
		return in.b.cfg.Types.Get("char")
	case embed.BoolLiteral:
		return in.b.cfg.Types.Get("bool")
	case embed.NumberLiteral:
		if strings.ContainsAny(l.Value, ".eEdDfFmM") && !strings.HasPrefix(l.Value, "0x") {
			return in.b.cfg.Types.Get("double")
		}
		return in.b.cfg.Types.Get("int")
	}
	return nil
}

func (in *inspector) identifier(id *embed.Identifier) value {
	r := in.locate(id.Span())
	root := in.b.inherits

	switch {
	case id.Name == "this":
		return value{typ: root}
	case id.Name == "base":
		if root == nil {
			return value{}
		}
		return value{typ: root.BaseType()}
	case in.isEval && id.Name == "Container":
		t := in.b.cfg.Types.Get(in.b.cfg.ContainerType)
		in.b.resolve(Resolution{Range: r, Name: id.Name, Kind: ResolvedContainer, Type: t})
		return value{typ: t}
	case in.isEval && id.Name == "Item":
		if in.itemType == "" {
			in.errorf(id.Span(), "Item can only be used if the ItemType is defined")
			return value{}
		}
		t := in.b.cfg.Types.Get(in.itemType)
		in.b.resolve(Resolution{Range: r, Name: id.Name, Kind: ResolvedItem, Type: t})
		return value{typ: t}
	}

	if t, ok := in.scope.lookup(id.Name); ok {
		in.b.resolve(Resolution{Range: r, Name: id.Name, Kind: ResolvedLocal, Type: t})
		return value{typ: t}
	}

	if root == nil {
		return value{}
	}

	if m, ok := root.FindMember(id.Name); ok {
		return in.member(root, m, r)
	}

	if t := in.b.cfg.Types.Get(id.Name); t != nil {
		in.b.resolve(Resolution{Range: r, Name: id.Name, Kind: ResolvedType, Type: t})
		return value{typ: t}
	}

	in.errorf(id.Span(), "'%s' does not contain a definition for '%s'", root.ShortName(), id.Name)
	return value{}
}

func (in *inspector) member(owner *types.CodeType, m types.Member, r position.Range) value {
	t := owner.TypeOf(m)
	mm := m
	in.b.resolve(Resolution{Range: r, Name: m.Name, Kind: ResolvedMember, Type: t, Owner: owner, Member: &mm})
	if m.Kind == types.MethodMember {
		return value{typ: t, method: &mm}
	}
	return value{typ: t}
}

func (in *inspector) memberAccess(ma *embed.MemberAccess) value {
	if ma.Name == nil {
		in.inspect(ma.X)
		return value{}
	}

	// A.B.C may name a type before it names a member.
	if name, ok := dotted(ma.X); ok && strings.Contains(name, ".") && !in.isLocalOrMember(name) {
		if t := in.b.cfg.Types.Get(name); t != nil {
			in.b.resolve(Resolution{Range: in.locate(ma.X.Span()), Name: name, Kind: ResolvedType, Type: t})
			return in.memberOf(value{typ: t}, ma)
		}
	}

	x := in.inspect(ma.X)
	if x.method != nil {
		in.errorf(ma.X.Span(), "%s is a method, which is not valid in the given context", x.method.Name)
		return value{}
	}
	return in.memberOf(x, ma)
}

func (in *inspector) memberOf(x value, ma *embed.MemberAccess) value {
	if x.typ == nil {
		return value{}
	}
	m, ok := x.typ.FindMember(ma.Name.Name)
	if !ok {
		in.errorf(ma.Name.Span(), "'%s' does not contain a definition for '%s'", x.typ.ShortName(), ma.Name.Name)
		return value{}
	}
	return in.member(x.typ, m, in.locate(ma.Name.Span()))
}

// isLocalOrMember reports whether the head of a dotted name is bound as a
// variable or a member of the inherited type.
func (in *inspector) isLocalOrMember(name string) bool {
	head, _, _ := strings.Cut(name, ".")
	if _, ok := in.scope.lookup(head); ok {
		return true
	}
	if in.isEval && (head == "Container" || head == "Item") {
		return true
	}
	if in.b.inherits != nil {
		if _, ok := in.b.inherits.FindMember(head); ok {
			return true
		}
	}
	return false
}

// dotted flattens a chain of identifiers joined by member access.
func dotted(n embed.Node) (string, bool) {
	switch n := n.(type) {
	case *embed.Identifier:
		return n.Name, true
	case *embed.MemberAccess:
		if n.Name == nil {
			return "", false
		}
		left, ok := dotted(n.X)
		if !ok {
			return "", false
		}
		return left + "." + n.Name.Name, true
	}
	return "", false
}

// indexerType approximates the result of t[i] for arrays and lists.
func indexerType(t *types.CodeType) *types.CodeType {
	if t.Handle().IsArray() {
		return t.ElementType()
	}
	for _, iface := range t.Interfaces() {
		if iface.Handle().Name == listType && len(iface.Handle().Args) == 1 {
			return t.ElementType()
		}
	}
	return nil
}
