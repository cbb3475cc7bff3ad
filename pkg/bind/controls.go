package bind

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/position"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

const genericHtmlControl = "System.Web.UI.HtmlControls.HtmlGenericControl"

var htmlControls = map[string]string{
	"form":  "System.Web.UI.HtmlControls.HtmlForm",
	"a":     "System.Web.UI.HtmlControls.HtmlAnchor",
	"img":   "System.Web.UI.HtmlControls.HtmlImage",
	"input": "System.Web.UI.HtmlControls.HtmlInputControl",
}

func (b *binder) bindControls(ctx context.Context) {
	for _, child := range b.root.Children() {
		b.walkControls(child, nil, false)
	}
	b.checkIDReferences()

	zerolog.Ctx(ctx).Trace().Int("ids", len(b.result.IDs)).Msg("bound controls")
}

// walkControls binds h. scope is the type whose properties the children of
// h may name; it is nil outside of property-holding controls.
func (b *binder) walkControls(n ast.Node, scope *types.CodeType, inTemplate bool) {
	h, ok := n.(*ast.Html)
	if !ok {
		return
	}

	b.checkItemType(h)

	next, template := b.bindElement(h, scope)
	if t, ok := b.result.Elements[h]; ok {
		b.registerID(h, t, inTemplate)
	}
	for _, child := range h.Children() {
		b.walkControls(child, next, inTemplate || template)
	}
}

// bindElement resolves h and returns the scope of its children and whether
// they are template content.
func (b *binder) bindElement(h *ast.Html, scope *types.CodeType) (*types.CodeType, bool) {
	name := h.Name().Value
	ns := h.Namespace()

	if ns != nil && (h.IsServer() || scope != nil) {
		if entry, ok := b.cfg.Registry.Lookup(ns.Value, name); ok {
			t := b.cfg.Types.GetHandle(entry.Handle)
			if t == nil {
				b.report(diagnostic.Errorf(h.StartTag.NameRange(), "Type '%s' could not be found", entry.Handle))
				return nil, false
			}
			b.attach(h, t, entry.Tag)
			if t.ChildrenAsProperties() {
				return t, false
			}
			return nil, false
		}
		if !b.cfg.Registry.HasPrefix(ns.Value) {
			b.report(diagnostic.Errorf(h.StartTag.NameRange(), "Unknown server tag prefix '%s'", ns.Value))
		} else {
			b.report(diagnostic.Errorf(h.StartTag.NameRange(), "Unknown server tag '%s'", h.StartTag.QualifiedName()))
		}
		return nil, false
	}

	if scope != nil {
		prop, ok := scope.FindProperty(name)
		if !ok {
			b.report(diagnostic.Errorf(h.StartTag.NameRange(), "Type '%s' does not have a public property named '%s'", scope.FullName(), name))
			return nil, false
		}
		h.Binding = prop.Name
		t := scope.TypeOf(prop)
		if t == nil {
			return nil, false
		}
		h.Type = t.FullName()
		if t.IsTemplate() {
			return nil, true
		}
		return t, false
	}

	if h.IsServer() {
		typ, ok := htmlControls[strings.ToLower(name)]
		if !ok {
			typ = genericHtmlControl
		}
		if t := b.cfg.Types.Get(typ); t != nil {
			b.attach(h, t, strings.ToLower(name))
		}
	}
	return nil, false
}

func (b *binder) attach(h *ast.Html, t *types.CodeType, binding string) {
	h.Type = t.FullName()
	h.Binding = binding
	b.result.Elements[h] = t
}

// registerID records the control id of h. The first element with an id
// wins; ids outside templates also become properties of the inherited type.
func (b *binder) registerID(h *ast.Html, t *types.CodeType, inTemplate bool) {
	id := h.Attributes.Value("id")
	if id == "" || strings.Contains(id, "<%") {
		return
	}
	if _, dup := b.result.IDs[id]; dup {
		return
	}
	b.result.IDs[id] = h
	if b.inherits != nil && !inTemplate {
		b.inherits.AddProperty(id, t)
	}
}

func (b *binder) checkItemType(h *ast.Html) {
	if !h.IsServer() || h.ItemType == nil || h.ItemType.Value == "" {
		return
	}
	if b.cfg.Types.Get(h.ItemType.Value) != nil {
		return
	}
	r := h.ItemType.Range
	if attr, ok := h.Attributes.Get("itemtype"); ok {
		r = attributeRange(attr)
	}
	b.report(diagnostic.Errorf(r, "Type '%s' could not be found", h.ItemType.Value))
}

// checkIDReferences validates attributes whose property holds the id of
// another control.
func (b *binder) checkIDReferences() {
	for _, h := range b.root.Elements {
		t, ok := b.result.Elements[h]
		if !ok {
			continue
		}
		for _, attr := range h.Attributes.All() {
			prop, ok := t.FindProperty(attr.Name.Value)
			if !ok || !prop.IsIDReference() {
				continue
			}
			id := attr.Value.Value
			if id == "" || strings.Contains(id, "<%") {
				continue
			}
			target, ok := b.result.IDs[id]
			if !ok {
				b.report(diagnostic.Warningf(attr.Value.Range, "Control with id '%s' could not be found", id))
				continue
			}
			required := b.cfg.Types.GetHandle(prop.IDReference)
			actual := b.result.Elements[target]
			if required == nil || actual == nil {
				continue
			}
			if !actual.IsAssignableTo(required) {
				b.report(diagnostic.Warningf(attr.Value.Range, "Control '%s' of type '%s' is not assignable to '%s'", id, actual.FullName(), required.FullName()))
			}
		}
	}
}

func attributeRange(attr ast.Attribute) position.Range {
	if attr.Value.Range.IsZero() {
		return attr.Name.Range
	}
	return attr.Name.Range.WithEnd(attr.Value.Range.End)
}
