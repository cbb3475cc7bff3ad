// Package hover builds the markdown shown when hovering over a part of a
// document.
package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/bind"
	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/position"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

// Info is the content of a hover tooltip.
type Info struct {
	// Content is markdown.
	Content string
	// Range is the part of the document the hover applies to.
	Range position.Range
}

// At returns the hover for a zero-based line and column, or nil when there
// is nothing to show.
func At(ctx context.Context, snap *document.Snapshot, line, column int) *Info {
	hit := snap.Index.Query(line, column)
	if hit == nil {
		zerolog.Ctx(ctx).Trace().Int("line", line).Int("column", column).Msg("no hit")
		return nil
	}

	zerolog.Ctx(ctx).Debug().Stringer("kind", hit.Kind).Stringer("range", hit.Range).Msg("hover hit")

	switch hit.Kind {
	case ast.HitTagName:
		if h, ok := hit.Node.(*ast.Html); ok {
			return tagName(snap, h, hit.Range)
		}
	case ast.HitAttributeName:
		if h, ok := hit.Node.(*ast.Html); ok && hit.Value != nil {
			return attributeName(snap, h, hit.Value.Value, hit.Range)
		}
	case ast.HitDirective:
		if d, ok := hit.Node.(*ast.Directive); ok {
			return directive(snap, d, hit.Range)
		}
	case ast.HitExpression, ast.HitStatement:
		if snap.Binding == nil {
			return nil
		}
		offset, ok := snap.Root.Lines.Offset(line, column)
		if !ok {
			return nil
		}
		if res := snap.Binding.ResolutionAt(offset); res != nil {
			return &Info{Content: code(resolution(res)), Range: res.Range}
		}
	}
	return nil
}

func code(s string) string {
	return "```csharp\n" + s + "\n```"
}

func tagName(snap *document.Snapshot, h *ast.Html, r position.Range) *Info {
	if t := snap.ElementType(h); t != nil {
		var sb strings.Builder
		if asm := t.Assembly(); asm != "" {
			fmt.Fprintf(&sb, "**%s** – ", asm)
		}
		sb.WriteString(t.FullName())
		sb.WriteString("\n\n")
		sb.WriteString(code(typeSignature(t)))
		if desc := t.Info().Description; desc != "" {
			sb.WriteString("\n\n")
			sb.WriteString(desc)
		}
		return &Info{Content: sb.String(), Range: r}
	}

	// property elements: the parent control holds the property
	if h.Type != "" && h.Binding != "" {
		if parent, ok := h.Parent().(*ast.Html); ok {
			if owner := propertyOwner(snap, parent); owner != nil {
				if prop, ok := owner.FindProperty(h.Binding); ok {
					return &Info{Content: property(owner, prop), Range: r}
				}
			}
		}
	}
	return nil
}

// propertyOwner finds the type whose properties the children of h name.
func propertyOwner(snap *document.Snapshot, h *ast.Html) *types.CodeType {
	if t := snap.ElementType(h); t != nil {
		return t
	}
	if h.Type != "" && snap.Types != nil {
		return snap.Types.Get(h.Type)
	}
	return nil
}

func attributeName(snap *document.Snapshot, h *ast.Html, name string, r position.Range) *Info {
	t := snap.ElementType(h)
	if t == nil {
		return nil
	}
	prop, ok := t.FindProperty(name)
	if !ok {
		return nil
	}
	return &Info{Content: property(t, prop), Range: r}
}

func property(owner *types.CodeType, m types.Member) string {
	var sb strings.Builder
	sb.WriteString(code(memberSignature(owner, m)))
	if m.Description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(m.Description)
	}

	var facts []string
	if m.Category != "" {
		facts = append(facts, "Category: "+m.Category)
	}
	if m.DefaultValue != "" {
		facts = append(facts, "Default: `"+m.DefaultValue+"`")
	}
	if m.IsIDReference() {
		facts = append(facts, "References a control of type `"+m.IDReference.ShortName()+"`")
	}
	if len(facts) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(facts, " · "))
	}
	return sb.String()
}

func directive(snap *document.Snapshot, d *ast.Directive, r position.Range) *Info {
	var sb strings.Builder
	fmt.Fprintf(&sb, "`<%%@ %s %%>` directive", d.DirectiveKind)
	switch d.DirectiveKind {
	case ast.DirectivePage, ast.DirectiveControl, ast.DirectiveMaster:
		if snap.Inherits != nil {
			fmt.Fprintf(&sb, "\n\nInherits `%s`", snap.Inherits.FullName())
		}
	case ast.DirectiveRegister:
		if p := d.Attributes.Value("tagprefix"); p != "" {
			fmt.Fprintf(&sb, "\n\nRegisters controls under the `%s` prefix", p)
		}
	case ast.DirectiveImport:
		if ns := d.Attributes.Value("namespace"); ns != "" {
			fmt.Fprintf(&sb, "\n\nImports `%s`", ns)
		}
	}
	return &Info{Content: sb.String(), Range: r}
}

func typeSignature(t *types.CodeType) string {
	kind := "class"
	if t.Info().IsInterface {
		kind = "interface"
	}
	s := kind + " " + t.ShortName()
	if base := t.BaseType(); base != nil {
		s += " : " + base.ShortName()
	}
	return s
}

func memberSignature(owner *types.CodeType, m types.Member) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s) ", m.Kind)
	if m.Static {
		sb.WriteString("static ")
	}
	sb.WriteString(m.Type.ShortName())
	sb.WriteString(" ")
	sb.WriteString(owner.ShortName())
	sb.WriteString(".")
	sb.WriteString(m.Name)
	if m.Kind == types.MethodMember {
		params := make([]string, len(m.Parameters))
		for i, p := range m.Parameters {
			params[i] = p.Type.ShortName() + " " + p.Name
		}
		sb.WriteString("(" + strings.Join(params, ", ") + ")")
	}
	return sb.String()
}

func resolution(res *bind.Resolution) string {
	typeName := "?"
	if res.Type != nil {
		typeName = res.Type.ShortName()
	}
	switch res.Kind {
	case bind.ResolvedMember:
		if res.Owner != nil && res.Member != nil {
			return memberSignature(res.Owner, *res.Member)
		}
	case bind.ResolvedLocal:
		return fmt.Sprintf("(local variable) %s %s", typeName, res.Name)
	case bind.ResolvedType:
		if res.Type != nil {
			return typeSignature(res.Type)
		}
	case bind.ResolvedContainer, bind.ResolvedItem:
		return fmt.Sprintf("(%s) %s %s", res.Kind, typeName, res.Name)
	}
	return res.Name
}
