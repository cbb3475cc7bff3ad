package bind

import (
	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

var defaultInherits = map[ast.DirectiveKind]string{
	ast.DirectivePage:    "System.Web.UI.Page",
	ast.DirectiveControl: "System.Web.UI.UserControl",
	ast.DirectiveMaster:  "System.Web.UI.MasterPage",
}

// Imports returns the namespaces named by Import directives, in document
// order.
func Imports(root *ast.Root) []string {
	var out []string
	for _, d := range root.Directives {
		if d.DirectiveKind != ast.DirectiveImport {
			continue
		}
		if ns := d.Attributes.Value("namespace"); ns != "" {
			out = append(out, ns)
		}
	}
	return out
}

// Inherits resolves the type a document derives from. The first Page,
// Control or Master directive decides; without an Inherits attribute the
// framework base of that directive is used. An Inherits value that does not
// resolve yields a warning and a nil type.
func Inherits(root *ast.Root, c *types.Container) (*types.CodeType, []diagnostic.Diagnostic) {
	for _, d := range root.Directives {
		base, ok := defaultInherits[d.DirectiveKind]
		if !ok {
			continue
		}
		attr, ok := d.Attributes.Get("inherits")
		if !ok || attr.Value.Value == "" {
			return c.Get(base), nil
		}
		if t := c.Get(attr.Value.Value); t != nil {
			return t, nil
		}
		return nil, []diagnostic.Diagnostic{
			diagnostic.Warningf(attr.Value.Range, "Type '%s' could not be found", attr.Value.Value),
		}
	}
	return nil, nil
}

// CheckImplements warns about Implements directives naming unknown or
// non-interface types.
func CheckImplements(root *ast.Root, c *types.Container) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range root.Directives {
		if d.DirectiveKind != ast.DirectiveImplements {
			continue
		}
		attr, ok := d.Attributes.Get("interface")
		if !ok || attr.Value.Value == "" {
			continue
		}
		t := c.Get(attr.Value.Value)
		switch {
		case t == nil:
			out = append(out, diagnostic.Warningf(attr.Value.Range, "Type '%s' could not be found", attr.Value.Value))
		case !t.Info().IsInterface:
			out = append(out, diagnostic.Warningf(attr.Value.Range, "Type '%s' is not an interface", t.FullName()))
		}
	}
	return out
}
