package symbols_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/registry"
	"github.com/walteh/go-aspx-typer/pkg/symbols"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

type outline struct {
	Name     string
	Detail   string
	Kind     symbols.Kind
	Children []outline
}

func project(list []symbols.Symbol) []outline {
	var out []outline
	for _, s := range list {
		out = append(out, outline{Name: s.Name, Detail: s.Detail, Kind: s.Kind, Children: project(s.Children)})
	}
	return out
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	u, err := types.Framework()
	require.NoError(t, err)
	reg := registry.New()
	_, err = reg.Register(ctx, registry.Registration{TagPrefix: "asp", Namespace: "System.Web.UI.WebControls"}, u)
	require.NoError(t, err)

	snap, err := document.Build(ctx, "/a.aspx", 1, `<%@ Page Title="Home" %>
<asp:Repeater ID="List" runat="server"><ItemTemplate><%#   Container.DataItem   %></ItemTemplate></asp:Repeater>
<% if (IsPostBack) { %><p>posted</p><% } %>`, document.Options{Universe: u, Registry: reg, Inspections: true})
	require.NoError(t, err)

	got := project(symbols.Build(snap.Root, snap.Binding.Elements))

	want := []outline{
		{Name: "@Page", Detail: "Title=Home", Kind: symbols.KindModule},
		{
			Name:   "asp:Repeater#List",
			Detail: "System.Web.UI.WebControls.Repeater",
			Kind:   symbols.KindClass,
			Children: []outline{
				{
					Name:     "ItemTemplate",
					Detail:   "System.Web.UI.ITemplate",
					Kind:     symbols.KindProperty,
					Children: []outline{{Name: "Container.DataItem", Kind: symbols.KindEvent}},
				},
			},
		},
		{Name: "if (IsPostBack) {", Kind: symbols.KindFunction},
		{Name: "p", Kind: symbols.KindObject},
		{Name: "}", Kind: symbols.KindFunction},
	}
	assert.Equal(t, want, got)
}

func TestBuildWithoutBinding(t *testing.T) {
	snap, err := document.Build(context.Background(), "/a.aspx", 1, "<div><%= new string('x', 80) + \"a very long expression\" %></div>", document.Options{})
	require.NoError(t, err)

	got := symbols.Build(snap.Root, nil)
	require.Len(t, got, 1)
	assert.Equal(t, symbols.KindObject, got[0].Kind)
	require.Len(t, got[0].Children, 1)
	assert.Equal(t, 40, len([]rune(got[0].Children[0].Name)))
}
