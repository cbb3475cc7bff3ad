package hover_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/hover"
	"github.com/walteh/go-aspx-typer/pkg/registry"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

const source = `<%@ Page Inherits="Shop.Catalog" %>
<asp:Label ID="Greeting" AssociatedControlID="Name" data-x="1" runat="server" />
<asp:GridView runat="server"><Columns></Columns></asp:GridView>
<% foreach (var p in Products) { %><%= p.Name %><% } %>
<div>plain</div>`

func snapshot(t *testing.T) *document.Snapshot {
	t.Helper()
	ctx := context.Background()

	u, err := types.Framework()
	require.NoError(t, err)
	require.NoError(t, u.Load(strings.NewReader(`
types:
  - name: Shop.Product
    properties:
      - { name: Name, type: string }
  - name: Shop.Catalog
    base: System.Web.UI.Page
    properties:
      - { name: Products, type: "System.Collections.Generic.List<Shop.Product>" }
`)))

	reg := registry.New()
	_, err = reg.Register(ctx, registry.Registration{TagPrefix: "asp", Namespace: "System.Web.UI.WebControls"}, u)
	require.NoError(t, err)

	snap, err := document.Build(ctx, "/a.aspx", 1, source, document.Options{Universe: u, Registry: reg, Inspections: true})
	require.NoError(t, err)
	return snap
}

func TestAt(t *testing.T) {
	snap := snapshot(t)

	tests := []struct {
		name     string
		line     int
		column   int
		contains []string
	}{
		{
			name:     "control tag",
			line:     1,
			column:   len("<asp:La"),
			contains: []string{"**System.Web** – System.Web.UI.WebControls.Label", "class Label : WebControl"},
		},
		{
			name:     "property attribute",
			line:     1,
			column:   len(`<asp:Label ID="Greeting" Assoc`),
			contains: []string{"(property) String Label.AssociatedControlID", "Category: Accessibility", "References a control of type `Control`"},
		},
		{
			name:     "property element",
			line:     2,
			column:   len(`<asp:GridView runat="server"><Col`),
			contains: []string{"(property) DataControlFieldCollection GridView.Columns"},
		},
		{
			name:     "directive",
			line:     0,
			column:   len("<%@ Pa"),
			contains: []string{"`<%@ Page %>` directive", "Inherits `Shop.Catalog`"},
		},
		{
			name:     "loop variable",
			line:     3,
			column:   len(`<% foreach (var p in Products) { %><%= `),
			contains: []string{"(local variable) Product p"},
		},
		{
			name:     "member in expression",
			line:     3,
			column:   len(`<% foreach (var p in Products) { %><%= p.Na`),
			contains: []string{"(property) String Product.Name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := hover.At(context.Background(), snap, tt.line, tt.column)
			require.NotNil(t, info)
			for _, want := range tt.contains {
				assert.Contains(t, info.Content, want)
			}
		})
	}
}

func TestAtNothing(t *testing.T) {
	snap := snapshot(t)

	assert.Nil(t, hover.At(context.Background(), snap, 4, len("<d")), "plain html has no type")
	assert.Nil(t, hover.At(context.Background(), snap, 4, len("<div>pl")), "text is not indexed")
	assert.Nil(t, hover.At(context.Background(), snap, 1, len(`<asp:Label ID="Greeting" AssociatedControlID="Name" da`)), "unknown attributes have no property")
}
