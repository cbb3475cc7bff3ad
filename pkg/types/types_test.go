package types_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/types"
)

const shopCatalog = `
types:
  - name: Shop.Product
    properties:
      - { name: Name, type: string }
      - { name: Price, type: decimal }
      - { name: Tags, type: "System.Collections.Generic.List<string>" }
      - { name: Secret, type: string, private: true }
    methods:
      - { name: Format, type: string, parameters: [{ name: format, type: string }] }
  - name: Shop.Catalog
    base: System.Web.UI.Page
    properties:
      - { name: Products, type: "System.Collections.Generic.List<Shop.Product>" }
      - { name: Featured, type: "Product[]" }
      - { name: Title, type: string }
`

func newUniverse(t *testing.T) *types.Catalog {
	t.Helper()
	c, err := types.Framework()
	require.NoError(t, err)
	require.NoError(t, c.Load(strings.NewReader(shopCatalog)))
	return c
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantName  string
		wantText  string
		wantShort string
		wantErr   bool
	}{
		{name: "simple", input: "Shop.Product", wantName: "Shop.Product", wantText: "Shop.Product", wantShort: "Product"},
		{name: "generic", input: "System.Collections.Generic.List<Shop.Product>", wantName: "System.Collections.Generic.List`1", wantText: "System.Collections.Generic.List<Shop.Product>", wantShort: "List<Product>"},
		{name: "nested generic", input: "Dictionary<string, List<int>>", wantName: "Dictionary`2", wantText: "Dictionary<string, List<int>>", wantShort: "Dictionary<string, List<int>>"},
		{name: "array", input: "int[]", wantName: "[]", wantText: "int[]", wantShort: "int[]"},
		{name: "missing name", input: "<int>", wantErr: true},
		{name: "unterminated", input: "List<int", wantErr: true},
		{name: "trailing junk", input: "int)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := types.ParseHandle(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, h.Name)
			assert.Equal(t, tt.wantText, h.String())
			assert.Equal(t, tt.wantShort, h.ShortName())
		})
	}
}

func TestCatalogResolve(t *testing.T) {
	u := newUniverse(t)

	tests := []struct {
		name       string
		input      string
		namespaces []string
		want       string
		wantOK     bool
	}{
		{name: "qualified", input: "Shop.Product", want: "Shop.Product", wantOK: true},
		{name: "alias", input: "string", want: "System.String", wantOK: true},
		{name: "namespace import", input: "Product", namespaces: []string{"Shop"}, want: "Shop.Product", wantOK: true},
		{name: "generic with import", input: "List<Product>", namespaces: []string{"System.Collections.Generic", "Shop"}, want: "System.Collections.Generic.List<Shop.Product>", wantOK: true},
		{name: "array of alias", input: "int[]", want: "System.Int32[]", wantOK: true},
		{name: "unknown", input: "Shop.Missing", wantOK: false},
		{name: "unknown argument", input: "System.Collections.Generic.List<Missing>", wantOK: false},
		{name: "not a type", input: "<<", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := u.Resolve(tt.input, tt.namespaces...)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, h.String())
			}
		})
	}
}

func TestCatalogLoadRejectsUnknownFields(t *testing.T) {
	c := types.NewCatalog()
	err := c.Load(strings.NewReader("types:\n  - name: A\n    colour: blue\n"))
	assert.Error(t, err)

	require.NoError(t, c.Load(strings.NewReader("")))
	assert.Equal(t, 0, c.Len())
}

func TestTypesInNamespace(t *testing.T) {
	u := newUniverse(t)

	got := u.TypesInNamespace("shop")
	names := make([]string, 0, len(got))
	for _, h := range got {
		names = append(names, h.String())
	}
	assert.Equal(t, []string{"Shop.Catalog", "Shop.Product"}, names)

	for _, h := range u.TypesInNamespace("System.Collections.Generic") {
		assert.Empty(t, h.Args, "generic definitions are not listed")
	}
}

func TestContainerInterns(t *testing.T) {
	c := types.NewContainer(newUniverse(t), "Shop")

	a := c.Get("Product")
	b := c.Get("Shop.Product")
	require.NotNil(t, a)
	assert.Same(t, a, b)

	assert.Nil(t, c.Get("Nope"))
	assert.Nil(t, c.Get(""))
	assert.Nil(t, c.GetHandle(types.Named("T")))
}

func TestCodeTypeMembers(t *testing.T) {
	c := types.NewContainer(newUniverse(t))

	page := c.Get("Shop.Catalog")
	require.NotNil(t, page)

	require.NotNil(t, page.BaseType())
	assert.Equal(t, "System.Web.UI.Page", page.BaseType().FullName())
	assert.Same(t, page.BaseType(), page.BaseType())

	title, ok := page.FindMember("Title")
	require.True(t, ok)
	assert.Equal(t, "System.String", title.Type.String())

	eval, ok := page.FindMember("Eval")
	require.True(t, ok)
	assert.Equal(t, types.MethodMember, eval.Kind)

	_, ok = page.FindMember("title")
	assert.False(t, ok, "member lookup is case sensitive")

	_, ok = page.FindProperty("title")
	assert.True(t, ok, "property lookup is case insensitive")

	product := c.Get("Shop.Product")
	_, ok = product.FindMember("Secret")
	assert.False(t, ok, "private members are hidden")

	count := 0
	for _, m := range page.Properties() {
		if m.Name == "Title" {
			count++
		}
	}
	assert.Equal(t, 1, count, "derived member hides base member")
}

func TestAddProperty(t *testing.T) {
	c := types.NewContainer(newUniverse(t))
	page := c.Get("Shop.Catalog")
	label := c.Get("System.Web.UI.WebControls.Label")

	assert.True(t, page.AddProperty("lblName", label))
	assert.False(t, page.AddProperty("lblName", c.Get("string")))
	assert.False(t, page.AddProperty("Title", label), "real properties win")

	m, ok := c.Get("Shop.Catalog").FindMember("lblName")
	require.True(t, ok)
	assert.True(t, m.Synthetic)
	assert.Equal(t, "System.Web.UI.WebControls.Label", m.Type.String())
}

func TestElementType(t *testing.T) {
	c := types.NewContainer(newUniverse(t), "System.Collections.Generic", "Shop")

	tests := []struct {
		name string
		typ  string
		want string
	}{
		{name: "list", typ: "List<Product>", want: "Shop.Product"},
		{name: "array", typ: "Product[]", want: "Shop.Product"},
		{name: "dictionary", typ: "Dictionary<string, int>", want: "System.Collections.Generic.KeyValuePair<System.String, System.Int32>"},
		{name: "string", typ: "string", want: "System.Char"},
		{name: "not enumerable", typ: "Product", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := c.Get(tt.typ)
			require.NotNil(t, typ)
			elem := typ.ElementType()
			if tt.want == "" {
				assert.Nil(t, elem)
				return
			}
			require.NotNil(t, elem)
			assert.Equal(t, tt.want, elem.FullName())
		})
	}
}

func TestGenericMembersAreSubstituted(t *testing.T) {
	c := types.NewContainer(newUniverse(t), "System.Collections.Generic", "Shop")

	list := c.Get("List<Product>")
	toArray, ok := list.FindMember("ToArray")
	require.True(t, ok)
	assert.Equal(t, "Shop.Product[]", toArray.Type.String())

	pair := c.Get("KeyValuePair<string, Product>")
	value, ok := pair.FindMember("Value")
	require.True(t, ok)
	assert.Equal(t, "Shop.Product", pair.TypeOf(value).FullName())
}

func TestIsAssignableTo(t *testing.T) {
	c := types.NewContainer(newUniverse(t), "System.Web.UI", "System.Web.UI.WebControls")

	tests := []struct {
		from, to string
		want     bool
	}{
		{from: "Button", to: "IButtonControl", want: true},
		{from: "Button", to: "Control", want: true},
		{from: "Label", to: "IButtonControl", want: false},
		{from: "RequiredFieldValidator", to: "Label", want: true},
		{from: "Control", to: "Button", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.from+" to "+tt.to, func(t *testing.T) {
			from, to := c.Get(tt.from), c.Get(tt.to)
			require.NotNil(t, from)
			require.NotNil(t, to)
			assert.Equal(t, tt.want, from.IsAssignableTo(to))
		})
	}

	assert.True(t, c.Get("ITemplate").IsTemplate())
	assert.True(t, c.Get("Repeater").ChildrenAsProperties())
	assert.False(t, c.Get("Label").ChildrenAsProperties())
	assert.Equal(t, "System.Web", c.Get("Label").Assembly())

	validate, ok := c.Get("RequiredFieldValidator").FindProperty("controltovalidate")
	require.True(t, ok)
	assert.True(t, validate.IsIDReference())
	assert.Equal(t, "System.Web.UI.Control", validate.IDReference.String())
}

func TestFrameworkLoads(t *testing.T) {
	u, err := types.Framework()
	require.NoError(t, err)
	assert.Positive(t, u.Len())

	c := types.NewContainer(u, "System.Collections.Generic", "System.Web.UI")
	for _, name := range []string{"Dictionary<string, int>", "KeyValuePair<string, int>", "Page"} {
		assert.NotNil(t, c.Get(name), name)
	}

	dict := c.Get("Dictionary<string, int>")
	require.NotNil(t, dict)
	pair := dict.ElementType()
	require.NotNil(t, pair)
	assert.Equal(t, "System.Collections.Generic.KeyValuePair<System.String, System.Int32>", pair.FullName())
}

func TestBaseCycleTerminates(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		start   string
		bases   []string
	}{
		{
			name:    "self",
			catalog: "types:\n  - { name: A.B, base: A.B }\n",
			start:   "A.B",
		},
		{
			name:    "pair",
			catalog: "types:\n  - { name: A.B, base: A.C }\n  - { name: A.C, base: A.B }\n",
			start:   "A.B",
		},
		{
			name:    "loop above",
			catalog: "types:\n  - { name: A.D, base: A.B }\n  - { name: A.B, base: A.C }\n  - { name: A.C, base: A.B }\n",
			start:   "A.D",
			bases:   []string{"A.B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := types.NewCatalog()
			require.NoError(t, u.Load(strings.NewReader(tt.catalog)))
			c := types.NewContainer(u)

			done := make(chan []string)
			go func() {
				start := c.Get(tt.start)
				_, _ = start.FindMember("Nope")
				_, _ = start.FindProperty("Nope")
				_ = start.Interfaces()
				_ = start.IsAssignableTo(c.Get("A.B"))
				var bases []string
				for cur := start.BaseType(); cur != nil; cur = cur.BaseType() {
					bases = append(bases, cur.FullName())
				}
				done <- bases
			}()

			select {
			case bases := <-done:
				assert.Equal(t, tt.bases, bases)
			case <-time.After(2 * time.Second):
				t.Fatal("base chain walk did not return")
			}
		})
	}
}
