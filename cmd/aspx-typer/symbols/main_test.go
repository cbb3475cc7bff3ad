package symbols_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/cmd/aspx-typer/symbols"
)

func TestSymbols(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.aspx", []byte("<%@ Page Title=\"Home\" %>\n<asp:Label ID=\"Greeting\" runat=\"server\" />\n<div><%= Title %></div>"), 0o644))

	cmd := symbols.NewSymbolsCommand(fs)
	cmd.PersistentFlags().String("config", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"a.aspx"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, "directive @Page (Title=Home) 1:5\n"+
		"control asp:Label#Greeting (System.Web.UI.WebControls.Label) 2:2\n"+
		"element div 3:2\n"+
		"  expression Title 3:9\n", out.String())
}
