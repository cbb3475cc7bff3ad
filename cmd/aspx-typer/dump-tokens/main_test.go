package dump_tokens_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dump_tokens "github.com/walteh/go-aspx-typer/cmd/aspx-typer/dump-tokens"
)

func TestDumpTokens(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.aspx", []byte(`<p id="x"><%= Name %></p>`), 0o644))

	cmd := dump_tokens.NewDumpTokensCommand(fs)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"a.aspx"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	got := out.String()
	for _, want := range []string{"kind", "TagOpen", "ElementName", "Attribute", "AttributeValue", "Expression", `" Name "`, "TagOpenSlash"} {
		assert.Contains(t, got, want)
	}
	assert.Contains(t, got, "11 tokens")
}

func TestDumpTokensMissingFile(t *testing.T) {
	cmd := dump_tokens.NewDumpTokensCommand(afero.NewMemMapFs())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"nope.aspx"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
