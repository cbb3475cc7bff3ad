package get_diagnostics_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	get_diagnostics "github.com/walteh/go-aspx-typer/cmd/aspx-typer/get-diagnostics"
)

const (
	broken = "<%@ Page %>\n<asp:Nope runat=\"server\" />\n"
	clean  = "<%@ Page %>\n<asp:Label ID=\"Greeting\" runat=\"server\" Text=\"hi\" />\n"
)

func testFS(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "site/Default.aspx", []byte(broken), 0o644))
	require.NoError(t, afero.WriteFile(fs, "site/About.aspx", []byte(clean), 0o644))
	return fs
}

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()

	cmd := get_diagnostics.NewGetDiagnosticsCommand(fs)
	cmd.PersistentFlags().String("config", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGetDiagnosticsText(t *testing.T) {
	out, err := run(t, testFS(t), "site")
	require.NoError(t, err)

	assert.Equal(t, "site/Default.aspx:2:2: error: Unknown server tag 'asp:Nope'\n"+
		"  <asp:Nope runat=\"server\" />\n"+
		"   ^~~~~~~~\n"+
		"1 error\n", out)
}

func TestGetDiagnosticsVSCode(t *testing.T) {
	out, err := run(t, testFS(t), "--format", "vscode", "site/*.aspx")
	require.NoError(t, err)

	var got map[string][]struct {
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Source   string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	require.Len(t, got, 2)
	assert.Empty(t, got["site/About.aspx"])
	require.Len(t, got["site/Default.aspx"], 1)
	assert.Equal(t, 1, got["site/Default.aspx"][0].Severity)
	assert.Equal(t, "Unknown server tag 'asp:Nope'", got["site/Default.aspx"][0].Message)
	assert.Equal(t, "aspx-typer", got["site/Default.aspx"][0].Source)
}

func TestGetDiagnosticsFailOnError(t *testing.T) {
	_, err := run(t, testFS(t), "--fail-on-error", "site")
	require.ErrorIs(t, err, get_diagnostics.ErrDiagnostics)

	_, err = run(t, testFS(t), "--fail-on-error", "site/About.aspx")
	require.NoError(t, err)
}

func TestGetDiagnosticsWithConfig(t *testing.T) {
	fs := testFS(t)
	require.NoError(t, afero.WriteFile(fs, "site/types/shop.yaml", []byte(`
types:
  - name: Shop.Controls.Nope
    base: System.Web.UI.WebControls.Label
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "site/aspx-typer.yaml", []byte(`
types: [types/*.yaml]
controls:
  - { tag_prefix: asp, namespace: System.Web.UI.WebControls }
  - { tag_prefix: asp, namespace: Shop.Controls }
`), 0o644))

	out, err := run(t, fs, "--config", "site/aspx-typer.yaml", "--fail-on-error", "site")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetDiagnosticsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no args"},
		{name: "bad format", args: []string{"--format", "xml", "site"}},
		{name: "missing file", args: []string{"site/Nope.aspx"}},
		{name: "missing config", args: []string{"--config", "nope.yaml", "site"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, testFS(t), tt.args...)
			assert.Error(t, err)
		})
	}
}
