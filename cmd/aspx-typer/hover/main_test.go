package hover_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/cmd/aspx-typer/hover"
)

const page = `<%@ Page %>
<asp:Label ID="Greeting" runat="server" />
<p>plain</p>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.aspx", []byte(page), 0o644))

	cmd := hover.NewHoverCommand(fs)
	cmd.PersistentFlags().String("config", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHover(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		empty    bool
		wantErr  bool
	}{
		{
			name:     "control tag",
			args:     []string{"a.aspx", "2", "8"},
			contains: []string{"System.Web.UI.WebControls.Label", "class Label : WebControl", "a.aspx:2:6-2:11"},
		},
		{
			name:  "plain text",
			args:  []string{"a.aspx", "3", "5"},
			empty: true,
		},
		{
			name:    "bad line",
			args:    []string{"a.aspx", "zero", "1"},
			wantErr: true,
		},
		{
			name:    "column before start",
			args:    []string{"a.aspx", "1", "0"},
			wantErr: true,
		},
		{
			name:    "missing file",
			args:    []string{"b.aspx", "1", "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.empty {
				assert.Empty(t, out)
				return
			}
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
		})
	}
}
