package finder_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/finder"
)

func testFS(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"site/Default.aspx":         "<p>home</p>",
		"site/Site.master":          "<html></html>",
		"site/controls/Cart.ascx":   "<div></div>",
		"site/controls/cart.cs":     "class Cart {}",
		"site/admin/Users.ASPX":     "<p>users</p>",
		"site/types/shop.yaml":      "types: []",
		"/abs/project/Index.aspx":   "<p>index</p>",
		"/abs/project/notes.txt":    "x",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestFind(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		extensions []string
		want       []string
		wantErr    bool
	}{
		{
			name: "directory with default extensions",
			args: []string{"site"},
			want: []string{"site/Default.aspx", "site/Site.master", "site/admin/Users.ASPX", "site/controls/Cart.ascx"},
		},
		{
			name:       "directory with extensions",
			args:       []string{"site"},
			extensions: []string{".ascx"},
			want:       []string{"site/controls/Cart.ascx"},
		},
		{
			name: "glob",
			args: []string{"site/**/*.ascx"},
			want: []string{"site/controls/Cart.ascx"},
		},
		{
			name: "absolute glob",
			args: []string{"/abs/**/*.aspx"},
			want: []string{"/abs/project/Index.aspx"},
		},
		{
			name: "file and overlapping glob",
			args: []string{"site/Default.aspx", "site/*.aspx"},
			want: []string{"site/Default.aspx"},
		},
		{
			name:    "missing file",
			args:    []string{"site/Nope.aspx"},
			wantErr: true,
		},
		{
			name:    "glob without matches",
			args:    []string{"site/**/*.asmx"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := finder.New(testFS(t)).Find(context.Background(), tt.args, tt.extensions)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var paths []string
			for _, f := range got {
				paths = append(paths, f.Path)
				assert.NotEmpty(t, f.Content)
				assert.NotEmpty(t, f.FileType)
			}
			assert.Equal(t, tt.want, paths)
		})
	}
}

func TestFindCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := finder.New(testFS(t)).Find(ctx, []string{"site"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGlob(t *testing.T) {
	got, err := finder.Glob(testFS(t), "site/types/*.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"site/types/shop.yaml"}, got)
}
