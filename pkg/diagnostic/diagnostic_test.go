package diagnostic_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/position"
)

func rng(line, col, endCol int) position.Range {
	return position.Range{
		Start: position.Position{Offset: line*100 + col, Line: line, Column: col},
		End:   position.Position{Offset: line*100 + endCol, Line: line, Column: endCol},
	}
}

func TestGroupAndSort(t *testing.T) {
	list := []diagnostic.Diagnostic{
		diagnostic.Warningf(rng(2, 0, 3), "second"),
		diagnostic.Errorf(rng(0, 4, 8), "first %s", "error"),
		diagnostic.Infof(rng(1, 0, 1), "info"),
		diagnostic.Warningf(rng(0, 4, 5), "same start"),
	}

	diagnostic.Sort(list)
	require.Len(t, list, 4)
	assert.Equal(t, "first error", list[0].Message)
	assert.Equal(t, "same start", list[1].Message)
	assert.Equal(t, "info", list[2].Message)
	assert.Equal(t, "second", list[3].Message)

	grouped := diagnostic.Group(list)
	assert.Len(t, grouped.Errors, 1)
	assert.Len(t, grouped.Warnings, 2)
	assert.Len(t, grouped.Infos, 1)
}

func TestVSCodeFormatter(t *testing.T) {
	tests := []struct {
		name        string
		diagnostics *diagnostic.Diagnostics
		want        string
		wantErr     bool
	}{
		{
			name:        "nil diagnostics",
			diagnostics: nil,
			wantErr:     true,
		},
		{
			name:        "empty diagnostics",
			diagnostics: diagnostic.Group(nil),
			want:        `[]`,
		},
		{
			name: "mixed severities",
			diagnostics: diagnostic.Group([]diagnostic.Diagnostic{
				{Range: rng(1, 2, 5), Message: "bad", Severity: diagnostic.Error, Code: "CS1002"},
				diagnostic.Warningf(rng(0, 0, 1), "meh"),
			}),
			want: `[
				{"severity":1,"message":"bad","code":"CS1002","source":"aspx-typer","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}}},
				{"severity":2,"message":"meh","source":"aspx-typer","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}}
			]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := diagnostic.NewVSCodeFormatter().Format(tt.diagnostics)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, json.Valid(got))
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
