package treesitter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/embed"
	"github.com/walteh/go-aspx-typer/pkg/embed/treesitter"
)

func TestParseExpressionInvocation(t *testing.T) {
	p := treesitter.New()

	expr, err := p.ParseExpression(context.Background(), `Eval("Name")`)
	require.NoError(t, err)
	assert.Empty(t, expr.Diagnostics)

	call, ok := expr.X.(*embed.Invocation)
	require.True(t, ok, "got %T", expr.X)
	id, ok := call.Fun.(*embed.Identifier)
	require.True(t, ok)
	assert.Equal(t, "Eval", id.Name)
	assert.Equal(t, embed.Span{Start: 0, End: 4}, id.Span())
	require.Len(t, call.Args, 1)
}

func TestParseExpressionEmpty(t *testing.T) {
	expr, err := treesitter.New().ParseExpression(context.Background(), "  ")
	require.NoError(t, err)
	require.Len(t, expr.Diagnostics, 1)
	assert.Equal(t, "CS1733", expr.Diagnostics[0].Code)
}

func TestParseStatementsForeachAndComments(t *testing.T) {
	src := "foreach (var p in Products) {\n/*§0*/\n}\n"

	file, err := treesitter.New().ParseStatements(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, file.Diagnostics)

	require.Len(t, file.Comments, 1)
	assert.Equal(t, "/*§0*/", file.Comments[0].Text)

	var loop *embed.Foreach
	for _, st := range file.Statements {
		embed.Inspect(st, func(n embed.Node) bool {
			if f, ok := n.(*embed.Foreach); ok {
				loop = f
			}
			return true
		})
	}
	require.NotNil(t, loop)
	require.NotNil(t, loop.Var)
	assert.Equal(t, "p", loop.Var.Name)
	assert.Empty(t, loop.Type)
	assert.Less(t, loop.Body.Span().Start, file.Comments[0].Span().Start)
}

func TestParseStatementsReportsErrors(t *testing.T) {
	file, err := treesitter.New().ParseStatements(context.Background(), "if (x { Show(); }")
	require.NoError(t, err)
	assert.NotEmpty(t, file.Diagnostics)
	for _, d := range file.Diagnostics {
		assert.NotEmpty(t, d.Code)
		assert.LessOrEqual(t, d.Span.End, len("if (x { Show(); }"))
	}
}
