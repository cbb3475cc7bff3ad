package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/lexer"
)

func kinds(tokens []lexer.Token) []lexer.Kind {
	out := make([]lexer.Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestLexerKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []lexer.Kind
	}{
		{
			name:  "directive",
			input: `<%@ Control Language="C#" Inherits="Test.Namespace.Class" %>`,
			want: []lexer.Kind{
				lexer.StartDirective, lexer.Attribute, lexer.Attribute, lexer.AttributeValue,
				lexer.Attribute, lexer.AttributeValue, lexer.EndDirective,
			},
		},
		{
			name:  "directive end right after bare attribute",
			input: `<%@ Page Debug%>`,
			want:  []lexer.Kind{lexer.StartDirective, lexer.Attribute, lexer.Attribute, lexer.EndDirective},
		},
		{
			name:  "nested inline blocks stay one expression",
			input: `<%= $"{"<%= Test %>"}" %>`,
			want:  []lexer.Kind{lexer.Expression},
		},
		{
			name:  "colon expression",
			input: `<%: Test %>`,
			want:  []lexer.Kind{lexer.Expression},
		},
		{
			name:  "server comment",
			input: `<%-- Test --%>`,
			want:  []lexer.Kind{lexer.Comment},
		},
		{
			name:  "markup comment",
			input: `<!-- <div> -->`,
			want:  []lexer.Kind{lexer.Comment},
		},
		{
			name:  "eval expression",
			input: `<%# Test %>`,
			want:  []lexer.Kind{lexer.EvalExpression},
		},
		{
			name:  "statement",
			input: `<% if (x) { %>`,
			want:  []lexer.Kind{lexer.Statement},
		},
		{
			name:  "server control",
			input: `<asp:Literal ID="Test" runat="server" />`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementNamespace, lexer.ElementName, lexer.Attribute, lexer.AttributeValue,
				lexer.Attribute, lexer.AttributeValue, lexer.TagSlashClose,
			},
		},
		{
			name:  "void element",
			input: `<br>`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.TagSlashClose},
		},
		{
			name:  "void element upper case",
			input: `<BR>`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.TagSlashClose},
		},
		{
			name:  "void element self closed",
			input: `<br />`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.TagSlashClose},
		},
		{
			name:  "open element",
			input: `<div>`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.TagClose},
		},
		{
			name:  "open and close element",
			input: `<div></div>`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementName, lexer.TagClose,
				lexer.TagOpenSlash, lexer.ElementName, lexer.TagClose,
			},
		},
		{
			name:  "close element with trailing space",
			input: `</div >`,
			want:  []lexer.Kind{lexer.TagOpenSlash, lexer.ElementName, lexer.TagClose},
		},
		{
			name:  "bare attribute value",
			input: `<div id=test>`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.Attribute, lexer.AttributeValue, lexer.TagClose},
		},
		{
			name:  "inline expression inside attribute value",
			input: `<div id="Hello<%= World %>">`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementName, lexer.Attribute, lexer.AttributeValue,
				lexer.Expression, lexer.TagClose,
			},
		},
		{
			name:  "quotes inside inline block do not end the value",
			input: `<asp:Label Text="<%# Eval("Name") %>" runat="server" />`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementNamespace, lexer.ElementName,
				lexer.Attribute, lexer.AttributeValue, lexer.EvalExpression,
				lexer.Attribute, lexer.AttributeValue, lexer.TagSlashClose,
			},
		},
		{
			name:  "inline block in attribute position",
			input: `<div <%= Attrs %> class="a">`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementName, lexer.Expression,
				lexer.Attribute, lexer.AttributeValue, lexer.TagClose,
			},
		},
		{
			name:  "text",
			input: `Hello world`,
			want:  []lexer.Kind{lexer.Text},
		},
		{
			name:  "stray less-than is text",
			input: `a < b`,
			want:  []lexer.Kind{lexer.Text, lexer.Text},
		},
		{
			name:  "doctype",
			input: `<!DOCTYPE html>`,
			want:  []lexer.Kind{lexer.DocType},
		},
		{
			name:  "doctype lower case",
			input: `<!doctype html>`,
			want:  []lexer.Kind{lexer.DocType},
		},
		{
			name:  "script body is raw text",
			input: `<script type="template"><div>Hello world</div></script>`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementName, lexer.Attribute, lexer.AttributeValue, lexer.TagClose,
				lexer.Text, lexer.TagOpenSlash, lexer.ElementName, lexer.TagClose,
			},
		},
		{
			name:  "unterminated script",
			input: `<script>var a = 1;`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.TagClose, lexer.Text},
		},
		{
			name:  "server element in attribute position",
			input: `<html <asp:literal id="attributeList" runat="server" />></html>`,
			want: []lexer.Kind{
				lexer.TagOpen, lexer.ElementName,
				lexer.TagOpen, lexer.ElementNamespace, lexer.ElementName,
				lexer.Attribute, lexer.AttributeValue, lexer.Attribute, lexer.AttributeValue, lexer.TagSlashClose,
				lexer.TagClose, lexer.TagOpenSlash, lexer.ElementName, lexer.TagClose,
			},
		},
		{
			name:  "unterminated expression runs to end",
			input: `<div><%= Foo`,
			want:  []lexer.Kind{lexer.TagOpen, lexer.ElementName, lexer.TagClose, lexer.Expression},
		},
		{
			name:  "empty input",
			input: ``,
			want:  []lexer.Kind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexer.New(tt.input).All()
			assert.Equal(t, tt.want, kinds(got))
		})
	}
}

func TestLexerText(t *testing.T) {
	type pair struct {
		kind lexer.Kind
		text string
	}

	tests := []struct {
		name  string
		input string
		want  []pair
	}{
		{
			name:  "script with inline expression",
			input: `<script>Foo<%=Bar%>Baz</script>`,
			want: []pair{
				{lexer.TagOpen, "<"},
				{lexer.ElementName, "script"},
				{lexer.TagClose, ">"},
				{lexer.Text, "Foo"},
				{lexer.Expression, "Bar"},
				{lexer.Text, "Baz"},
				{lexer.TagOpenSlash, "</"},
				{lexer.ElementName, "script"},
				{lexer.TagClose, ">"},
			},
		},
		{
			name:  "namespace and name",
			input: `<asp:Repeater>`,
			want: []pair{
				{lexer.TagOpen, "<"},
				{lexer.ElementNamespace, "asp"},
				{lexer.ElementName, "Repeater"},
				{lexer.TagClose, ">"},
			},
		},
		{
			name:  "comment body",
			input: `<%-- hidden --%>`,
			want:  []pair{{lexer.Comment, " hidden "}},
		},
		{
			name:  "attribute value without quotes",
			input: `<%@ Page Language="C#" %>`,
			want: []pair{
				{lexer.StartDirective, "<%@"},
				{lexer.Attribute, "Page"},
				{lexer.Attribute, "Language"},
				{lexer.AttributeValue, "C#"},
				{lexer.EndDirective, "%>"},
			},
		},
		{
			name:  "doctype body",
			input: `<!DOCTYPE html>`,
			want:  []pair{{lexer.DocType, " html"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexer.New(tt.input).All()
			actual := make([]pair, 0, len(got))
			for _, tok := range got {
				actual = append(actual, pair{tok.Kind, tok.Text.Value})
			}
			assert.Equal(t, tt.want, actual)
		})
	}
}

func TestLexerLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{
			name:  "line feed",
			input: "<%= 0 %>\n<%= 1 %><%= 1 %>\n<%= 2 %>\n<%= 3 %>",
			want:  []int{0, 0, 1, 1, 1, 2, 2, 3},
		},
		{
			name:  "carriage return line feed",
			input: "<%= 0 %>\r\n<%= 1 %><%= 1 %>\r\n<%= 2 %>\r\n<%= 3 %>",
			want:  []int{0, 0, 1, 1, 1, 2, 2, 3},
		},
		{
			name:  "carriage return",
			input: "<%= 0 %>\r<%= 1 %>",
			want:  []int{0, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexer.New(tt.input).All()
			lines := make([]int, 0, len(got))
			for _, tok := range got {
				lines = append(lines, tok.Range.Start.Line)
			}
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestLexerColumns(t *testing.T) {
	got := lexer.New(`<%@ Control`).All()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Range.Start.Column)
	assert.Equal(t, 4, got[1].Range.Start.Column)
}

func TestLexerRangesMatchLineIndex(t *testing.T) {
	input := "<div>\r\n  <%= Item.Name %>\n\t<asp:Label runat=\"server\" />\r</div>"
	lx := lexer.New(input)
	tokens := lx.All()
	li := lx.LineIndex()

	for _, tok := range tokens {
		assert.Equal(t, li.Position(tok.Range.Start.Offset), tok.Range.Start, "start of %s", tok)
		assert.Equal(t, li.Position(tok.Range.End.Offset), tok.Range.End, "end of %s", tok)
		assert.GreaterOrEqual(t, tok.Range.End.Offset, tok.Range.Start.Offset)
	}
}

func TestLexerPeek(t *testing.T) {
	lx := lexer.New(`<div>text</div>`)

	peeked, ok := lx.Peek()
	require.True(t, ok)
	next, ok := lx.Next()
	require.True(t, ok)
	assert.Equal(t, peeked, next)

	count := 1
	for {
		_, ok := lx.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 7, count)

	_, ok = lx.Peek()
	assert.False(t, ok)
}

func TestExpressionRangeCoversDelimiters(t *testing.T) {
	got := lexer.New(`ab<%# Item %>`).All()
	require.Len(t, got, 2)

	expr := got[1]
	assert.Equal(t, lexer.EvalExpression, expr.Kind)
	assert.Equal(t, 2, expr.Range.Start.Offset)
	assert.Equal(t, 13, expr.Range.End.Offset)
	assert.Equal(t, " Item ", expr.Text.Value)
	assert.Equal(t, 5, expr.Text.Range.Start.Offset)
}
