package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

func TestLineIndexPosition(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		want   position.Position
	}{
		{
			name:   "start of text",
			text:   "hello",
			offset: 0,
			want:   position.Position{Offset: 0, Line: 0, Column: 0},
		},
		{
			name:   "single line middle",
			text:   "Hello, World!",
			offset: 7,
			want:   position.Position{Offset: 7, Line: 0, Column: 7},
		},
		{
			name:   "second line",
			text:   "Hello\nWorld",
			offset: 8,
			want:   position.Position{Offset: 8, Line: 1, Column: 2},
		},
		{
			name:   "crlf counted once",
			text:   "a\r\nb\r\nc",
			offset: 6,
			want:   position.Position{Offset: 6, Line: 2, Column: 0},
		},
		{
			name:   "lone carriage return",
			text:   "a\rb",
			offset: 2,
			want:   position.Position{Offset: 2, Line: 1, Column: 0},
		},
		{
			name:   "end of text",
			text:   "ab\ncd",
			offset: 5,
			want:   position.Position{Offset: 5, Line: 1, Column: 2},
		},
		{
			name:   "out of range",
			text:   "ab",
			offset: 10,
			want:   position.Position{},
		},
		{
			name:   "negative",
			text:   "ab",
			offset: -1,
			want:   position.Position{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			li := position.NewLineIndex(tt.text)
			assert.Equal(t, tt.want, li.Position(tt.offset))
		})
	}
}

func TestLineIndexOffset(t *testing.T) {
	li := position.NewLineIndex("abc\r\ndef\nghi")
	require.Equal(t, 3, li.LineCount())

	off, ok := li.Offset(1, 2)
	require.True(t, ok)
	assert.Equal(t, 7, off)

	off, ok = li.Offset(2, 3)
	require.True(t, ok)
	assert.Equal(t, 12, off)

	_, ok = li.Offset(3, 0)
	assert.False(t, ok)

	_, ok = li.Offset(0, 10)
	assert.False(t, ok)
}

func TestRangeIncludes(t *testing.T) {
	r := position.Range{
		Start: position.Position{Offset: 2, Line: 0, Column: 2},
		End:   position.Position{Offset: 12, Line: 1, Column: 3},
	}

	tests := []struct {
		name   string
		line   int
		column int
		want   bool
	}{
		{name: "before start", line: 0, column: 1, want: false},
		{name: "at start", line: 0, column: 2, want: true},
		{name: "inside first line", line: 0, column: 40, want: true},
		{name: "at end", line: 1, column: 3, want: true},
		{name: "after end", line: 1, column: 4, want: false},
		{name: "later line", line: 2, column: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Includes(tt.line, tt.column))
		})
	}
}

func TestRangeWithEnd(t *testing.T) {
	start := position.Position{Offset: 4, Line: 1, Column: 0}
	r := position.NewRange(start)
	assert.Equal(t, 0, r.Len())

	r = r.WithEnd(position.Position{Offset: 9, Line: 1, Column: 5})
	assert.Equal(t, start, r.Start)
	assert.Equal(t, 5, r.Len())
}
