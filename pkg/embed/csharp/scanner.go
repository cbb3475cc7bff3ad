package csharp

import (
	"strings"

	"github.com/walteh/go-aspx-typer/pkg/embed"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokNumber
	tokString
	tokChar
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  embed.Span
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) punct(text string) bool {
	return t.is(tokPunct, text)
}

func (t token) keyword(text string) bool {
	return t.is(tokKeyword, text)
}

var keywords = map[string]bool{
	"as": true, "base": true, "bool": true, "break": true, "byte": true,
	"catch": true, "char": true, "continue": true, "decimal": true,
	"default": true, "do": true, "double": true, "else": true, "false": true,
	"finally": true, "float": true, "for": true, "foreach": true, "if": true,
	"in": true, "int": true, "is": true, "long": true, "new": true,
	"null": true, "object": true, "return": true, "short": true,
	"string": true, "this": true, "throw": true, "true": true, "try": true,
	"typeof": true, "uint": true, "ulong": true, "using": true, "void": true,
	"while": true,
}

// typeKeywords may start a declaration or a static member access.
var typeKeywords = map[string]bool{
	"bool": true, "byte": true, "char": true, "decimal": true, "double": true,
	"float": true, "int": true, "long": true, "object": true, "short": true,
	"string": true, "uint": true, "ulong": true,
}

// punctuation, longest first.
var punctuation = []string{
	"??=", "?.", "??", "=>", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=",
	"+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "|", "^", "=", "?",
	":", ".", ",", ";", "(", ")", "[", "]", "{", "}",
}

type scanner struct {
	src      string
	pos      int
	tokens   []token
	comments []*embed.Comment
	diags    []embed.Diagnostic
}

func scan(src string) *scanner {
	s := &scanner{src: src}
	for {
		tok := s.next()
		s.tokens = append(s.tokens, tok)
		if tok.kind == tokEOF {
			break
		}
	}
	return s
}

func (s *scanner) errorf(pos embed.Span, code, format string, args ...any) {
	s.diags = append(s.diags, newDiagnostic(pos, code, format, args...))
}

func (s *scanner) next() token {
	s.skipTrivia()
	if s.pos >= len(s.src) {
		return token{kind: tokEOF, pos: embed.Span{Start: len(s.src), End: len(s.src)}}
	}

	start := s.pos
	c := s.src[s.pos]

	switch {
	case c == '@' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '"':
		s.pos++
		return s.verbatimString(start)
	case c == '$' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '"':
		s.pos++
		return s.quoted(start, '"', tokString)
	case c == '$' && s.pos+2 < len(s.src) && s.src[s.pos+1] == '@' && s.src[s.pos+2] == '"':
		s.pos += 2
		return s.verbatimString(start)
	case c == '"':
		return s.quoted(start, '"', tokString)
	case c == '\'':
		return s.quoted(start, '\'', tokChar)
	case isDigit(c):
		for s.pos < len(s.src) && (isIdentByte(s.src[s.pos]) || s.src[s.pos] == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])) {
			s.pos++
		}
		return s.token(tokNumber, start)
	case c == '@' || isIdentStart(c):
		s.pos++
		for s.pos < len(s.src) && isIdentByte(s.src[s.pos]) {
			s.pos++
		}
		tok := s.token(tokIdent, start)
		if keywords[tok.text] {
			tok.kind = tokKeyword
		}
		tok.text = strings.TrimPrefix(tok.text, "@")
		return tok
	}

	for _, p := range punctuation {
		if strings.HasPrefix(s.src[s.pos:], p) {
			s.pos += len(p)
			return s.token(tokPunct, start)
		}
	}

	s.pos++
	tok := s.token(tokPunct, start)
	s.errorf(tok.pos, "CS1056", "Unexpected character '%s'", tok.text)
	return s.next()
}

func (s *scanner) token(kind tokenKind, start int) token {
	return token{kind: kind, text: s.src[start:s.pos], pos: embed.Span{Start: start, End: s.pos}}
}

// quoted reads a regular string or character literal. Literals end at the
// end of the line.
func (s *scanner) quoted(start int, quote byte, kind tokenKind) token {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case quote:
			s.pos++
			return s.token(kind, start)
		case '\n', '\r':
			tok := s.token(kind, start)
			s.errorf(tok.pos, "CS1010", "Newline in constant")
			return tok
		}
		s.pos++
	}
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
	tok := s.token(kind, start)
	s.errorf(tok.pos, "CS1010", "Newline in constant")
	return tok
}

func (s *scanner) verbatimString(start int) token {
	s.pos++
	for s.pos < len(s.src) {
		if s.src[s.pos] == '"' {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '"' {
				s.pos += 2
				continue
			}
			s.pos++
			return s.token(tokString, start)
		}
		s.pos++
	}
	tok := s.token(tokString, start)
	s.errorf(tok.pos, "CS1039", "Unterminated string literal")
	return tok
}

func (s *scanner) skipTrivia() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			s.pos++
		case strings.HasPrefix(s.src[s.pos:], "//"):
			start := s.pos
			for s.pos < len(s.src) && s.src[s.pos] != '\n' && s.src[s.pos] != '\r' {
				s.pos++
			}
			s.comments = append(s.comments, embed.NewComment(embed.Span{Start: start, End: s.pos}, s.src[start:s.pos]))
		case strings.HasPrefix(s.src[s.pos:], "/*"):
			start := s.pos
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				s.pos = len(s.src)
				s.errorf(embed.Span{Start: start, End: s.pos}, "CS1035", "End-of-file found, '*/' expected")
			} else {
				s.pos += 2 + end + 2
			}
			s.comments = append(s.comments, embed.NewComment(embed.Span{Start: start, End: s.pos}, s.src[start:s.pos]))
		default:
			return
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
