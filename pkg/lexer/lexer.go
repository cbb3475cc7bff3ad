// Package lexer tokenizes page and control markup: plain markup mixed with
// <%@ %> directives, <% %> code blocks and server-side elements.
//
// The lexer never fails. Malformed input degrades into Text tokens or
// unterminated constructs that extend to the end of the input.
package lexer

import (
	"strings"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

const (
	startDirective = "<%@"
	startInline    = "<%"
	endInline      = "%>"
	startDocType   = "<!DOCTYPE"
	runAt          = "runat"
)

var comments = []struct{ open, close string }{
	{"<%--", "--%>"},
	{"<!--", "-->"},
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "command": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Lexer produces tokens on demand. Tokens are cached so Peek can look one
// token ahead without consuming it.
type Lexer struct {
	input string
	pos   position.Position
	lines []int

	tokens []Token
	read   int

	inDirective bool
}

func New(input string) *Lexer {
	return &Lexer{input: input, lines: []int{0}}
}

// Next returns the next token and advances past it.
func (l *Lexer) Next() (Token, bool) {
	tok, ok := l.Peek()
	if ok {
		l.read++
	}
	return tok, ok
}

// Peek returns the next token without advancing.
func (l *Lexer) Peek() (Token, bool) {
	for l.read >= len(l.tokens) {
		if !l.consume() {
			return Token{}, false
		}
	}
	return l.tokens[l.read], true
}

// All drains the input and returns every token.
func (l *Lexer) All() []Token {
	for l.consume() {
	}
	return l.tokens
}

// Position is the current read position in the input.
func (l *Lexer) Position() position.Position {
	return l.pos
}

// Lines returns the start offset of every line seen so far.
func (l *Lexer) Lines() []int {
	return append([]int(nil), l.lines...)
}

// LineIndex drains the input and returns the line table for it.
func (l *Lexer) LineIndex() *position.LineIndex {
	for l.consume() {
	}
	return position.NewLineIndexFromStarts(l.Lines(), len(l.input))
}

func (l *Lexer) eof() bool {
	return l.pos.Offset >= len(l.input)
}

func (l *Lexer) current() byte {
	if l.eof() {
		return 0
	}
	return l.input[l.pos.Offset]
}

func (l *Lexer) forward() {
	if l.eof() {
		return
	}
	c := l.input[l.pos.Offset]
	l.pos.Offset++
	l.pos.Column++
	// a "\r\n" pair breaks the line on the '\n'
	if c == '\n' || (c == '\r' && l.current() != '\n') {
		l.pos.Line++
		l.pos.Column = 0
		l.lines = append(l.lines, l.pos.Offset)
	}
}

func (l *Lexer) forwardN(n int) {
	for i := 0; i < n; i++ {
		l.forward()
	}
}

func (l *Lexer) peekByte(c byte) bool {
	return l.current() == c && !l.eof()
}

func (l *Lexer) peekString(s string, fold bool) bool {
	if len(l.input)-l.pos.Offset < len(s) {
		return false
	}
	left := l.input[l.pos.Offset : l.pos.Offset+len(s)]
	if fold {
		return strings.EqualFold(left, s)
	}
	return left == s
}

func (l *Lexer) consumeByte(c byte) bool {
	if !l.peekByte(c) {
		return false
	}
	l.forward()
	return true
}

func (l *Lexer) consumeString(s string, fold bool) bool {
	if !l.peekString(s, fold) {
		return false
	}
	l.forwardN(len(s))
	return true
}

func (l *Lexer) span(start, end position.Position) position.Span {
	return position.Span{
		Value: l.input[start.Offset:end.Offset],
		Range: position.Range{Start: start, End: end},
	}
}

func (l *Lexer) add(kind Kind, start position.Position) {
	l.addSpan(kind, position.Range{Start: start, End: l.pos}, l.span(start, l.pos))
}

func (l *Lexer) addSpan(kind Kind, r position.Range, text position.Span) {
	l.tokens = append(l.tokens, Token{Kind: kind, Range: r, Text: text})
}

func (l *Lexer) insertText(index int, start, end position.Position) {
	if end.Offset <= start.Offset {
		return
	}
	text := l.span(start, end)
	tok := Token{Kind: Text, Range: text.Range, Text: text}
	l.tokens = append(l.tokens, Token{})
	copy(l.tokens[index+1:], l.tokens[index:])
	l.tokens[index] = tok
}

func (l *Lexer) consume() bool {
	if l.eof() {
		return false
	}

	if l.consumeComment() || l.consumeDirective() || l.consumeInline() ||
		l.consumeDocType() || l.consumeElement(false) {
		return true
	}

	start := l.pos
	l.forward()
	l.skipUntilByte('<', false)
	l.add(Text, start)
	return true
}

func (l *Lexer) consumeComment() bool {
	for _, c := range comments {
		start := l.pos
		if !l.consumeString(c.open, false) {
			continue
		}

		textStart := l.pos
		textEnd := l.pos
		if idx := strings.Index(l.input[l.pos.Offset:], c.close); idx >= 0 {
			l.forwardN(idx)
			textEnd = l.pos
			l.forwardN(len(c.close))
		} else {
			l.forwardN(len(l.input) - l.pos.Offset)
			textEnd = l.pos
		}

		l.addSpan(Comment, position.Range{Start: start, End: l.pos}, l.span(textStart, textEnd))
		return true
	}
	return false
}

func (l *Lexer) consumeDirective() bool {
	start := l.pos
	if !l.consumeString(startDirective, false) {
		return false
	}
	l.add(StartDirective, start)

	l.inDirective = true
	defer func() { l.inDirective = false }()

	l.skipWhiteSpace()
	for {
		start = l.pos
		if l.consumeString(endInline, false) {
			l.add(EndDirective, start)
			break
		}
		if !l.readAttribute() {
			break
		}
		l.skipWhiteSpace()
	}

	return true
}

func (l *Lexer) consumeDocType() bool {
	start := l.pos
	if !l.consumeString(startDocType, true) {
		return false
	}

	textStart := l.pos
	l.skipUntilByte('>', false)
	text := l.span(textStart, l.pos)
	l.consumeByte('>')
	l.addSpan(DocType, position.Range{Start: start, End: l.pos}, text)
	return true
}

func (l *Lexer) consumeInline() bool {
	tok, ok := l.scanInline()
	if ok {
		l.tokens = append(l.tokens, tok)
	}
	return ok
}

// scanInline reads a <% %> block. Nested <% %> pairs are balanced.
func (l *Lexer) scanInline() (Token, bool) {
	start := l.pos
	if !l.consumeString(startInline, false) {
		return Token{}, false
	}

	kind := Statement
	switch {
	case l.consumeByte(':'), l.consumeByte('='):
		kind = Expression
	case l.consumeByte('#'):
		kind = EvalExpression
	}

	textStart := l.pos
	closed := l.skipUntilBalanced(startInline, endInline)
	text := l.span(textStart, l.pos)
	if closed {
		l.forwardN(len(endInline))
	}

	return Token{Kind: kind, Range: position.Range{Start: start, End: l.pos}, Text: text}, true
}

// consumeRunAtOrInline accepts what may appear between attributes: an inline
// block or a complete server element.
func (l *Lexer) consumeRunAtOrInline() bool {
	return l.consumeElement(true) || l.consumeInline()
}

func (l *Lexer) consumeInlines() {
	l.skipWhiteSpace()
	for l.consumeInline() {
		l.skipWhiteSpace()
	}
}

func (l *Lexer) isElementStart() bool {
	if !l.peekByte('<') {
		return false
	}
	at := l.pos.Offset + 1
	if at < len(l.input) && l.input[at] == '/' {
		at++
	}
	return at < len(l.input) && isTagCharacter(l.input[at])
}

func (l *Lexer) consumeElement(requireRunAt bool) bool {
	if !l.isElementStart() {
		return false
	}

	if requireRunAt {
		rest := l.input[l.pos.Offset:]
		gt := strings.IndexByte(rest, '>')
		if gt < 0 || !strings.Contains(strings.ToLower(rest[:gt]), runAt) {
			return false
		}
	}

	start := l.pos
	l.forward()
	closing := l.consumeByte('/')
	if closing {
		l.add(TagOpenSlash, start)
	} else {
		l.add(TagOpen, start)
	}

	name := l.readTagName()
	if l.peekByte(':') {
		l.addSpan(ElementNamespace, name.Range, name)
		l.forward()
		name = l.readTagName()
	}
	l.addSpan(ElementName, name.Range, name)

	selfClosed := false

	if closing {
		l.skipWhiteSpace()
	} else {
		l.skipWhiteSpace()
		for l.consumeRunAtOrInline() || l.readAttribute() {
			l.skipWhiteSpace()
		}

		start = l.pos
		selfClosed = voidElements[strings.ToLower(name.Value)]
		if l.consumeByte('/') {
			selfClosed = true
			l.skipWhiteSpace()
		}

		if !selfClosed && isRawTextElement(name.Value) && l.peekByte('>') {
			l.forward()
			l.add(TagClose, start)
			l.consumeRawText(name.Value)
			return true
		}
	}

	if closing {
		start = l.pos
	}
	if l.consumeByte('>') {
		if selfClosed {
			l.add(TagSlashClose, start)
		} else {
			l.add(TagClose, start)
		}
	}

	return true
}

// consumeRawText reads the body of a script or style element. Inline blocks
// and server elements are still recognised; the text between them is inserted
// in front of them once their extent is known.
func (l *Lexer) consumeRawText(name string) {
	textStart := l.pos

	for l.skipUntilByte('<', false) {
		end := l.pos
		index := len(l.tokens)

		if l.consumeRunAtOrInline() {
			l.insertText(index, textStart, end)
			textStart = l.pos
			continue
		}

		l.forward()
		if !l.peekByte('/') {
			continue
		}
		l.forward()
		slashEnd := l.pos

		l.skipWhiteSpace()
		closeName := l.readTagName()
		if !strings.EqualFold(closeName.Value, name) {
			continue
		}

		l.insertText(len(l.tokens), textStart, end)
		l.addSpan(TagOpenSlash, position.Range{Start: end, End: slashEnd}, l.span(end, slashEnd))
		l.addSpan(ElementName, closeName.Range, closeName)
		l.skipWhiteSpace()

		closeStart := l.pos
		if l.consumeByte('>') {
			l.add(TagClose, closeStart)
		}
		return
	}

	l.insertText(len(l.tokens), textStart, l.pos)
}

func (l *Lexer) readAttribute() bool {
	l.consumeInlines()

	if l.atAttributeSeparator() {
		return false
	}

	start := l.pos
	for !l.eof() && !l.atAttributeSeparator() {
		l.forward()
	}
	l.add(Attribute, start)

	l.consumeInlines()

	if !l.peekByte('=') {
		return true
	}
	l.forward()

	l.consumeInlines()

	if quote := l.current(); quote == '"' || quote == '\'' {
		l.forward()
		start = l.pos
		inner := l.skipQuotedValue(quote)
		l.add(AttributeValue, start)
		l.consumeByte(quote)
		l.tokens = append(l.tokens, inner...)
		return true
	}

	start = l.pos
	for !l.eof() && !l.atInvalidAttributeValue() {
		l.forward()
	}
	l.add(AttributeValue, start)
	return true
}

// skipQuotedValue moves to the closing quote or the end of the line. Inline
// blocks inside the value are skipped as a whole and returned as tokens.
func (l *Lexer) skipQuotedValue(quote byte) []Token {
	var inner []Token
	for !l.eof() {
		switch c := l.current(); {
		case c == '\n' || c == '\r' || c == quote:
			return inner
		case c == '\\':
			l.forwardN(2)
			continue
		case l.peekString(startInline, false):
			tok, _ := l.scanInline()
			inner = append(inner, tok)
			continue
		}
		l.forward()
	}
	return inner
}

func (l *Lexer) readTagName() position.Span {
	start := l.pos
	for !l.eof() && isTagCharacter(l.current()) {
		l.forward()
	}
	return l.span(start, l.pos)
}

func (l *Lexer) skipWhiteSpace() {
	for !l.eof() && isSpaceCharacter(l.current()) {
		l.forward()
	}
}

func (l *Lexer) skipUntilBalanced(open, close string) bool {
	depth := 1
	for ; !l.eof(); l.forward() {
		if l.peekString(open, false) {
			depth++
		}
		if l.peekString(close, false) {
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// skipUntilByte stops on c. A backslash skips the byte that follows it.
func (l *Lexer) skipUntilByte(c byte, breakOnNewLine bool) bool {
	for ; !l.eof(); l.forward() {
		cur := l.current()
		if breakOnNewLine && (cur == '\n' || cur == '\r') {
			return false
		}
		if cur == '\\' {
			l.forward()
			continue
		}
		if cur == c {
			return true
		}
	}
	return false
}

func (l *Lexer) atAttributeSeparator() bool {
	return isAttributeSeparator(l.current()) || (l.inDirective && l.peekString(endInline, false))
}

func (l *Lexer) atInvalidAttributeValue() bool {
	switch l.current() {
	case '<', '>', '`':
		return true
	}
	return l.atAttributeSeparator()
}

func isRawTextElement(name string) bool {
	return strings.EqualFold(name, "script") || strings.EqualFold(name, "style")
}

func isTagCharacter(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpaceCharacter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func isAttributeSeparator(c byte) bool {
	switch c {
	case 0, '"', '\'', '>', '/', '=':
		return true
	}
	return isSpaceCharacter(c)
}
