package lexer

import (
	"fmt"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

// Kind identifies the lexical class of a Token.
type Kind int

const (
	StartDirective Kind = iota
	Attribute
	AttributeValue
	EndDirective
	Expression
	EvalExpression
	Statement
	ElementNamespace
	ElementName
	TagOpen
	TagOpenSlash
	TagClose
	TagSlashClose
	DocType
	Comment
	Text
)

var kindNames = [...]string{
	StartDirective:   "StartDirective",
	Attribute:        "Attribute",
	AttributeValue:   "AttributeValue",
	EndDirective:     "EndDirective",
	Expression:       "Expression",
	EvalExpression:   "EvalExpression",
	Statement:        "Statement",
	ElementNamespace: "ElementNamespace",
	ElementName:      "ElementName",
	TagOpen:          "TagOpen",
	TagOpenSlash:     "TagOpenSlash",
	TagClose:         "TagClose",
	TagSlashClose:    "TagSlashClose",
	DocType:          "DocType",
	Comment:          "Comment",
	Text:             "Text",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Token is a single lexical unit. Range covers the whole construct including
// delimiters; Text holds the meaningful content (the name of an attribute,
// the code between <% and %>, the body of a comment).
type Token struct {
	Kind  Kind
	Range position.Range
	Text  position.Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text.Value, t.Range)
}
