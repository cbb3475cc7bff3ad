package ast

import (
	"strings"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

// Attribute is a name/value pair as written in the source. Value is the zero
// Span for attributes without a value.
type Attribute struct {
	Name  position.Span
	Value position.Span
}

// Attributes keeps attributes in source order. Names are unique and matched
// case-insensitively.
type Attributes struct {
	list  []Attribute
	index map[string]int
}

// Add appends the attribute unless one with the same name exists. It reports
// whether the attribute was added.
func (a *Attributes) Add(name, value position.Span) bool {
	key := strings.ToLower(name.Value)
	if _, ok := a.index[key]; ok {
		return false
	}
	if a.index == nil {
		a.index = map[string]int{}
	}
	a.index[key] = len(a.list)
	a.list = append(a.list, Attribute{Name: name, Value: value})
	return true
}

// Get looks an attribute up by name.
func (a Attributes) Get(name string) (Attribute, bool) {
	i, ok := a.index[strings.ToLower(name)]
	if !ok {
		return Attribute{}, false
	}
	return a.list[i], true
}

// Value returns the value of the named attribute, or "".
func (a Attributes) Value(name string) string {
	attr, _ := a.Get(name)
	return attr.Value.Value
}

func (a Attributes) Has(name string) bool {
	_, ok := a.index[strings.ToLower(name)]
	return ok
}

func (a Attributes) All() []Attribute {
	return a.list
}

func (a Attributes) Len() int {
	return len(a.list)
}
