package ast

import (
	"sort"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

// HitKind says what part of a node a HitRange covers.
type HitKind int

const (
	HitTagName HitKind = iota
	HitAttributeName
	HitDirective
	HitExpression
	HitStatement
)

func (k HitKind) String() string {
	switch k {
	case HitTagName:
		return "TagName"
	case HitAttributeName:
		return "AttributeName"
	case HitDirective:
		return "Directive"
	case HitExpression:
		return "Expression"
	case HitStatement:
		return "Statement"
	}
	return "Unknown"
}

// HitRange is a queryable region of the document that belongs to Node.
type HitRange struct {
	Range position.Range
	Kind  HitKind
	Value *position.Span
	Node  Node
}

// Index is a list of hit ranges sorted by start position.
type Index []HitRange

// collector stamps every range it receives with the node being visited.
type collector struct {
	current Node
	hits    []HitRange
}

func (c *collector) add(r position.Range, kind HitKind, value *position.Span) {
	c.hits = append(c.hits, HitRange{Range: r, Kind: kind, Value: value, Node: c.current})
}

// BuildIndex collects the hit ranges of every node below root.
func BuildIndex(root *Root) Index {
	c := &collector{}
	for _, n := range root.All {
		c.current = n
		addRanges(c, n)
	}
	sort.SliceStable(c.hits, func(i, j int) bool {
		return c.hits[i].Range.Start.Offset < c.hits[j].Range.Start.Offset
	})
	return Index(c.hits)
}

func addRanges(c *collector, n Node) {
	switch n := n.(type) {
	case *Html:
		c.add(n.StartTag.Name.Range, HitTagName, nil)
		if n.EndTag != nil {
			c.add(n.EndTag.Name.Range, HitTagName, nil)
		}
		for _, attr := range n.Attributes.All() {
			name := attr.Name
			c.add(name.Range, HitAttributeName, &name)
		}
	case *Directive:
		name := n.Name
		c.add(name.Range, HitDirective, &name)
		for _, attr := range n.Attributes.All() {
			name := attr.Name
			c.add(name.Range, HitAttributeName, &name)
		}
	case *Expression:
		c.add(n.Text.Range, HitExpression, nil)
	case *Statement:
		c.add(n.Text.Range, HitStatement, nil)
	case *Root:
	}
}

// Query returns the first range containing line/column, or nil.
func (ix Index) Query(line, column int) *HitRange {
	for i := range ix {
		if ix[i].Range.Start.Compare(line, column) > 0 {
			break
		}
		if ix[i].Range.Includes(line, column) {
			return &ix[i]
		}
	}
	return nil
}

// QueryOffset is Query for a byte offset.
func (ix Index) QueryOffset(offset int) *HitRange {
	for i := range ix {
		if ix[i].Range.Start.Offset > offset {
			break
		}
		if ix[i].Range.IncludesOffset(offset) {
			return &ix[i]
		}
	}
	return nil
}
