package types

import (
	"strings"
)

const templateType = "System.Web.UI.ITemplate"

// Container interns CodeType values for one analysis run. Two lookups of the
// same type return the same *CodeType, so synthetic properties added while
// binding are visible to every holder.
//
// A Container is not safe for concurrent use; the Universe behind it is.
type Container struct {
	universe   Universe
	namespaces []string
	types      map[string]*CodeType
}

// NewContainer returns a container resolving short names in namespaces.
func NewContainer(u Universe, namespaces ...string) *Container {
	return &Container{
		universe:   u,
		namespaces: namespaces,
		types:      map[string]*CodeType{},
	}
}

func (c *Container) Universe() Universe {
	return c.universe
}

// Get resolves a type as written in source. It returns nil when the name
// does not resolve.
func (c *Container) Get(name string) *CodeType {
	if c == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	h, ok := c.universe.Resolve(name, c.namespaces...)
	if !ok {
		return nil
	}
	return c.GetHandle(h)
}

// GetHandle returns the CodeType of a canonical handle, or nil when the
// universe does not know it.
func (c *Container) GetHandle(h Handle) *CodeType {
	if c == nil || h.IsZero() {
		return nil
	}
	key := h.String()
	if t, ok := c.types[key]; ok {
		return t
	}
	if _, ok := c.universe.Resolve(key); !ok {
		return nil
	}
	t := &CodeType{container: c, handle: h}
	c.types[key] = t
	return t
}

// CodeType is the binder's view of one type: real members from the universe
// merged with synthetic properties declared by markup.
type CodeType struct {
	container *Container
	handle    Handle

	base     *CodeType
	baseDone bool

	own       []Member
	ownDone   bool
	synthetic []Member
}

func (t *CodeType) Handle() Handle { return t.handle }

// FullName is the qualified name including type arguments.
func (t *CodeType) FullName() string { return t.handle.String() }

func (t *CodeType) ShortName() string { return t.handle.ShortName() }

func (t *CodeType) Info() Info { return t.container.universe.Info(t.handle) }

func (t *CodeType) Assembly() string { return t.Info().Assembly }

func (t *CodeType) ChildrenAsProperties() bool { return t.Info().ChildrenAsProperties }

// IsTemplate reports whether the type is a template slot whose content is
// free markup.
func (t *CodeType) IsTemplate() bool {
	return t.handle.Name == templateType || t.implements(templateType)
}

// BaseType is resolved once and cached. A type whose declared base chain
// leads back to itself has no base.
func (t *CodeType) BaseType() *CodeType {
	if !t.baseDone {
		t.baseDone = true
		if h, ok := t.container.universe.BaseType(t.handle); ok && !t.inheritsFrom(h) {
			t.base = t.container.GetHandle(h)
		}
	}
	return t.base
}

// inheritsFrom reports whether the base chain starting at h reaches t. A
// loop that does not pass through t is broken at its own members.
func (t *CodeType) inheritsFrom(h Handle) bool {
	seen := map[string]bool{}
	for h.Name != t.handle.Name {
		if seen[h.Name] {
			return false
		}
		seen[h.Name] = true
		next, ok := t.container.universe.BaseType(h)
		if !ok {
			return false
		}
		h = next
	}
	return true
}

// Interfaces lists every interface the type implements, directly, through
// its base types or through other interfaces.
func (t *CodeType) Interfaces() []*CodeType {
	seen := map[string]bool{}
	var out []*CodeType
	var visit func(h Handle)
	visit = func(h Handle) {
		for _, iface := range t.container.universe.Interfaces(h) {
			key := iface.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			if it := t.container.GetHandle(iface); it != nil {
				out = append(out, it)
			}
			visit(iface)
		}
	}
	for cur := t; cur != nil; cur = cur.BaseType() {
		visit(cur.handle)
	}
	return out
}

func (t *CodeType) implements(name string) bool {
	for _, iface := range t.Interfaces() {
		if iface.handle.Name == name {
			return true
		}
	}
	return false
}

func (t *CodeType) declared() []Member {
	if !t.ownDone {
		t.ownDone = true
		t.own = t.container.universe.Members(t.handle)
	}
	return t.own
}

// members lists the public members of one kind declared on this type only.
func (t *CodeType) members(kind MemberKind) []Member {
	var out []Member
	for _, m := range t.declared() {
		if m.Kind == kind && m.Public {
			out = append(out, m)
		}
	}
	if kind == PropertyMember {
		out = append(out, t.synthetic...)
	}
	return out
}

// merged lists members of one kind from this type and its bases. A member
// declared on a derived type hides a base member of the same name.
func (t *CodeType) merged(kind MemberKind) []Member {
	seen := map[string]bool{}
	var out []Member
	for cur := t; cur != nil; cur = cur.BaseType() {
		for _, m := range cur.members(kind) {
			if kind != MethodMember && seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			out = append(out, m)
		}
	}
	return out
}

func (t *CodeType) Properties() []Member { return t.merged(PropertyMember) }

func (t *CodeType) Fields() []Member { return t.merged(FieldMember) }

func (t *CodeType) Methods() []Member { return t.merged(MethodMember) }

// AddProperty attaches a synthetic property. It returns false when the type
// already has a property of that name.
func (t *CodeType) AddProperty(name string, typ *CodeType) bool {
	if _, ok := t.FindProperty(name); ok {
		return false
	}
	m := Member{Name: name, Kind: PropertyMember, Public: true, Synthetic: true}
	if typ != nil {
		m.Type = typ.handle
	}
	t.synthetic = append(t.synthetic, m)
	return true
}

// FindMember looks a name up the way expression code does: on each type
// from this one down to the root, methods first, then properties and
// fields. Names are case-sensitive.
func (t *CodeType) FindMember(name string) (Member, bool) {
	for cur := t; cur != nil; cur = cur.BaseType() {
		for _, m := range cur.members(MethodMember) {
			if m.Name == name {
				return m, true
			}
		}
		for _, kind := range []MemberKind{PropertyMember, FieldMember} {
			for _, m := range cur.members(kind) {
				if m.Name == name {
					return m, true
				}
			}
		}
	}
	// interface members are visible on the interface type itself
	if t.Info().IsInterface {
		for _, iface := range t.Interfaces() {
			if m, ok := iface.FindMember(name); ok {
				return m, true
			}
		}
	}
	return Member{}, false
}

// FindProperty looks a property up the way markup attributes do: by
// case-insensitive name.
func (t *CodeType) FindProperty(name string) (Member, bool) {
	for _, m := range t.Properties() {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Member{}, false
}

// TypeOf returns the CodeType of a member's declared type.
func (t *CodeType) TypeOf(m Member) *CodeType {
	return t.container.GetHandle(m.Type)
}

// Is reports whether t and o name the same type.
func (t *CodeType) Is(o *CodeType) bool {
	return t != nil && o != nil && t.handle.Equal(o.handle)
}

// IsAssignableTo reports whether a value of type t can be stored in a
// location of type target.
func (t *CodeType) IsAssignableTo(target *CodeType) bool {
	if target == nil {
		return false
	}
	for cur := t; cur != nil; cur = cur.BaseType() {
		if cur.Is(target) {
			return true
		}
	}
	for _, iface := range t.Interfaces() {
		if iface.Is(target) {
			return true
		}
	}
	return false
}

// ElementType is the item type of an enumerable: the element of an array or
// the argument of the generic enumerable interface. It returns nil when the
// type is not a generic enumerable.
func (t *CodeType) ElementType() *CodeType {
	if t.handle.IsArray() {
		return t.container.GetHandle(t.handle.Args[0])
	}
	if t.handle.Name == enumerableType && len(t.handle.Args) == 1 {
		return t.container.GetHandle(t.handle.Args[0])
	}
	for _, iface := range t.Interfaces() {
		if iface.handle.Name == enumerableType && len(iface.handle.Args) == 1 {
			return t.container.GetHandle(iface.handle.Args[0])
		}
	}
	return nil
}

func (t *CodeType) String() string { return t.FullName() }
