// Package types projects an external type universe into CodeType values the
// binder can walk: base types, public members, generic element types and
// property metadata.
package types

// MemberKind separates properties, fields and methods.
type MemberKind int

const (
	PropertyMember MemberKind = iota
	FieldMember
	MethodMember
)

func (k MemberKind) String() string {
	switch k {
	case PropertyMember:
		return "property"
	case FieldMember:
		return "field"
	case MethodMember:
		return "method"
	}
	return "member"
}

// Parameter is a method parameter.
type Parameter struct {
	Name string
	Type Handle
}

// Member is a property, field or method of a type. For methods Type is the
// return type.
type Member struct {
	Name       string
	Kind       MemberKind
	Type       Handle
	Parameters []Parameter
	Public     bool
	Static     bool

	// Property metadata.
	Description  string
	DefaultValue string
	Category     string
	// IDReference is set for properties whose value names another control by
	// id; it holds the type the referenced control must be assignable to.
	IDReference Handle

	// Synthetic marks properties added while binding a document.
	Synthetic bool
}

func (m Member) IsIDReference() bool {
	return !m.IDReference.IsZero()
}

// Info is descriptive metadata about a type.
type Info struct {
	Assembly    string
	Description string
	IsInterface bool
	// ChildrenAsProperties is set for controls whose nested elements are
	// property values rather than child controls.
	ChildrenAsProperties bool
}

// Universe is the source of type information. Handles returned by a Universe
// are canonical: fully qualified with resolved arguments.
type Universe interface {
	// Resolve finds a type by name. Unqualified names are looked up in each
	// of the given namespaces.
	Resolve(name string, namespaces ...string) (Handle, bool)
	BaseType(h Handle) (Handle, bool)
	Interfaces(h Handle) []Handle
	Members(h Handle) []Member
	Info(h Handle) Info
}

// NamespaceLister is implemented by universes that can enumerate the types
// declared in a namespace.
type NamespaceLister interface {
	TypesInNamespace(namespace string) []Handle
}
