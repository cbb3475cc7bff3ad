package types

import (
	"bytes"
	_ "embed"
	"io"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

//go:embed framework.yaml
var frameworkYAML []byte

// aliases maps keyword type names to their framework types.
var aliases = map[string]string{
	"bool":    "System.Boolean",
	"byte":    "System.Byte",
	"char":    "System.Char",
	"decimal": "System.Decimal",
	"double":  "System.Double",
	"float":   "System.Single",
	"int":     "System.Int32",
	"long":    "System.Int64",
	"object":  "System.Object",
	"short":   "System.Int16",
	"string":  "System.String",
	"uint":    "System.UInt32",
	"ulong":   "System.UInt64",
	"void":    "System.Void",
}

const (
	objectType     = "System.Object"
	arrayType      = "System.Array"
	enumerableType = "System.Collections.Generic.IEnumerable`1"
)

// CatalogFile is the YAML document a Catalog is loaded from.
type CatalogFile struct {
	Types []TypeDecl `yaml:"types"`
}

// TypeDecl declares one type. Generic types name their parameters inline:
// "System.Collections.Generic.List<T>".
type TypeDecl struct {
	Name          string       `yaml:"name"`
	Base          string       `yaml:"base,omitempty"`
	Interfaces    []string     `yaml:"interfaces,omitempty"`
	Assembly      string       `yaml:"assembly,omitempty"`
	Description   string       `yaml:"description,omitempty"`
	Interface     bool         `yaml:"interface,omitempty"`
	ParseChildren bool         `yaml:"parse_children,omitempty"`
	Properties    []MemberDecl `yaml:"properties,omitempty"`
	Fields        []MemberDecl `yaml:"fields,omitempty"`
	Methods       []MemberDecl `yaml:"methods,omitempty"`
}

type MemberDecl struct {
	Name        string          `yaml:"name"`
	Type        string          `yaml:"type"`
	Parameters  []ParameterDecl `yaml:"parameters,omitempty"`
	Private     bool            `yaml:"private,omitempty"`
	Static      bool            `yaml:"static,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Default     string          `yaml:"default,omitempty"`
	Category    string          `yaml:"category,omitempty"`
	IDReference string          `yaml:"id_reference,omitempty"`
}

type ParameterDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type typeDef struct {
	handle     Handle
	params     []string
	namespace  string
	base       Handle
	interfaces []Handle
	members    []Member
	info       Info
}

// Catalog is a Universe backed by declarations loaded from YAML. It is safe
// for concurrent use; loading more declarations takes a write lock.
type Catalog struct {
	mu         sync.RWMutex
	defs       map[string]*typeDef
	namespaces map[string][]string
}

func NewCatalog() *Catalog {
	return &Catalog{
		defs:       map[string]*typeDef{},
		namespaces: map[string][]string{},
	}
}

// Framework returns a catalog holding the built-in framework types.
func Framework() (*Catalog, error) {
	c := NewCatalog()
	if err := c.Load(bytes.NewReader(frameworkYAML)); err != nil {
		return nil, errors.Errorf("loading framework catalog: %w", err)
	}
	return c, nil
}

// Load decodes a catalog file and adds its types. A type declared twice
// replaces the earlier declaration.
func (c *Catalog) Load(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file CatalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Errorf("decoding catalog: %w", err)
	}

	return c.Add(file.Types...)
}

// Add registers type declarations.
func (c *Catalog) Add(decls ...TypeDecl) error {
	defs := make([]*typeDef, 0, len(decls))
	for _, decl := range decls {
		def, err := newTypeDef(decl)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, def := range defs {
		name := def.handle.Name
		if _, ok := c.defs[name]; !ok {
			ns := strings.ToLower(def.namespace)
			c.namespaces[ns] = append(c.namespaces[ns], name)
		}
		c.defs[name] = def
	}
	return nil
}

func newTypeDef(decl TypeDecl) (*typeDef, error) {
	h, err := ParseHandle(decl.Name)
	if err != nil {
		return nil, errors.Errorf("type %q: %w", decl.Name, err)
	}

	def := &typeDef{
		handle:    Handle{Name: h.Name},
		namespace: h.Namespace(),
		info: Info{
			Assembly:             decl.Assembly,
			Description:          decl.Description,
			IsInterface:          decl.Interface,
			ChildrenAsProperties: decl.ParseChildren,
		},
	}
	for _, a := range h.Args {
		def.params = append(def.params, a.Name)
	}

	parse := func(what, s string) (Handle, error) {
		if s == "" {
			return Handle{}, nil
		}
		out, err := ParseHandle(s)
		if err != nil {
			return Handle{}, errors.Errorf("type %q: %s: %w", decl.Name, what, err)
		}
		return out, nil
	}

	if def.base, err = parse("base", decl.Base); err != nil {
		return nil, err
	}
	for _, s := range decl.Interfaces {
		iface, err := parse("interface", s)
		if err != nil {
			return nil, err
		}
		def.interfaces = append(def.interfaces, iface)
	}

	add := func(kind MemberKind, decls []MemberDecl) error {
		for _, m := range decls {
			t, err := parse(m.Name, m.Type)
			if err != nil {
				return err
			}
			ref, err := parse(m.Name+" id_reference", m.IDReference)
			if err != nil {
				return err
			}
			member := Member{
				Name:         m.Name,
				Kind:         kind,
				Type:         t,
				Public:       !m.Private,
				Static:       m.Static,
				Description:  m.Description,
				DefaultValue: m.Default,
				Category:     m.Category,
				IDReference:  ref,
			}
			for _, p := range m.Parameters {
				pt, err := parse(m.Name+" parameter "+p.Name, p.Type)
				if err != nil {
					return err
				}
				member.Parameters = append(member.Parameters, Parameter{Name: p.Name, Type: pt})
			}
			def.members = append(def.members, member)
		}
		return nil
	}

	if err := add(PropertyMember, decl.Properties); err != nil {
		return nil, err
	}
	if err := add(FieldMember, decl.Fields); err != nil {
		return nil, err
	}
	if err := add(MethodMember, decl.Methods); err != nil {
		return nil, err
	}

	return def, nil
}

// Resolve implements Universe.
func (c *Catalog) Resolve(name string, namespaces ...string) (Handle, bool) {
	h, err := ParseHandle(name)
	if err != nil {
		return Handle{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.canonical(h, namespaces, nil)
}

// canonical qualifies every name in h. Names listed in params are type
// parameters of the enclosing declaration and are kept as they are.
func (c *Catalog) canonical(h Handle, namespaces, params []string) (Handle, bool) {
	if h.IsArray() {
		elem, ok := c.canonical(h.Args[0], namespaces, params)
		return ArrayOf(elem), ok
	}

	if len(h.Args) == 0 {
		for _, p := range params {
			if h.Name == p {
				return h, true
			}
		}
	}

	out := Handle{Name: c.lookup(h.Name, namespaces)}
	ok := out.Name != ""
	if !ok {
		out.Name = h.Name
	}

	for _, a := range h.Args {
		arg, argOK := c.canonical(a, namespaces, params)
		ok = ok && argOK
		out.Args = append(out.Args, arg)
	}

	return out, ok
}

func (c *Catalog) lookup(name string, namespaces []string) string {
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	if _, ok := c.defs[name]; ok {
		return name
	}
	for _, ns := range namespaces {
		qualified := ns + "." + name
		if _, ok := c.defs[qualified]; ok {
			return qualified
		}
	}
	return ""
}

func (c *Catalog) def(h Handle) (*typeDef, bool) {
	def, ok := c.defs[h.Name]
	return def, ok
}

// resolveMember qualifies a handle declared inside def and substitutes the
// arguments of the instance being asked about.
func (c *Catalog) resolveMember(def *typeDef, decl Handle, args []Handle) Handle {
	namespaces := []string{def.namespace, "System"}
	h, _ := c.canonical(decl, namespaces, def.params)
	return h.substitute(def.params, args)
}

// BaseType implements Universe. Every class without a declared base derives
// from System.Object; arrays derive from System.Array.
func (c *Catalog) BaseType(h Handle) (Handle, bool) {
	if h.IsArray() {
		return Named(arrayType), true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.def(h)
	if !ok {
		return Handle{}, false
	}
	if def.base.IsZero() {
		if def.info.IsInterface || h.Name == objectType {
			return Handle{}, false
		}
		return Named(objectType), true
	}
	return c.resolveMember(def, def.base, h.Args), true
}

// Interfaces implements Universe. Arrays implement the generic enumerable
// interface of their element type.
func (c *Catalog) Interfaces(h Handle) []Handle {
	if h.IsArray() {
		return []Handle{{Name: enumerableType, Args: []Handle{h.Args[0]}}}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.def(h)
	if !ok {
		return nil
	}
	out := make([]Handle, 0, len(def.interfaces))
	for _, iface := range def.interfaces {
		out = append(out, c.resolveMember(def, iface, h.Args))
	}
	return out
}

// Members implements Universe. Private members are included and flagged.
func (c *Catalog) Members(h Handle) []Member {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.def(h)
	if !ok {
		return nil
	}

	out := make([]Member, len(def.members))
	for i, m := range def.members {
		m.Type = c.resolveMember(def, m.Type, h.Args)
		if !m.IDReference.IsZero() {
			m.IDReference = c.resolveMember(def, m.IDReference, h.Args)
		}
		params := make([]Parameter, len(m.Parameters))
		for j, p := range m.Parameters {
			params[j] = Parameter{Name: p.Name, Type: c.resolveMember(def, p.Type, h.Args)}
		}
		m.Parameters = params
		out[i] = m
	}
	return out
}

// Info implements Universe.
func (c *Catalog) Info(h Handle) Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if def, ok := c.def(h); ok {
		return def.info
	}
	return Info{}
}

// TypesInNamespace implements NamespaceLister. The namespace is matched
// case-insensitively; generic definitions are skipped.
func (c *Catalog) TypesInNamespace(namespace string) []Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := c.namespaces[strings.ToLower(namespace)]
	out := make([]Handle, 0, len(names))
	for _, name := range names {
		if len(c.defs[name].params) > 0 {
			continue
		}
		out = append(out, Named(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len is the number of declared types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}
