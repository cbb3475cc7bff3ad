package types

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// arrayName is the definition name of array handles; the element type is the
// single argument.
const arrayName = "[]"

// Handle identifies a type: the name of its definition plus generic
// arguments. Generic definitions carry their arity as a backtick suffix
// ("System.Collections.Generic.List`1").
type Handle struct {
	Name string
	Args []Handle
}

// Named returns a handle without arguments.
func Named(name string) Handle {
	return Handle{Name: name}
}

// ArrayOf returns the handle of an array of elem.
func ArrayOf(elem Handle) Handle {
	return Handle{Name: arrayName, Args: []Handle{elem}}
}

func (h Handle) IsZero() bool {
	return h.Name == ""
}

func (h Handle) IsArray() bool {
	return h.Name == arrayName && len(h.Args) == 1
}

// Definition is the name of the generic definition, e.g. "List`1".
func (h Handle) Definition() string {
	return h.Name
}

// String renders the handle the way it is written in code:
// "System.Collections.Generic.List<Shop.Product>", "Shop.Product[]".
func (h Handle) String() string {
	if h.IsArray() {
		return h.Args[0].String() + "[]"
	}
	name := stripArity(h.Name)
	if len(h.Args) == 0 {
		return name
	}
	args := make([]string, len(h.Args))
	for i, a := range h.Args {
		args[i] = a.String()
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

// ShortName drops namespaces from the handle and its arguments:
// "List<Product>".
func (h Handle) ShortName() string {
	if h.IsArray() {
		return h.Args[0].ShortName() + "[]"
	}
	name := stripArity(h.Name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if len(h.Args) == 0 {
		return name
	}
	args := make([]string, len(h.Args))
	for i, a := range h.Args {
		args[i] = a.ShortName()
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

// Namespace is everything before the last dot of the name.
func (h Handle) Namespace() string {
	name := stripArity(h.Name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

func (h Handle) Equal(o Handle) bool {
	if h.Name != o.Name || len(h.Args) != len(o.Args) {
		return false
	}
	for i := range h.Args {
		if !h.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// substitute replaces type parameter names with the matching arguments.
func (h Handle) substitute(params []string, args []Handle) Handle {
	if len(h.Args) == 0 {
		for i, p := range params {
			if h.Name == p && i < len(args) {
				return args[i]
			}
		}
		return h
	}
	out := Handle{Name: h.Name, Args: make([]Handle, len(h.Args))}
	for i, a := range h.Args {
		out.Args[i] = a.substitute(params, args)
	}
	return out
}

func stripArity(name string) string {
	if i := strings.IndexByte(name, '`'); i >= 0 {
		return name[:i]
	}
	return name
}

func withArity(name string, n int) string {
	if n == 0 || strings.IndexByte(name, '`') >= 0 {
		return name
	}
	return fmt.Sprintf("%s`%d", name, n)
}

// ParseHandle reads a type as written in code: "string", "Shop.Product",
// "List<Shop.Product>", "Dictionary<string, List<int>>", "int[]".
func ParseHandle(s string) (Handle, error) {
	p := &handleParser{src: s}
	h, err := p.parse()
	if err != nil {
		return Handle{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Handle{}, errors.Errorf("unexpected %q at %d in type %q", p.src[p.pos:], p.pos, s)
	}
	return h, nil
}

// MustParseHandle is ParseHandle for names known to be valid.
func MustParseHandle(s string) Handle {
	h, err := ParseHandle(s)
	if err != nil {
		panic(err)
	}
	return h
}

type handleParser struct {
	src string
	pos int
}

func (p *handleParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *handleParser) parse() (Handle, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return Handle{}, errors.Errorf("expected type name at %d in %q", p.pos, p.src)
	}
	h := Handle{Name: p.src[start:p.pos]}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return Handle{}, err
			}
			h.Args = append(h.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return Handle{}, errors.Errorf("unterminated type arguments in %q", p.src)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == '>' {
				p.pos++
				break
			}
			return Handle{}, errors.Errorf("unexpected %q in type arguments of %q", p.src[p.pos], p.src)
		}
		h.Name = withArity(h.Name, len(h.Args))
	}

	for {
		p.skipSpace()
		if p.pos+1 < len(p.src) && p.src[p.pos] == '[' && p.src[p.pos+1] == ']' {
			p.pos += 2
			h = ArrayOf(h)
			continue
		}
		break
	}

	return h, nil
}

func isNameByte(c byte) bool {
	return c == '.' || c == '_' || c == '`' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
