// Package registry maps tag prefixes and names to control types.
//
// Registrations come from two places: the project configuration, shared by
// every document, and the Register directives of one document. Documents
// work on a clone of the project registry so their directives never leak
// into other documents.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

const userControlType = "System.Web.UI.UserControl"

// Key identifies a control by prefix and name. Keys are case-insensitive.
type Key struct {
	Prefix string
	Name   string
}

func NewKey(prefix, name string) Key {
	return Key{Prefix: strings.ToLower(prefix), Name: strings.ToLower(name)}
}

func (k Key) String() string {
	return k.Prefix + ":" + k.Name
}

// Registration is one control registration. Either Namespace is set, which
// registers every type of the namespace under TagPrefix, or TagName and Src
// are set, which registers a single user control. Type names the class of a
// user control; it defaults to System.Web.UI.UserControl.
type Registration struct {
	TagPrefix string
	Namespace string
	Assembly  string
	TagName   string
	Src       string
	Type      string
}

// Entry is a registered control.
type Entry struct {
	Key    Key
	Tag    string
	Handle types.Handle
	Source string
}

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  map[Key]Entry
	prefixes map[string]bool
	sources  map[string]string
}

func New() *Registry {
	return &Registry{
		entries:  map[Key]Entry{},
		prefixes: map[string]bool{},
		sources:  map[string]string{},
	}
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := New()
	for k, v := range r.entries {
		out.entries[k] = v
	}
	for k, v := range r.prefixes {
		out.prefixes[k] = v
	}
	for k, v := range r.sources {
		out.sources[k] = v
	}
	return out
}

// Add registers h under prefix:name. The first registration of a key wins.
func (r *Registry) Add(prefix, name string, h types.Handle) bool {
	return r.add(Entry{Key: NewKey(prefix, name), Tag: prefix + ":" + name, Handle: h})
}

func (r *Registry) add(e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefixes[e.Key.Prefix] = true
	if _, ok := r.entries[e.Key]; ok {
		return false
	}
	r.entries[e.Key] = e
	return true
}

// Lookup finds the control registered as prefix:name.
func (r *Registry) Lookup(prefix, name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[NewKey(prefix, name)]
	return e, ok
}

// HasPrefix reports whether any registration uses prefix.
func (r *Registry) HasPrefix(prefix string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefixes[strings.ToLower(prefix)]
}

// Entries lists the registrations sorted by tag.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Register adds a registration, resolving its types in u. Namespace
// registrations need a universe that can list namespaces.
func (r *Registry) Register(ctx context.Context, reg Registration, u types.Universe) (int, error) {
	if reg.TagPrefix == "" {
		return 0, errors.New("registration has no tag prefix")
	}

	if reg.Namespace != "" {
		lister, ok := u.(types.NamespaceLister)
		if !ok {
			return 0, errors.Errorf("universe cannot list namespace %q", reg.Namespace)
		}

		r.mu.Lock()
		r.prefixes[strings.ToLower(reg.TagPrefix)] = true
		r.mu.Unlock()

		n := 0
		for _, h := range lister.TypesInNamespace(reg.Namespace) {
			if r.add(Entry{Key: NewKey(reg.TagPrefix, h.ShortName()), Tag: reg.TagPrefix + ":" + h.ShortName(), Handle: h}) {
				n++
			}
		}

		zerolog.Ctx(ctx).Trace().
			Str("prefix", reg.TagPrefix).
			Str("namespace", reg.Namespace).
			Int("controls", n).
			Msg("registered namespace")

		return n, nil
	}

	if reg.TagName == "" {
		return 0, errors.Errorf("registration for prefix %q needs a namespace or a tag name", reg.TagPrefix)
	}

	typeName := reg.Type
	if typeName == "" {
		typeName = r.sourceType(reg.Src)
	}
	h, ok := u.Resolve(typeName)
	if !ok {
		return 0, errors.Errorf("user control %s:%s: type %q not found", reg.TagPrefix, reg.TagName, typeName)
	}

	if reg.Src != "" && reg.Type != "" {
		r.mu.Lock()
		r.sources[normalizeSource(reg.Src)] = reg.Type
		r.mu.Unlock()
	}

	if !r.add(Entry{Key: NewKey(reg.TagPrefix, reg.TagName), Tag: reg.TagPrefix + ":" + reg.TagName, Handle: h, Source: reg.Src}) {
		return 0, nil
	}
	return 1, nil
}

// sourceType is the class previously registered for a user control file.
func (r *Registry) sourceType(src string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.sources[normalizeSource(src)]; ok {
		return t
	}
	return userControlType
}

func normalizeSource(src string) string {
	src = strings.ReplaceAll(src, "\\", "/")
	src = strings.TrimPrefix(src, "~")
	return strings.ToLower(src)
}

// ForDocument returns a registry holding r's registrations plus those of the
// document's Register directives. Registrations that cannot be resolved are
// reported as warnings on the directive.
func (r *Registry) ForDocument(ctx context.Context, root *ast.Root, u types.Universe) (*Registry, []diagnostic.Diagnostic) {
	out := r.Clone()
	var diags []diagnostic.Diagnostic

	for _, d := range root.Directives {
		if d.DirectiveKind != ast.DirectiveRegister {
			continue
		}

		reg := Registration{
			TagPrefix: d.Attributes.Value("tagprefix"),
			Namespace: d.Attributes.Value("namespace"),
			Assembly:  d.Attributes.Value("assembly"),
			TagName:   d.Attributes.Value("tagname"),
			Src:       d.Attributes.Value("src"),
		}

		if reg.TagPrefix == "" {
			diags = append(diags, diagnostic.Warningf(d.Name.Range, "Register directive requires a TagPrefix attribute"))
			continue
		}

		n, err := out.Register(ctx, reg, u)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("register directive")
			diags = append(diags, diagnostic.Warningf(d.Name.Range, "Could not register controls for prefix '%s'", reg.TagPrefix))
			continue
		}
		if n == 0 && reg.Namespace != "" {
			if attr, ok := d.Attributes.Get("namespace"); ok {
				diags = append(diags, diagnostic.Warningf(attr.Value.Range, "Namespace '%s' does not contain any controls", reg.Namespace))
			}
		}
	}

	return out, diags
}
