// Package bind attaches types to a parsed document and checks the code it
// embeds.
//
// Binding runs in two passes over the tree built by the parser:
//
//	╭────────────────────╮    ╭──────────────────────╮
//	│   control binder   │───▶│  expression binder   │
//	│ tags → controls    │    │ fragments → one blob │
//	│ ids → properties   │    │ blob → embed.Parser  │
//	│ id references      │    │ sentinels → bind     │
//	╰────────────────────╯    ╰──────────────────────╯
//
// The control binder resolves server elements through the registry and adds
// one synthetic property per control id to the inherited type. The
// expression binder then checks every inline expression and statement
// against that type, with loop and local variables in scope.
package bind

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/embed"
	"github.com/walteh/go-aspx-typer/pkg/embed/csharp"
	"github.com/walteh/go-aspx-typer/pkg/position"
	"github.com/walteh/go-aspx-typer/pkg/registry"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

// DefaultContainerType is the type of Container in data-binding expressions.
const DefaultContainerType = "System.Web.UI.WebControls.DataListItem"

// Config holds the collaborators of a binding run.
type Config struct {
	Registry *registry.Registry
	Types    *types.Container
	// Parser parses the embedded code. The built-in C# parser is used when
	// nil.
	Parser        embed.Parser
	ContainerType string
}

// ResolutionKind tells what a name in code resolved to.
type ResolutionKind int

const (
	ResolvedMember ResolutionKind = iota
	ResolvedLocal
	ResolvedType
	ResolvedContainer
	ResolvedItem
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedMember:
		return "member"
	case ResolvedLocal:
		return "local"
	case ResolvedType:
		return "type"
	case ResolvedContainer:
		return "container"
	case ResolvedItem:
		return "item"
	}
	return "unknown"
}

// Resolution records what one name in embedded code resolved to.
type Resolution struct {
	Range position.Range
	Name  string
	Kind  ResolutionKind
	// Type is the type of the expression; for methods, the return type.
	Type *types.CodeType
	// Owner and Member are set for member resolutions.
	Owner  *types.CodeType
	Member *types.Member
}

// Result is the outcome of binding one document.
type Result struct {
	Diagnostics []diagnostic.Diagnostic
	// Elements maps bound elements to their type.
	Elements map[*ast.Html]*types.CodeType
	// IDs maps control ids to the element that declared them first.
	IDs map[string]*ast.Html
	// Resolutions are sorted by start offset.
	Resolutions []Resolution
	// Code is the reassembled code of the document.
	Code string
}

// ResolutionAt returns the innermost resolution covering offset.
func (r *Result) ResolutionAt(offset int) *Resolution {
	var best *Resolution
	for i := range r.Resolutions {
		res := &r.Resolutions[i]
		if res.Range.Start.Offset > offset {
			break
		}
		if offset <= res.Range.End.Offset {
			if best == nil || res.Range.Len() <= best.Range.Len() {
				best = res
			}
		}
	}
	return best
}

// Bind binds root against inherits, the type the document derives from,
// which may be nil. Source problems are returned as diagnostics; an error
// means the embedded parser failed to run.
func Bind(ctx context.Context, root *ast.Root, inherits *types.CodeType, cfg Config) (*Result, error) {
	if cfg.Parser == nil {
		cfg.Parser = csharp.New()
	}
	if cfg.ContainerType == "" {
		cfg.ContainerType = DefaultContainerType
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New()
	}

	b := &binder{
		root:     root,
		inherits: inherits,
		cfg:      cfg,
		result: &Result{
			Elements: map[*ast.Html]*types.CodeType{},
			IDs:      map[string]*ast.Html{},
		},
	}

	b.bindControls(ctx)
	if err := b.bindExpressions(ctx); err != nil {
		return nil, err
	}

	sort.SliceStable(b.result.Resolutions, func(i, j int) bool {
		return b.result.Resolutions[i].Range.Start.Offset < b.result.Resolutions[j].Range.Start.Offset
	})

	zerolog.Ctx(ctx).Debug().
		Int("controls", len(b.result.Elements)).
		Int("ids", len(b.result.IDs)).
		Int("resolutions", len(b.result.Resolutions)).
		Int("diagnostics", len(b.result.Diagnostics)).
		Msg("bound document")

	return b.result, nil
}

type binder struct {
	root     *ast.Root
	inherits *types.CodeType
	cfg      Config
	result   *Result
}

func (b *binder) report(d diagnostic.Diagnostic) {
	b.result.Diagnostics = append(b.result.Diagnostics, d)
}

func (b *binder) resolve(r Resolution) {
	b.result.Resolutions = append(b.result.Resolutions, r)
}
