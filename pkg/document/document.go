// Package document runs the full pipeline over one page or control and keeps
// the latest result per document.
package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/bind"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/embed"
	"github.com/walteh/go-aspx-typer/pkg/parser"
	"github.com/walteh/go-aspx-typer/pkg/registry"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

// Options configure the pipeline. Universe and Registry are shared between
// documents and are only read.
type Options struct {
	Universe      types.Universe
	Registry      *registry.Registry
	Namespaces    []string
	Parser        embed.Parser
	ContainerType string
	// Inspections enables the registry, type and binding passes. When off,
	// only structural diagnostics are produced.
	Inspections bool
}

// Snapshot is the immutable result of running the pipeline over one version
// of a document.
type Snapshot struct {
	ID      uuid.UUID
	URI     string
	Version int32
	Text    string

	Root  *ast.Root
	Index ast.Index

	// Set when inspections are enabled.
	Registry *registry.Registry
	Types    *types.Container
	Inherits *types.CodeType
	Binding  *bind.Result

	Diagnostics []diagnostic.Diagnostic
}

// Build runs the pipeline. Every source problem ends up in
// Snapshot.Diagnostics; an error is returned only when the context is done
// or the embedded parser fails.
func Build(ctx context.Context, uri string, version int32, text string, opts Options) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("building %s: %w", uri, err)
	}

	logger := zerolog.Ctx(ctx).With().Str("uri", uri).Int32("version", version).Logger()
	ctx = logger.WithContext(ctx)

	root, diags := parser.Parse(ctx, text)

	snap := &Snapshot{
		ID:      uuid.New(),
		URI:     uri,
		Version: version,
		Text:    text,
		Root:    root,
		Index:   ast.BuildIndex(root),
	}

	if opts.Inspections && opts.Universe != nil {
		project := opts.Registry
		if project == nil {
			project = registry.New()
		}

		reg, regDiags := project.ForDocument(ctx, root, opts.Universe)
		diags = append(diags, regDiags...)

		namespaces := append(append([]string(nil), opts.Namespaces...), bind.Imports(root)...)
		container := types.NewContainer(opts.Universe, namespaces...)

		inherits, inhDiags := bind.Inherits(root, container)
		diags = append(diags, inhDiags...)
		diags = append(diags, bind.CheckImplements(root, container)...)

		res, err := bind.Bind(ctx, root, inherits, bind.Config{
			Registry:      reg,
			Types:         container,
			Parser:        opts.Parser,
			ContainerType: opts.ContainerType,
		})
		if err != nil {
			return nil, errors.Errorf("binding %s: %w", uri, err)
		}
		diags = append(diags, res.Diagnostics...)

		snap.Registry = reg
		snap.Types = container
		snap.Inherits = inherits
		snap.Binding = res
	}

	diagnostic.Sort(diags)
	snap.Diagnostics = diags

	logger.Debug().
		Str("snapshot", snap.ID.String()).
		Int("diagnostics", len(diags)).
		Bool("inspections", opts.Inspections).
		Msg("built snapshot")

	return snap, nil
}

// ElementType returns the type bound to h, or nil.
func (s *Snapshot) ElementType(h *ast.Html) *types.CodeType {
	if s.Binding == nil {
		return nil
	}
	return s.Binding.Elements[h]
}
