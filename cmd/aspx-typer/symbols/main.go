package symbols

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/ast"
	"github.com/walteh/go-aspx-typer/pkg/config"
	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/symbols"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

type Handler struct {
	fs         afero.Fs
	configFile string
}

func NewSymbolsCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "symbols FILE",
		Short: "print the outline of a document",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.configFile, _ = cmd.Flags().GetString("config")
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, name string) error {
	opts, err := config.LoadOptions(ctx, me.fs, me.configFile)
	if err != nil {
		return err
	}

	data, err := afero.ReadFile(me.fs, name)
	if err != nil {
		return errors.Errorf("reading %s: %w", name, err)
	}

	snap, err := document.Build(ctx, name, 1, string(data), opts)
	if err != nil {
		return err
	}

	var elements map[*ast.Html]*types.CodeType
	if snap.Binding != nil {
		elements = snap.Binding.Elements
	}
	list := symbols.Build(snap.Root, elements)

	var sb strings.Builder
	write(&sb, list, 0)
	_, err = io.WriteString(out, sb.String())
	return err
}

func write(sb *strings.Builder, list []symbols.Symbol, depth int) {
	for _, s := range list {
		fmt.Fprintf(sb, "%s%s %s", strings.Repeat("  ", depth), s.Kind, s.Name)
		if s.Detail != "" {
			fmt.Fprintf(sb, " (%s)", s.Detail)
		}
		fmt.Fprintf(sb, " %d:%d\n", s.SelectionRange.Start.Line+1, s.SelectionRange.Start.Column+1)
		write(sb, s.Children, depth+1)
	}
}
