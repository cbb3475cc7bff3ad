package dump_tokens

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/lexer"
)

const maxTextWidth = 48

type Handler struct {
	fs afero.Fs
}

func NewDumpTokensCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "dump-tokens FILE",
		Short: "print the lexer tokens of a document",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, name string) error {
	data, err := afero.ReadFile(me.fs, name)
	if err != nil {
		return errors.Errorf("reading %s: %w", name, err)
	}

	tokens := lexer.New(string(data)).All()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: maxTextWidth},
	})

	tbl.AppendHeader(table.Row{"#", "kind", "range", "text"})
	for i, tok := range tokens {
		tbl.AppendRow(table.Row{i, tok.Kind, tok.Range, fmt.Sprintf("%q", tok.Text.Value)})
	}
	tbl.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d tokens", len(tokens))})

	tbl.Render()
	return nil
}
