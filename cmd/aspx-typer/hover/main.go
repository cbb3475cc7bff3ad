package hover

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/config"
	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/hover"
)

type Handler struct {
	fs         afero.Fs
	configFile string
}

func NewHoverCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "hover FILE LINE COLUMN",
		Short: "print hover information at a one-based position",
		Args:  cobra.ExactArgs(3),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		line, err := strconv.Atoi(args[1])
		if err != nil || line < 1 {
			return errors.Errorf("invalid line %q", args[1])
		}
		column, err := strconv.Atoi(args[2])
		if err != nil || column < 1 {
			return errors.Errorf("invalid column %q", args[2])
		}
		me.configFile, _ = cmd.Flags().GetString("config")
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args[0], line-1, column-1)
	}

	return cmd
}

// Run prints the hover at a zero-based line and column. Nothing is printed
// when there is no hover there.
func (me *Handler) Run(ctx context.Context, out io.Writer, name string, line, column int) error {
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

	info := hover.At(ctx, snap, line, column)
	if info == nil {
		return nil
	}

	_, err = fmt.Fprintf(out, "%s\n\n%s:%d:%d-%d:%d\n", info.Content, name,
		info.Range.Start.Line+1, info.Range.Start.Column+1, info.Range.End.Line+1, info.Range.End.Column+1)
	return err
}
