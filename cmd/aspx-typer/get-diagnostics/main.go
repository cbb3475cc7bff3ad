package get_diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/go-aspx-typer/pkg/config"
	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/finder"
	"github.com/walteh/go-aspx-typer/pkg/report"
)

// ErrDiagnostics is returned when --fail-on-error is set and a document has
// errors.
var ErrDiagnostics = errors.Base("documents have errors")

type Handler struct {
	fs          afero.Fs
	configFile  string
	extensions  []string
	format      string // text, vscode
	color       bool
	failOnError bool
}

func NewGetDiagnosticsCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "get-diagnostics [file|dir|glob]...",
		Short: "report diagnostics for markup documents",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringSliceVar(&me.extensions, "extensions", finder.DefaultExtensions, "the extensions searched in directories")
	cmd.Flags().StringVar(&me.format, "format", "text", "the format of the diagnostics (text, vscode)")
	cmd.Flags().BoolVar(&me.color, "color", false, "colorize text output")
	cmd.Flags().BoolVar(&me.failOnError, "fail-on-error", false, "exit non-zero when a document has errors")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.configFile, _ = cmd.Flags().GetString("config")
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, args []string) error {
	if me.format != "text" && me.format != "vscode" {
		return errors.Errorf("unknown format %q", me.format)
	}

	opts, err := config.LoadOptions(ctx, me.fs, me.configFile)
	if err != nil {
		return err
	}

	files, err := finder.New(me.fs).Find(ctx, args, me.extensions)
	if err != nil {
		return err
	}

	ws := document.NewWorkspace(opts)
	snaps := make([]*document.Snapshot, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			snap, _, err := ws.Update(gctx, f.Path, 1, string(f.Content))
			if err != nil {
				failures[i] = errors.Errorf("checking %s: %w", f.Path, err)
				return nil
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	errs := multierr.Combine(failures...)
	for _, e := range multierr.Errors(errs) {
		zerolog.Ctx(ctx).Error().Err(e).Msg("document failed")
	}

	count := 0
	for _, snap := range snaps {
		if snap != nil {
			count += len(diagnostic.Group(snap.Diagnostics).Errors)
		}
	}

	switch me.format {
	case "vscode":
		err = me.writeVSCode(out, snaps)
	default:
		err = me.writeText(out, snaps)
	}
	if err != nil {
		return multierr.Append(errs, err)
	}

	if me.failOnError && count > 0 {
		errs = multierr.Append(errs, errors.WithMessagef(ErrDiagnostics, "%d errors", count))
	}
	return errs
}

func (me *Handler) writeText(out io.Writer, snaps []*document.Snapshot) error {
	p := report.NewPrinter(out)
	p.Color = me.color
	for _, snap := range snaps {
		if snap == nil || len(snap.Diagnostics) == 0 {
			continue
		}
		tw, err := report.TabWidth(me.fs, snap.URI)
		if err != nil {
			return err
		}
		p.TabWidth = tw
		if err := p.Print(snap.URI, snap.Text, snap.Diagnostics); err != nil {
			return err
		}
	}
	return nil
}

// writeVSCode writes one object mapping each document to its diagnostics.
func (me *Handler) writeVSCode(out io.Writer, snaps []*document.Snapshot) error {
	formatter := diagnostic.NewVSCodeFormatter()
	result := map[string]json.RawMessage{}
	for _, snap := range snaps {
		if snap == nil {
			continue
		}
		data, err := formatter.Format(diagnostic.Group(snap.Diagnostics))
		if err != nil {
			return errors.Errorf("formatting %s: %w", snap.URI, err)
		}
		result[snap.URI] = data
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Errorf("encoding diagnostics: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
