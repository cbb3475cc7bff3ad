package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	dumptokenscmd "github.com/walteh/go-aspx-typer/cmd/aspx-typer/dump-tokens"
	getdiagnosticscmd "github.com/walteh/go-aspx-typer/cmd/aspx-typer/get-diagnostics"
	hovercmd "github.com/walteh/go-aspx-typer/cmd/aspx-typer/hover"
	symbolscmd "github.com/walteh/go-aspx-typer/cmd/aspx-typer/symbols"
	logdebug "github.com/walteh/go-aspx-typer/pkg/debug"
)

func main() {
	if err := newRootCommand(afero.NewOsFs()).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "aspx-typer",
		Short: "type check WebForms markup",
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().String("config", "", "project file (defaults to aspx-typer.yaml, aspx-typer.yml or aspx-typer.hcl)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := logdebug.NewLogger(cmd.ErrOrStderr(), logLevel, isatty.IsTerminal(os.Stderr.Fd()))
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	cmd.AddCommand(getdiagnosticscmd.NewGetDiagnosticsCommand(fs))
	cmd.AddCommand(dumptokenscmd.NewDumpTokensCommand(fs))
	cmd.AddCommand(hovercmd.NewHoverCommand(fs))
	cmd.AddCommand(symbolscmd.NewSymbolsCommand(fs))

	info, ok := debug.ReadBuildInfo()
	if !ok {
		cmd.Version = "unknown"
	} else {
		cmd.Version = info.Main.Version
	}

	cmd.InitDefaultVersionFlag()

	cmd.SilenceUsage = true

	return cmd
}
