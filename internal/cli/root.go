// Package cli provides the crfsuite command-line interface. Every command
// drives the boundary through ffi, as a foreign caller would.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	crfsuite "github.com/reglet-dev/crfsuite-go"
	"github.com/reglet-dev/crfsuite-go/ffi"
	"github.com/reglet-dev/crfsuite-go/log"
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crfsuite",
		Short: "Train and apply linear-chain CRF sequence labelers",
		Long: `crfsuite trains conditional random fields on labeled sequences and
uses the resulting models to tag new data.

Data files hold one item per line, a label followed by tab-separated
attributes, with a blank line between sequences:

  label<TAB>name[:value]<TAB>name[:value]...`,
		Version:       crfsuite.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "",
		"log level (debug|info|warn|error); defaults to info on a terminal and warn otherwise")
	_ = root.RegisterFlagCompletionFunc("log-level", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newLearnCmd())
	root.AddCommand(newTagCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newParamsCmd())
	root.AddCommand(newSchemaCmd())
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "crfsuite: %v\n", err)
		return 1
	}
	return 0
}

// newLogger builds the command logger on the command's stderr. verbose
// raises the default level to info.
func newLogger(cmd *cobra.Command, verbose bool) (*slog.Logger, error) {
	level := defaultLevel(cmd.ErrOrStderr())
	if verbose {
		level = slog.LevelInfo
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid --log-level %q: %w", v, err)
		}
	}
	return log.NewWriter(cmd.ErrOrStderr(), level), nil
}

func defaultLevel(w io.Writer) slog.Level {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// session is one command's view of the boundary.
type session struct {
	lib *ffi.Library
	c   *ffi.Caller
}

func newSession(cmd *cobra.Command, verbose bool) (*session, error) {
	logger, err := newLogger(cmd, verbose)
	if err != nil {
		return nil, err
	}
	lib := ffi.New(ffi.WithLogger(logger))
	return &session{lib: lib, c: lib.Caller(0)}, nil
}

// lastError returns the failure recorded by the previous call.
func (s *session) lastError(what string) error {
	if d := s.c.ErrLastDetail(); d != nil {
		return fmt.Errorf("%s: %w", what, d)
	}
	return fmt.Errorf("%s failed", what)
}

// strings copies an array result into Go memory and releases it.
func (s *session) strings(a ffi.Array, what string) ([]string, error) {
	if a == 0 {
		return nil, s.lastError(what)
	}
	defer s.c.TagsDestroy(a)
	return s.lib.ArrayStrings(a)
}
