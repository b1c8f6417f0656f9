package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump [--format text|yaml] MODEL",
		Short: "Print the contents of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, false)
			if err != nil {
				return err
			}
			model := s.c.ModelOpen(args[0])
			if model == 0 {
				return s.lastError("open model")
			}
			defer s.c.ModelDestroy(model)

			var ok bool
			switch format {
			case "text":
				ok = s.c.ModelDump(model, cmd.OutOrStdout())
			case "yaml":
				ok = s.c.ModelDumpYAML(model, cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown format %q (want text or yaml)", format)
			}
			if !ok {
				return s.lastError("dump")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text|yaml)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
