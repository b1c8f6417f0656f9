package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

func newParamsCmd() *cobra.Command {
	var (
		algorithm string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "params [-a ALGORITHM]",
		Short: "List the parameters of a training algorithm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, false)
			if err != nil {
				return err
			}
			tr := s.c.TrainerCreate(false)
			if tr == 0 {
				return s.lastError("create trainer")
			}
			defer s.c.TrainerDestroy(tr)
			if !s.c.TrainerSelect(tr, algorithm) {
				return s.lastError("select algorithm")
			}
			info := s.c.TrainerParamInfo(tr)
			if info == nil && s.c.ErrLastDetail() != nil {
				return s.lastError("list parameters")
			}

			switch format {
			case "table":
				renderParamTable(cmd.OutOrStdout(), info)
				return nil
			case "yaml":
				return renderParamYAML(cmd.OutOrStdout(), info)
			default:
				return fmt.Errorf("unknown format %q (want table or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", entities.DefaultAlgorithm, "training algorithm")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table|yaml)")
	return cmd
}

func renderParamTable(w io.Writer, info []ports.ParamInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Type", "Default", "Description"})
	for _, p := range info {
		t.AppendRow(table.Row{p.Name, p.Type, p.Default, p.Help})
	}
	t.Render()
}

func renderParamYAML(w io.Writer, info []ports.ParamInfo) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	return enc.Close()
}
