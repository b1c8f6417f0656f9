package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	crfsuite "github.com/reglet-dev/crfsuite-go"
	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/ffi"
	"github.com/reglet-dev/crfsuite-go/internal/config"
	"github.com/reglet-dev/crfsuite-go/internal/dataset"
)

func newLearnCmd() *cobra.Command {
	var (
		cfgFile string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "learn [flags] DATA...",
		Short: "Train a model from labeled data",
		Long: `Train a model from one or more data files. Sequences in the i-th file
(counting from 0) belong to group i, so -e 1 holds the second file out for
evaluation.

Settings are read from crfsuite.yaml (or --config), then CRFSUITE_*
environment variables, then flags. Algorithm parameters come from the
"params" map, CRFSUITE_PARAMS_<NAME> variables and -p name=value.`,
		Example: `  # Train with L-BFGS and a stronger L2 penalty
  crfsuite learn -m ner.model -p c2=0.1 train.txt

  # Train with AROW on two files, evaluating on the second
  crfsuite learn -a arow -e 1 train.txt dev.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err := confirmOverwrite(p, cfg.Model, force); err != nil {
				return err
			}
			return runLearn(cmd, cfg, args)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.FileName+")")
	cmd.Flags().StringP("algorithm", "a", entities.DefaultAlgorithm,
		"training algorithm (lbfgs|l2sgd|ap|pa|arow)")
	cmd.Flags().StringArrayP("param", "p", nil, "algorithm parameter as name=value (repeatable)")
	cmd.Flags().Int32P("holdout", "e", entities.NoHoldout, "group to hold out for evaluation, -1 for none")
	cmd.Flags().StringP("model", "m", entities.DefaultModelPath, "output model path")
	cmd.Flags().BoolP("verbose", "v", false, "log training progress")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing model without asking")
	_ = cmd.RegisterFlagCompletionFunc("algorithm", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"lbfgs", "l2sgd", "ap", "pa", "arow"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runLearn(cmd *cobra.Command, cfg entities.TrainingConfig, files []string) error {
	s, err := newSession(cmd, cfg.Verbose)
	if err != nil {
		return err
	}
	c := s.c

	tr := c.TrainerCreate(cfg.Verbose)
	if tr == 0 {
		return s.lastError("create trainer")
	}
	defer c.TrainerDestroy(tr)

	if !c.TrainerSelect(tr, cfg.Algorithm) {
		return s.lastError("select algorithm")
	}
	for _, name := range crfsuite.SortedParamNames(cfg.Params) {
		if !c.TrainerSet(tr, name, cfg.Params[name]) {
			return s.lastError("set parameter " + name)
		}
	}

	for i, path := range files {
		n, err := appendFile(s, tr, path, int32(i))
		if err != nil {
			return err
		}
		s.lib.Logger().Info("read data", "file", path, "group", i, "instances", n)
	}

	if !c.TrainerTrain(tr, cfg.Model, cfg.Holdout) {
		return s.lastError("train")
	}
	if r := c.TrainerReport(tr); r != nil {
		printReport(cmd.OutOrStdout(), r)
	}
	return nil
}

func appendFile(s *session, tr ffi.Handle, path string, group int32) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open data: %w", err)
	}
	defer f.Close()

	instances, err := dataset.Read(f, group)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, inst := range instances {
		if !s.c.TrainerAppend(tr, inst.Items, inst.Labels, inst.Group) {
			return 0, s.lastError("append " + path)
		}
	}
	return len(instances), nil
}

func printReport(w io.Writer, r *entities.TrainingReport) {
	fmt.Fprintf(w, "model: %s\n", r.ModelPath)
	fmt.Fprintf(w, "algorithm: %s\n", r.Algorithm)
	fmt.Fprintf(w, "instances: %d\n", r.Instances)
	fmt.Fprintf(w, "labels: %d\n", r.Labels)
	fmt.Fprintf(w, "attributes: %d\n", r.Attributes)
	fmt.Fprintf(w, "features: %d\n", r.Features)
	fmt.Fprintf(w, "iterations: %d\n", r.Iterations)
	fmt.Fprintf(w, "loss: %g\n", r.Loss)
	fmt.Fprintf(w, "seconds: %.3f\n", r.Duration.Seconds())
	if ev := r.Holdout; ev != nil {
		printEvaluation(w, *ev)
	}
}

func printEvaluation(w io.Writer, ev entities.Evaluation) {
	fmt.Fprintf(w, "item accuracy: %d / %d (%.4f)\n", ev.CorrectItems, ev.Items, ev.ItemAccuracy())
	fmt.Fprintf(w, "instance accuracy: %d / %d (%.4f)\n", ev.CorrectInstances, ev.Instances, ev.InstanceAccuracy())
}
