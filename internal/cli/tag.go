package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/ffi"
	"github.com/reglet-dev/crfsuite-go/internal/dataset"
)

type tagOptions struct {
	model       string
	reference   bool
	test        bool
	quiet       bool
	probability bool
	marginal    bool
}

func newTagCmd() *cobra.Command {
	var opts tagOptions

	cmd := &cobra.Command{
		Use:   "tag -m MODEL [flags] [DATA...]",
		Short: "Tag data with a trained model",
		Long: `Tag every sequence in the data files, or standard input when none are
given, printing one predicted label per line and a blank line after each
sequence. The labels in the data are used as references by -r and -t.`,
		Example: `  # Print predicted labels next to the references
  crfsuite tag -m ner.model -r test.txt

  # Report accuracy only
  crfsuite tag -m ner.model -q test.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.quiet {
				opts.test = true
			}
			return runTag(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model file")
	cmd.Flags().BoolVarP(&opts.reference, "reference", "r", false, "print the reference label before each prediction")
	cmd.Flags().BoolVarP(&opts.test, "test", "t", false, "report accuracy against the reference labels")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print accuracy only (implies -t)")
	cmd.Flags().BoolVarP(&opts.probability, "probability", "p", false, "print the probability of each predicted sequence")
	cmd.Flags().BoolVarP(&opts.marginal, "marginal", "i", false, "print the marginal probability of each predicted label")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

type tagRun struct {
	s      *session
	w      *bufio.Writer
	opts   tagOptions
	tagger ffi.Handle
	eval   entities.Evaluation
}

func runTag(cmd *cobra.Command, opts tagOptions, files []string) error {
	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	c := s.c

	model := c.ModelOpen(opts.model)
	if model == 0 {
		return s.lastError("open model")
	}
	defer c.ModelDestroy(model)
	tagger := c.TaggerCreate(model)
	if tagger == 0 {
		return s.lastError("create tagger")
	}
	defer c.TaggerDestroy(tagger)

	run := &tagRun{s: s, w: bufio.NewWriter(cmd.OutOrStdout()), opts: opts, tagger: tagger}
	if len(files) == 0 {
		err = run.tagReader(cmd.InOrStdin(), "stdin")
	}
	for _, path := range files {
		if err = run.tagFile(path); err != nil {
			break
		}
	}
	if ferr := run.w.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}
	if opts.test {
		printEvaluation(cmd.OutOrStdout(), run.eval)
	}
	return nil
}

func (r *tagRun) tagFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open data: %w", err)
	}
	defer f.Close()
	return r.tagReader(f, path)
}

func (r *tagRun) tagReader(in io.Reader, name string) error {
	instances, err := dataset.Read(in, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, inst := range instances {
		if err := r.tagInstance(inst); err != nil {
			return err
		}
	}
	return nil
}

func (r *tagRun) tagInstance(inst entities.Instance) error {
	c := r.s.c
	predicted, err := r.s.strings(c.TaggerTag(r.tagger, inst.Items), "tag")
	if err != nil {
		return err
	}

	r.eval.Instances++
	correct := true
	for i, label := range predicted {
		r.eval.Items++
		if label == inst.Labels[i] {
			r.eval.CorrectItems++
		} else {
			correct = false
		}
	}
	if correct {
		r.eval.CorrectInstances++
	}
	if r.opts.quiet {
		return nil
	}

	if r.opts.probability {
		p := c.TaggerProbability(r.tagger, inst.Items, predicted)
		if p < 0 {
			return r.s.lastError("probability")
		}
		fmt.Fprintf(r.w, "@probability\t%f\n", p)
	}
	for i, label := range predicted {
		if r.opts.reference {
			fmt.Fprintf(r.w, "%s\t", inst.Labels[i])
		}
		if r.opts.marginal {
			m := c.TaggerMarginal(r.tagger, inst.Items, label, i)
			if m < 0 {
				return r.s.lastError("marginal")
			}
			fmt.Fprintf(r.w, "%s:%f\n", label, m)
			continue
		}
		fmt.Fprintln(r.w, label)
	}
	fmt.Fprintln(r.w)
	return nil
}
