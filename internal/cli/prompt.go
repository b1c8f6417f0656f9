package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks yes/no questions on an interactive terminal.
type prompter struct {
	in  io.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out}
}

// IsInteractive reports whether input comes from a terminal.
func (p *prompter) IsInteractive() bool {
	f, ok := p.in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm asks question and reports whether the answer was yes. Anything
// else, including end of input, is no.
func (p *prompter) Confirm(question string) (bool, error) {
	_, _ = fmt.Fprintf(p.out, "%s [y/N]: ", question)

	scanner := bufio.NewScanner(p.in)
	if scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
	return false, scanner.Err()
}

// confirmOverwrite asks before replacing an existing file. Non-interactive
// runs and force overwrite silently.
func confirmOverwrite(p *prompter, path string, force bool) error {
	if force || !p.IsInteractive() {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ok, err := p.Confirm(fmt.Sprintf("%s exists. Overwrite?", path))
	if err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}
	if !ok {
		return fmt.Errorf("not overwriting %s", path)
	}
	return nil
}
