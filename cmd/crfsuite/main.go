// Command crfsuite trains and applies CRF models from the command line.
package main

import (
	"os"

	"github.com/reglet-dev/crfsuite-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
