//go:build !wasip1

package log

import (
	"fmt"
	"os"
)

// defaultSink writes records to stderr outside the wasm guest.
func defaultSink(message []byte) {
	fmt.Fprintf(os.Stderr, "%s\n", message)
}
