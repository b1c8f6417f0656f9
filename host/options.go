package host

import (
	"log/slog"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithLogger sets the logger guest log records are re-emitted through.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDir mounts a host directory at guest path "/", making model files
// below it reachable by path. Without it the guest has no file system and
// only byte-based operations work.
func WithDir(dir string) Option {
	return func(e *Executor) {
		e.dir = dir
	}
}

// WithMemoryLimitPages caps each guest's linear memory in 64 KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *Executor) {
		e.memoryPages = pages
	}
}
