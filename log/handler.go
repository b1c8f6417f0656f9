// Package log provides structured logging (slog) for the library and for
// the wasm guest, where records are forwarded to the host.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
)

// New returns a text logger on stderr at the given level. The "error" key
// is shortened to "err".
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// LevelEnv is the environment variable LevelFromEnv reads.
const LevelEnv = "CRFSUITE_LOG_LEVEL"

// LevelFromEnv returns the level named by LevelEnv ("debug", "info",
// "warn" or "error"), or warn when it is unset or invalid.
func LevelFromEnv() slog.Level {
	level := slog.LevelWarn
	if v := os.Getenv(LevelEnv); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return slog.LevelWarn
		}
	}
	return level
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Sink receives one JSON-encoded LogMessageWire.
type Sink func(message []byte)

// WasmLogHandler implements slog.Handler by serializing records to
// LogMessageWire and passing them to a Sink. In the wasm guest the default
// sink is the host's log_message import.
type WasmLogHandler struct {
	sink   Sink
	attrs  []LogAttrWire
	prefix string
	opts   handlerConfig
}

// HandlerOption configures the WasmLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	sink      Sink
	level     slog.Level
	addSource bool
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
		sink:  defaultSink,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level are filtered on the guest side.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file:line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithSink replaces the destination of serialized records.
func WithSink(sink Sink) HandlerOption {
	return func(c *handlerConfig) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// NewHandler creates a new WasmLogHandler with the given options.
func NewHandler(opts ...HandlerOption) *WasmLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WasmLogHandler{opts: cfg, sink: cfg.sink}
}

// Enabled reports whether the handler handles records at the given level.
func (h *WasmLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *WasmLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(make([]LogAttrWire, 0, len(h.attrs)+len(attrs)), h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, toLogAttrWire(h.qualify(a)))
	}
	return &nh
}

// WithGroup returns a handler that prefixes subsequent attribute keys
// with name.
func (h *WasmLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func (h *WasmLogHandler) qualify(a slog.Attr) slog.Attr {
	a.Key = h.prefix + a.Key
	return a
}

// Handle serializes record and passes it to the sink.
func (h *WasmLogHandler) Handle(_ context.Context, record slog.Record) error {
	msg := LogMessageWire{
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
		Attrs:     append([]LogAttrWire(nil), h.attrs...),
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		msg.Source = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, toLogAttrWire(h.qualify(attr)))
		return true
	})

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal log message: %w", err)
	}
	h.sink(data)
	return nil
}
