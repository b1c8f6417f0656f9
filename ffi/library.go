package ffi

import (
	"log/slog"
	"sync"

	"github.com/reglet-dev/crfsuite-go/domain/ports"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/internal/crf"
	"github.com/reglet-dev/crfsuite-go/log"
)

// Library is one initialized instance of the boundary. It is safe for
// concurrent use; individual handles are not.
type Library struct {
	mem     ports.Memory
	engine  ports.Engine
	logger  *slog.Logger
	metrics *Metrics
	callers map[uint64]*Caller
	handles handleTable
	extra   []Middleware
	wrap    []Middleware
	layout  abi.Layout
	mu      sync.Mutex
}

// Option configures a Library.
type Option func(*Library)

// WithMemory places transfer records in mem using layout. The default is
// an abi.Heap with the host's C layout.
func WithMemory(mem ports.Memory, layout abi.Layout) Option {
	return func(l *Library) {
		l.mem = mem
		l.layout = layout
	}
}

// WithLogger sets the logger for call tracing and verbose training.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithEngine replaces the sequence model engine.
func WithEngine(engine ports.Engine) Option {
	return func(l *Library) {
		l.engine = engine
	}
}

// WithMetrics records per-operation metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(l *Library) {
		l.metrics = m
	}
}

// WithMiddleware adds middleware around every operation, inside logging
// and metrics and outside panic recovery.
func WithMiddleware(mw ...Middleware) Option {
	return func(l *Library) {
		l.extra = append(l.extra, mw...)
	}
}

// New initializes a Library.
func New(opts ...Option) *Library {
	l := &Library{
		logger:  log.NewNop(),
		callers: make(map[uint64]*Caller),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.mem == nil {
		l.mem = abi.NewHeap()
		l.layout = abi.HostLayout
	}
	if l.layout.PtrSize == 0 {
		l.layout = abi.HostLayout
	}
	if l.engine == nil {
		l.engine = crf.NewEngine()
	}

	l.wrap = append(l.wrap, LoggingMiddleware(l.logger))
	if l.metrics != nil {
		l.wrap = append(l.wrap, MetricsMiddleware(l.metrics))
	}
	l.wrap = append(l.wrap, l.extra...)
	l.wrap = append(l.wrap, PanicRecoveryMiddleware(l.logger))
	return l
}

// Memory returns the boundary memory transfer records live in.
func (l *Library) Memory() ports.Memory {
	return l.mem
}

// Layout returns the record layout of the boundary memory.
func (l *Library) Layout() abi.Layout {
	return l.layout
}

// Logger returns the library logger.
func (l *Library) Logger() *slog.Logger {
	return l.logger
}

// Caller returns the error slot of execution context id, creating it on
// first use. Slots live until ReleaseCaller, so hosts that retire execution
// contexts release them.
func (l *Library) Caller(id uint64) *Caller {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.callers[id]
	if !ok {
		c = &Caller{lib: l, id: id}
		l.callers[id] = c
	}
	return c
}

// ReleaseCaller drops the error slot of execution context id. A later
// Caller(id) starts with no error.
func (l *Library) ReleaseCaller(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.callers, id)
}

// LiveHandles returns the number of live Model, Tagger and Trainer handles.
func (l *Library) LiveHandles() int {
	return l.handles.len()
}
