package ffi

import (
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// Handler is the body of one boundary operation. A nil error means success.
type Handler func(ctx CallContext) error

// Middleware wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	auditMiddleware := func(next ffi.Handler) ffi.Handler {
//	    return func(ctx ffi.CallContext) error {
//	        audit.Record(ctx.Operation())
//	        return next(ctx)
//	    }
//	}
type Middleware func(next Handler) Handler

// chain applies middleware so the first one wraps outermost.
func chain(h Handler, mw []Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// PanicRecoveryMiddleware returns a middleware that converts a panic in the
// wrapped handler into an *errors.PanicError. The stack is logged at debug
// level.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx CallContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					logger.Debug("panic recovered at boundary",
						"op", ctx.Operation(),
						"panic", r,
						"stack", string(stack),
					)
					err = &errors.PanicError{Value: r, Op: ctx.Operation(), Stack: stack}
				}
			}()
			return next(ctx)
		}
	}
}

// codeOf maps a handler result onto the boundary error codes.
func codeOf(err error) entities.ErrorCode {
	return errors.ToErrorDetail(err).ErrorCode()
}

// LoggingMiddleware returns a middleware that logs every call at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx CallContext) error {
			start := time.Now()
			err := next(ctx)
			attrs := []any{
				"op", ctx.Operation(),
				"caller", ctx.CallerID(),
				"duration", time.Since(start),
				"code", codeOf(err).String(),
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("ffi call", attrs...)
			return err
		}
	}
}

// MetricsMiddleware returns a middleware that records call counts and
// durations in m.
func MetricsMiddleware(m *Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx CallContext) error {
			start := time.Now()
			err := next(ctx)
			m.observe(ctx.Operation(), codeOf(err), time.Since(start))
			return err
		}
	}
}
