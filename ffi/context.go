package ffi

import (
	"context"
)

// CallContext wraps a context.Context with the data of one boundary call.
// Middleware uses it to learn which operation is running and for whom.
type CallContext interface {
	context.Context

	// Operation returns the flat-table name of the running operation.
	Operation() string

	// CallerID returns the execution context the call is made from.
	CallerID() uint64

	// SetValue stores a call-scoped value. Unlike context.WithValue,
	// this mutates the existing CallContext.
	SetValue(key, value any)

	// GetValue retrieves a value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type callContext struct {
	context.Context
	values   map[any]any
	op       string
	callerID uint64
}

// NewCallContext creates a CallContext wrapping ctx.
func NewCallContext(ctx context.Context, op string, callerID uint64) CallContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &callContext{
		Context:  ctx,
		op:       op,
		callerID: callerID,
	}
}

func (c *callContext) Operation() string {
	return c.op
}

func (c *callContext) CallerID() uint64 {
	return c.callerID
}

func (c *callContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *callContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}
