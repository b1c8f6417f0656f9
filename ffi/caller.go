package ffi

import (
	"context"
	"sync"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
)

// Caller is the error state of one execution context. Every fallible
// operation made through it overwrites the state; success resets it to
// NoError.
type Caller struct {
	lib    *Library
	detail *entities.ErrorDetail
	id     uint64
	mu     sync.Mutex
}

// ID returns the execution context id.
func (c *Caller) ID() uint64 {
	return c.id
}

// Library returns the library the caller belongs to.
func (c *Caller) Library() *Library {
	return c.lib
}

func (c *Caller) set(detail *entities.ErrorDetail) {
	c.mu.Lock()
	c.detail = detail
	c.mu.Unlock()
}

// invoke runs fn as operation op through the middleware chain and records
// the outcome. It never panics.
func (c *Caller) invoke(op string, fn Handler) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.set((&errors.PanicError{Value: r, Op: op}).ToErrorDetail())
			ok = false
		}
	}()
	err := chain(fn, c.lib.wrap)(NewCallContext(context.Background(), op, c.id))
	c.set(errors.ToErrorDetail(err))
	return err == nil
}

// guard runs a release operation. Release operations leave the error state
// alone unless they fault.
func (c *Caller) guard(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.lib.logger.Debug("panic recovered at boundary", "op", op, "panic", r)
			c.set((&errors.PanicError{Value: r, Op: op}).ToErrorDetail())
		}
	}()
	fn()
}

// ErrClear resets the error state to NoError.
func (c *Caller) ErrClear() {
	c.set(nil)
}

// ErrLastCode returns the current error code.
func (c *Caller) ErrLastCode() entities.ErrorCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detail.ErrorCode()
}

// ErrLastDetail returns the structured error, or nil when there is none.
func (c *Caller) ErrLastDetail() *entities.ErrorDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return nil
	}
	d := *c.detail
	return &d
}

// ErrLastMessage returns an owned copy of the current message. With no
// error it is an owned string with no storage. The state is not cleared.
func (c *Caller) ErrLastMessage() abi.Str {
	msg := c.ErrLastDetail().Error()
	s, err := c.lib.layout.NewStr(c.lib.mem, []byte(msg))
	if err != nil {
		c.lib.logger.Warn("failed to copy error message into boundary memory", "error", err)
		return abi.Str{Owned: true}
	}
	return s
}

// Fail records err as the outcome of a call that failed before reaching
// the table, such as an exporter that could not decode its arguments.
func (c *Caller) Fail(err error) {
	c.set(errors.ToErrorDetail(err))
}
