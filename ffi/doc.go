// Package ffi is the flat operation table that exposes the sequence model
// engine to a host with its own memory manager.
//
// A Library owns the boundary memory, the handle table and one error slot
// per execution context. Hosts obtain a Caller for their execution context
// and invoke operations on it:
//
//	lib := ffi.New()
//	c := lib.Caller(0)
//	model := c.ModelOpen("crfsuite.model")
//	if model == 0 {
//	    fmt.Println(c.ErrLastDetail())
//	}
//	tagger := c.TaggerCreate(model)
//	tags := c.TaggerTag(tagger, items)
//	labels, _ := lib.ArrayStrings(tags)
//	c.TagsDestroy(tags)
//
// Fallible operations never panic and never return a Go error. They return
// a sentinel (a zero handle, a zero array, false or -1) and record the cause
// in the caller's error state. Strings and arrays returned to the host live
// in boundary memory and follow the ownership rules of abi.Str.
//
// The C ABI in cmd/libcrfsuite and the wasm guest in cmd/crfsuite-wasm are
// thin adapters over this package.
package ffi
