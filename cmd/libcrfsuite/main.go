//go:build cgo && unix

// Command libcrfsuite exports the boundary as a C shared library.
//
// Build with:
//
//	go build -buildmode=c-shared -o libcrfsuite.so ./cmd/libcrfsuite
//
// crfsuite.h in this directory declares the exported functions. Each OS
// thread has its own last-error slot. Logs go to stderr at the level named
// by CRFSUITE_LOG_LEVEL.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>

typedef uint64_t CrfHandle;

typedef struct FfiStr {
	const char *data;
	size_t len;
	bool owned;
} FfiStr;

typedef struct FfiStrArray {
	FfiStr *data;
	size_t len;
} FfiStrArray;

typedef struct CrfAttribute {
	const char *name;
	double value;
} CrfAttribute;

typedef struct CrfAttributeList {
	const CrfAttribute *data;
	size_t len;
} CrfAttributeList;
*/
import "C"

import (
	"math"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/ffi"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/log"
	"github.com/reglet-dev/crfsuite-go/wireformat"
)

var (
	mem  = newCMemory()
	lib  *ffi.Library
	once sync.Once
)

func caller() *ffi.Caller {
	once.Do(func() {
		lib = ffi.New(ffi.WithMemory(mem, abi.HostLayout), ffi.WithLogger(log.New(log.LevelFromEnv())))
	})
	return lib.Caller(threadID())
}

func main() {}

func addr[T any](p *T) uint64 {
	return uint64(uintptr(unsafe.Pointer(p)))
}

func toC(s abi.Str) C.FfiStr {
	return C.FfiStr{
		data:  (*C.char)(pointer(s.Data)),
		len:   C.size_t(s.Len),
		owned: C.bool(s.Owned),
	}
}

func fromC(s *C.FfiStr) abi.Str {
	return abi.Str{Data: addr(s.data), Len: uint64(s.len), Owned: bool(s.owned)}
}

func toArray(a ffi.Array) *C.FfiStrArray {
	return (*C.FfiStrArray)(pointer(uint64(a)))
}

func fromArray(a *C.FfiStrArray) ffi.Array {
	return ffi.Array(addr(a))
}

// cString converts a required NUL-terminated argument, recording a failure
// for NULL.
func cString(c *ffi.Caller, what string, s *C.char) (string, bool) {
	if s == nil {
		c.Fail(errors.New(errors.KindInvalidArgument, "%s is NULL", what))
		return "", false
	}
	return C.GoString(s), true
}

// cBytes copies a caller buffer of n bytes, recording a failure for a NULL
// buffer or a length C.GoBytes cannot take.
func cBytes(c *ffi.Caller, data unsafe.Pointer, n uint64) ([]byte, bool) {
	switch {
	case n == 0:
		return nil, true
	case data == nil:
		c.Fail(errors.New(errors.KindInvalidArgument, "NULL buffer with length %d", n))
		return nil, false
	case n > math.MaxInt32:
		c.Fail(errors.New(errors.KindInvalidArgument, "buffer length %d exceeds %d bytes", n, math.MaxInt32))
		return nil, false
	}
	return C.GoBytes(data, C.int(n)), true
}

//export crfsuite_init
func crfsuite_init() { //nolint:revive // C symbol
	caller()
}

// crfsuite_thread_release drops the calling thread's error slot. Threads
// call it before exiting.
//
//export crfsuite_thread_release
func crfsuite_thread_release() { //nolint:revive // C symbol
	caller()
	lib.ReleaseCaller(threadID())
}

//export crfsuite_err_clear
func crfsuite_err_clear() { //nolint:revive // C symbol
	caller().ErrClear()
}

//export crfsuite_err_get_last_code
func crfsuite_err_get_last_code() C.uint32_t { //nolint:revive // C symbol
	return C.uint32_t(caller().ErrLastCode())
}

//export crfsuite_err_get_last_message
func crfsuite_err_get_last_message() C.FfiStr { //nolint:revive // C symbol
	return toC(caller().ErrLastMessage())
}

// crfsuite_err_get_last_detail returns the JSON-encoded structured error,
// or "null" when the last call succeeded.
//
//export crfsuite_err_get_last_detail
func crfsuite_err_get_last_detail() C.FfiStr { //nolint:revive // C symbol
	c := caller()
	data, err := wireformat.EncodeError(c.ErrLastDetail())
	if err != nil {
		data = []byte("null")
	}
	s, err := abi.HostLayout.NewStr(mem, data)
	if err != nil {
		return C.FfiStr{}
	}
	return toC(s)
}

//export crfsuite_str_from_cstr
func crfsuite_str_from_cstr(s *C.char) C.FfiStr { //nolint:revive // C symbol
	c := caller()
	v, ok := cString(c, "string", s)
	if !ok {
		return C.FfiStr{}
	}
	return toC(c.StrFromString(v))
}

//export crfsuite_str_from_bytes
func crfsuite_str_from_bytes(data *C.char, n C.size_t) C.FfiStr { //nolint:revive // C symbol
	c := caller()
	b, ok := cBytes(c, unsafe.Pointer(data), uint64(n))
	if !ok {
		return C.FfiStr{}
	}
	return toC(c.StrFromBytes(b))
}

//export crfsuite_str_free
func crfsuite_str_free(s *C.FfiStr) { //nolint:revive // C symbol
	if s == nil {
		return
	}
	v := fromC(s)
	caller().StrFree(&v)
	*s = toC(v)
}

//export crfsuite_tags_destroy
func crfsuite_tags_destroy(tags *C.FfiStrArray) { //nolint:revive // C symbol
	caller().TagsDestroy(fromArray(tags))
}

//export crfsuite_params_destroy
func crfsuite_params_destroy(params *C.FfiStrArray) { //nolint:revive // C symbol
	caller().ParamsDestroy(fromArray(params))
}

//export crfsuite_model_open
func crfsuite_model_open(path *C.char) C.CrfHandle { //nolint:revive // C symbol
	c := caller()
	p, ok := cString(c, "path", path)
	if !ok {
		return 0
	}
	return C.CrfHandle(c.ModelOpen(p))
}

//export crfsuite_model_from_bytes
func crfsuite_model_from_bytes(data *C.char, n C.size_t) C.CrfHandle { //nolint:revive // C symbol
	c := caller()
	b, ok := cBytes(c, unsafe.Pointer(data), uint64(n))
	if !ok {
		return 0
	}
	return C.CrfHandle(c.ModelFromBytes(b))
}

// crfsuite_model_dump writes the text dump to fd. The descriptor stays
// open and owned by the caller.
//
//export crfsuite_model_dump
func crfsuite_model_dump(model C.CrfHandle, fd C.int) C.bool { //nolint:revive // C symbol
	c := caller()
	dup, err := syscall.Dup(int(fd))
	if err != nil {
		c.Fail(errors.Wrap(errors.KindIO, err, "invalid file descriptor %d", int(fd)))
		return false
	}
	f := os.NewFile(uintptr(dup), "dump")
	ok := c.ModelDump(ffi.Handle(model), f)
	if err := f.Close(); err != nil && ok {
		c.Fail(errors.Wrap(errors.KindIO, err, "failed to flush dump to descriptor %d", int(fd)))
		return false
	}
	return C.bool(ok)
}

//export crfsuite_model_labels
func crfsuite_model_labels(model C.CrfHandle) *C.FfiStrArray { //nolint:revive // C symbol
	return toArray(caller().ModelLabels(ffi.Handle(model)))
}

//export crfsuite_model_destroy
func crfsuite_model_destroy(model C.CrfHandle) { //nolint:revive // C symbol
	caller().ModelDestroy(ffi.Handle(model))
}

//export crfsuite_tagger_create
func crfsuite_tagger_create(model C.CrfHandle) C.CrfHandle { //nolint:revive // C symbol
	return C.CrfHandle(caller().TaggerCreate(ffi.Handle(model)))
}

//export crfsuite_tagger_tag
func crfsuite_tagger_tag(tagger C.CrfHandle, items *C.CrfAttributeList, n C.size_t) *C.FfiStrArray { //nolint:revive // C symbol
	return toArray(caller().TaggerTagRecords(ffi.Handle(tagger), addr(items), uint64(n)))
}

//export crfsuite_tagger_labels
func crfsuite_tagger_labels(tagger C.CrfHandle) *C.FfiStrArray { //nolint:revive // C symbol
	return toArray(caller().TaggerLabels(ffi.Handle(tagger)))
}

//export crfsuite_tagger_probability
func crfsuite_tagger_probability(tagger C.CrfHandle, items *C.CrfAttributeList, n C.size_t, labels **C.char, ln C.size_t) C.double { //nolint:revive,lll // C symbol
	return C.double(caller().TaggerProbabilityRecords(ffi.Handle(tagger),
		addr(items), uint64(n), addr(labels), uint64(ln)))
}

//export crfsuite_tagger_marginal
func crfsuite_tagger_marginal(tagger C.CrfHandle, items *C.CrfAttributeList, n C.size_t, label *C.char, position C.int32_t) C.double { //nolint:revive,lll // C symbol
	c := caller()
	l, ok := cString(c, "label", label)
	if !ok {
		return -1
	}
	return C.double(c.TaggerMarginalRecords(ffi.Handle(tagger), addr(items), uint64(n), l, int(position)))
}

//export crfsuite_tagger_destroy
func crfsuite_tagger_destroy(tagger C.CrfHandle) { //nolint:revive // C symbol
	caller().TaggerDestroy(ffi.Handle(tagger))
}

//export crfsuite_trainer_create
func crfsuite_trainer_create(verbose C.bool) C.CrfHandle { //nolint:revive // C symbol
	return C.CrfHandle(caller().TrainerCreate(bool(verbose)))
}

//export crfsuite_trainer_select
func crfsuite_trainer_select(trainer C.CrfHandle, algorithm *C.char) C.bool { //nolint:revive // C symbol
	c := caller()
	name, ok := cString(c, "algorithm", algorithm)
	if !ok {
		return false
	}
	return C.bool(c.TrainerSelect(ffi.Handle(trainer), name))
}

//export crfsuite_trainer_clear
func crfsuite_trainer_clear(trainer C.CrfHandle) C.bool { //nolint:revive // C symbol
	return C.bool(caller().TrainerClear(ffi.Handle(trainer)))
}

//export crfsuite_trainer_append
func crfsuite_trainer_append(trainer C.CrfHandle, xseq *C.CrfAttributeList, xn C.size_t, yseq **C.char, yn C.size_t, group C.int32_t) C.bool { //nolint:revive,lll // C symbol
	return C.bool(caller().TrainerAppendRecords(ffi.Handle(trainer),
		addr(xseq), uint64(xn), addr(yseq), uint64(yn), int32(group)))
}

//export crfsuite_trainer_train
func crfsuite_trainer_train(trainer C.CrfHandle, path *C.char, holdout C.int32_t) C.bool { //nolint:revive // C symbol
	c := caller()
	p, ok := cString(c, "path", path)
	if !ok {
		return false
	}
	return C.bool(c.TrainerTrain(ffi.Handle(trainer), p, int32(holdout)))
}

//export crfsuite_trainer_set
func crfsuite_trainer_set(trainer C.CrfHandle, name, value *C.char) C.bool { //nolint:revive // C symbol
	c := caller()
	k, ok := cString(c, "parameter name", name)
	if !ok {
		return false
	}
	v, ok := cString(c, "parameter value", value)
	if !ok {
		return false
	}
	return C.bool(c.TrainerSet(ffi.Handle(trainer), k, v))
}

//export crfsuite_trainer_get
func crfsuite_trainer_get(trainer C.CrfHandle, name *C.char) C.FfiStr { //nolint:revive // C symbol
	c := caller()
	k, ok := cString(c, "parameter name", name)
	if !ok {
		return C.FfiStr{}
	}
	return toC(c.TrainerGet(ffi.Handle(trainer), k))
}

//export crfsuite_trainer_help
func crfsuite_trainer_help(trainer C.CrfHandle, name *C.char) C.FfiStr { //nolint:revive // C symbol
	c := caller()
	k, ok := cString(c, "parameter name", name)
	if !ok {
		return C.FfiStr{}
	}
	return toC(c.TrainerHelp(ffi.Handle(trainer), k))
}

//export crfsuite_trainer_params
func crfsuite_trainer_params(trainer C.CrfHandle) *C.FfiStrArray { //nolint:revive // C symbol
	return toArray(caller().TrainerParams(ffi.Handle(trainer)))
}

//export crfsuite_trainer_num_instances
func crfsuite_trainer_num_instances(trainer C.CrfHandle) C.int32_t { //nolint:revive // C symbol
	return C.int32_t(caller().TrainerNumInstances(ffi.Handle(trainer)))
}

//export crfsuite_trainer_algorithm
func crfsuite_trainer_algorithm(trainer C.CrfHandle) C.FfiStr { //nolint:revive // C symbol
	return toC(caller().TrainerAlgorithm(ffi.Handle(trainer)))
}

//export crfsuite_trainer_destroy
func crfsuite_trainer_destroy(trainer C.CrfHandle) { //nolint:revive // C symbol
	caller().TrainerDestroy(ffi.Handle(trainer))
}
