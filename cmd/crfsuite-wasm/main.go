//go:build wasip1

// Command crfsuite-wasm exports the boundary from a WebAssembly module.
//
// Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o crfsuite.wasm ./cmd/crfsuite-wasm
//
// Addresses are offsets into the module's linear memory. Hosts allocate
// argument records with allocate, and owned strings are returned through
// an out-pointer to a 12-byte FfiStr record the host allocated.
package main

import (
	"log/slog"
	"os"
	"sync"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/ffi"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/log"
	"github.com/reglet-dev/crfsuite-go/wireformat"
)

var (
	heap = abi.NewHeap()
	lib  *ffi.Library
	once sync.Once
)

// caller returns the error slot of the guest's single execution context.
func caller() *ffi.Caller {
	once.Do(func() {
		logger := slog.New(log.NewHandler(log.WithLevel(slog.LevelInfo)))
		lib = ffi.New(ffi.WithMemory(heap, abi.Layout32), ffi.WithLogger(logger))
	})
	return lib.Caller(0)
}

func main() {}

func toBool(ok bool) uint32 {
	if ok {
		return 1
	}
	return 0
}

// guestString reads n bytes at ptr. A zero length is the empty string.
func guestString(ptr, n uint32) (string, bool) {
	if n == 0 {
		return "", true
	}
	b, ok := heap.Read(uint64(ptr), n)
	if !ok {
		return "", false
	}
	return string(b), true
}

func badArgument(c *ffi.Caller, what string, ptr uint32) {
	c.Fail(errors.New(errors.KindInvalidArgument, "%s at 0x%x is outside guest memory", what, ptr))
}

// storeStr writes s to the record at out. When that fails s is released
// and the failure is recorded.
func storeStr(c *ffi.Caller, out uint32, s abi.Str) {
	if err := abi.Layout32.StoreStr(heap, uint64(out), s); err != nil {
		c.StrFree(&s)
		c.Fail(err)
	}
}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	ptr, err := heap.Allocate(size)
	if err != nil {
		return 0
	}
	return uint32(ptr)
}

//go:wasmexport deallocate
func deallocate(ptr uint32) {
	heap.Deallocate(uint64(ptr))
}

//go:wasmexport crfsuite_init
func crfsuiteInit() {
	caller()
}

//go:wasmexport crfsuite_err_clear
func errClear() {
	caller().ErrClear()
}

//go:wasmexport crfsuite_err_get_last_code
func errGetLastCode() uint32 {
	return uint32(caller().ErrLastCode())
}

//go:wasmexport crfsuite_err_get_last_message
func errGetLastMessage(out uint32) {
	c := caller()
	storeStr(c, out, c.ErrLastMessage())
}

// errGetLastDetail writes the JSON-encoded structured error, or "null".
//
//go:wasmexport crfsuite_err_get_last_detail
func errGetLastDetail(out uint32) {
	c := caller()
	data, err := wireformat.EncodeError(c.ErrLastDetail())
	if err != nil {
		data = []byte("null")
	}
	s, err := abi.Layout32.NewStr(heap, data)
	if err != nil {
		return
	}
	storeStr(c, out, s)
}

//go:wasmexport crfsuite_str_from_bytes
func strFromBytes(ptr, n, out uint32) {
	c := caller()
	var b []byte
	if n > 0 {
		var ok bool
		if b, ok = heap.Read(uint64(ptr), n); !ok {
			badArgument(c, "string", ptr)
			return
		}
	}
	storeStr(c, out, c.StrFromBytes(b))
}

//go:wasmexport crfsuite_str_from_cstr
func strFromCStr(ptr, out uint32) {
	c := caller()
	s, ok := heap.ReadCString(uint64(ptr))
	if !ok {
		badArgument(c, "C string", ptr)
		return
	}
	storeStr(c, out, c.StrFromString(s))
}

//go:wasmexport crfsuite_str_free
func strFree(rec uint32) {
	c := caller()
	s, err := abi.Layout32.LoadStr(heap, uint64(rec))
	if err != nil {
		return
	}
	c.StrFree(&s)
	_ = abi.Layout32.StoreStr(heap, uint64(rec), s)
}

//go:wasmexport crfsuite_tags_destroy
func tagsDestroy(arr uint32) {
	caller().TagsDestroy(ffi.Array(arr))
}

//go:wasmexport crfsuite_params_destroy
func paramsDestroy(arr uint32) {
	caller().ParamsDestroy(ffi.Array(arr))
}

//go:wasmexport crfsuite_model_open
func modelOpen(path, n uint32) uint64 {
	c := caller()
	p, ok := guestString(path, n)
	if !ok {
		badArgument(c, "path", path)
		return 0
	}
	return uint64(c.ModelOpen(p))
}

//go:wasmexport crfsuite_model_from_bytes
func modelFromBytes(ptr, n uint32) uint64 {
	c := caller()
	var b []byte
	if n > 0 {
		var ok bool
		if b, ok = heap.Read(uint64(ptr), n); !ok {
			badArgument(c, "model buffer", ptr)
			return 0
		}
	}
	return uint64(c.ModelFromBytes(b))
}

//go:wasmexport crfsuite_model_dump
func modelDump(model uint64, path, n uint32) uint32 {
	c := caller()
	p, ok := guestString(path, n)
	if !ok {
		badArgument(c, "path", path)
		return 0
	}
	f, err := os.Create(p)
	if err != nil {
		c.Fail(errors.Wrap(errors.KindIO, err, "failed to create dump file %s", p))
		return 0
	}
	ok = c.ModelDump(ffi.Handle(model), f)
	if err := f.Close(); err != nil && ok {
		c.Fail(errors.Wrap(errors.KindIO, err, "failed to close dump file %s", p))
		return 0
	}
	return toBool(ok)
}

//go:wasmexport crfsuite_model_labels
func modelLabels(model uint64) uint32 {
	return uint32(caller().ModelLabels(ffi.Handle(model)))
}

//go:wasmexport crfsuite_model_destroy
func modelDestroy(model uint64) {
	caller().ModelDestroy(ffi.Handle(model))
}

//go:wasmexport crfsuite_tagger_create
func taggerCreate(model uint64) uint64 {
	return uint64(caller().TaggerCreate(ffi.Handle(model)))
}

//go:wasmexport crfsuite_tagger_tag
func taggerTag(tagger uint64, items, n uint32) uint32 {
	return uint32(caller().TaggerTagRecords(ffi.Handle(tagger), uint64(items), uint64(n)))
}

//go:wasmexport crfsuite_tagger_labels
func taggerLabels(tagger uint64) uint32 {
	return uint32(caller().TaggerLabels(ffi.Handle(tagger)))
}

//go:wasmexport crfsuite_tagger_probability
func taggerProbability(tagger uint64, items, n, labels, ln uint32) float64 {
	return caller().TaggerProbabilityRecords(ffi.Handle(tagger), uint64(items), uint64(n), uint64(labels), uint64(ln))
}

//go:wasmexport crfsuite_tagger_marginal
func taggerMarginal(tagger uint64, items, n, label, labelLen uint32, position int32) float64 {
	c := caller()
	l, ok := guestString(label, labelLen)
	if !ok {
		badArgument(c, "label", label)
		return -1
	}
	return c.TaggerMarginalRecords(ffi.Handle(tagger), uint64(items), uint64(n), l, int(position))
}

//go:wasmexport crfsuite_tagger_destroy
func taggerDestroy(tagger uint64) {
	caller().TaggerDestroy(ffi.Handle(tagger))
}

//go:wasmexport crfsuite_trainer_create
func trainerCreate(verbose uint32) uint64 {
	return uint64(caller().TrainerCreate(verbose != 0))
}

//go:wasmexport crfsuite_trainer_select
func trainerSelect(trainer uint64, name, n uint32) uint32 {
	c := caller()
	s, ok := guestString(name, n)
	if !ok {
		badArgument(c, "algorithm name", name)
		return 0
	}
	return toBool(c.TrainerSelect(ffi.Handle(trainer), s))
}

//go:wasmexport crfsuite_trainer_clear
func trainerClear(trainer uint64) uint32 {
	return toBool(caller().TrainerClear(ffi.Handle(trainer)))
}

//go:wasmexport crfsuite_trainer_append
func trainerAppend(trainer uint64, xseq, xn, yseq, yn uint32, group int32) uint32 {
	return toBool(caller().TrainerAppendRecords(ffi.Handle(trainer),
		uint64(xseq), uint64(xn), uint64(yseq), uint64(yn), group))
}

//go:wasmexport crfsuite_trainer_train
func trainerTrain(trainer uint64, path, n uint32, holdout int32) uint32 {
	c := caller()
	p, ok := guestString(path, n)
	if !ok {
		badArgument(c, "path", path)
		return 0
	}
	return toBool(c.TrainerTrain(ffi.Handle(trainer), p, holdout))
}

//go:wasmexport crfsuite_trainer_set
func trainerSet(trainer uint64, name, nameLen, value, valueLen uint32) uint32 {
	c := caller()
	k, ok := guestString(name, nameLen)
	if !ok {
		badArgument(c, "parameter name", name)
		return 0
	}
	v, ok := guestString(value, valueLen)
	if !ok {
		badArgument(c, "parameter value", value)
		return 0
	}
	return toBool(c.TrainerSet(ffi.Handle(trainer), k, v))
}

//go:wasmexport crfsuite_trainer_get
func trainerGet(trainer uint64, name, n, out uint32) {
	c := caller()
	k, ok := guestString(name, n)
	if !ok {
		badArgument(c, "parameter name", name)
		return
	}
	storeStr(c, out, c.TrainerGet(ffi.Handle(trainer), k))
}

//go:wasmexport crfsuite_trainer_help
func trainerHelp(trainer uint64, name, n, out uint32) {
	c := caller()
	k, ok := guestString(name, n)
	if !ok {
		badArgument(c, "parameter name", name)
		return
	}
	storeStr(c, out, c.TrainerHelp(ffi.Handle(trainer), k))
}

//go:wasmexport crfsuite_trainer_params
func trainerParams(trainer uint64) uint32 {
	return uint32(caller().TrainerParams(ffi.Handle(trainer)))
}

//go:wasmexport crfsuite_trainer_num_instances
func trainerNumInstances(trainer uint64) int32 {
	return int32(caller().TrainerNumInstances(ffi.Handle(trainer)))
}

//go:wasmexport crfsuite_trainer_algorithm
func trainerAlgorithm(trainer uint64, out uint32) {
	c := caller()
	storeStr(c, out, c.TrainerAlgorithm(ffi.Handle(trainer)))
}

// trainerReport writes the JSON-encoded report of the last run, or "null".
//
//go:wasmexport crfsuite_trainer_report
func trainerReport(trainer uint64, out uint32) {
	c := caller()
	data := []byte("null")
	if r := c.TrainerReport(ffi.Handle(trainer)); r != nil {
		encoded, err := wireformat.EncodeReport(*r)
		if err != nil {
			c.Fail(err)
			return
		}
		data = encoded
	}
	s, err := abi.Layout32.NewStr(heap, data)
	if err != nil {
		c.Fail(err)
		return
	}
	storeStr(c, out, s)
}

//go:wasmexport crfsuite_trainer_destroy
func trainerDestroy(trainer uint64) {
	caller().TrainerDestroy(ffi.Handle(trainer))
}
