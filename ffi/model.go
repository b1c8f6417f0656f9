package ffi

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
)

// modelState is the engine model behind a Model handle. The handle and
// every Tagger bound to it each hold one reference; the label records are
// released with the last one.
type modelState struct {
	lib    *Library
	model  ports.Model
	labels []abi.Str
	refs   atomic.Int32
}

func (l *Library) openModel(data []byte) (*modelState, error) {
	m, err := l.engine.OpenModel(data)
	if err != nil {
		return nil, err
	}
	ms := &modelState{lib: l, model: m}
	for _, name := range m.Labels() {
		rec, err := l.newStr(name, false)
		if err != nil {
			ms.freeLabels()
			return nil, err
		}
		ms.labels = append(ms.labels, rec)
	}
	ms.refs.Store(1)
	return ms, nil
}

func (ms *modelState) acquire() {
	ms.refs.Add(1)
}

func (ms *modelState) release() {
	if ms.refs.Add(-1) == 0 {
		ms.freeLabels()
	}
}

func (ms *modelState) freeLabels() {
	for _, rec := range ms.labels {
		ms.lib.freeStorage(rec)
	}
	ms.labels = nil
}

func (c *Caller) model(h Handle) (*modelState, error) {
	obj, ok := c.lib.handles.get(h, kindModel)
	if !ok {
		return nil, errors.InvalidHandle(kindModel.String(), uint64(h))
	}
	return obj.(*modelState), nil
}

func (c *Caller) registerModel(data []byte) (Handle, error) {
	ms, err := c.lib.openModel(data)
	if err != nil {
		return 0, err
	}
	return c.lib.handles.insert(kindModel, ms), nil
}

// ModelOpen loads a model file. It returns 0 on failure.
func (c *Caller) ModelOpen(path string) Handle {
	var h Handle
	c.invoke("model_open", func(CallContext) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.KindIO, err, "failed to open model file %s", path)
		}
		h, err = c.registerModel(data)
		return err
	})
	return h
}

// ModelFromBytes loads a model from memory. buf is not retained.
func (c *Caller) ModelFromBytes(buf []byte) Handle {
	var h Handle
	c.invoke("model_from_bytes", func(CallContext) error {
		var err error
		h, err = c.registerModel(buf)
		return err
	})
	return h
}

// ModelDump writes the text dump of model to w. The handle survives a
// failed dump.
func (c *Caller) ModelDump(model Handle, w io.Writer) bool {
	return c.invoke("model_dump", func(CallContext) error {
		ms, err := c.model(model)
		if err != nil {
			return err
		}
		if w == nil {
			return errors.New(errors.KindInvalidArgument, "dump destination is nil")
		}
		if err := ms.model.Dump(w); err != nil {
			return errors.Wrap(errors.KindIO, err, "failed to dump model")
		}
		return nil
	})
}

type yamlDumper interface {
	DumpYAML(w io.Writer) error
}

// ModelDumpYAML writes the structured dump of model to w as YAML.
func (c *Caller) ModelDumpYAML(model Handle, w io.Writer) bool {
	return c.invoke("model_dump_yaml", func(CallContext) error {
		ms, err := c.model(model)
		if err != nil {
			return err
		}
		d, ok := ms.model.(yamlDumper)
		if !ok {
			return errors.New(errors.KindInvalidArgument, "model does not support YAML dumps")
		}
		if w == nil {
			return errors.New(errors.KindInvalidArgument, "dump destination is nil")
		}
		if err := d.DumpYAML(w); err != nil {
			return errors.Wrap(errors.KindIO, err, "failed to dump model")
		}
		return nil
	})
}

// ModelLabels returns the model's labels as borrowed strings. The array
// itself is released with TagsDestroy.
func (c *Caller) ModelLabels(model Handle) Array {
	var out Array
	c.invoke("model_labels", func(CallContext) error {
		ms, err := c.model(model)
		if err != nil {
			return err
		}
		out, err = c.lib.newBorrowedArray(ms.labels)
		return err
	})
	return out
}

// ModelDestroy releases the host's reference to model. Taggers bound to it
// keep working. Null and stale handles are ignored.
func (c *Caller) ModelDestroy(model Handle) {
	c.guard("model_destroy", func() {
		if obj, ok := c.lib.handles.remove(model, kindModel); ok {
			obj.(*modelState).release()
		}
	})
}
