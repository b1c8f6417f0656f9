package ffi

import (
	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

type taggerState struct {
	tagger ports.Tagger
	model  *modelState
}

func (c *Caller) tagger(h Handle) (*taggerState, error) {
	obj, ok := c.lib.handles.get(h, kindTagger)
	if !ok {
		return nil, errors.InvalidHandle(kindTagger.String(), uint64(h))
	}
	return obj.(*taggerState), nil
}

// TaggerCreate binds a new tagger to model. It returns 0 on failure.
func (c *Caller) TaggerCreate(model Handle) Handle {
	var h Handle
	c.invoke("tagger_create", func(CallContext) error {
		ms, err := c.model(model)
		if err != nil {
			return err
		}
		tg, err := ms.model.NewTagger()
		if err != nil {
			return err
		}
		ms.acquire()
		h = c.lib.handles.insert(kindTagger, &taggerState{tagger: tg, model: ms})
		return nil
	})
	return h
}

func (c *Caller) tag(t Handle, decode func() ([]entities.Item, error)) Array {
	var out Array
	c.invoke("tagger_tag", func(CallContext) error {
		ts, err := c.tagger(t)
		if err != nil {
			return err
		}
		items, err := decode()
		if err != nil {
			return err
		}
		labels, err := ts.tagger.Tag(items)
		if err != nil {
			return err
		}
		out, err = c.lib.newOwnedArray(labels)
		return err
	})
	return out
}

// TaggerTag returns the most probable labels for items, one owned string
// per item. It returns 0 on failure; the tagger stays usable.
func (c *Caller) TaggerTag(t Handle, items []entities.Item) Array {
	return c.tag(t, func() ([]entities.Item, error) { return items, nil })
}

// TaggerTagRecords is TaggerTag over n AttributeList records at items in
// boundary memory.
func (c *Caller) TaggerTagRecords(t Handle, items, n uint64) Array {
	return c.tag(t, func() ([]entities.Item, error) {
		return c.lib.layout.DecodeItems(c.lib.mem, items, n)
	})
}

// TaggerLabels returns the labels of the tagger's model as borrowed strings.
func (c *Caller) TaggerLabels(t Handle) Array {
	var out Array
	c.invoke("tagger_labels", func(CallContext) error {
		ts, err := c.tagger(t)
		if err != nil {
			return err
		}
		out, err = c.lib.newBorrowedArray(ts.model.labels)
		return err
	})
	return out
}

func (c *Caller) probability(t Handle, decode func() ([]entities.Item, []string, error)) float64 {
	p := -1.0
	c.invoke("tagger_probability", func(CallContext) error {
		ts, err := c.tagger(t)
		if err != nil {
			return err
		}
		items, labels, err := decode()
		if err != nil {
			return err
		}
		v, err := ts.tagger.Probability(items, labels)
		if err != nil {
			return err
		}
		p = v
		return nil
	})
	return p
}

// TaggerProbability returns p(labels | items), or -1 on failure.
func (c *Caller) TaggerProbability(t Handle, items []entities.Item, labels []string) float64 {
	return c.probability(t, func() ([]entities.Item, []string, error) { return items, labels, nil })
}

// TaggerProbabilityRecords is TaggerProbability over records in boundary
// memory: n AttributeList records at items and ln string references at
// labels.
func (c *Caller) TaggerProbabilityRecords(t Handle, items, n, labels, ln uint64) float64 {
	return c.probability(t, func() ([]entities.Item, []string, error) {
		xs, err := c.lib.layout.DecodeItems(c.lib.mem, items, n)
		if err != nil {
			return nil, nil, err
		}
		ys, err := c.lib.layout.DecodeStrings(c.lib.mem, labels, ln)
		if err != nil {
			return nil, nil, err
		}
		return xs, ys, nil
	})
}

func (c *Caller) marginal(t Handle, label string, position int, decode func() ([]entities.Item, error)) float64 {
	p := -1.0
	c.invoke("tagger_marginal", func(CallContext) error {
		ts, err := c.tagger(t)
		if err != nil {
			return err
		}
		items, err := decode()
		if err != nil {
			return err
		}
		v, err := ts.tagger.Marginal(items, label, position)
		if err != nil {
			return err
		}
		p = v
		return nil
	})
	return p
}

// TaggerMarginal returns p(y_position = label | items), or -1 on failure.
func (c *Caller) TaggerMarginal(t Handle, items []entities.Item, label string, position int) float64 {
	return c.marginal(t, label, position, func() ([]entities.Item, error) { return items, nil })
}

// TaggerMarginalRecords is TaggerMarginal over n AttributeList records at
// items in boundary memory.
func (c *Caller) TaggerMarginalRecords(t Handle, items, n uint64, label string, position int) float64 {
	return c.marginal(t, label, position, func() ([]entities.Item, error) {
		return c.lib.layout.DecodeItems(c.lib.mem, items, n)
	})
}

// TaggerDestroy releases the tagger and its model reference. Null and
// stale handles are ignored.
func (c *Caller) TaggerDestroy(t Handle) {
	c.guard("tagger_destroy", func() {
		if obj, ok := c.lib.handles.remove(t, kindTagger); ok {
			obj.(*taggerState).model.release()
		}
	})
}
