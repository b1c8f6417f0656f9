package crf

import (
	"math"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// attrValue is one attribute occurrence after dictionary lookup.
type attrValue struct {
	id    int
	value float64
}

// sequence is an instance in dictionary space.
type sequence struct {
	items  [][]attrValue
	labels []int
	group  int32
}

func (s *sequence) len() int {
	return len(s.items)
}

// dataset accumulates training instances and the dictionaries they populate.
type dataset struct {
	attrs  *dictionary
	labels *dictionary
	seqs   []sequence
	items  int
}

func newDataset() *dataset {
	return &dataset{attrs: newDictionary(), labels: newDictionary()}
}

// validateItems rejects observations the engine cannot score.
func validateItems(items []entities.Item) error {
	for t, item := range items {
		for _, attr := range item {
			if attr.Name == "" {
				return errors.New(errors.KindValueError, "item %d: empty attribute name", t)
			}
			if math.IsNaN(attr.Value) || math.IsInf(attr.Value, 0) {
				return errors.New(errors.KindValueError, "item %d: attribute %s has non-finite value %v", t, attr.Name, attr.Value)
			}
		}
	}
	return nil
}

// append validates inst and adds it. A failed append leaves the dataset
// unchanged.
func (d *dataset) append(inst entities.Instance) error {
	if len(inst.Items) != len(inst.Labels) {
		return errors.LengthMismatch("labels", len(inst.Items), len(inst.Labels))
	}
	if len(inst.Items) == 0 {
		return errors.New(errors.KindInvalidArgument, "empty sequence")
	}
	if err := validateItems(inst.Items); err != nil {
		return err
	}
	for t, label := range inst.Labels {
		if label == "" {
			return errors.New(errors.KindValueError, "item %d: empty label", t)
		}
	}

	seq := sequence{
		items:  make([][]attrValue, len(inst.Items)),
		labels: make([]int, len(inst.Labels)),
		group:  inst.Group,
	}
	for t, item := range inst.Items {
		avs := make([]attrValue, len(item))
		for i, attr := range item {
			avs[i] = attrValue{id: d.attrs.add(attr.Name), value: attr.Value}
		}
		seq.items[t] = avs
		seq.labels[t] = d.labels.add(inst.Labels[t])
	}
	d.seqs = append(d.seqs, seq)
	d.items += len(inst.Items)
	return nil
}

// split partitions sequences into training and holdout sets. A negative
// holdout trains on everything.
func (d *dataset) split(holdout int32) (train, test []*sequence) {
	for i := range d.seqs {
		seq := &d.seqs[i]
		if holdout >= 0 && seq.group == holdout {
			test = append(test, seq)
		} else {
			train = append(train, seq)
		}
	}
	return train, test
}
