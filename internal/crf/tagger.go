package crf

import (
	"math"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

// Tagger runs inference against a Model. It is not safe for concurrent use.
type Tagger struct {
	model   *Model
	lat     *lattice
	weights []float64
}

var _ ports.Tagger = (*Tagger)(nil)

// NewTagger creates a tagger bound to the model.
func (m *Model) NewTagger() (ports.Tagger, error) {
	if len(m.labels) == 0 {
		return nil, invalidModel("model has no labels")
	}
	return &Tagger{model: m, lat: newLattice(len(m.labels)), weights: m.crf.weights()}, nil
}

// set scores items with the model's weights. Attributes the model does
// not know are skipped.
func (t *Tagger) set(items []entities.Item) error {
	if err := validateItems(items); err != nil {
		return err
	}
	seq := &sequence{items: make([][]attrValue, len(items))}
	for i, item := range items {
		avs := make([]attrValue, 0, len(item))
		for _, attr := range item {
			if id, ok := t.model.attrs.id(attr.Name); ok {
				avs = append(avs, attrValue{id: id, value: attr.Value})
			}
		}
		seq.items[i] = avs
	}
	t.lat.setWeights(t.model.crf, seq, t.weights, 1)
	return nil
}

func (t *Tagger) labelID(label string) (int, error) {
	for i, l := range t.model.labels {
		if l == label {
			return i, nil
		}
	}
	return 0, errors.New(errors.KindValueError, "failed to convert into label identifier: %s", label)
}

// Tag returns the Viterbi label sequence.
func (t *Tagger) Tag(items []entities.Item) ([]string, error) {
	if len(items) == 0 {
		return nil, errors.New(errors.KindInvalidArgument, "empty input")
	}
	if err := t.set(items); err != nil {
		return nil, err
	}
	path := make([]int, len(items))
	t.lat.viterbi(path)

	labels := make([]string, len(path))
	for i, y := range path {
		labels[i] = t.model.labels[y]
	}
	return labels, nil
}

// Probability returns p(labels | items). An empty sequence has
// probability zero.
func (t *Tagger) Probability(items []entities.Item, labels []string) (float64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if len(items) != len(labels) {
		return 0, errors.New(errors.KindInvalidArgument,
			"the numbers of items and labels differ: |x| = %d, |y| = %d", len(items), len(labels))
	}
	path := make([]int, len(labels))
	for i, label := range labels {
		id, err := t.labelID(label)
		if err != nil {
			return 0, err
		}
		path[i] = id
	}
	if err := t.set(items); err != nil {
		return 0, err
	}
	t.lat.forwardBackward()
	return math.Exp(t.lat.score(path) - t.lat.logZ), nil
}

// Marginal returns p(y_position = label | items).
func (t *Tagger) Marginal(items []entities.Item, label string, position int) (float64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if position < 0 || position >= len(items) {
		return 0, errors.New(errors.KindInvalidArgument,
			"the position %d is out of range of %d", position, len(items))
	}
	id, err := t.labelID(label)
	if err != nil {
		return 0, err
	}
	if err := t.set(items); err != nil {
		return 0, err
	}
	t.lat.forwardBackward()
	return t.lat.stateMarginal(position, id), nil
}
