package crf

import (
	"log/slog"
	"time"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

// Trainer is one training session over the crf1d graphical model.
type Trainer struct {
	logger    *slog.Logger
	data      *dataset
	params    *paramSet
	algorithm entities.Algorithm
}

var _ ports.Trainer = (*Trainer)(nil)

// NewTrainer creates an empty training session. A nil logger discards
// progress.
func NewTrainer(logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Trainer{logger: logger, data: newDataset()}
}

// Select chooses the training algorithm and resets its parameters.
func (t *Trainer) Select(alg entities.Algorithm) error {
	if _, ok := trainers[alg]; !ok {
		return errors.New(errors.KindInvalidArgument, "unknown training algorithm %q", alg)
	}
	t.algorithm = alg
	t.params = newParamSet(alg)
	return nil
}

// Algorithm returns the selected algorithm.
func (t *Trainer) Algorithm() (entities.Algorithm, bool) {
	return t.algorithm, t.params != nil
}

// Params lists parameter names; empty when no algorithm is selected.
func (t *Trainer) Params() []string {
	if t.params == nil {
		return []string{}
	}
	return t.params.names()
}

// ParamInfo describes the parameters of the selected algorithm.
func (t *Trainer) ParamInfo() []ports.ParamInfo {
	if t.params == nil {
		return []ports.ParamInfo{}
	}
	return t.params.info()
}

func (t *Trainer) Set(name, value string) error {
	if t.params == nil {
		return errors.ErrAlgorithmNotSelected
	}
	return t.params.set(name, value)
}

func (t *Trainer) Get(name string) (string, error) {
	if t.params == nil {
		return "", errors.ErrAlgorithmNotSelected
	}
	return t.params.get(name)
}

func (t *Trainer) Help(name string) (string, error) {
	if t.params == nil {
		return "", errors.ErrAlgorithmNotSelected
	}
	return t.params.help(name)
}

// Append adds one labeled sequence. A failed append changes nothing.
func (t *Trainer) Append(inst entities.Instance) error {
	return t.data.append(inst)
}

func (t *Trainer) NumInstances() int {
	return len(t.data.seqs)
}

// Clear discards appended sequences and their dictionaries.
func (t *Trainer) Clear() {
	t.data = newDataset()
}

// Train runs the selected algorithm. Sequences in group holdout are left
// out of training and used to evaluate the result.
func (t *Trainer) Train(holdout int32) (*ports.TrainResult, error) {
	if t.params == nil {
		return nil, errors.ErrAlgorithmNotSelected
	}
	if len(t.data.seqs) == 0 {
		return nil, errors.ErrEmptyData
	}
	train, test := t.data.split(holdout)
	if len(train) == 0 {
		return nil, errors.New(errors.KindEmptyData, "every instance is in holdout group %d", holdout)
	}

	start := time.Now()
	ds := t.data
	m := generateFeatures(train, ds.labels.len(), ds.attrs.len(), t.params.featureOptions())
	items := 0
	for _, seq := range train {
		items += seq.len()
	}
	t.logger.Info("feature generation",
		"algorithm", t.algorithm.String(),
		"instances", len(train),
		"items", items,
		"features", len(m.features),
		"labels", ds.labels.len(),
		"attributes", ds.attrs.len(),
	)

	tc := &trainContext{
		model:  m,
		logger: t.logger,
		params: t.params,
		rng:    newRand(),
		seqs:   train,
		items:  items,
	}
	w, stats, err := trainers[t.algorithm](tc)
	if err != nil {
		return nil, err
	}
	if !allFinite(w) {
		return nil, errors.New(errors.KindNotConverged, "%s produced non-finite feature weights", t.algorithm)
	}

	model := buildModel(ds, m, w)
	report := entities.TrainingReport{
		StartedAt:  start,
		Algorithm:  t.algorithm,
		Loss:       stats.loss,
		Instances:  len(train),
		Iterations: stats.iterations,
		Features:   model.NumFeatures(),
		Labels:     len(model.labels),
		Attributes: model.attrs.len(),
	}
	if len(test) > 0 {
		ev := evaluate(m, w, test)
		report.Holdout = &ev
		t.logger.Info("holdout evaluation",
			"group", holdout,
			"item_accuracy", ev.ItemAccuracy(),
			"instance_accuracy", ev.InstanceAccuracy(),
			"items", ev.Items,
			"instances", ev.Instances,
		)
	}

	data, err := model.MarshalBinary()
	if err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	t.logger.Info("training finished",
		"algorithm", t.algorithm.String(),
		"loss", stats.loss,
		"iterations", stats.iterations,
		"features", report.Features,
		"duration", report.Duration,
	)
	return &ports.TrainResult{Model: data, Report: report}, nil
}

// evaluate tags seqs with w and counts correct items and sequences.
func evaluate(m *crf1d, w []float64, seqs []*sequence) entities.Evaluation {
	lat := newLattice(m.numLabels)
	var ev entities.Evaluation
	for _, seq := range seqs {
		path := make([]int, seq.len())
		lat.setWeights(m, seq, w, 1)
		lat.viterbi(path)
		errs := countErrors(path, seq.labels)
		ev.Instances++
		ev.Items += seq.len()
		ev.CorrectItems += seq.len() - errs
		if errs == 0 {
			ev.CorrectInstances++
		}
	}
	return ev
}
