package crf

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func newSeparableTrainer(t *testing.T, alg entities.Algorithm) *Trainer {
	t.Helper()
	tr := NewTrainer(nil)
	require.NoError(t, tr.Select(alg))
	for _, inst := range testutil.SeparableInstances() {
		require.NoError(t, tr.Append(inst))
	}
	return tr
}

func openTagger(t *testing.T, data []byte) *Tagger {
	t.Helper()
	m, err := Decode(data)
	require.NoError(t, err)
	tg, err := m.NewTagger()
	require.NoError(t, err)
	return tg.(*Tagger)
}

func TestTrainer_Errors(t *testing.T) {
	tr := NewTrainer(nil)

	_, err := tr.Train(-1)
	assert.ErrorIs(t, err, errors.ErrAlgorithmNotSelected)
	assert.ErrorIs(t, tr.Set("c2", "1"), errors.ErrAlgorithmNotSelected)
	_, err = tr.Get("c2")
	assert.ErrorIs(t, err, errors.ErrAlgorithmNotSelected)
	_, err = tr.Help("c2")
	assert.ErrorIs(t, err, errors.ErrAlgorithmNotSelected)
	assert.Empty(t, tr.Params())
	_, ok := tr.Algorithm()
	assert.False(t, ok)

	assert.Error(t, tr.Select("crf2d"))

	require.NoError(t, tr.Select(entities.AlgorithmLBFGS))
	_, err = tr.Train(-1)
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	require.NoError(t, tr.Append(entities.Instance{
		Items:  []entities.Item{{entities.Attr("a")}},
		Labels: []string{"x"},
		Group:  3,
	}))
	_, err = tr.Train(3)
	assert.Equal(t, errors.KindEmptyData, errors.KindOf(err))
}

func TestTrainer_SelectResetsParameters(t *testing.T) {
	tr := NewTrainer(nil)
	require.NoError(t, tr.Select(entities.AlgorithmLBFGS))
	require.NoError(t, tr.Set("c2", "0.5"))

	require.NoError(t, tr.Select(entities.AlgorithmLBFGS))
	v, err := tr.Get("c2")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, tr.Select(entities.AlgorithmAP))
	_, err = tr.Get("c2")
	assert.Equal(t, errors.KindParamNotFound, errors.KindOf(err))
	alg, ok := tr.Algorithm()
	assert.True(t, ok)
	assert.Equal(t, entities.AlgorithmAP, alg)
}

func TestTrainer_AppendAndClear(t *testing.T) {
	tr := newSeparableTrainer(t, entities.AlgorithmAP)
	assert.Equal(t, 6, tr.NumInstances())

	err := tr.Append(entities.Instance{Items: []entities.Item{{}}, Labels: nil})
	assert.Equal(t, errors.KindLengthMismatch, errors.KindOf(err))
	assert.Equal(t, 6, tr.NumInstances())

	tr.Clear()
	assert.Zero(t, tr.NumInstances())
	_, err = tr.Train(-1)
	assert.ErrorIs(t, err, errors.ErrEmptyData)
}

func TestTrainer_WeatherReproducesLabels(t *testing.T) {
	var logs bytes.Buffer
	tr := NewTrainer(slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, tr.Select(entities.AlgorithmLBFGS))
	require.NoError(t, tr.Set("c2", "0.01"))
	require.NoError(t, tr.Append(entities.Instance{
		Items:  testutil.WeatherItems(),
		Labels: testutil.WeatherLabels(),
	}))

	res, err := tr.Train(-1)
	require.NoError(t, err)
	require.NotEmpty(t, res.Model)
	assert.Equal(t, entities.AlgorithmLBFGS, res.Report.Algorithm)
	assert.Equal(t, 1, res.Report.Instances)
	assert.Positive(t, res.Report.Iterations)
	assert.Equal(t, 2, res.Report.Labels)
	assert.Nil(t, res.Report.Holdout)

	tg := openTagger(t, res.Model)
	got, err := tg.Tag(testutil.WeatherItems())
	require.NoError(t, err)
	assert.Equal(t, testutil.WeatherLabels(), got)

	assert.Contains(t, logs.String(), "feature generation")
	assert.Contains(t, logs.String(), "training finished")
}

func TestTrainer_EveryAlgorithmFitsSeparableData(t *testing.T) {
	params := map[entities.Algorithm]map[string]string{
		entities.AlgorithmLBFGS: {"c2": "0.1"},
		entities.AlgorithmL2SGD: {"c2": "0.1", "max_iterations": "50"},
		entities.AlgorithmAP:    {"max_iterations": "50"},
		entities.AlgorithmPA:    {"max_iterations": "50"},
		entities.AlgorithmAROW:  {"max_iterations": "50"},
	}
	for _, alg := range entities.Algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			tr := newSeparableTrainer(t, alg)
			for k, v := range params[alg] {
				require.NoError(t, tr.Set(k, v))
			}

			res, err := tr.Train(-1)
			require.NoError(t, err)

			tg := openTagger(t, res.Model)
			for _, inst := range testutil.SeparableInstances() {
				got, err := tg.Tag(inst.Items)
				require.NoError(t, err)
				assert.Equal(t, inst.Labels, got)
			}
		})
	}
}

func TestTrainer_Deterministic(t *testing.T) {
	train := func() []byte {
		tr := newSeparableTrainer(t, entities.AlgorithmL2SGD)
		require.NoError(t, tr.Set("max_iterations", "5"))
		res, err := tr.Train(-1)
		require.NoError(t, err)
		return res.Model
	}
	assert.Equal(t, train(), train())
}

func TestTrainer_Holdout(t *testing.T) {
	tr := newSeparableTrainer(t, entities.AlgorithmAP)
	require.NoError(t, tr.Set("max_iterations", "50"))

	res, err := tr.Train(2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Report.Instances)
	require.NotNil(t, res.Report.Holdout)

	ev := res.Report.Holdout
	assert.Equal(t, 3, ev.Instances)
	assert.Equal(t, 10, ev.Items)
	assert.LessOrEqual(t, ev.CorrectItems, ev.Items)
	assert.LessOrEqual(t, ev.CorrectInstances, ev.Instances)
	assert.InDelta(t, float64(ev.CorrectItems)/10, ev.ItemAccuracy(), 1e-12)
}

func TestTrainer_MinFreqDropsRareFeatures(t *testing.T) {
	tr := newSeparableTrainer(t, entities.AlgorithmLBFGS)
	res, err := tr.Train(-1)
	require.NoError(t, err)

	tr = newSeparableTrainer(t, entities.AlgorithmLBFGS)
	require.NoError(t, tr.Set("feature.minfreq", "5"))
	pruned, err := tr.Train(-1)
	require.NoError(t, err)

	assert.Less(t, pruned.Report.Features, res.Report.Features)
}
