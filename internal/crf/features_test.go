package crf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func weatherDataset(t *testing.T) *dataset {
	t.Helper()
	ds := newDataset()
	require.NoError(t, ds.append(entities.Instance{
		Items:  testutil.WeatherItems(),
		Labels: testutil.WeatherLabels(),
	}))
	return ds
}

func countKinds(m *crf1d) (states, transitions int) {
	for _, f := range m.features {
		if f.kind == featureState {
			states++
		} else {
			transitions++
		}
	}
	return states, transitions
}

func TestDictionary(t *testing.T) {
	d := newDictionary()
	assert.Equal(t, 0, d.add("a"))
	assert.Equal(t, 1, d.add("b"))
	assert.Equal(t, 0, d.add("a"))
	assert.Equal(t, 2, d.len())
	assert.Equal(t, "b", d.name(1))

	id, ok := d.id("b")
	assert.True(t, ok)
	assert.Equal(t, 1, id)
	_, ok = d.id("c")
	assert.False(t, ok)
}

func TestGenerateFeatures(t *testing.T) {
	ds := weatherDataset(t)
	train, _ := ds.split(-1)

	m := generateFeatures(train, ds.labels.len(), ds.attrs.len(), featureOptions{})
	states, transitions := countKinds(m)
	// walk, shop and clean are each seen with both labels.
	assert.Equal(t, 6, states)
	// sunny->sunny, sunny->rainy, rainy->rainy, rainy->sunny.
	assert.Equal(t, 4, transitions)

	walk, _ := ds.attrs.id("walk")
	for _, fid := range m.attrRefs[walk] {
		assert.Equal(t, walk, m.features[fid].src)
	}

	// shop occurs with rainy at 0.5 and 0.1.
	shop, _ := ds.attrs.id("shop")
	rainy, _ := ds.labels.id("rainy")
	for _, fid := range m.attrRefs[shop] {
		if m.features[fid].dst == rainy {
			assert.InDelta(t, 0.6, m.features[fid].freq, 1e-12)
		}
	}
}

func TestGenerateFeatures_MinFreq(t *testing.T) {
	ds := weatherDataset(t)
	train, _ := ds.split(-1)

	m := generateFeatures(train, ds.labels.len(), ds.attrs.len(), featureOptions{minFreq: 1})
	for _, f := range m.features {
		assert.GreaterOrEqual(t, f.freq, 1.0)
	}
	states, _ := countKinds(m)
	assert.Less(t, states, 6)
}

func TestGenerateFeatures_PossibleStatesAndTransitions(t *testing.T) {
	ds := newDataset()
	require.NoError(t, ds.append(entities.Instance{
		Items:  []entities.Item{{entities.Attr("a")}, {entities.Attr("b")}},
		Labels: []string{"x", "y"},
	}))
	require.NoError(t, ds.append(entities.Instance{
		Items:  []entities.Item{{entities.Attr("c")}},
		Labels: []string{"z"},
	}))
	train, _ := ds.split(-1)

	m := generateFeatures(train, 3, 3, featureOptions{})
	states, transitions := countKinds(m)
	assert.Equal(t, 3, states)
	assert.Equal(t, 1, transitions)

	m = generateFeatures(train, 3, 3, featureOptions{possibleStates: true, possibleTransitions: true})
	states, transitions = countKinds(m)
	assert.Equal(t, 9, states)
	assert.Equal(t, 9, transitions)
}

func TestDataset_AppendValidation(t *testing.T) {
	ds := newDataset()

	err := ds.append(entities.Instance{Items: []entities.Item{{entities.Attr("a")}}, Labels: []string{"x", "y"}})
	assert.Error(t, err)
	err = ds.append(entities.Instance{})
	assert.Error(t, err)
	err = ds.append(entities.Instance{Items: []entities.Item{{entities.Attr("")}}, Labels: []string{"x"}})
	assert.Error(t, err)
	err = ds.append(entities.Instance{Items: []entities.Item{{entities.Attr("a")}}, Labels: []string{""}})
	assert.Error(t, err)

	assert.Empty(t, ds.seqs)
	assert.Zero(t, ds.attrs.len(), "failed appends must not grow dictionaries")
	assert.Zero(t, ds.labels.len())
}

func TestDataset_Split(t *testing.T) {
	ds := newDataset()
	for _, inst := range testutil.SeparableInstances() {
		require.NoError(t, ds.append(inst))
	}

	train, test := ds.split(2)
	assert.Len(t, train, 3)
	assert.Len(t, test, 3)

	train, test = ds.split(-1)
	assert.Len(t, train, 6)
	assert.Empty(t, test)

	train, test = ds.split(7)
	assert.Len(t, train, 6)
	assert.Empty(t, test)
}
