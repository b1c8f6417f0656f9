package ffi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func TestTagger_TagWeather(t *testing.T) {
	lib, heap := newTestLibrary(t)
	c := lib.Caller(0)
	path := trainWeather(t, c)
	base := testutil.TakeBaseline(heap)

	m := c.ModelOpen(path)
	require.NotZero(t, m)
	tg := c.TaggerCreate(m)
	require.NotZero(t, tg)

	tags := c.TaggerTag(tg, testutil.WeatherItems())
	require.NotZero(t, tags)
	recs, err := lib.ArrayRecords(tags)
	require.NoError(t, err)
	require.Len(t, recs, 9)
	for _, r := range recs {
		assert.True(t, r.Owned)
	}
	got, err := lib.ArrayStrings(tags)
	require.NoError(t, err)
	assert.Equal(t, testutil.WeatherLabels(), got)
	c.TagsDestroy(tags)

	c.TaggerDestroy(tg)
	c.ModelDestroy(m)
	testutil.AssertNoLeak(t, heap, base)
	assert.Zero(t, lib.LiveHandles())
}

func TestTagger_FailuresKeepTaggerUsable(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)
	m := c.ModelOpen(trainWeather(t, c))
	tg := c.TaggerCreate(m)
	require.NotZero(t, tg)
	defer c.ModelDestroy(m)
	defer c.TaggerDestroy(tg)

	assert.Zero(t, c.TaggerTag(tg, nil))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())

	bad := []entities.Item{{entities.NewAttribute("walk", math.NaN())}}
	assert.Zero(t, c.TaggerTag(tg, bad))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
	assert.Equal(t, "value_error", c.ErrLastDetail().Code)

	assert.Zero(t, c.TaggerTag(tg, []entities.Item{{entities.Attr("")}}))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())

	tags := c.TaggerTag(tg, []entities.Item{{entities.Attr("unseen")}, {entities.Attr("walk")}})
	require.NotZero(t, tags)
	got, err := lib.ArrayStrings(tags)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	c.TagsDestroy(tags)
	assert.Equal(t, entities.ErrorCodeNoError, c.ErrLastCode())
}

func TestTagger_InvalidHandles(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)
	m := c.ModelOpen(trainWeather(t, c))
	require.NotZero(t, m)
	defer c.ModelDestroy(m)

	assert.Zero(t, c.TaggerCreate(0))
	assert.Contains(t, lastMessage(t, c), "invalid model handle")

	assert.Zero(t, c.TaggerTag(Handle(m), testutil.WeatherItems()), "a model handle is not a tagger")
	assert.Contains(t, lastMessage(t, c), "invalid tagger handle")

	tg := c.TaggerCreate(m)
	c.TaggerDestroy(tg)
	assert.Zero(t, c.TaggerTag(tg, testutil.WeatherItems()))
	assert.Equal(t, "invalid_handle", c.ErrLastDetail().Code)

	c.TaggerDestroy(tg)
	c.TaggerDestroy(0)
}

func TestTagger_OutlivesModelHandle(t *testing.T) {
	lib, heap := newTestLibrary(t)
	c := lib.Caller(0)
	path := trainWeather(t, c)
	base := testutil.TakeBaseline(heap)

	m := c.ModelOpen(path)
	tg := c.TaggerCreate(m)
	require.NotZero(t, tg)
	c.ModelDestroy(m)

	assert.Zero(t, c.TaggerCreate(m), "the model handle is gone")

	labels := c.TaggerLabels(tg)
	names, err := lib.ArrayStrings(labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunny", "rainy"}, names)
	c.TagsDestroy(labels)

	tags := c.TaggerTag(tg, testutil.WeatherItems())
	got, err := lib.ArrayStrings(tags)
	require.NoError(t, err)
	assert.Equal(t, testutil.WeatherLabels(), got)
	c.TagsDestroy(tags)

	c.TaggerDestroy(tg)
	testutil.AssertNoLeak(t, heap, base)
}

func TestTagger_ProbabilityAndMarginal(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)
	m := c.ModelOpen(trainWeather(t, c))
	tg := c.TaggerCreate(m)
	require.NotZero(t, tg)
	defer c.ModelDestroy(m)
	defer c.TaggerDestroy(tg)

	items := testutil.WeatherItems()
	p := c.TaggerProbability(tg, items, testutil.WeatherLabels())
	testutil.AssertProbability(t, p)
	assert.Greater(t, p, 0.0)

	sunny := c.TaggerMarginal(tg, items, "sunny", 0)
	rainy := c.TaggerMarginal(tg, items, "rainy", 0)
	assert.InDelta(t, 1.0, sunny+rainy, 1e-9)

	assert.Equal(t, -1.0, c.TaggerProbability(tg, items, []string{"sunny"}))
	assert.Contains(t, lastMessage(t, c), "|x| = 9, |y| = 1")
	assert.Equal(t, -1.0, c.TaggerMarginal(tg, items, "sunny", 9))
	assert.Contains(t, lastMessage(t, c), "the position 9 is out of range of 9")
	assert.Equal(t, -1.0, c.TaggerMarginal(tg, items, "foggy", 0))
	assert.Equal(t, -1.0, c.TaggerProbability(0, items, testutil.WeatherLabels()))

	assert.Zero(t, c.TaggerProbability(tg, nil, nil))
	assert.Equal(t, entities.ErrorCodeNoError, c.ErrLastCode())
}
