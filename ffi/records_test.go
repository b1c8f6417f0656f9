package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func TestRecords_TrainAndTagThroughBoundaryMemory(t *testing.T) {
	layouts := map[string]abi.Layout{"c64": abi.Layout64, "wasm32": abi.Layout32}
	for name, layout := range layouts {
		t.Run(name, func(t *testing.T) {
			heap := abi.NewHeap()
			lib := New(WithMemory(heap, layout))
			c := lib.Caller(0)
			base := testutil.TakeBaseline(heap)

			items := testutil.WeatherItems()
			labels := testutil.WeatherLabels()
			arena := abi.NewArena(heap)
			xseq, err := arena.Items(layout, items)
			require.NoError(t, err)
			yseq, err := arena.Strings(layout, labels)
			require.NoError(t, err)

			tr := c.TrainerCreate(false)
			require.True(t, c.TrainerSelect(tr, "lbfgs"))
			require.True(t, c.TrainerSet(tr, "c2", "0.01"))
			assert.False(t, c.TrainerAppendRecords(tr, xseq, 9, yseq, 8, 0))
			assert.Equal(t, "length_mismatch", c.ErrLastDetail().Code)
			require.True(t, c.TrainerAppendRecords(tr, xseq, 9, yseq, 9, 0), c.ErrLastDetail().Error())

			path := t.TempDir() + "/records.model"
			require.True(t, c.TrainerTrain(tr, path, -1))
			c.TrainerDestroy(tr)

			m := c.ModelOpen(path)
			tg := c.TaggerCreate(m)
			require.NotZero(t, tg)

			tags := c.TaggerTagRecords(tg, xseq, 9)
			got, err := lib.ArrayStrings(tags)
			require.NoError(t, err)
			assert.Equal(t, labels, got)
			c.TagsDestroy(tags)

			p := c.TaggerProbabilityRecords(tg, xseq, 9, yseq, 9)
			assert.InDelta(t, c.TaggerProbability(tg, items, labels), p, 1e-12)
			mg := c.TaggerMarginalRecords(tg, xseq, 9, "rainy", 3)
			assert.InDelta(t, c.TaggerMarginal(tg, items, "rainy", 3), mg, 1e-12)

			c.TaggerDestroy(tg)
			c.ModelDestroy(m)
			arena.Free()
			testutil.AssertNoLeak(t, heap, base)
		})
	}
}

func TestRecords_BadAddressesAreEngineErrors(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)
	tr := c.TrainerCreate(false)
	defer c.TrainerDestroy(tr)

	assert.False(t, c.TrainerAppendRecords(tr, 0xdead0000, 2, 0xbeef0000, 2, 0))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
	assert.Zero(t, c.TrainerNumInstances(tr))

	m := c.ModelOpen(trainWeather(t, c))
	tg := c.TaggerCreate(m)
	defer c.ModelDestroy(m)
	defer c.TaggerDestroy(tg)

	assert.Zero(t, c.TaggerTagRecords(tg, 0xdead0000, 3))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
	assert.Zero(t, c.TaggerTagRecords(tg, 0, 0), "an empty sequence is rejected")
}
