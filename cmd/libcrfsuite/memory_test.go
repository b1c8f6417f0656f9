//go:build cgo && unix

package main

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/ffi"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func TestCMemory_ReadWrite(t *testing.T) {
	m := newCMemory()

	ptr, err := m.Allocate(6)
	require.NoError(t, err)
	require.NotZero(t, ptr)
	require.True(t, m.Write(ptr, []byte("sunny\x00")))

	b, ok := m.Read(ptr, 5)
	require.True(t, ok)
	assert.Equal(t, "sunny", string(b))

	s, ok := m.ReadCString(ptr)
	require.True(t, ok)
	assert.Equal(t, "sunny", s)

	count, bytes := m.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, 6, bytes)

	m.Deallocate(ptr)
	m.Deallocate(ptr)
	count, _ = m.Stats()
	assert.Zero(t, count)
}

func TestCMemory_NullAddress(t *testing.T) {
	m := newCMemory()
	_, ok := m.Read(0, 1)
	assert.False(t, ok)
	assert.False(t, m.Write(0, []byte{1}))
	_, ok = m.ReadCString(0)
	assert.False(t, ok)
	m.Deallocate(0)
}

func TestCMemory_TrainAndTag(t *testing.T) {
	m := newCMemory()
	lib := ffi.New(ffi.WithMemory(m, abi.HostLayout))
	c := lib.Caller(threadID())
	base := testutil.TakeBaseline(m)

	items := testutil.WeatherItems()
	labels := testutil.WeatherLabels()
	arena := abi.NewArena(m)
	xseq, err := arena.Items(abi.HostLayout, items)
	require.NoError(t, err)
	yseq, err := arena.Strings(abi.HostLayout, labels)
	require.NoError(t, err)

	tr := c.TrainerCreate(false)
	require.True(t, c.TrainerSelect(tr, "lbfgs"))
	require.True(t, c.TrainerAppendRecords(tr, xseq, uint64(len(items)), yseq, uint64(len(labels)), 0))
	path := t.TempDir() + "/weather.model"
	require.True(t, c.TrainerTrain(tr, path, -1), c.ErrLastDetail())
	c.TrainerDestroy(tr)

	model := c.ModelOpen(path)
	tagger := c.TaggerCreate(model)
	tags := c.TaggerTagRecords(tagger, xseq, uint64(len(items)))
	require.NotZero(t, tags)
	got, err := lib.ArrayStrings(tags)
	require.NoError(t, err)
	assert.Equal(t, labels, got)

	c.TagsDestroy(tags)
	c.TaggerDestroy(tagger)
	c.ModelDestroy(model)
	arena.Free()
	testutil.AssertNoLeak(t, m, base)
}

func TestCBytes(t *testing.T) {
	m := newCMemory()
	c := ffi.New(ffi.WithMemory(m, abi.HostLayout)).Caller(threadID())

	ptr, err := m.Allocate(5)
	require.NoError(t, err)
	defer m.Deallocate(ptr)
	require.True(t, m.Write(ptr, []byte("rainy")))

	b, ok := cBytes(c, pointer(ptr), 5)
	require.True(t, ok)
	assert.Equal(t, "rainy", string(b))

	b, ok = cBytes(c, nil, 0)
	require.True(t, ok)
	assert.Empty(t, b)

	tests := []struct {
		name string
		data uint64
		n    uint64
		want string
	}{
		{name: "null buffer", data: 0, n: 3, want: "NULL buffer"},
		{name: "length over int32", data: ptr, n: 1 << 31, want: "exceeds"},
		{name: "length over uint32", data: ptr, n: 1<<32 + 5, want: "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.ErrClear()
			assert.NotPanics(t, func() {
				_, ok := cBytes(c, pointer(tt.data), tt.n)
				assert.False(t, ok)
			})
			detail := c.ErrLastDetail()
			require.NotNil(t, detail)
			assert.Equal(t, "invalid_argument", detail.Code)
			assert.Contains(t, detail.Message, tt.want)
		})
	}
}

func TestThreadRelease(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c := caller()
	c.Fail(errors.New(errors.KindInvalidArgument, "path is NULL"))
	require.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())

	crfsuite_thread_release()
	fresh := caller()
	assert.NotSame(t, c, fresh)
	assert.Equal(t, entities.ErrorCodeNoError, fresh.ErrLastCode())
}
