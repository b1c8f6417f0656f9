package ffi

import (
	"bytes"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, stdErrors.New("disk full")
}

func TestModelOpen_Invalid(t *testing.T) {
	lib, heap := newTestLibrary(t)
	c := lib.Caller(0)
	dir := t.TempDir()
	valid, err := os.ReadFile(trainWeather(t, c))
	require.NoError(t, err)
	base := testutil.TakeBaseline(heap)

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"bad magic", append([]byte("XCRF"), valid[4:]...), "magic"},
		{"header only", valid[:48], "header"},
		{"short", []byte("lC"), "magic"},
		{"truncated", valid[:len(valid)-8], "size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.data, 0o600))

			assert.Zero(t, c.ModelOpen(path))
			assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
			assert.Contains(t, lastMessage(t, c), tt.msg)

			assert.Zero(t, c.ModelFromBytes(tt.data))
			assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
		})
	}
	testutil.AssertNoLeak(t, heap, base)
	assert.Zero(t, lib.LiveHandles())
}

func TestModel_LabelsAreBorrowed(t *testing.T) {
	lib, heap := newTestLibrary(t)
	c := lib.Caller(0)
	path := trainWeather(t, c)
	base := testutil.TakeBaseline(heap)

	m := c.ModelOpen(path)
	require.NotZero(t, m)

	labels := c.ModelLabels(m)
	require.NotZero(t, labels)
	recs, err := lib.ArrayRecords(labels)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.False(t, r.Owned)
	}
	names, err := lib.ArrayStrings(labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunny", "rainy"}, names)

	c.TagsDestroy(labels)
	names, err = lib.ArrayStrings(c.ModelLabels(m))
	require.NoError(t, err)
	assert.Equal(t, []string{"sunny", "rainy"}, names, "destroying the array must not free borrowed labels")

	c.ModelDestroy(m)
	c.ModelDestroy(m)
	c.ModelDestroy(0)
	assert.Zero(t, lib.LiveHandles())

	// The second labels header was never destroyed.
	count, _ := heap.Stats()
	assert.Equal(t, base.Count+2, count)
}

func TestModelFromBytes(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)
	data, err := os.ReadFile(trainWeather(t, c))
	require.NoError(t, err)

	m := c.ModelFromBytes(data)
	require.NotZero(t, m)
	for i := range data {
		data[i] = 0
	}

	tg := c.TaggerCreate(m)
	require.NotZero(t, tg)
	tags := c.TaggerTag(tg, testutil.WeatherItems())
	got, err := lib.ArrayStrings(tags)
	require.NoError(t, err)
	assert.Equal(t, testutil.WeatherLabels(), got)
	c.TagsDestroy(tags)
	c.TaggerDestroy(tg)
	c.ModelDestroy(m)
}

func TestModelDump(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)
	m := c.ModelOpen(trainWeather(t, c))
	require.NotZero(t, m)
	defer c.ModelDestroy(m)

	var buf bytes.Buffer
	require.True(t, c.ModelDump(m, &buf))
	for _, section := range []string{"FILEHEADER", "LABELS", "ATTRIBUTES", "TRANSITIONS", "STATE_FEATURES"} {
		assert.Contains(t, buf.String(), section)
	}

	assert.False(t, c.ModelDump(m, failingWriter{}))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
	assert.Contains(t, lastMessage(t, c), "disk full")

	buf.Reset()
	assert.True(t, c.ModelDump(m, &buf), "the handle survives a failed dump")
	assert.NotEmpty(t, buf.String())

	assert.False(t, c.ModelDump(m, nil))
	assert.False(t, c.ModelDump(0, &buf))

	buf.Reset()
	require.True(t, c.ModelDumpYAML(m, &buf))
	assert.Contains(t, buf.String(), "labels:")
	assert.Contains(t, buf.String(), "magic: lCRF")
}
