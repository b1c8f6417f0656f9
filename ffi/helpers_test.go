package ffi

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func newTestLibrary(t *testing.T, opts ...Option) (*Library, *abi.Heap) {
	t.Helper()
	heap := abi.NewHeap()
	opts = append([]Option{WithMemory(heap, abi.HostLayout)}, opts...)
	return New(opts...), heap
}

// trainWeather trains the weather model and returns its path.
func trainWeather(t *testing.T, c *Caller) string {
	t.Helper()
	tr := c.TrainerCreate(false)
	require.NotZero(t, tr)
	require.True(t, c.TrainerSelect(tr, "lbfgs"))
	require.True(t, c.TrainerSet(tr, "c2", "0.01"))
	require.True(t, c.TrainerAppend(tr, testutil.WeatherItems(), testutil.WeatherLabels(), 0))

	path := filepath.Join(t.TempDir(), "weather.model")
	require.True(t, c.TrainerTrain(tr, path, -1), c.ErrLastDetail().Error())
	c.TrainerDestroy(tr)
	return path
}

// lastMessage reads and frees the caller's error message.
func lastMessage(t *testing.T, c *Caller) string {
	t.Helper()
	s := c.ErrLastMessage()
	msg, err := c.Library().StrString(s)
	require.NoError(t, err)
	c.StrFree(&s)
	return msg
}
