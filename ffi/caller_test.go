package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func TestCaller_InitialState(t *testing.T) {
	lib, heap := newTestLibrary(t)
	c := lib.Caller(0)

	assert.Equal(t, entities.ErrorCodeNoError, c.ErrLastCode())
	assert.Nil(t, c.ErrLastDetail())

	base := testutil.TakeBaseline(heap)
	msg := c.ErrLastMessage()
	assert.Equal(t, abi.Str{Owned: true}, msg)
	c.StrFree(&msg)
	testutil.AssertNoLeak(t, heap, base)
}

func TestCaller_FailureThenSuccess(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)

	assert.Zero(t, c.ModelOpen("/nonexistent/crfsuite.model"))
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())

	msg := lastMessage(t, c)
	assert.Contains(t, msg, "/nonexistent/crfsuite.model")
	assert.Equal(t, msg, lastMessage(t, c), "reading the message must not clear it")

	detail := c.ErrLastDetail()
	require.NotNil(t, detail)
	assert.Equal(t, entities.ErrorTypeEngine, detail.Type)
	assert.Equal(t, "io", detail.Code)
	require.NotNil(t, detail.Wrapped)
	assert.Contains(t, msg, "caused by:")

	tr := c.TrainerCreate(false)
	assert.NotZero(t, tr)
	assert.Equal(t, entities.ErrorCodeNoError, c.ErrLastCode())
	assert.Empty(t, lastMessage(t, c))
	c.TrainerDestroy(tr)
}

func TestCaller_ErrClear(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)

	c.ModelOpen("")
	require.NotEqual(t, entities.ErrorCodeNoError, c.ErrLastCode())

	c.ErrClear()
	assert.Equal(t, entities.ErrorCodeNoError, c.ErrLastCode())
	assert.Empty(t, lastMessage(t, c))
}

func TestCaller_StatePerExecutionContext(t *testing.T) {
	lib, _ := newTestLibrary(t)
	a, b := lib.Caller(1), lib.Caller(2)
	assert.Same(t, a, lib.Caller(1))

	a.ModelOpen("")
	assert.Equal(t, entities.ErrorCodeEngine, a.ErrLastCode())
	assert.Equal(t, entities.ErrorCodeNoError, b.ErrLastCode())
}

func TestCaller_ReleaseOperationsKeepErrorState(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)

	c.ModelOpen("")
	s := c.StrFromString("x")
	require.Equal(t, entities.ErrorCodeNoError, c.ErrLastCode())

	c.ModelOpen("")
	c.StrFree(&s)
	c.TagsDestroy(0)
	c.ModelDestroy(0)
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
}

func TestCaller_Fail(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(0)

	c.Fail(assert.AnError)
	assert.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
	assert.Equal(t, assert.AnError.Error(), lastMessage(t, c))
}

func TestLibrary_ReleaseCaller(t *testing.T) {
	lib, _ := newTestLibrary(t)
	c := lib.Caller(7)
	assert.Same(t, c, lib.Caller(7))

	c.ModelOpen("")
	require.Equal(t, entities.ErrorCodeEngine, c.ErrLastCode())
	assert.Equal(t, entities.ErrorCodeNoError, lib.Caller(8).ErrLastCode())

	lib.ReleaseCaller(7)
	lib.ReleaseCaller(7)
	fresh := lib.Caller(7)
	assert.NotSame(t, c, fresh)
	assert.Equal(t, entities.ErrorCodeNoError, fresh.ErrLastCode())
	assert.Nil(t, fresh.ErrLastDetail())
}
