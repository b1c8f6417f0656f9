// Package testutil provides common fixtures and assertions for tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// LiveCounter reports live allocations, as abi.Heap does.
type LiveCounter interface {
	Stats() (count, bytes int)
}

// AssertNoLeak asserts that mem holds exactly the allocations it held when
// baseline was taken.
func AssertNoLeak(t *testing.T, mem LiveCounter, baseline Baseline, msgAndArgs ...interface{}) {
	t.Helper()

	count, bytes := mem.Stats()
	assert.Equal(t, baseline.Count, count, msgAndArgs...)
	assert.Equal(t, baseline.Bytes, bytes, msgAndArgs...)
}

// Baseline is a snapshot of live allocations.
type Baseline struct {
	Count int
	Bytes int
}

// TakeBaseline snapshots the live allocations of mem.
func TakeBaseline(mem LiveCounter) Baseline {
	count, bytes := mem.Stats()
	return Baseline{Count: count, Bytes: bytes}
}

// AssertProbability asserts that p is a probability.
func AssertProbability(t *testing.T, p float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.GreaterOrEqual(t, p, 0.0, msgAndArgs...)
	assert.LessOrEqual(t, p, 1.0+1e-9, msgAndArgs...)
}
