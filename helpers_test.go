package crfsuite_test

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crfsuite "github.com/reglet-dev/crfsuite-go"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

func TestFormatParamValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   any
		wantVal string
		wantOK  bool
	}{
		{name: "string", value: "MoreThuente", wantVal: "MoreThuente", wantOK: true},
		{name: "int", value: 50, wantVal: "50", wantOK: true},
		{name: "int64", value: int64(-1), wantVal: "-1", wantOK: true},
		{name: "integral float", value: 2.0, wantVal: "2", wantOK: true},
		{name: "fraction", value: 0.01, wantVal: "0.01", wantOK: true},
		{name: "small float", value: 1e-5, wantVal: "1e-05", wantOK: true},
		{name: "true", value: true, wantVal: "1", wantOK: true},
		{name: "false", value: false, wantVal: "0", wantOK: true},
		{name: "list", value: []any{1}, wantOK: false},
		{name: "nil", value: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := crfsuite.FormatParamValue(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantVal, got)
		})
	}
}

func TestParamsFromMap(t *testing.T) {
	t.Parallel()

	got, err := crfsuite.ParamsFromMap(map[string]any{"c2": 0.5, "feature.minfreq": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c2": "0.5", "feature.minfreq": "2"}, got)

	_, err = crfsuite.ParamsFromMap(map[string]any{"c2": map[string]any{"x": 1}})
	require.Error(t, err)
	var ce *errors.ConfigError
	require.True(t, stdErrors.As(err, &ce))
	assert.Equal(t, "params.c2", ce.Field)
}

func TestParseParams(t *testing.T) {
	t.Parallel()

	got, err := crfsuite.ParseParams([]string{"c2=1", " max_iterations = 20 ", "c2=0.5", "linesearch="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c2": "0.5", "max_iterations": "20", "linesearch": ""}, got)
	assert.Equal(t, []string{"c2", "linesearch", "max_iterations"}, crfsuite.SortedParamNames(got))

	for _, bad := range []string{"c2", "=1", ""} {
		_, err := crfsuite.ParseParams([]string{bad})
		assert.Error(t, err, bad)
	}
}
