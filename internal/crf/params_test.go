package crf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

func TestParamSet_Defaults(t *testing.T) {
	ps := newParamSet(entities.AlgorithmLBFGS)

	names := ps.names()
	require.GreaterOrEqual(t, len(names), 3)
	assert.Equal(t, []string{"feature.minfreq", "feature.possible_states", "feature.possible_transitions"}, names[:3])
	assert.Contains(t, names, "c1")
	assert.Contains(t, names, "c2")

	for _, tc := range []struct{ name, want string }{
		{"c1", "0"},
		{"c2", "1"},
		{"num_memories", "6"},
		{"epsilon", "1e-05"},
		{"linesearch", "MoreThuente"},
		{"max_iterations", "2147483647"},
	} {
		got, err := ps.get(tc.name)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestParamSet_RoundTripEveryParameter(t *testing.T) {
	for _, alg := range entities.Algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			ps := newParamSet(alg)
			for _, d := range ps.defs {
				value := "2"
				switch {
				case len(d.allowed) > 0:
					value = d.allowed[len(d.allowed)-1]
				case d.typ == paramFloat:
					value = "0.25"
				}
				require.NoError(t, ps.set(d.name, value), d.name)
				got, err := ps.get(d.name)
				require.NoError(t, err)
				assert.Equal(t, value, got, d.name)

				help, err := ps.help(d.name)
				require.NoError(t, err)
				assert.NotEmpty(t, help, d.name)
			}
		})
	}
}

func TestParamSet_Help(t *testing.T) {
	ps := newParamSet(entities.AlgorithmLBFGS)

	help, err := ps.help("c1")
	require.NoError(t, err)
	assert.Contains(t, help, "L1")

	help, err = ps.help("c2")
	require.NoError(t, err)
	assert.Contains(t, help, "L2")
}

func TestParamSet_InvalidValues(t *testing.T) {
	ps := newParamSet(entities.AlgorithmLBFGS)

	tests := []struct {
		name, param, value string
		kind               errors.Kind
	}{
		{"unknown parameter", "foo", "1", errors.KindParamNotFound},
		{"int from text", "num_memories", "many", errors.KindValueError},
		{"int from float", "num_memories", "1.5", errors.KindValueError},
		{"int overflow", "max_iterations", "4294967296", errors.KindValueError},
		{"float from text", "c2", "abc", errors.KindValueError},
		{"non-finite float", "c2", "NaN", errors.KindValueError},
		{"infinite float", "c1", "+Inf", errors.KindValueError},
		{"disallowed choice", "linesearch", "Simplex", errors.KindValueError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.set(tt.param, tt.value)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}

	got, err := ps.get("c2")
	require.NoError(t, err)
	assert.Equal(t, "1", got, "a rejected set must keep the previous value")

	_, err = ps.get("foo")
	assert.Equal(t, errors.KindParamNotFound, errors.KindOf(err))
	assert.Contains(t, err.Error(), "parameter foo not found")
}

func TestParamSet_PassiveAggressiveType(t *testing.T) {
	ps := newParamSet(entities.AlgorithmPA)
	for _, v := range []string{"0", "1", "2"} {
		assert.NoError(t, ps.set("type", v))
	}
	assert.Error(t, ps.set("type", "3"))
}

func TestParamSet_FeatureOptions(t *testing.T) {
	ps := newParamSet(entities.AlgorithmAP)
	require.NoError(t, ps.set("feature.minfreq", "2.5"))
	require.NoError(t, ps.set("feature.possible_states", "1"))

	opts := ps.featureOptions()
	assert.Equal(t, 2.5, opts.minFreq)
	assert.True(t, opts.possibleStates)
	assert.False(t, opts.possibleTransitions)
}
