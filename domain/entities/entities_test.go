package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		want Algorithm
	}{
		{"lbfgs", AlgorithmLBFGS},
		{"l2sgd", AlgorithmL2SGD},
		{"ap", AlgorithmAP},
		{"averaged-perceptron", AlgorithmAP},
		{"pa", AlgorithmPA},
		{"passive-aggressive", AlgorithmPA},
		{"arow", AlgorithmAROW},
		{" LBFGS ", AlgorithmLBFGS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAlgorithm("foo")
	assert.Error(t, err)
}

func TestAlgorithmString(t *testing.T) {
	assert.Equal(t, "lbfgs", AlgorithmLBFGS.String())
	assert.Equal(t, "averaged-perceptron", AlgorithmAP.String())
	assert.Equal(t, "passive-aggressive", AlgorithmPA.String())
}

func TestParseGraphicalModel(t *testing.T) {
	for _, name := range []string{"1d", "crf1d"} {
		got, err := ParseGraphicalModel(name)
		require.NoError(t, err)
		assert.Equal(t, GraphicalModelCRF1D, got)
	}
	_, err := ParseGraphicalModel("foo")
	assert.Error(t, err)
}

func TestAttr(t *testing.T) {
	assert.Equal(t, NewAttribute("foo", 1.0), Attr("foo"))
	assert.Equal(t, 0.5, NewAttribute("foo", 0.5).Value)
}

func TestErrorDetail_Error(t *testing.T) {
	var nilDetail *ErrorDetail
	assert.Equal(t, "", nilDetail.Error())

	detail := NewErrorDetail(ErrorTypeEngine, "failed to open model").
		WithCode("invalid_model").
		Wrap(NewErrorDetail(ErrorTypeIO, "no such file"))
	assert.Equal(t, "failed to open model\n  caused by: no such file", detail.Error())
	assert.Equal(t, "invalid_model", detail.Code)
}

func TestErrorDetail_ErrorCode(t *testing.T) {
	var nilDetail *ErrorDetail
	assert.Equal(t, ErrorCodeNoError, nilDetail.ErrorCode())
	assert.Equal(t, ErrorCodePanic, NewErrorDetail(ErrorTypePanic, "boom").ErrorCode())
	assert.Equal(t, ErrorCodeEngine, NewErrorDetail(ErrorTypeEngine, "bad").ErrorCode())
	assert.Equal(t, ErrorCodeEngine, NewErrorDetail(ErrorTypeIO, "io").ErrorCode())
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "no_error", ErrorCodeNoError.String())
	assert.Equal(t, "panic", ErrorCodePanic.String())
	assert.Equal(t, "engine_error", ErrorCodeEngine.String())
	assert.Equal(t, "error_code(9)", ErrorCode(9).String())
}

func TestEvaluation_Accuracy(t *testing.T) {
	assert.Zero(t, Evaluation{}.ItemAccuracy())
	assert.Zero(t, Evaluation{}.InstanceAccuracy())

	ev := Evaluation{Instances: 2, Items: 4, CorrectItems: 3, CorrectInstances: 1}
	assert.InDelta(t, 0.75, ev.ItemAccuracy(), 1e-12)
	assert.InDelta(t, 0.5, ev.InstanceAccuracy(), 1e-12)
}

func TestTrainingConfig_ApplyDefaults(t *testing.T) {
	var cfg TrainingConfig
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultAlgorithm, cfg.Algorithm)
	assert.Equal(t, DefaultModelPath, cfg.Model)

	def := DefaultTrainingConfig()
	assert.Equal(t, int32(NoHoldout), def.Holdout)

	var nilCfg *TrainingConfig
	nilCfg.ApplyDefaults()
}
