package crf

import (
	"math"
	"strconv"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

// Parameter value types as reported by ParamInfo.
const (
	paramInt    = "int"
	paramFloat  = "float"
	paramString = "string"
)

type paramDef struct {
	name    string
	typ     string
	def     string
	help    string
	allowed []string
}

var featureParams = []paramDef{
	{name: "feature.minfreq", typ: paramFloat, def: "0", help: "The minimum frequency of features."},
	{name: "feature.possible_states", typ: paramInt, def: "0", help: "Force to generate possible state features."},
	{name: "feature.possible_transitions", typ: paramInt, def: "0", help: "Force to generate possible transition features."},
}

var maxIterationsDefault = strconv.Itoa(math.MaxInt32)

var algorithmParams = map[entities.Algorithm][]paramDef{
	entities.AlgorithmLBFGS: {
		{name: "c1", typ: paramFloat, def: "0", help: "Coefficient for L1 regularization."},
		{name: "c2", typ: paramFloat, def: "1", help: "Coefficient for L2 regularization."},
		{name: "num_memories", typ: paramInt, def: "6", help: "The number of limited memories for approximating the inverse hessian matrix."},
		{name: "max_iterations", typ: paramInt, def: maxIterationsDefault, help: "The maximum number of iterations for L-BFGS optimization."},
		{name: "epsilon", typ: paramFloat, def: "1e-05", help: "Epsilon for testing the convergence of the objective."},
		{name: "period", typ: paramInt, def: "10", help: "The duration of iterations to test the stopping criterion."},
		{name: "delta", typ: paramFloat, def: "1e-05", help: "The threshold for the stopping criterion; an L-BFGS iteration stops when the improvement of the log likelihood over the last ${period} iterations is no greater than this threshold."},
		{
			name: "linesearch", typ: paramString, def: "MoreThuente",
			help:    "The line search algorithm used in L-BFGS updates: MoreThuente, Backtracking or StrongBacktracking.",
			allowed: []string{"MoreThuente", "Backtracking", "StrongBacktracking"},
		},
		{name: "max_linesearch", typ: paramInt, def: "20", help: "The maximum number of trials for the line search algorithm."},
	},
	entities.AlgorithmL2SGD: {
		{name: "c2", typ: paramFloat, def: "1", help: "Coefficient for L2 regularization."},
		{name: "max_iterations", typ: paramInt, def: "1000", help: "The maximum number of iterations (epochs) for SGD optimization."},
		{name: "period", typ: paramInt, def: "10", help: "The duration of iterations to test the stopping criterion."},
		{name: "delta", typ: paramFloat, def: "1e-06", help: "The threshold for the stopping criterion; an optimization process stops when the improvement of the log likelihood over the last ${period} iterations is no greater than this threshold."},
		{name: "calibration.eta", typ: paramFloat, def: "0.1", help: "The initial value of learning rate (eta) used for calibration."},
		{name: "calibration.rate", typ: paramFloat, def: "2", help: "The rate of increase/decrease of learning rate for calibration."},
		{name: "calibration.samples", typ: paramInt, def: "1000", help: "The number of instances used for calibration."},
		{name: "calibration.candidates", typ: paramInt, def: "10", help: "The number of candidates of learning rate."},
		{name: "calibration.max_trials", typ: paramInt, def: "20", help: "The maximum number of trials of learning rates for calibration."},
	},
	entities.AlgorithmAP: {
		{name: "max_iterations", typ: paramInt, def: "100", help: "The maximum number of iterations."},
		{name: "epsilon", typ: paramFloat, def: "0", help: "The stopping criterion (the ratio of incorrect label predictions)."},
	},
	entities.AlgorithmPA: {
		{name: "type", typ: paramInt, def: "1", help: "The strategy for updating feature weights: 0 is PA without slack variables, 1 is PA type I, 2 is PA type II.", allowed: []string{"0", "1", "2"}},
		{name: "c", typ: paramFloat, def: "1", help: "The aggressiveness parameter."},
		{name: "error_sensitive", typ: paramInt, def: "1", help: "Consider the number of incorrect labels to the cost function."},
		{name: "averaging", typ: paramInt, def: "1", help: "Compute the average of feature weights (similarly to Averaged Perceptron)."},
		{name: "max_iterations", typ: paramInt, def: "100", help: "The maximum number of iterations."},
		{name: "epsilon", typ: paramFloat, def: "0", help: "The stopping criterion (the mean loss)."},
	},
	entities.AlgorithmAROW: {
		{name: "variance", typ: paramFloat, def: "1", help: "The initial variance of every feature weight."},
		{name: "gamma", typ: paramFloat, def: "1", help: "Tradeoff parameter."},
		{name: "max_iterations", typ: paramInt, def: "100", help: "The maximum number of iterations."},
		{name: "epsilon", typ: paramFloat, def: "0", help: "The stopping criterion (the mean loss)."},
	},
}

// paramSet holds the parameters of one algorithm as the strings they were
// set from, so a get returns exactly what the last set stored.
type paramSet struct {
	values map[string]string
	defs   []paramDef
}

func newParamSet(alg entities.Algorithm) *paramSet {
	defs := make([]paramDef, 0, len(featureParams)+len(algorithmParams[alg]))
	defs = append(defs, featureParams...)
	defs = append(defs, algorithmParams[alg]...)
	ps := &paramSet{defs: defs, values: make(map[string]string, len(defs))}
	for _, d := range defs {
		ps.values[d.name] = d.def
	}
	return ps
}

func (ps *paramSet) def(name string) (paramDef, error) {
	for _, d := range ps.defs {
		if d.name == name {
			return d, nil
		}
	}
	return paramDef{}, errors.ParamNotFound(name)
}

func (ps *paramSet) names() []string {
	out := make([]string, len(ps.defs))
	for i, d := range ps.defs {
		out[i] = d.name
	}
	return out
}

func (ps *paramSet) info() []ports.ParamInfo {
	out := make([]ports.ParamInfo, len(ps.defs))
	for i, d := range ps.defs {
		out[i] = ports.ParamInfo{Name: d.name, Type: d.typ, Default: d.def, Help: d.help}
	}
	return out
}

func (ps *paramSet) set(name, value string) error {
	d, err := ps.def(name)
	if err != nil {
		return err
	}
	switch d.typ {
	case paramInt:
		if _, err := strconv.ParseInt(value, 10, 32); err != nil {
			return errors.Wrap(errors.KindValueError, err, "parameter %s expects an integer", name)
		}
	case paramFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Wrap(errors.KindValueError, err, "parameter %s expects a number", name)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New(errors.KindValueError, "parameter %s expects a finite number", name)
		}
	}
	if len(d.allowed) > 0 {
		ok := false
		for _, a := range d.allowed {
			if a == value {
				ok = true
				break
			}
		}
		if !ok {
			return errors.New(errors.KindValueError, "parameter %s does not accept %q", name, value)
		}
	}
	ps.values[name] = value
	return nil
}

func (ps *paramSet) get(name string) (string, error) {
	if _, err := ps.def(name); err != nil {
		return "", err
	}
	return ps.values[name], nil
}

func (ps *paramSet) help(name string) (string, error) {
	d, err := ps.def(name)
	if err != nil {
		return "", err
	}
	return d.help, nil
}

// intValue returns an integer parameter. Values were validated by set.
func (ps *paramSet) intValue(name string) int {
	v, _ := strconv.ParseInt(ps.values[name], 10, 32)
	return int(v)
}

func (ps *paramSet) floatValue(name string) float64 {
	v, _ := strconv.ParseFloat(ps.values[name], 64)
	return v
}

func (ps *paramSet) stringValue(name string) string {
	return ps.values[name]
}

func (ps *paramSet) featureOptions() featureOptions {
	return featureOptions{
		minFreq:             ps.floatValue("feature.minfreq"),
		possibleStates:      ps.intValue("feature.possible_states") != 0,
		possibleTransitions: ps.intValue("feature.possible_transitions") != 0,
	}
}
