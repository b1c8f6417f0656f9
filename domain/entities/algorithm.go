package entities

import (
	"fmt"
	"strings"
)

// Algorithm identifies a training algorithm.
type Algorithm string

const (
	// AlgorithmLBFGS is gradient descent using the L-BFGS method.
	AlgorithmLBFGS Algorithm = "lbfgs"
	// AlgorithmL2SGD is stochastic gradient descent with an L2 regularization term.
	AlgorithmL2SGD Algorithm = "l2sgd"
	// AlgorithmAP is the averaged perceptron.
	AlgorithmAP Algorithm = "averaged-perceptron"
	// AlgorithmPA is passive aggressive.
	AlgorithmPA Algorithm = "passive-aggressive"
	// AlgorithmAROW is adaptive regularization of weight vectors.
	AlgorithmAROW Algorithm = "arow"
)

// Algorithms lists every supported algorithm in canonical form.
var Algorithms = []Algorithm{AlgorithmLBFGS, AlgorithmL2SGD, AlgorithmAP, AlgorithmPA, AlgorithmAROW}

// ParseAlgorithm maps an algorithm name or alias to its canonical form.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lbfgs":
		return AlgorithmLBFGS, nil
	case "l2sgd":
		return AlgorithmL2SGD, nil
	case "ap", "averaged-perceptron":
		return AlgorithmAP, nil
	case "pa", "passive-aggressive":
		return AlgorithmPA, nil
	case "arow":
		return AlgorithmAROW, nil
	default:
		return "", fmt.Errorf("unknown training algorithm %q", name)
	}
}

func (a Algorithm) String() string {
	return string(a)
}

// GraphicalModel identifies the graphical model a trainer optimizes.
type GraphicalModel string

// GraphicalModelCRF1D is the first-order Markov CRF with state and transition features.
const GraphicalModelCRF1D GraphicalModel = "crf1d"

// ParseGraphicalModel maps a graphical model name to its canonical form.
func ParseGraphicalModel(name string) (GraphicalModel, error) {
	switch name {
	case "1d", "crf1d":
		return GraphicalModelCRF1D, nil
	default:
		return "", fmt.Errorf("unknown graphical model %q", name)
	}
}
