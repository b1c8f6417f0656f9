package crf

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// trainContext is what every training algorithm receives.
type trainContext struct {
	model  *crf1d
	logger *slog.Logger
	params *paramSet
	rng    *rand.Rand
	seqs   []*sequence
	items  int
}

// trainStats summarizes a finished optimization.
type trainStats struct {
	loss       float64
	iterations int
}

type trainFunc func(tc *trainContext) ([]float64, trainStats, error)

var trainers = map[entities.Algorithm]trainFunc{
	entities.AlgorithmLBFGS: trainLBFGS,
	entities.AlgorithmL2SGD: trainL2SGD,
	entities.AlgorithmAP:    trainAveragedPerceptron,
	entities.AlgorithmPA:    trainPassiveAggressive,
	entities.AlgorithmAROW:  trainAROW,
}

// newRand returns the deterministic generator used for shuffling.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(0x63726673, 0x75697465))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm2(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

func allFinite(w []float64) bool {
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// countErrors returns the number of positions where a and b differ.
func countErrors(a, b []int) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

// sparseVector accumulates a sparse difference of feature vectors.
type sparseVector struct {
	vals []float64
	used []bool
	idx  []int
}

func newSparseVector(n int) *sparseVector {
	return &sparseVector{vals: make([]float64, n), used: make([]bool, n)}
}

func (s *sparseVector) add(fid int, v float64) {
	if !s.used[fid] {
		s.used[fid] = true
		s.idx = append(s.idx, fid)
	}
	s.vals[fid] += v
}

func (s *sparseVector) reset() {
	for _, fid := range s.idx {
		s.vals[fid] = 0
		s.used[fid] = false
	}
	s.idx = s.idx[:0]
}

func (s *sparseVector) norm2() float64 {
	var n float64
	for _, fid := range s.idx {
		n += s.vals[fid] * s.vals[fid]
	}
	return n
}

// diff fills s with the features of the gold path minus those of path.
func (s *sparseVector) diff(m *crf1d, seq *sequence, path []int) {
	s.reset()
	m.pathFeatures(seq, seq.labels, func(fid int, v float64) { s.add(fid, v) })
	m.pathFeatures(seq, path, func(fid int, v float64) { s.add(fid, -v) })
}

// averager keeps the running sum needed for averaged weights.
type averager struct {
	w  []float64
	ws []float64
	c  float64
}

func newAverager(n int) *averager {
	return &averager{w: make([]float64, n), ws: make([]float64, n), c: 1}
}

func (a *averager) update(fid int, delta float64) {
	a.w[fid] += delta
	a.ws[fid] += a.c * delta
}

func (a *averager) tick() {
	a.c++
}

func (a *averager) average() []float64 {
	out := make([]float64, len(a.w))
	for i := range out {
		out[i] = a.w[i] - a.ws[i]/a.c
	}
	return out
}
