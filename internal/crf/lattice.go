package crf

import "math"

// lattice holds the log potentials and forward-backward scores of one
// sequence. Buffers are reused across sequences of any length.
type lattice struct {
	state  []float64 // T x L
	trans  []float64 // L x L
	alpha  []float64 // T x L
	beta   []float64 // T x L
	back   []int     // T x L
	scores []float64 // L
	logZ   float64
	t      int
	l      int
}

func newLattice(numLabels int) *lattice {
	return &lattice{
		l:      numLabels,
		trans:  make([]float64, numLabels*numLabels),
		scores: make([]float64, numLabels),
	}
}

func grow(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// reset sizes the lattice for a sequence of length t.
func (lat *lattice) reset(t int) {
	lat.t = t
	n := t * lat.l
	lat.state = grow(lat.state, n)
	lat.alpha = grow(lat.alpha, n)
	lat.beta = grow(lat.beta, n)
	if cap(lat.back) < n {
		lat.back = make([]int, n)
	}
	lat.back = lat.back[:n]
}

// setWeights fills the state and transition potentials of seq under w,
// scaled by scale.
func (lat *lattice) setWeights(m *crf1d, seq *sequence, w []float64, scale float64) {
	lat.reset(seq.len())
	L := lat.l
	for t, item := range seq.items {
		row := lat.state[t*L : (t+1)*L]
		for _, av := range item {
			for _, fid := range m.attrRefs[av.id] {
				row[m.features[fid].dst] += w[fid] * av.value * scale
			}
		}
	}
	clear(lat.trans)
	for i := 0; i < L; i++ {
		for _, fid := range m.labelRefs[i] {
			lat.trans[i*L+m.features[fid].dst] += w[fid] * scale
		}
	}
}

// logSumExp returns log(sum(exp(xs))) without overflow.
func logSumExp(xs []float64) float64 {
	maxVal := math.Inf(-1)
	for _, x := range xs {
		if x > maxVal {
			maxVal = x
		}
	}
	if math.IsInf(maxVal, -1) {
		return maxVal
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - maxVal)
	}
	return maxVal + math.Log(sum)
}

// forwardBackward computes alpha, beta and the log partition factor.
func (lat *lattice) forwardBackward() {
	L, T := lat.l, lat.t
	copy(lat.alpha[:L], lat.state[:L])
	for t := 1; t < T; t++ {
		for j := 0; j < L; j++ {
			for i := 0; i < L; i++ {
				lat.scores[i] = lat.alpha[(t-1)*L+i] + lat.trans[i*L+j]
			}
			lat.alpha[t*L+j] = logSumExp(lat.scores) + lat.state[t*L+j]
		}
	}
	lat.logZ = logSumExp(lat.alpha[(T-1)*L : T*L])

	for i := 0; i < L; i++ {
		lat.beta[(T-1)*L+i] = 0
	}
	for t := T - 2; t >= 0; t-- {
		for i := 0; i < L; i++ {
			for j := 0; j < L; j++ {
				lat.scores[j] = lat.trans[i*L+j] + lat.state[(t+1)*L+j] + lat.beta[(t+1)*L+j]
			}
			lat.beta[t*L+i] = logSumExp(lat.scores)
		}
	}
}

// stateMarginal is p(y_t = j | x). Requires forwardBackward.
func (lat *lattice) stateMarginal(t, j int) float64 {
	L := lat.l
	return math.Exp(lat.alpha[t*L+j] + lat.beta[t*L+j] - lat.logZ)
}

// transMarginal is p(y_{t-1} = i, y_t = j | x) for t >= 1.
// Requires forwardBackward.
func (lat *lattice) transMarginal(t, i, j int) float64 {
	L := lat.l
	return math.Exp(lat.alpha[(t-1)*L+i] + lat.trans[i*L+j] + lat.state[t*L+j] + lat.beta[t*L+j] - lat.logZ)
}

// score is the unnormalized log score of path.
func (lat *lattice) score(path []int) float64 {
	L := lat.l
	var s float64
	for t, y := range path {
		s += lat.state[t*L+y]
		if t > 0 {
			s += lat.trans[path[t-1]*L+y]
		}
	}
	return s
}

// viterbi writes the best path into path and returns its score.
func (lat *lattice) viterbi(path []int) float64 {
	L, T := lat.l, lat.t
	delta := lat.alpha
	copy(delta[:L], lat.state[:L])
	for t := 1; t < T; t++ {
		for j := 0; j < L; j++ {
			best, arg := math.Inf(-1), 0
			for i := 0; i < L; i++ {
				if s := delta[(t-1)*L+i] + lat.trans[i*L+j]; s > best {
					best, arg = s, i
				}
			}
			delta[t*L+j] = best + lat.state[t*L+j]
			lat.back[t*L+j] = arg
		}
	}

	best, arg := math.Inf(-1), 0
	for j := 0; j < L; j++ {
		if s := delta[(T-1)*L+j]; s > best {
			best, arg = s, j
		}
	}
	path[T-1] = arg
	for t := T - 1; t > 0; t-- {
		path[t-1] = lat.back[t*L+path[t]]
	}
	return best
}
