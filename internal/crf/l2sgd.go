package crf

import (
	"math"
)

// minScale triggers folding the decay factor back into the weights.
const minScale = 1e-20

// sgdState is the weight vector of L2-regularized SGD, stored as w*scale
// so the per-step weight decay is a single multiplication.
type sgdState struct {
	w      []float64
	lat    *lattice
	scale  float64
	lambda float64
	t0     float64
	t      float64
}

func newSGDState(m *crf1d, lambda, eta float64) *sgdState {
	return &sgdState{
		w:      make([]float64, len(m.features)),
		lat:    newLattice(m.numLabels),
		scale:  1,
		lambda: lambda,
		t0:     1 / (lambda * eta),
	}
}

// epoch runs one pass over seqs in the given order and returns the summed
// unregularized loss, or +Inf when the learning rate is too large to decay
// the weights.
func (st *sgdState) epoch(m *crf1d, seqs []*sequence, order []int) float64 {
	var loss float64
	for _, i := range order {
		eta := 1 / (st.lambda * (st.t0 + st.t))
		st.t++
		decay := 1 - eta*st.lambda
		if decay <= 0 {
			st.fold()
			return math.Inf(1)
		}
		st.scale *= decay
		gain := eta / st.scale
		loss += sequenceGradient(m, st.lat, seqs[i], st.w, st.scale, func(fid int, v float64) {
			st.w[fid] -= gain * v
		})
		if st.scale < minScale {
			st.fold()
		}
	}
	st.fold()
	return loss
}

// fold multiplies the scale into the weights.
func (st *sgdState) fold() {
	for i := range st.w {
		st.w[i] *= st.scale
	}
	st.scale = 1
}

func (st *sgdState) regularizer(c2 float64) float64 {
	return c2 * dot(st.w, st.w)
}

// trainL2SGD runs stochastic gradient descent on the L2-regularized
// negative log-likelihood with a calibrated learning-rate schedule.
func trainL2SGD(tc *trainContext) ([]float64, trainStats, error) {
	p := tc.params
	c2 := p.floatValue("c2")
	maxIterations := p.intValue("max_iterations")
	period := p.intValue("period")
	delta := p.floatValue("delta")

	n := len(tc.seqs)
	lambda := 2 * c2 / float64(n)
	if lambda <= 0 {
		// The schedule needs a positive decay; treat c2 = 0 as a tiny one.
		lambda = 1e-12
	}

	eta := calibrate(tc, lambda, c2)
	tc.logger.Info("learning rate calibrated", "algorithm", "l2sgd", "eta", eta)

	st := newSGDState(tc.model, lambda, eta)
	past := make([]float64, max(period, 1))
	var stats trainStats

	for epoch := 1; epoch <= maxIterations; epoch++ {
		order := tc.rng.Perm(n)
		loss := st.epoch(tc.model, tc.seqs, order) + st.regularizer(c2)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			break
		}
		stats = trainStats{loss: loss, iterations: epoch}
		tc.logger.Info("iteration",
			"algorithm", "l2sgd",
			"iteration", epoch,
			"loss", loss,
			"feature_norm", norm2(st.w),
		)

		if period > 0 {
			if epoch > period {
				prev := past[epoch%period]
				if loss != 0 && (prev-loss)/loss < delta {
					tc.logger.Info("SGD stopping criterion reached", "iteration", epoch, "loss", loss)
					break
				}
			}
			past[epoch%period] = loss
		}
	}
	return st.w, stats, nil
}

// calibrate picks the initial learning rate by running one epoch over a
// sample of the data for several candidate rates. Rates grow by
// calibration.rate while they improve on the initial loss, then shrink.
func calibrate(tc *trainContext, lambda, c2 float64) float64 {
	p := tc.params
	eta0 := p.floatValue("calibration.eta")
	rate := p.floatValue("calibration.rate")
	samples := min(max(p.intValue("calibration.samples"), 1), len(tc.seqs))
	candidates := max(p.intValue("calibration.candidates"), 1)
	maxTrials := max(p.intValue("calibration.max_trials"), 1)
	if rate <= 1 {
		rate = 2
	}
	if eta0 <= 0 {
		eta0 = 0.1
	}

	order := tc.rng.Perm(len(tc.seqs))[:samples]
	seqs := make([]*sequence, samples)
	for i, j := range order {
		seqs[i] = tc.seqs[j]
	}
	identity := make([]int, samples)
	for i := range identity {
		identity[i] = i
	}

	lat := newLattice(tc.model.numLabels)
	zero := make([]float64, len(tc.model.features))
	var initial float64
	for _, seq := range seqs {
		initial += sequenceGradient(tc.model, lat, seq, zero, 1, func(int, float64) {})
	}

	eta, best, bestLoss := eta0, eta0, math.Inf(1)
	decreasing := false
	ok := 0
	for trial := 0; trial < maxTrials && ok < candidates; trial++ {
		st := newSGDState(tc.model, lambda, eta)
		loss := st.epoch(tc.model, seqs, identity) + st.regularizer(c2)
		improved := !math.IsNaN(loss) && !math.IsInf(loss, 0) && loss < initial
		tc.logger.Debug("calibration trial", "eta", eta, "loss", loss, "improved", improved)
		if improved {
			ok++
			if loss < bestLoss {
				best, bestLoss = eta, loss
			}
		}
		switch {
		case decreasing:
			eta /= rate
		case improved:
			eta *= rate
		default:
			decreasing = true
			eta = eta0 / rate
		}
	}
	return best
}
