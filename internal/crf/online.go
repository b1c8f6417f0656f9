package crf

import (
	"math"
)

// onlineStep is one online update. It receives the instance, the current
// Viterbi path and its score, and returns the loss it incurred.
type onlineStep func(seq *sequence, path []int, predScore float64, errs int) float64

// runOnline drives the epoch loop shared by the perceptron-style
// algorithms: shuffle, decode each instance with weights(), let step
// update, and stop once the mean loss drops to epsilon.
func runOnline(tc *trainContext, name string, weights func() []float64, step onlineStep, normalizer int) trainStats {
	maxIterations := tc.params.intValue("max_iterations")
	epsilon := tc.params.floatValue("epsilon")
	lat := newLattice(tc.model.numLabels)

	var stats trainStats
	for epoch := 1; epoch <= maxIterations; epoch++ {
		var loss float64
		for _, i := range tc.rng.Perm(len(tc.seqs)) {
			seq := tc.seqs[i]
			path := make([]int, seq.len())
			lat.setWeights(tc.model, seq, weights(), 1)
			score := lat.viterbi(path)
			loss += step(seq, path, score, countErrors(path, seq.labels))
		}

		stats = trainStats{loss: loss, iterations: epoch}
		tc.logger.Info("iteration",
			"algorithm", name,
			"iteration", epoch,
			"loss", loss,
			"feature_norm", norm2(weights()),
		)
		if loss/float64(max(normalizer, 1)) <= epsilon {
			tc.logger.Info("online training converged", "algorithm", name, "iteration", epoch)
			break
		}
	}
	return stats
}

// trainAveragedPerceptron trains with the averaged structured perceptron.
// The loss of an epoch is the number of incorrectly labeled items.
func trainAveragedPerceptron(tc *trainContext) ([]float64, trainStats, error) {
	avg := newAverager(len(tc.model.features))
	step := func(seq *sequence, path []int, _ float64, errs int) float64 {
		if errs > 0 {
			tc.model.pathFeatures(seq, seq.labels, func(fid int, v float64) { avg.update(fid, v) })
			tc.model.pathFeatures(seq, path, func(fid int, v float64) { avg.update(fid, -v) })
		}
		avg.tick()
		return float64(errs)
	}
	stats := runOnline(tc, "averaged-perceptron", func() []float64 { return avg.w }, step, tc.items)
	return avg.average(), stats, nil
}

// trainPassiveAggressive trains with the structured passive-aggressive
// algorithm.
func trainPassiveAggressive(tc *trainContext) ([]float64, trainStats, error) {
	p := tc.params
	typ := p.intValue("type")
	c := p.floatValue("c")
	errorSensitive := p.intValue("error_sensitive") != 0
	averaging := p.intValue("averaging") != 0

	avg := newAverager(len(tc.model.features))
	diff := newSparseVector(len(tc.model.features))
	step := func(seq *sequence, path []int, predScore float64, errs int) float64 {
		defer avg.tick()
		if errs == 0 {
			return 0
		}
		diff.diff(tc.model, seq, path)
		norm := diff.norm2()
		if norm == 0 {
			return 0
		}

		goldScore := tc.model.pathScore(seq, seq.labels, avg.w)
		cost := predScore - goldScore
		if errorSensitive {
			cost += math.Sqrt(float64(errs))
		} else {
			cost++
		}

		var tau float64
		switch typ {
		case 0:
			tau = cost / norm
		case 2:
			tau = cost / (norm + 0.5/c)
		default:
			tau = math.Min(c, cost/norm)
		}
		for _, fid := range diff.idx {
			avg.update(fid, tau*diff.vals[fid])
		}
		return cost
	}
	stats := runOnline(tc, "passive-aggressive", func() []float64 { return avg.w }, step, len(tc.seqs))
	if averaging {
		return avg.average(), stats, nil
	}
	return avg.w, stats, nil
}

// trainAROW trains with adaptive regularization of weight vectors, keeping
// a diagonal covariance per feature.
func trainAROW(tc *trainContext) ([]float64, trainStats, error) {
	p := tc.params
	variance := p.floatValue("variance")
	gamma := p.floatValue("gamma")
	if gamma <= 0 {
		gamma = 1
	}

	n := len(tc.model.features)
	mu := make([]float64, n)
	sigma := make([]float64, n)
	for i := range sigma {
		sigma[i] = variance
	}
	diff := newSparseVector(n)

	step := func(seq *sequence, path []int, predScore float64, errs int) float64 {
		if errs == 0 {
			return 0
		}
		diff.diff(tc.model, seq, path)
		margin := tc.model.pathScore(seq, seq.labels, mu) - predScore
		loss := float64(errs) - margin
		if loss <= 0 {
			return 0
		}

		var confidence float64
		for _, fid := range diff.idx {
			v := diff.vals[fid]
			confidence += sigma[fid] * v * v
		}
		beta := 1 / (confidence + gamma)
		alpha := loss * beta
		for _, fid := range diff.idx {
			v := diff.vals[fid]
			mu[fid] += alpha * sigma[fid] * v
			sigma[fid] -= beta * sigma[fid] * sigma[fid] * v * v
		}
		return loss
	}
	stats := runOnline(tc, "arow", func() []float64 { return mu }, step, len(tc.seqs))
	return mu, stats, nil
}
