package crf

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// sequenceGradient adds the gradient of the negative log-likelihood of seq
// to g via add and returns the loss. w is scaled by scale. lat must be sized
// for the model's labels.
func sequenceGradient(m *crf1d, lat *lattice, seq *sequence, w []float64, scale float64, add func(fid int, v float64)) float64 {
	lat.setWeights(m, seq, w, scale)
	lat.forwardBackward()

	loss := lat.logZ - lat.score(seq.labels)

	// Observed counts.
	m.pathFeatures(seq, seq.labels, func(fid int, value float64) {
		add(fid, -value)
	})

	// Expected counts.
	for t, item := range seq.items {
		for _, av := range item {
			for _, fid := range m.attrRefs[av.id] {
				add(fid, lat.stateMarginal(t, m.features[fid].dst)*av.value)
			}
		}
		if t == 0 {
			continue
		}
		for i := 0; i < m.numLabels; i++ {
			for _, fid := range m.labelRefs[i] {
				add(fid, lat.transMarginal(t, i, m.features[fid].dst))
			}
		}
	}
	return loss
}

// objective evaluates the unregularized negative log-likelihood of seqs and
// writes its gradient into g. Sequences are split into contiguous chunks
// that are evaluated in parallel and summed in chunk order, so the result
// does not depend on scheduling.
func objective(m *crf1d, seqs []*sequence, w, g []float64) float64 {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(seqs) {
		workers = len(seqs)
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(seqs) + workers - 1) / workers
	losses := make([]float64, workers)
	grads := make([][]float64, workers)

	eg, _ := errgroup.WithContext(context.Background())
	for k := 0; k < workers; k++ {
		lo := min(k*chunk, len(seqs))
		hi := min(lo+chunk, len(seqs))
		eg.Go(func() error {
			local := make([]float64, len(w))
			lat := newLattice(m.numLabels)
			var loss float64
			for _, seq := range seqs[lo:hi] {
				loss += sequenceGradient(m, lat, seq, w, 1, func(fid int, v float64) {
					local[fid] += v
				})
			}
			losses[k] = loss
			grads[k] = local
			return nil
		})
	}
	_ = eg.Wait()

	clear(g)
	var loss float64
	for k := 0; k < workers; k++ {
		loss += losses[k]
		for i, v := range grads[k] {
			g[i] += v
		}
	}
	return loss
}
