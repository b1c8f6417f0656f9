package crf

// Feature kinds. The numeric values are stored in the model file.
const (
	featureState      = 0
	featureTransition = 1
)

// feature is a crf1d feature. State features connect an attribute (src)
// to a label (dst); transition features connect two labels.
type feature struct {
	kind   int
	src    int
	dst    int
	freq   float64
	weight float64
}

// crf1d is the feature space of a first-order linear-chain CRF.
type crf1d struct {
	features  []feature
	attrRefs  [][]int // attribute id -> state feature ids
	labelRefs [][]int // label id -> transition feature ids leaving it
	numLabels int
	numAttrs  int
}

type featureKey struct {
	kind, src, dst int
}

// featureOptions are the feature.* training parameters.
type featureOptions struct {
	minFreq             float64
	possibleStates      bool
	possibleTransitions bool
}

// generateFeatures builds the crf1d feature space observed in seqs.
// Features are kept in first-seen order so generation is deterministic.
func generateFeatures(seqs []*sequence, numLabels, numAttrs int, opts featureOptions) *crf1d {
	index := make(map[featureKey]int)
	var feats []feature

	add := func(kind, src, dst int, freq float64) {
		key := featureKey{kind, src, dst}
		if i, ok := index[key]; ok {
			feats[i].freq += freq
			return
		}
		index[key] = len(feats)
		feats = append(feats, feature{kind: kind, src: src, dst: dst, freq: freq})
	}

	for _, seq := range seqs {
		prev := -1
		for t, item := range seq.items {
			cur := seq.labels[t]
			if prev >= 0 {
				add(featureTransition, prev, cur, 1)
			}
			for _, av := range item {
				add(featureState, av.id, cur, av.value)
			}
			prev = cur
		}
	}

	if opts.possibleStates {
		seen := make([]bool, numAttrs)
		for _, seq := range seqs {
			for _, item := range seq.items {
				for _, av := range item {
					seen[av.id] = true
				}
			}
		}
		for a := 0; a < numAttrs; a++ {
			if !seen[a] {
				continue
			}
			for l := 0; l < numLabels; l++ {
				add(featureState, a, l, 0)
			}
		}
	}
	if opts.possibleTransitions {
		for i := 0; i < numLabels; i++ {
			for j := 0; j < numLabels; j++ {
				add(featureTransition, i, j, 0)
			}
		}
	}

	kept := feats[:0]
	for _, f := range feats {
		if opts.minFreq <= f.freq {
			kept = append(kept, f)
		}
	}
	return newCRF1D(kept, numLabels, numAttrs)
}

// newCRF1D indexes features by attribute and by source label.
func newCRF1D(feats []feature, numLabels, numAttrs int) *crf1d {
	m := &crf1d{
		features:  feats,
		attrRefs:  make([][]int, numAttrs),
		labelRefs: make([][]int, numLabels),
		numLabels: numLabels,
		numAttrs:  numAttrs,
	}
	for fid, f := range feats {
		switch f.kind {
		case featureState:
			m.attrRefs[f.src] = append(m.attrRefs[f.src], fid)
		case featureTransition:
			m.labelRefs[f.src] = append(m.labelRefs[f.src], fid)
		}
	}
	return m
}

// weights returns the current feature weights as a dense vector.
func (m *crf1d) weights() []float64 {
	w := make([]float64, len(m.features))
	for i, f := range m.features {
		w[i] = f.weight
	}
	return w
}

// pathFeatures calls fn for every feature fired by labeling seq with path.
// Label pairs without a transition feature fire nothing.
func (m *crf1d) pathFeatures(seq *sequence, path []int, fn func(fid int, value float64)) {
	for t, item := range seq.items {
		y := path[t]
		for _, av := range item {
			for _, fid := range m.attrRefs[av.id] {
				if m.features[fid].dst == y {
					fn(fid, av.value)
				}
			}
		}
		if t > 0 {
			for _, fid := range m.labelRefs[path[t-1]] {
				if m.features[fid].dst == y {
					fn(fid, 1)
				}
			}
		}
	}
}

// pathScore returns the unnormalized log score of path under w.
func (m *crf1d) pathScore(seq *sequence, path []int, w []float64) float64 {
	var score float64
	m.pathFeatures(seq, path, func(fid int, value float64) {
		score += w[fid] * value
	})
	return score
}
