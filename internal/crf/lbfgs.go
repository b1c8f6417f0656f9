package crf

import (
	"math"
)

// ftol is the sufficient decrease constant of the Armijo condition.
const ftol = 1e-4

type lbfgsPair struct {
	s, y  []float64
	rho   float64
	alpha float64
}

// trainLBFGS minimizes the L2-regularized negative log-likelihood with
// L-BFGS, switching to OWL-QN when c1 > 0. Every configured line search
// is realized as backtracking on the Armijo condition.
func trainLBFGS(tc *trainContext) ([]float64, trainStats, error) {
	p := tc.params
	c1 := p.floatValue("c1")
	c2 := p.floatValue("c2")
	memories := max(p.intValue("num_memories"), 1)
	maxIterations := p.intValue("max_iterations")
	epsilon := p.floatValue("epsilon")
	period := p.intValue("period")
	delta := p.floatValue("delta")
	maxLinesearch := max(p.intValue("max_linesearch"), 1)

	n := len(tc.model.features)
	eval := func(x, g []float64) float64 {
		f := objective(tc.model, tc.seqs, x, g)
		if c2 > 0 {
			var norm float64
			for i, v := range x {
				g[i] += 2 * c2 * v
				norm += v * v
			}
			f += c2 * norm
		}
		if c1 > 0 {
			for _, v := range x {
				f += c1 * math.Abs(v)
			}
		}
		return f
	}

	x := make([]float64, n)
	g := make([]float64, n)
	pg := make([]float64, n)
	d := make([]float64, n)
	xn := make([]float64, n)
	gn := make([]float64, n)

	f := eval(x, g)
	pseudoGradient(pg, x, g, c1)
	for i := range d {
		d[i] = -pg[i]
	}

	history := make([]*lbfgsPair, 0, memories)
	past := make([]float64, max(period, 1))
	stats := trainStats{loss: f}

	if n == 0 {
		return x, stats, nil
	}

	step := 1 / math.Max(norm2(d), 1e-20)
	for k := 1; k <= maxIterations; k++ {
		if norm2(pg)/math.Max(norm2(x), 1) <= epsilon {
			tc.logger.Info("L-BFGS converged", "iteration", k-1, "loss", f)
			break
		}

		dg := dot(d, pg)
		if dg >= 0 {
			// Not a descent direction; restart from steepest descent.
			history = history[:0]
			for i := range d {
				d[i] = -pg[i]
			}
			dg = dot(d, pg)
		}

		var fn float64
		accepted := false
		trials := 0
		for trials < maxLinesearch {
			trials++
			for i := range xn {
				xn[i] = x[i] + step*d[i]
			}
			if c1 > 0 {
				projectOrthant(xn, x, pg)
			}
			fn = eval(xn, gn)

			decrease := step * dg
			if c1 > 0 {
				decrease = 0
				for i := range xn {
					decrease += (xn[i] - x[i]) * pg[i]
				}
			}
			if !math.IsNaN(fn) && fn <= f+ftol*decrease {
				accepted = true
				break
			}
			step *= 0.5
		}
		if !accepted {
			tc.logger.Warn("L-BFGS line search failed", "iteration", k, "trials", trials)
			break
		}

		s := make([]float64, n)
		y := make([]float64, n)
		for i := range s {
			s[i] = xn[i] - x[i]
			y[i] = gn[i] - g[i]
		}
		copy(x, xn)
		copy(g, gn)
		f = fn
		pseudoGradient(pg, x, g, c1)
		stats = trainStats{loss: f, iterations: k}

		active := 0
		for _, v := range x {
			if v != 0 {
				active++
			}
		}
		tc.logger.Info("iteration",
			"algorithm", "lbfgs",
			"iteration", k,
			"loss", f,
			"feature_norm", norm2(x),
			"error_norm", norm2(pg),
			"active_features", active,
			"step", step,
			"linesearch_trials", trials,
		)

		if period > 0 {
			if k > period {
				prev := past[k%period]
				if f != 0 && (prev-f)/f < delta {
					tc.logger.Info("L-BFGS stopping criterion reached", "iteration", k, "loss", f)
					break
				}
			}
			past[k%period] = f
		}

		if ys := dot(y, s); ys > 1e-10 {
			if len(history) == memories {
				history = append(history[:0], history[1:]...)
			}
			history = append(history, &lbfgsPair{s: s, y: y, rho: 1 / ys})
		}

		twoLoop(d, pg, history)
		if c1 > 0 {
			for i := range d {
				if d[i]*pg[i] >= 0 {
					d[i] = 0
				}
			}
		}
		step = 1
	}

	return x, stats, nil
}

// pseudoGradient writes the OWL-QN pseudo-gradient of f + c1*|x| into pg.
// With c1 == 0 it is the gradient itself.
func pseudoGradient(pg, x, g []float64, c1 float64) {
	if c1 <= 0 {
		copy(pg, g)
		return
	}
	for i := range x {
		switch {
		case x[i] < 0:
			pg[i] = g[i] - c1
		case x[i] > 0:
			pg[i] = g[i] + c1
		case g[i]+c1 < 0:
			pg[i] = g[i] + c1
		case g[i]-c1 > 0:
			pg[i] = g[i] - c1
		default:
			pg[i] = 0
		}
	}
}

// projectOrthant zeroes coordinates of xn that left the orthant chosen
// from x and the pseudo-gradient.
func projectOrthant(xn, x, pg []float64) {
	for i := range xn {
		sign := x[i]
		if sign == 0 {
			sign = -pg[i]
		}
		if xn[i]*sign <= 0 {
			xn[i] = 0
		}
	}
}

// twoLoop writes the L-BFGS search direction -H*pg into d.
func twoLoop(d, pg []float64, history []*lbfgsPair) {
	copy(d, pg)
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		h.alpha = h.rho * dot(h.s, d)
		for j := range d {
			d[j] -= h.alpha * h.y[j]
		}
	}
	if len(history) > 0 {
		last := history[len(history)-1]
		gamma := dot(last.s, last.y) / dot(last.y, last.y)
		for j := range d {
			d[j] *= gamma
		}
	}
	for _, h := range history {
		beta := h.rho * dot(h.y, d)
		for j := range d {
			d[j] += h.s[j] * (h.alpha - beta)
		}
	}
	for j := range d {
		d[j] = -d[j]
	}
}
