package asyncexec

import "math"

// quantileEstimator implements the P-Square algorithm for streaming
// quantile estimation: O(1) per observation and O(1) retrieval, with no
// sample retention.
//
// Reference:
// Jain, R. and Chlamtac, I. (1985). "The P² Algorithm for Dynamic
// Calculation of Quantiles and Histograms Without Storing Observations".
// Communications of the ACM, 28(10), pp. 1076-1085.
//
// Thread Safety: NOT thread-safe. Caller must ensure synchronization.
type quantileEstimator struct {
	p     float64    // target quantile in [0, 1]
	q     [5]float64 // marker heights
	n     [5]int     // actual marker positions
	np    [5]float64 // desired marker positions
	dn    [5]float64 // desired position increments
	count int
	init  [5]float64 // first observations, before the markers exist
}

func newQuantileEstimator(p float64) *quantileEstimator {
	p = math.Min(math.Max(p, 0), 1)
	return &quantileEstimator{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// Update folds a new observation into the estimate.
func (e *quantileEstimator) Update(x float64) {
	e.count++

	if e.count <= 5 {
		e.init[e.count-1] = x
		if e.count == 5 {
			e.initialize()
		}
		return
	}

	// Locate the cell k with q[k] <= x < q[k+1], extending the extremes.
	var k int
	switch {
	case x < e.q[0]:
		e.q[0] = x
		k = 0
	case x >= e.q[4]:
		e.q[4] = x
		k = 3
	default:
		for k = 0; k < 4; k++ {
			if e.q[k] <= x && x < e.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		e.n[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}

	// Nudge interior markers toward their desired positions.
	for i := 1; i < 4; i++ {
		d := e.np[i] - float64(e.n[i])
		if (d >= 1 && e.n[i+1]-e.n[i] > 1) || (d <= -1 && e.n[i-1]-e.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			if qp := e.parabolic(i, sign); e.q[i-1] < qp && qp < e.q[i+1] {
				e.q[i] = qp
			} else {
				e.q[i] = e.linear(i, sign)
			}
			e.n[i] += sign
		}
	}
}

// initialize seeds the markers from the first five observations.
func (e *quantileEstimator) initialize() {
	sortSmall(e.init[:])
	for i := 0; i < 5; i++ {
		e.q[i] = e.init[i]
		e.n[i] = i
	}
	e.np = [5]float64{0, 2 * e.p, 4 * e.p, 2 + 2*e.p, 4}
}

func (e *quantileEstimator) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(e.n[i])
	prev := float64(e.n[i-1])
	next := float64(e.n[i+1])

	a := df / (next - prev)
	b := (ni - prev + df) * (e.q[i+1] - e.q[i]) / (next - ni)
	c := (next - ni - df) * (e.q[i] - e.q[i-1]) / (ni - prev)
	return e.q[i] + a*(b+c)
}

func (e *quantileEstimator) linear(i, d int) float64 {
	if d == 1 {
		return e.q[i] + (e.q[i+1]-e.q[i])/float64(e.n[i+1]-e.n[i])
	}
	return e.q[i] - (e.q[i]-e.q[i-1])/float64(e.n[i]-e.n[i-1])
}

// Quantile returns the current estimate.
func (e *quantileEstimator) Quantile() float64 {
	if e.count == 0 {
		return 0
	}

	// Too few observations for markers; index into the sorted prefix.
	if e.count < 5 {
		sorted := make([]float64, e.count)
		copy(sorted, e.init[:e.count])
		sortSmall(sorted)
		idx := int(float64(e.count-1) * e.p)
		return sorted[idx]
	}

	return e.q[2]
}

// sortSmall insertion-sorts a tiny slice in place.
func sortSmall(s []float64) {
	for i := 1; i < len(s); i++ {
		key := s[i]
		j := i - 1
		for j >= 0 && s[j] > key {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = key
	}
}

// multiQuantile tracks several quantiles of one stream, plus its count,
// sum, and maximum.
//
// Thread Safety: NOT thread-safe. Caller must ensure synchronization.
type multiQuantile struct {
	estimators []*quantileEstimator
	sum        float64
	count      int
	max        float64
}

func newMultiQuantile(percentiles ...float64) *multiQuantile {
	m := &multiQuantile{
		estimators: make([]*quantileEstimator, len(percentiles)),
		max:        -math.MaxFloat64,
	}
	for i, p := range percentiles {
		m.estimators[i] = newQuantileEstimator(p)
	}
	return m
}

// Update folds a new observation into every estimator.
func (m *multiQuantile) Update(x float64) {
	m.count++
	m.sum += x
	if x > m.max {
		m.max = x
	}
	for _, e := range m.estimators {
		e.Update(x)
	}
}

// Quantile returns the estimate for the i-th configured percentile.
func (m *multiQuantile) Quantile(i int) float64 {
	if i < 0 || i >= len(m.estimators) {
		return 0
	}
	return m.estimators[i].Quantile()
}

// Count returns the number of observations.
func (m *multiQuantile) Count() int { return m.count }

// Max returns the maximum observation, or 0 before any arrive.
func (m *multiQuantile) Max() float64 {
	if m.count == 0 {
		return 0
	}
	return m.max
}

// Mean returns the arithmetic mean, or 0 before any observations arrive.
func (m *multiQuantile) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
