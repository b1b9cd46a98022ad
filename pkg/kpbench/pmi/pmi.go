package pmi

import "math"

// Calculator computes PMI (Pointwise Mutual Information) association scores
// from document counts.
type Calculator struct {
	epsilon float64 // smoothing constant
}

// NewCalculator creates a new PMI calculator with the given epsilon
func NewCalculator(epsilon float64) *Calculator {
	if epsilon <= 0 {
		epsilon = 1.0
	}
	return &Calculator{epsilon: epsilon}
}

// PMI calculates the pointwise mutual information between two terms
//
// PMI(a,b) = log((N_ab + ε) * N / ((N_a + ε)(N_b + ε)))
//
// Where:
//   - N_ab = number of documents containing both a and b
//   - N_a, N_b = number of documents containing each term
//   - N = total number of documents
//   - ε = smoothing constant (default 1.0)
func (c *Calculator) PMI(nAB, nA, nB, N int64) float64 {
	if N == 0 {
		return 0
	}

	numerator := (float64(nAB) + c.epsilon) * float64(N)
	denominator := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)

	if denominator == 0 {
		return 0
	}

	return math.Log(numerator / denominator)
}

// NPMI calculates normalized PMI (range: -1 to 1)
// NPMI(a,b) = PMI(a,b) / -log(P(a,b))
func (c *Calculator) NPMI(nAB, nA, nB, N int64) float64 {
	if N == 0 || nAB == 0 {
		return 0
	}

	pmi := c.PMI(nAB, nA, nB, N)
	pAB := (float64(nAB) + c.epsilon) / float64(N)
	logPAB := math.Log(pAB)

	if logPAB == 0 {
		return 0
	}

	return pmi / -logPAB
}

// PairNPMI returns the NPMI of two terms of c.
func (c *Calculator) PairNPMI(counter *Counter, a, b string) float64 {
	return c.NPMI(counter.PairCount(a, b), counter.Count(a), counter.Count(b), counter.TotalDocs())
}

// PositiveNPMI clamps NPMI to [0, 1] so it can weight graph edges.
func (c *Calculator) PositiveNPMI(counter *Counter, a, b string) float64 {
	v := c.PairNPMI(counter, a, b)
	if v < 0 {
		return 0
	}
	return math.Min(v, 1)
}
