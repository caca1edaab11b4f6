package calibration

import (
	"math"

	"github.com/attest-ml/go-attest/internal/domain"
)

// Search bounds and tolerances for the 1-D temperature fit.
const (
	// MinTemperature and MaxTemperature bound the golden-section
	// search. Temperatures outside this range indicate a broken batch
	// rather than a real calibration.
	MinTemperature = 0.05
	MaxTemperature = 10.0

	// fitTolerance terminates the search once the bracket is this
	// narrow.
	fitTolerance = 1e-4

	// maxFitIterations caps the search; hitting the cap without the
	// bracket converging counts as non-convergence.
	maxFitIterations = 200
)

// invPhi is 1/phi, the golden-section reduction factor.
var invPhi = (math.Sqrt(5) - 1) / 2

// fitTemperature finds the scalar T minimizing the negative
// log-likelihood of (logits / T) against the true labels, via bounded
// golden-section search. It returns the fitted temperature and whether
// the fit both converged and improved on the identity T=1. On
// non-convergence, or when scaling does not beat the identity, the
// caller falls back to T=1.0 (uncalibrated) rather than an invalid
// value.
//
// Only records carrying logits and a valid label participate; the
// caller guarantees at least one such record.
func fitTemperature(records []domain.CalibrationRecord, lo, hi float64) (temperature float64, improved bool) {
	nll := func(t float64) float64 { return negativeLogLikelihood(records, t) }

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := nll(c), nll(d)

	converged := false
	for i := 0; i < maxFitIterations; i++ {
		if b-a < fitTolerance {
			converged = true
			break
		}
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = nll(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = nll(d)
		}
	}

	best := (a + b) / 2
	if !converged || math.IsNaN(nll(best)) {
		return 1.0, false
	}
	// Require a strict improvement over the identity before adopting
	// the fitted temperature.
	if nll(best) >= nll(1.0)-1e-9 {
		return 1.0, false
	}
	return best, true
}

// negativeLogLikelihood computes the mean NLL of softmax(logits/t)
// against the true labels.
func negativeLogLikelihood(records []domain.CalibrationRecord, t float64) float64 {
	var total float64
	var n int
	for _, r := range records {
		if len(r.Logits) == 0 || r.TrueLabel < 0 || r.TrueLabel >= len(r.Logits) {
			continue
		}
		probs := Softmax(r.Logits, t)
		p := probs[r.TrueLabel]
		if p < 1e-12 {
			p = 1e-12
		}
		total -= math.Log(p)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return total / float64(n)
}

// Softmax applies temperature-scaled softmax to logits. The max-logit
// shift keeps the exponentials finite for large scores.
func Softmax(logits []float64, temperature float64) []float64 {
	if temperature <= 0 {
		temperature = 1
	}
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l/temperature > maxLogit {
			maxLogit = l / temperature
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l/temperature - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
