package domain

// UncertaintyEstimate summarizes the predictive distribution obtained
// from T stochastic forward passes. The reduction is a pure function of
// the multiset of sampled probability vectors, so the estimate is
// identical regardless of the order the passes complete in.
type UncertaintyEstimate struct {
	// MeanProbs is the elementwise average class-probability vector.
	MeanProbs []float64 `json:"mean_probs"`

	// Variance holds the per-class variance across the T samples.
	Variance []float64 `json:"variance"`

	// StdDev holds the per-class standard deviation (sqrt of Variance).
	StdDev []float64 `json:"std_dev"`

	// PredictiveEntropy is the raw entropy of MeanProbs in nats.
	PredictiveEntropy float64 `json:"predictive_entropy"`

	// MeanUncertainty is PredictiveEntropy normalized by log(num
	// classes), yielding a scalar in [0, 1].
	MeanUncertainty float64 `json:"mean_uncertainty"`

	// MutualInformation is the epistemic share of the predictive
	// entropy: H(mean) minus the mean of per-sample entropies. It is
	// non-negative and bounded above by PredictiveEntropy.
	MutualInformation float64 `json:"mutual_information"`

	// Passes records how many stochastic forward passes were reduced.
	Passes int `json:"passes"`
}

// PredictedClass returns the argmax index of the mean probability
// vector, or -1 for an empty estimate.
func (u UncertaintyEstimate) PredictedClass() int {
	best, idx := -1.0, -1
	for i, p := range u.MeanProbs {
		if p > best {
			best, idx = p, i
		}
	}
	return idx
}

// Confidence returns the mean probability of the predicted class.
func (u UncertaintyEstimate) Confidence() float64 {
	if i := u.PredictedClass(); i >= 0 {
		return u.MeanProbs[i]
	}
	return 0
}
