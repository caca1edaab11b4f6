package domain

import "time"

// CalibrationRecord is one held-out observation used to assess and fit
// calibration: the confidence the model reported and whether the
// prediction was actually correct. Logits and the true label are
// carried alongside so temperature scaling can re-derive likelihoods;
// they may be empty for records that only feed the ECE computation.
// Records are owned by an external history store; the calibrator only
// reads them in batch.
type CalibrationRecord struct {
	// Confidence is the predicted confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Correct reports whether the prediction matched the ground truth.
	Correct bool `json:"correct"`

	// Logits are the raw pre-softmax class scores, if available.
	Logits []float64 `json:"logits,omitempty"`

	// TrueLabel is the ground-truth class index, meaningful only when
	// Logits is populated.
	TrueLabel int `json:"true_label,omitempty"`
}

// CalibrationBin is one equal-width confidence bin of the reliability
// curve.
type CalibrationBin struct {
	// AvgConfidence is the mean predicted confidence of samples in the
	// bin.
	AvgConfidence float64 `json:"avg_confidence"`

	// AvgAccuracy is the fraction of correct predictions in the bin.
	AvgAccuracy float64 `json:"avg_accuracy"`

	// Count is the number of samples that fell into the bin. Empty bins
	// contribute nothing to ECE.
	Count int `json:"count"`
}

// CalibrationModel is the result of one calibration run. A new instance
// replaces the previous one on every run; it is never mutated in place.
type CalibrationModel struct {
	// Temperature is the fitted scalar divisor for logits, strictly
	// positive. 1.0 is the identity (uncalibrated) fallback.
	Temperature float64 `json:"temperature"`

	// ECE is the Expected Calibration Error in [0, 1].
	ECE float64 `json:"ece"`

	// MCE is the Maximum Calibration Error: the largest per-bin
	// |accuracy - confidence| gap.
	MCE float64 `json:"mce"`

	// Bins is the per-bin reliability curve.
	Bins []CalibrationBin `json:"bins"`

	// IsCalibrated reports whether ECE is below the configured
	// threshold.
	IsCalibrated bool `json:"is_calibrated"`

	// Improved reports whether the temperature fit converged and
	// lowered the negative log-likelihood versus T=1. False means the
	// identity fallback is in effect.
	Improved bool `json:"improved"`

	// NumSamples is the number of records the model was computed from.
	NumSamples int `json:"num_samples"`

	// FittedAt records when this model was computed.
	FittedAt time.Time `json:"fitted_at"`
}
