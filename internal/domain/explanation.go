package domain

import "time"

// PairwiseAgreement holds the three agreement metrics for one pair of
// attribution methods. The synthetic combined map is never a pair
// participant; only the real contributing methods are compared.
type PairwiseAgreement struct {
	// MethodA and MethodB identify the compared methods. Pairs are
	// emitted with MethodA ordered before MethodB.
	MethodA string `json:"method_a"`
	MethodB string `json:"method_b"`

	// Correlation is the Pearson correlation of the flattened maps,
	// clamped to [0, 1] (negative correlations count as zero agreement).
	Correlation float64 `json:"correlation"`

	// IoU is the intersection-over-union of the top-k% activated regions.
	IoU float64 `json:"iou"`

	// Dice is the Dice coefficient of the same thresholded regions.
	Dice float64 `json:"dice"`
}

// ConsensusExplanation is the combined output of attribution
// aggregation: one consensus map plus a quantified agreement score.
// It is constructed by the aggregator and immutable once returned.
type ConsensusExplanation struct {
	// ID uniquely identifies this explanation (a UUID).
	ID string `json:"id"`

	// Combined is the aggregated attribution map, normalized to [0, 1].
	Combined AttributionMap `json:"combined"`

	// ConsensusScore quantifies cross-method agreement in [0, 1].
	// A single contributing method scores 1.0 by convention: there is
	// nothing to disagree with.
	ConsensusScore float64 `json:"consensus_score"`

	// ContributingMethods lists the methods whose maps were combined.
	// Methods that failed or timed out are excluded, not zero-filled.
	ContributingMethods []string `json:"contributing_methods"`

	// ExcludedMethods lists methods dropped from this explanation,
	// either because they failed/timed out or because their map was
	// degenerate and unusable. Surfaced as metadata so downstream
	// consumers can present reduced confidence.
	ExcludedMethods []string `json:"excluded_methods,omitempty"`

	// Pairwise carries the per-pair agreement breakdown behind the
	// consensus score.
	Pairwise []PairwiseAgreement `json:"pairwise,omitempty"`

	// Strategy records which combination strategy produced the map.
	Strategy string `json:"strategy"`

	// CreatedAt records when the explanation was computed.
	CreatedAt time.Time `json:"created_at"`
}

// ExplanationPayload is the complete per-image response: the consensus
// explanation together with the predictive uncertainty estimate, when
// one was requested.
type ExplanationPayload struct {
	Explanation ConsensusExplanation `json:"explanation"`
	Uncertainty *UncertaintyEstimate `json:"uncertainty,omitempty"`
}
