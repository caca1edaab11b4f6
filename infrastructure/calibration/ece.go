// Package calibration assesses and corrects model confidence:
// Expected Calibration Error over a reliability curve, and post-hoc
// temperature scaling fitted on a held-out batch.
package calibration

import (
	"math"

	"github.com/attest-ml/go-attest/internal/domain"
)

// DefaultBins is the default number of equal-width confidence bins.
const DefaultBins = 10

// binIndex maps a confidence to its equal-width bin. Intervals are
// lower-open and upper-closed so a confidence of exactly 1.0 lands in
// the last bin; zero lands in the first.
func binIndex(confidence float64, bins int) int {
	idx := int(math.Ceil(confidence*float64(bins))) - 1
	if idx < 0 {
		return 0
	}
	if idx >= bins {
		return bins - 1
	}
	return idx
}

// expectedCalibrationError partitions [0, 1] into bins equal-width
// bins and computes:
//
//	ECE = sum_bins (count/total) * |avg_accuracy - avg_confidence|
//	MCE = max over non-empty bins of |avg_accuracy - avg_confidence|
//
// Empty bins contribute 0. records must be non-empty; the caller
// validates.
func expectedCalibrationError(records []domain.CalibrationRecord, bins int) (ece, mce float64, curve []domain.CalibrationBin) {
	sumConf := make([]float64, bins)
	sumAcc := make([]float64, bins)
	counts := make([]int, bins)

	for _, r := range records {
		i := binIndex(r.Confidence, bins)
		sumConf[i] += r.Confidence
		if r.Correct {
			sumAcc[i]++
		}
		counts[i]++
	}

	total := float64(len(records))
	curve = make([]domain.CalibrationBin, bins)
	for i := 0; i < bins; i++ {
		if counts[i] == 0 {
			continue
		}
		n := float64(counts[i])
		avgConf := sumConf[i] / n
		avgAcc := sumAcc[i] / n
		gap := math.Abs(avgAcc - avgConf)

		ece += (n / total) * gap
		if gap > mce {
			mce = gap
		}
		curve[i] = domain.CalibrationBin{
			AvgConfidence: avgConf,
			AvgAccuracy:   avgAcc,
			Count:         counts[i],
		}
	}
	return ece, mce, curve
}
