package explain

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/attest-ml/go-attest/internal/domain"
)

// pairwiseAgreement computes the three agreement metrics for every
// unordered pair of non-degenerate maps. The synthetic combined map is
// never passed here: comparing an average against its own inputs would
// bias the score upward.
//
// Pearson correlation is computed over the flattened maps with
// gonum/stat; an undefined correlation (numerically constant input that
// survived the degeneracy flag) drops the pair's correlation term
// rather than poisoning the average with NaN. IoU and Dice compare the
// top-k% activated regions of each map.
func pairwiseAgreement(maps []domain.AttributionMap, topKPercent float64) []domain.PairwiseAgreement {
	regions := make([][]bool, len(maps))
	for i, m := range maps {
		regions[i] = activeRegion(m.Values, quantileThreshold(m.Values, topKPercent))
	}

	var pairs []domain.PairwiseAgreement
	for i := 0; i < len(maps); i++ {
		for j := i + 1; j < len(maps); j++ {
			corr := stat.Correlation(maps[i].Values, maps[j].Values, nil)
			if math.IsNaN(corr) {
				corr = 0
			}
			if corr < 0 {
				// Anti-correlated methods agree no less than unrelated
				// ones for consensus purposes; clamp instead of letting
				// disagreement go negative.
				corr = 0
			}

			iou, dice := regionOverlap(regions[i], regions[j])
			pairs = append(pairs, domain.PairwiseAgreement{
				MethodA:     maps[i].Method,
				MethodB:     maps[j].Method,
				Correlation: corr,
				IoU:         iou,
				Dice:        dice,
			})
		}
	}
	return pairs
}

// regionOverlap returns the IoU and Dice coefficient of two binary
// regions. Empty unions and empty area sums both resolve to 0.
func regionOverlap(a, b []bool) (iou, dice float64) {
	var inter, union, sum int
	for k := range a {
		switch {
		case a[k] && b[k]:
			inter++
			union++
			sum += 2
		case a[k] || b[k]:
			union++
			sum++
		}
	}
	if union > 0 {
		iou = float64(inter) / float64(union)
	}
	if sum > 0 {
		dice = 2 * float64(inter) / float64(sum)
	}
	return iou, dice
}

// consensusScore reduces the pairwise breakdown to one scalar in
// [0, 1]: each metric is averaged across pairs, then the three averages
// are combined with the configured weights.
func consensusScore(pairs []domain.PairwiseAgreement, wCorr, wIoU, wDice float64) float64 {
	if len(pairs) == 0 {
		return 1.0
	}

	var corr, iou, dice float64
	for _, p := range pairs {
		corr += p.Correlation
		iou += p.IoU
		dice += p.Dice
	}
	n := float64(len(pairs))
	corr, iou, dice = corr/n, iou/n, dice/n

	total := wCorr + wIoU + wDice
	if total == 0 {
		return 0
	}
	score := (wCorr*corr + wIoU*iou + wDice*dice) / total

	// Floating error can push an exact-agreement score a hair past 1.
	return math.Min(1, math.Max(0, score))
}
