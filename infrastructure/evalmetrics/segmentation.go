package evalmetrics

import "github.com/attest-ml/go-attest/internal/domain"

// maskOverlap returns the IoU and Dice coefficient of two same-shape
// masks. Two empty masks agree perfectly (both metrics 1), matching
// the convention for defect-free images.
func maskOverlap(pred, truth *domain.Mask) (iou, dice float64) {
	var inter, union, sum int
	for i := range truth.Bits {
		p, t := pred.Bits[i], truth.Bits[i]
		switch {
		case p && t:
			inter++
			union++
			sum += 2
		case p || t:
			union++
			sum++
		}
	}
	if union == 0 {
		return 1, 1
	}
	iou = float64(inter) / float64(union)
	if sum > 0 {
		dice = 2 * float64(inter) / float64(sum)
	}
	return iou, dice
}

// pixelAccuracy is the fraction of pixels labeled identically in both
// masks.
func pixelAccuracy(pred, truth *domain.Mask) float64 {
	if len(truth.Bits) == 0 {
		return 0
	}
	correct := 0
	for i := range truth.Bits {
		if pred.Bits[i] == truth.Bits[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth.Bits))
}

// segmentationMetrics averages per-instance IoU, Dice, and pixel
// accuracy over the records that carry both masks. Records with
// mismatched mask shapes are skipped; the window reducer validates
// shapes on ingest, so a mismatch here means corrupted history rather
// than caller error.
func segmentationMetrics(records []domain.InspectionRecord) domain.SegmentationMetrics {
	var out domain.SegmentationMetrics
	for _, r := range records {
		if r.PredictedMask == nil || r.TrueMask == nil || !r.TrueMask.SameShape(r.PredictedMask) {
			continue
		}
		iou, dice := maskOverlap(r.PredictedMask, r.TrueMask)
		out.MeanIoU += iou
		out.MeanDice += dice
		out.PixelAccuracy += pixelAccuracy(r.PredictedMask, r.TrueMask)
		out.Instances++
	}
	if out.Instances > 0 {
		n := float64(out.Instances)
		out.MeanIoU /= n
		out.MeanDice /= n
		out.PixelAccuracy /= n
	}
	return out
}
