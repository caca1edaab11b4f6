// Package evalmetrics reduces time-windowed (prediction, ground truth)
// records into business, detection, and segmentation KPIs. Every
// reducer is a pure function of its input record set.
package evalmetrics

import "github.com/attest-ml/go-attest/internal/domain"

// outcome is one cell of the confusion matrix.
type outcome int

const (
	truePositive outcome = iota
	falsePositive
	trueNegative
	falseNegative
)

// classify maps one record to a confusion-matrix cell under the match
// policy. A record is predicted-positive when its predicted label
// equals the configured positive label, and actually-positive when its
// true label does.
//
// When both sides carry bounding boxes, a positive prediction only
// counts as a true positive if some predicted box matches a true box
// with the same label at IoU >= threshold; an alarm that fails to
// localize the real defect is a false positive, not a find.
func classify(r domain.InspectionRecord, positiveLabel string, iouThreshold float64) outcome {
	predPos := r.PredictedLabel == positiveLabel
	truePos := r.TrueLabel == positiveLabel

	switch {
	case !predPos && !truePos:
		return trueNegative
	case predPos && !truePos:
		return falsePositive
	case !predPos && truePos:
		return falseNegative
	}

	if len(r.PredictedBoxes) == 0 || len(r.TrueBoxes) == 0 {
		// Classification-only record: label equality is the whole
		// policy.
		return truePositive
	}
	for _, pb := range r.PredictedBoxes {
		for _, tb := range r.TrueBoxes {
			if pb.Label == tb.Label && pb.IoU(tb) >= iouThreshold {
				return truePositive
			}
		}
	}
	return falsePositive
}

// businessFromCounts derives the operator-facing KPIs from raw
// confusion-matrix counts. All division-by-zero cases resolve to 0,
// never an error.
func businessFromCounts(tp, fp, tn, fn int) domain.BusinessMetrics {
	m := domain.BusinessMetrics{
		TruePositives:  tp,
		FalsePositives: fp,
		TrueNegatives:  tn,
		FalseNegatives: fn,
	}

	m.Precision = safeDiv(float64(tp), float64(tp+fp))
	m.Recall = safeDiv(float64(tp), float64(tp+fn))
	m.F1 = safeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)
	m.Specificity = safeDiv(float64(tn), float64(tn+fp))
	m.BalancedAccuracy = (m.Recall + m.Specificity) / 2

	total := tp + fp + tn + fn
	m.Accuracy = safeDiv(float64(tp+tn), float64(total))

	// Operational rates, as percentages. Defect rate counts every
	// raised alarm (true or false) against the inspection volume.
	m.DefectRatePercent = 100 * safeDiv(float64(tp+fp), float64(total))
	m.FalseAlarmRatePercent = 100 * safeDiv(float64(fp), float64(fp+tn))
	m.MissRatePercent = 100 * safeDiv(float64(fn), float64(fn+tp))

	return m
}

// businessMetrics reduces records to BusinessMetrics under the policy.
func businessMetrics(records []domain.InspectionRecord, positiveLabel string, iouThreshold float64) domain.BusinessMetrics {
	var tp, fp, tn, fn int
	for _, r := range records {
		switch classify(r, positiveLabel, iouThreshold) {
		case truePositive:
			tp++
		case falsePositive:
			fp++
		case trueNegative:
			tn++
		case falseNegative:
			fn++
		}
	}
	return businessFromCounts(tp, fp, tn, fn)
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
