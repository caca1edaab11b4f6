package evalmetrics

import (
	"sort"

	"github.com/attest-ml/go-attest/internal/domain"
)

// rankedDetection is one predicted box flattened out of its record,
// ready for confidence-ranked sweeping.
type rankedDetection struct {
	record     int
	confidence float64
	box        domain.BoundingBox
}

// averagePrecision computes AP for one class at one IoU threshold.
//
// Predictions are ranked by confidence and matched greedily against
// unmatched ground-truth boxes of the same class within the same
// record; each ground truth can absorb at most one prediction. The
// precision-recall curve is swept over the ranking and integrated with
// the interpolated-precision envelope (precision monotonically
// non-increasing in recall), the standard all-point AP.
//
// Returns AP and whether the class had any ground truth at all; a
// class with no ground truth is skipped by the macro average rather
// than contributing a meaningless zero.
func averagePrecision(records []domain.InspectionRecord, class string, iouThreshold float64) (float64, bool) {
	var detections []rankedDetection
	totalGT := 0
	gtUsed := make([][]bool, len(records))

	for i, r := range records {
		for _, pb := range r.PredictedBoxes {
			if pb.Label == class {
				detections = append(detections, rankedDetection{record: i, confidence: pb.Confidence, box: pb})
			}
		}
		used := 0
		for _, tb := range r.TrueBoxes {
			if tb.Label == class {
				used++
			}
		}
		totalGT += used
		gtUsed[i] = make([]bool, len(r.TrueBoxes))
	}

	if totalGT == 0 {
		return 0, false
	}
	if len(detections) == 0 {
		return 0, true
	}

	sort.SliceStable(detections, func(a, b int) bool {
		return detections[a].confidence > detections[b].confidence
	})

	tp := make([]bool, len(detections))
	for d, det := range detections {
		r := records[det.record]
		bestIoU, bestIdx := 0.0, -1
		for g, tb := range r.TrueBoxes {
			if tb.Label != class || gtUsed[det.record][g] {
				continue
			}
			if iou := det.box.IoU(tb); iou > bestIoU {
				bestIoU, bestIdx = iou, g
			}
		}
		if bestIdx >= 0 && bestIoU >= iouThreshold {
			tp[d] = true
			gtUsed[det.record][bestIdx] = true
		}
	}

	// Sweep the ranking into a PR curve.
	precisions := make([]float64, len(detections))
	recalls := make([]float64, len(detections))
	cumTP := 0
	for d := range detections {
		if tp[d] {
			cumTP++
		}
		precisions[d] = float64(cumTP) / float64(d+1)
		recalls[d] = float64(cumTP) / float64(totalGT)
	}

	// Interpolated precision: envelope from the right.
	for d := len(precisions) - 2; d >= 0; d-- {
		if precisions[d+1] > precisions[d] {
			precisions[d] = precisions[d+1]
		}
	}

	ap := 0.0
	prevRecall := 0.0
	for d := range detections {
		if recalls[d] > prevRecall {
			ap += (recalls[d] - prevRecall) * precisions[d]
			prevRecall = recalls[d]
		}
	}
	return ap, true
}

// meanAveragePrecision macro-averages AP over all classes present in
// the ground truth.
func meanAveragePrecision(records []domain.InspectionRecord, iouThreshold float64) float64 {
	classes := groundTruthClasses(records)
	if len(classes) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, class := range classes {
		if ap, ok := averagePrecision(records, class, iouThreshold); ok {
			sum += ap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// cocoMAP averages mAP over the IoU threshold sweep [lo, hi] with the
// given step (COCO-style 0.5:0.95:0.05 by default).
func cocoMAP(records []domain.InspectionRecord, lo, hi, step float64) float64 {
	if step <= 0 || hi < lo {
		return 0
	}
	var sum float64
	var n int
	// A half-step of slack keeps the final threshold in the sweep
	// despite accumulated floating error.
	for thr := lo; thr <= hi+step/2; thr += step {
		sum += meanAveragePrecision(records, thr)
		n++
	}
	return sum / float64(n)
}

// groundTruthClasses returns the sorted set of labels appearing in any
// ground-truth box.
func groundTruthClasses(records []domain.InspectionRecord) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		for _, tb := range r.TrueBoxes {
			set[tb.Label] = struct{}{}
		}
	}
	classes := make([]string, 0, len(set))
	for c := range set {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// auroc ranks record confidences against the binary correct/incorrect
// label via the Mann-Whitney U statistic, with the standard half-credit
// for ties. A window that is all-correct or all-incorrect has no
// ranking to measure and resolves to 0.
func auroc(records []domain.InspectionRecord) float64 {
	type scored struct {
		confidence float64
		correct    bool
	}
	items := make([]scored, 0, len(records))
	var pos, neg int
	for _, r := range records {
		correct := r.PredictedLabel == r.TrueLabel
		items = append(items, scored{r.Confidence, correct})
		if correct {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}

	var u float64
	for _, p := range items {
		if !p.correct {
			continue
		}
		for _, q := range items {
			if q.correct {
				continue
			}
			switch {
			case p.confidence > q.confidence:
				u++
			case p.confidence == q.confidence:
				u += 0.5
			}
		}
	}
	return u / float64(pos*neg)
}
