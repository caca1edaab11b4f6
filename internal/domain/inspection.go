package domain

import "time"

// BoundingBox is an axis-aligned detection region in pixel coordinates
// with a class label and, for predictions, a confidence score.
type BoundingBox struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Label string  `json:"label"`

	// Confidence is populated for predicted boxes and ignored for
	// ground-truth boxes.
	Confidence float64 `json:"confidence,omitempty"`
}

// Area returns the box area, zero for inverted boxes.
func (b BoundingBox) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of two boxes, in [0, 1].
func (b BoundingBox) IoU(other BoundingBox) float64 {
	ix1 := max(b.X1, other.X1)
	iy1 := max(b.Y1, other.Y1)
	ix2 := min(b.X2, other.X2)
	iy2 := min(b.Y2, other.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Mask is a binary segmentation mask at image resolution, row-major.
type Mask struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bits   []bool `json:"bits"`
}

// SameShape reports whether two masks share a resolution.
func (m *Mask) SameShape(other *Mask) bool {
	return other != nil && m.Width == other.Width && m.Height == other.Height
}

// Sum returns the number of set pixels.
func (m *Mask) Sum() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// InspectionRecord is one historical (prediction, ground truth) pair,
// the unit the metrics aggregator reduces over a time window. Boxes and
// masks are optional; records without them only feed the business
// metrics.
type InspectionRecord struct {
	// ID uniquely identifies the record (a UUID).
	ID string `json:"id"`

	// CapturedAt places the record on the time axis for windowing.
	CapturedAt time.Time `json:"captured_at"`

	// PredictedLabel and TrueLabel are the classification outcome.
	// The configured positive label (typically "defect") drives the
	// TP/FP/TN/FN split.
	PredictedLabel string `json:"predicted_label"`
	TrueLabel      string `json:"true_label"`

	// Confidence is the model's confidence in the predicted label.
	Confidence float64 `json:"confidence"`

	// PredictedBoxes and TrueBoxes carry detections when available.
	PredictedBoxes []BoundingBox `json:"predicted_boxes,omitempty"`
	TrueBoxes      []BoundingBox `json:"true_boxes,omitempty"`

	// PredictedMask and TrueMask carry segmentation output when
	// available.
	PredictedMask *Mask `json:"predicted_mask,omitempty"`
	TrueMask      *Mask `json:"true_mask,omitempty"`
}

// BusinessMetrics are the operator-facing confusion-matrix KPIs.
// All division-by-zero cases resolve to 0, not an error.
type BusinessMetrics struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`

	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	F1               float64 `json:"f1"`
	Accuracy         float64 `json:"accuracy"`
	Specificity      float64 `json:"specificity"`
	BalancedAccuracy float64 `json:"balanced_accuracy"`

	// Operational rates, expressed as percentages.
	DefectRatePercent     float64 `json:"defect_rate_percent"`
	FalseAlarmRatePercent float64 `json:"false_alarm_rate_percent"`
	MissRatePercent       float64 `json:"miss_rate_percent"`
}

// DetectionMetrics are the localization KPIs, macro-averaged across
// classes.
type DetectionMetrics struct {
	// MAP50 and MAP75 are mAP at IoU thresholds 0.5 and 0.75.
	MAP50 float64 `json:"map_50"`
	MAP75 float64 `json:"map_75"`

	// MAPCoco is mAP averaged over IoU thresholds 0.5:0.95 step 0.05.
	MAPCoco float64 `json:"map_coco"`

	// AUROC ranks confidences against the binary correct/incorrect
	// label.
	AUROC float64 `json:"auroc"`
}

// SegmentationMetrics are the mask-overlap KPIs averaged over the
// instances that carry masks.
type SegmentationMetrics struct {
	MeanIoU       float64 `json:"mean_iou"`
	MeanDice      float64 `json:"mean_dice"`
	PixelAccuracy float64 `json:"pixel_accuracy"`

	// Instances is the number of records with both masks present.
	Instances int `json:"instances"`
}

// MetricsSnapshot is the full KPI reduction of one time window.
// It is a pure function of the window's record set, computed fresh per
// query and optionally cached by window key.
type MetricsSnapshot struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Business     BusinessMetrics     `json:"business"`
	Detection    DetectionMetrics    `json:"detection"`
	Segmentation SegmentationMetrics `json:"segmentation"`

	// TotalRecords is the number of records in the window.
	TotalRecords int `json:"total_records"`

	// ComputedAt records when the snapshot was reduced.
	ComputedAt time.Time `json:"computed_at"`
}
