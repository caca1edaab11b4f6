// Package domain contains pure, dependency-free domain models and types
// for the explanation trust engine.
package domain

import "fmt"

// AttributionMap is a single-channel importance grid produced by one
// explainability method at the input image's spatial resolution.
// Values are stored row-major and, once normalized, lie in [0, 1].
// Maps are created per inference call and discarded after aggregation;
// they are never persisted by the core.
type AttributionMap struct {
	// Method identifies the explainability method that produced this map
	// (e.g. "grad_cam", "integrated_gradients").
	Method string `json:"method"`

	// Width and Height describe the spatial resolution of the grid.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Values holds the per-pixel importance scores in row-major order.
	// len(Values) == Width*Height.
	Values []float64 `json:"values"`

	// Confidence is the method's optional self-reported confidence in
	// [0, 1]. Zero means the method did not report one; aggregation then
	// falls back to the configured static prior for the method.
	Confidence float64 `json:"confidence,omitempty"`

	// Degenerate marks a map with zero dynamic range (max == min).
	// Degenerate maps may still contribute to the combined map but are
	// excluded from pairwise agreement scoring, where a constant signal
	// would produce an undefined correlation.
	Degenerate bool `json:"degenerate,omitempty"`
}

// NewAttributionMap constructs an AttributionMap and verifies that the
// value buffer matches the declared resolution.
func NewAttributionMap(method string, width, height int, values []float64) (AttributionMap, error) {
	if width <= 0 || height <= 0 {
		return AttributionMap{}, fmt.Errorf("%w: non-positive resolution %dx%d", ErrInvalidShape, width, height)
	}
	if len(values) != width*height {
		return AttributionMap{}, fmt.Errorf("%w: %d values for %dx%d grid", ErrInvalidShape, len(values), width, height)
	}
	return AttributionMap{Method: method, Width: width, Height: height, Values: values}, nil
}

// SameShape reports whether two maps share a spatial resolution.
func (m AttributionMap) SameShape(other AttributionMap) bool {
	return m.Width == other.Width && m.Height == other.Height
}

// Len returns the number of pixels in the map.
func (m AttributionMap) Len() int { return len(m.Values) }

// At returns the importance score at (x, y). Callers are responsible
// for bounds; this is a hot path during agreement scoring.
func (m AttributionMap) At(x, y int) float64 { return m.Values[y*m.Width+x] }

// Clone returns a deep copy so the original buffer cannot be mutated
// through the copy. Explanations are immutable once returned.
func (m AttributionMap) Clone() AttributionMap {
	out := m
	out.Values = make([]float64, len(m.Values))
	copy(out.Values, m.Values)
	return out
}

// Image is the opaque model input the engine passes through to the
// inference and attribution collaborators. The engine never inspects
// pixel content; it only requires the spatial resolution so attribution
// maps can be validated against it.
type Image struct {
	// Width and Height in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Channels is the number of color channels (1 for grayscale
	// radiographs, 3 for RGB).
	Channels int `json:"channels"`

	// Pixels holds channel-interleaved intensities in [0, 1].
	Pixels []float64 `json:"-"`
}
