package explain

import (
	"math"
	"sort"

	"github.com/attest-ml/go-attest/internal/domain"
)

// normalizeMap min-max scales a map's values to [0, 1] and returns the
// scaled copy. A map with zero dynamic range (max == min) carries no
// spatial signal to rescale: its constant value is clamped into [0, 1]
// and the Degenerate flag is set so agreement scoring excludes it.
// The input map is not mutated.
func normalizeMap(m domain.AttributionMap) domain.AttributionMap {
	out := m
	out.Values = make([]float64, len(m.Values))

	lo, hi := m.Values[0], m.Values[0]
	for _, v := range m.Values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		out.Degenerate = true
		c := math.Min(1, math.Max(0, lo))
		for i := range out.Values {
			out.Values[i] = c
		}
		return out
	}

	scale := hi - lo
	for i, v := range m.Values {
		out.Values[i] = (v - lo) / scale
	}
	return out
}

// quantileThreshold returns the activation cutoff such that pixels at
// or above it form the top-k% region of the map. values must be
// non-empty and topKPercent in (0, 100].
func quantileThreshold(values []float64, topKPercent float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - topKPercent/100))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// activeRegion binarizes a map at the given threshold.
func activeRegion(values []float64, threshold float64) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v >= threshold
	}
	return out
}
