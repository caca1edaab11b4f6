package explain

import (
	"fmt"
	"sort"

	"github.com/attest-ml/go-attest/internal/domain"
)

// combineMean averages the normalized maps pixel-by-pixel.
func combineMean(maps []domain.AttributionMap) []float64 {
	n := len(maps)
	out := make([]float64, maps[0].Len())
	for _, m := range maps {
		for i, v := range m.Values {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(n)
	}
	return out
}

// combineMedian takes the per-pixel median across maps. With an even
// number of maps the median is the mean of the two middle values.
func combineMedian(maps []domain.AttributionMap) []float64 {
	n := len(maps)
	out := make([]float64, maps[0].Len())
	column := make([]float64, n)
	for i := range out {
		for j, m := range maps {
			column[j] = m.Values[i]
		}
		sort.Float64s(column)
		if n%2 == 1 {
			out[i] = column[n/2]
		} else {
			out[i] = (column[n/2-1] + column[n/2]) / 2
		}
	}
	return out
}

// combineWeighted computes a confidence-weighted average. Each map's
// weight is its self-reported confidence when supplied, otherwise the
// configured static prior for the method, otherwise 1. Weights are
// renormalized to sum to one.
func combineWeighted(maps []domain.AttributionMap, priors map[string]float64) ([]float64, error) {
	weights := make([]float64, len(maps))
	var total float64
	for i, m := range maps {
		w := 1.0
		if m.Confidence > 0 {
			w = m.Confidence
		} else if p, ok := priors[m.Method]; ok {
			w = p
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: method %s weight %.3f", ErrNegativeWeight, m.Method, w)
		}
		weights[i] = w
		total += w
	}
	if total == 0 {
		// All-zero weights degrade to an unweighted mean rather than a
		// divide-by-zero.
		return combineMean(maps), nil
	}

	out := make([]float64, maps[0].Len())
	for i, m := range maps {
		w := weights[i] / total
		for j, v := range m.Values {
			out[j] += w * v
		}
	}
	return out, nil
}
