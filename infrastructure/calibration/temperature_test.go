package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
)

func TestSoftmax(t *testing.T) {
	t.Parallel()

	t.Run("sums to one", func(t *testing.T) {
		t.Parallel()
		probs := Softmax([]float64{2, 1, 0.1}, 1)
		var sum float64
		for _, p := range probs {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
		assert.Greater(t, probs[0], probs[1])
		assert.Greater(t, probs[1], probs[2])
	})

	t.Run("high temperature flattens the distribution", func(t *testing.T) {
		t.Parallel()
		sharp := Softmax([]float64{4, 0}, 1)
		flat := Softmax([]float64{4, 0}, 8)
		assert.Greater(t, sharp[0], flat[0])
		assert.InDelta(t, 0.5, flat[0], 0.15)
	})

	t.Run("large logits stay finite", func(t *testing.T) {
		t.Parallel()
		probs := Softmax([]float64{1000, 999}, 1)
		for _, p := range probs {
			assert.False(t, math.IsNaN(p))
			assert.False(t, math.IsInf(p, 0))
		}
		assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)
	})
}

func TestFitTemperatureOverconfidentModel(t *testing.T) {
	t.Parallel()

	// Sharp logits but coin-flip accuracy: the NLL optimum is a large
	// temperature that flattens the distribution toward 0.5.
	records := make([]domain.CalibrationRecord, 100)
	for i := range records {
		records[i] = domain.CalibrationRecord{
			Logits:    []float64{5, 0},
			TrueLabel: i % 2,
		}
	}

	temperature, improved := fitTemperature(records, MinTemperature, MaxTemperature)
	assert.True(t, improved)
	assert.Greater(t, temperature, 3.0)
}

func TestFitTemperatureUnderconfidentModel(t *testing.T) {
	t.Parallel()

	// Timid logits but the model is always right: the optimum is a
	// small temperature that sharpens the distribution.
	records := make([]domain.CalibrationRecord, 100)
	for i := range records {
		records[i] = domain.CalibrationRecord{
			Logits:    []float64{0.5, 0},
			TrueLabel: 0,
		}
	}

	temperature, improved := fitTemperature(records, MinTemperature, MaxTemperature)
	assert.True(t, improved)
	assert.Less(t, temperature, 1.0)
}

func TestFitTemperatureCalibratedModelKeepsIdentity(t *testing.T) {
	t.Parallel()

	// A batch whose label distribution already matches softmax(logits):
	// with logits (ln 3, 0) the model says 75/25, and the labels agree.
	// No temperature strictly improves, so the identity is kept.
	records := make([]domain.CalibrationRecord, 100)
	for i := range records {
		label := 0
		if i%4 == 3 {
			label = 1
		}
		records[i] = domain.CalibrationRecord{
			Logits:    []float64{math.Log(3), 0},
			TrueLabel: label,
		}
	}

	temperature, improved := fitTemperature(records, MinTemperature, MaxTemperature)
	if improved {
		// The optimum can land a hair off identity; it must stay close.
		assert.InDelta(t, 1.0, temperature, 0.05)
	} else {
		assert.Equal(t, 1.0, temperature)
	}
}

func TestNegativeLogLikelihoodSkipsUnfittableRecords(t *testing.T) {
	t.Parallel()

	records := []domain.CalibrationRecord{
		{Confidence: 0.9, Correct: true},        // no logits
		{Logits: []float64{1, 0}, TrueLabel: 5}, // label out of range
		{Logits: []float64{1, 0}, TrueLabel: 0}, // fittable
	}
	nll := negativeLogLikelihood(records, 1)
	want := -math.Log(Softmax([]float64{1, 0}, 1)[0])
	assert.InDelta(t, want, nll, 1e-12)

	require.True(t, math.IsNaN(negativeLogLikelihood(records[:2], 1)))
}
