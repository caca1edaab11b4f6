package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
)

func TestPairwiseAgreementIdenticalMaps(t *testing.T) {
	t.Parallel()

	ramp := []float64{0, 0.25, 0.5, 0.75, 1}
	maps := []domain.AttributionMap{mapOf("a", ramp), mapOf("b", ramp)}

	pairs := pairwiseAgreement(maps, 20)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].MethodA)
	assert.Equal(t, "b", pairs[0].MethodB)
	assert.InDelta(t, 1.0, pairs[0].Correlation, 1e-9)
	assert.InDelta(t, 1.0, pairs[0].IoU, 1e-9)
	assert.InDelta(t, 1.0, pairs[0].Dice, 1e-9)
}

func TestPairwiseAgreementDisjointSupport(t *testing.T) {
	t.Parallel()

	// a activates only the left half, b only the right.
	a := make([]float64, 100)
	b := make([]float64, 100)
	for i := 0; i < 50; i++ {
		a[i] = 1
		b[99-i] = 1
	}
	maps := []domain.AttributionMap{mapOf("a", a), mapOf("b", b)}

	pairs := pairwiseAgreement(maps, 20)
	require.Len(t, pairs, 1)
	// Perfectly anti-correlated maps clamp to zero agreement.
	assert.Zero(t, pairs[0].Correlation)
	assert.Zero(t, pairs[0].IoU)
	assert.Zero(t, pairs[0].Dice)
}

func TestPairwiseAgreementPairCount(t *testing.T) {
	t.Parallel()

	ramp := []float64{0, 1, 2, 3}
	maps := []domain.AttributionMap{
		mapOf("a", ramp), mapOf("b", ramp), mapOf("c", ramp), mapOf("d", ramp),
	}
	pairs := pairwiseAgreement(maps, 50)
	assert.Len(t, pairs, 6) // C(4,2)
}

func TestConsensusScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		pairs []domain.PairwiseAgreement
		want  float64
	}{
		{
			name:  "no pairs is perfect agreement by convention",
			pairs: nil,
			want:  1.0,
		},
		{
			name: "perfect pair",
			pairs: []domain.PairwiseAgreement{
				{Correlation: 1, IoU: 1, Dice: 1},
			},
			want: 1.0,
		},
		{
			name: "averages across pairs and metrics",
			pairs: []domain.PairwiseAgreement{
				{Correlation: 1, IoU: 1, Dice: 1},
				{Correlation: 0, IoU: 0, Dice: 0},
			},
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := consensusScore(tt.pairs, 1, 1, 1)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestConsensusScoreWeights(t *testing.T) {
	t.Parallel()

	pairs := []domain.PairwiseAgreement{{Correlation: 1, IoU: 0, Dice: 0}}

	// Only the correlation term weighted.
	assert.InDelta(t, 1.0, consensusScore(pairs, 1, 0, 0), 1e-9)
	// Only the region terms weighted.
	assert.InDelta(t, 0.0, consensusScore(pairs, 0, 1, 1), 1e-9)
}
