package bmi

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		weight float64
		height float64
		want   float64
		ok     bool
	}{
		{"scenario 1", 95, 170, 32.9, true},
		{"scenario 2", 60, 175, 19.6, true},
		{"scenario 3", 110, 160, 43.0, true},
		{"round up", 70, 170, 24.2, true},
		{"zero height", 70, 0, 0, false},
		{"zero weight", 0, 170, 0, false},
		{"negative height", 70, -170, 0, false},
		{"negative weight", -1, 170, 0, false},
		{"nan weight", math.NaN(), 170, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Compute(tt.weight, tt.height)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCompute_MatchesFormula(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		w := 1 + rng.Float64()*299
		h := 50 + rng.Float64()*200
		got, ok := Compute(w, h)
		require.True(t, ok)
		want := math.Round(w/((h/100)*(h/100))*10) / 10
		assert.InDelta(t, want, got, 1e-9, "w=%v h=%v", w, h)
	}
}

func TestFromInput(t *testing.T) {
	t.Parallel()

	w, h := 95.0, 170.0
	got := FromInput(&w, &h)
	require.NotNil(t, got)
	assert.Equal(t, 32.9, *got)

	assert.Nil(t, FromInput(nil, &h))
	assert.Nil(t, FromInput(&w, nil))
	zero := 0.0
	assert.Nil(t, FromInput(&w, &zero))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Underweight, Classify(18.4))
	assert.Equal(t, Normal, Classify(18.5))
	assert.Equal(t, Normal, Classify(24.9))
	assert.Equal(t, Overweight, Classify(25))
	assert.Equal(t, Overweight, Classify(29.9))
	assert.Equal(t, Obese, Classify(30))
}
