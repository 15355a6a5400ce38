package predictor

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diabetes-risk/internal/bmi"
	"github.com/sells-group/diabetes-risk/internal/model"
)

type stubModel struct {
	prob  float64
	err   error
	panic bool
	width int
	seen  []float64
}

func (s *stubModel) PredictProba(_ context.Context, features []float64) (float64, error) {
	s.seen = features
	if s.panic {
		panic("boom")
	}
	return s.prob, s.err
}

type widthModel struct {
	stubModel
}

func (w *widthModel) Width() int { return w.width }

func profile(t *testing.T, age int, weight, height float64) model.HealthProfile {
	t.Helper()
	b, ok := bmi.Compute(weight, height)
	require.True(t, ok)
	return model.HealthProfile{
		Age:        age,
		WeightKg:   weight,
		HeightCm:   height,
		BMI:        b,
		Smoking:    model.SmokingNever,
		Stress:     model.StressLow,
		SleepHours: model.DefaultSleepHours,
	}
}

func TestRuleBasedScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		age     int
		weight  float64
		height  float64
		wantBMI float64
		want    float64
	}{
		{"middle aged overweight", 50, 95, 170, 32.9, 0.358},
		{"young normal weight", 25, 60, 175, 19.6, 0.0},
		{"elderly obese", 80, 110, 160, 43.0, 0.86},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := profile(t, tt.age, tt.weight, tt.height)
			assert.Equal(t, tt.wantBMI, p.BMI)
			assert.InDelta(t, tt.want, RuleBased{}.Predict(context.Background(), p), 1e-9)
		})
	}
}

func TestRuleBasedClamps(t *testing.T) {
	t.Parallel()

	p := model.HealthProfile{Age: 120, BMI: 80}
	assert.Equal(t, 1.0, RuleBased{}.Predict(context.Background(), p))

	p = model.HealthProfile{Age: 1, BMI: 10}
	assert.Equal(t, 0.0, RuleBased{}.Predict(context.Background(), p))

	// Boundaries contribute nothing.
	assert.Equal(t, 0.0, RuleScore(30, 25))
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Clamp(-0.5))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 1.0, Clamp(1.5))
	assert.Equal(t, 1.0, Clamp(math.Inf(1)))
	assert.Equal(t, 0.42, Clamp(0.42))
}

func TestFeatures(t *testing.T) {
	t.Parallel()

	p := model.HealthProfile{
		Age:              52,
		BMI:              28.4,
		FamilyHistory:    true,
		PriorHighGlucose: true,
		Smoking:          model.SmokingFormer,
		Stress:           model.StressHigh,
		SleepHours:       6,
	}

	f := Features(p)
	require.Len(t, f, len(FeatureNames))
	assert.Equal(t, []float64{52, 28.4, 1, 0, 0, 1, 1, 2, 6}, f)
}

func TestModelBacked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := profile(t, 50, 95, 170)
	rule := RuleBased{}.Predict(ctx, p)

	tests := []struct {
		name  string
		model Model
		want  float64
	}{
		{"model answer", &stubModel{prob: 0.73}, 0.73},
		{"clamped high", &stubModel{prob: 1.7}, 1},
		{"clamped low", &stubModel{prob: -0.2}, 0},
		{"error falls back", &stubModel{err: errors.New("unavailable")}, rule},
		{"panic falls back", &stubModel{panic: true}, rule},
		{"nan falls back", &stubModel{prob: math.NaN()}, rule},
		{"inf falls back", &stubModel{prob: math.Inf(-1)}, rule},
		{"bad width falls back", &widthModel{stubModel{prob: 0.9, width: 42}}, rule},
		{"nil model falls back", nil, rule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mb := NewModelBacked("stub", tt.model, nil)
			assert.InDelta(t, tt.want, mb.Predict(ctx, p), 1e-9)
		})
	}
}

func TestModelBackedWidthPrefix(t *testing.T) {
	t.Parallel()

	m := &widthModel{stubModel{prob: 0.5, width: 2}}
	mb := NewModelBacked("minimal", m, nil)

	p := profile(t, 50, 95, 170)
	assert.Equal(t, 0.5, mb.Predict(context.Background(), p))
	assert.Equal(t, []float64{50, 32.9}, m.seen)
	assert.Equal(t, "minimal", mb.Name())
}

func randomProfile(r *rand.Rand) model.HealthProfile {
	ages := []int{1, 120, 30, 31}
	var age int
	if r.IntN(10) == 0 {
		age = ages[r.IntN(len(ages))]
	} else {
		age = 1 + r.IntN(120)
	}

	b := 10 + r.Float64()*60
	switch r.IntN(10) {
	case 0:
		b = 25
	case 1:
		b = 30
	}

	smoking := []model.SmokingStatus{model.SmokingNever, model.SmokingFormer, model.SmokingCurrent}
	stress := []model.StressLevel{model.StressLow, model.StressModerate, model.StressHigh}

	return model.HealthProfile{
		Age:               age,
		BMI:               b,
		FamilyHistory:     r.IntN(2) == 0,
		RegularExercise:   r.IntN(2) == 0,
		HighBloodPressure: r.IntN(2) == 0,
		PriorHighGlucose:  r.IntN(2) == 0,
		Smoking:           smoking[r.IntN(3)],
		Stress:            stress[r.IntN(3)],
		SleepHours:        model.MinSleepHours + r.Float64()*(model.MaxSleepHours-model.MinSleepHours),
	}
}

func TestPredictAlwaysInRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := rand.New(rand.NewPCG(7, 11))

	predictors := []Predictor{
		RuleBased{},
		NewModelBacked("failing", &stubModel{err: errors.New("down")}, nil),
		NewModelBacked("panicking", &stubModel{panic: true}, nil),
		NewModelBacked("wild", Func(func(_ context.Context, f []float64) (float64, error) {
			return f[0] - f[1], nil
		}), nil),
	}

	for i := 0; i < 10000; i++ {
		p := randomProfile(r)
		for _, pr := range predictors {
			got := pr.Predict(ctx, p)
			if got < 0 || got > 1 || math.IsNaN(got) {
				t.Fatalf("%s: probability %v out of range for %+v", pr.Name(), got, p)
			}
		}
	}
}
