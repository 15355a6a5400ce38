// Package predictor estimates the probability of developing type-2 diabetes
// from a health profile.
//
// Two strategies exist. RuleBased is a deterministic formula with no
// dependencies and is the default. ModelBacked delegates to a pluggable
// Model and falls through to RuleBased whenever the model cannot answer, so
// Predict always yields a usable probability.
package predictor

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// Predictor produces a probability in [0,1]. It never fails.
type Predictor interface {
	Predict(ctx context.Context, p model.HealthProfile) float64
	Name() string
}

// Model is the plug-in boundary for trained predictors. It mirrors a
// predict_proba call and returns the probability of the positive class.
type Model interface {
	PredictProba(ctx context.Context, features []float64) (float64, error)
}

// FeatureWidth is implemented by models trained on a prefix of Features.
type FeatureWidth interface {
	Width() int
}

// FeatureNames lists the feature vector positions in order.
var FeatureNames = []string{
	"age",
	"bmi",
	"family_history",
	"regular_exercise",
	"high_blood_pressure",
	"prior_high_glucose",
	"smoking",
	"stress",
	"sleep_hours",
}

// Features encodes a profile as the fixed, ordered feature vector.
// Booleans become 0/1 and enums their ordinal.
func Features(p model.HealthProfile) []float64 {
	return []float64{
		float64(p.Age),
		p.BMI,
		boolf(p.FamilyHistory),
		boolf(p.RegularExercise),
		boolf(p.HighBloodPressure),
		boolf(p.PriorHighGlucose),
		p.Smoking.Ordinal(),
		p.Stress.Ordinal(),
		p.SleepHours,
	}
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Clamp bounds v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RuleBased is the dependency-free fallback: every year of age above 30
// adds 0.01 and every BMI point above 25 adds 0.02.
type RuleBased struct{}

// NewRuleBased returns the rule-based predictor.
func NewRuleBased() RuleBased { return RuleBased{} }

// Name implements Predictor.
func (RuleBased) Name() string { return "rule" }

// Predict implements Predictor.
func (RuleBased) Predict(_ context.Context, p model.HealthProfile) float64 {
	return Clamp(RuleScore(float64(p.Age), p.BMI))
}

// RuleScore is the unclamped rule-based score.
func RuleScore(age, bmi float64) float64 {
	score := 0.0
	if age > 30 {
		score += (age - 30) * 0.01
	}
	if bmi > 25 {
		score += (bmi - 25) * 0.02
	}
	return score
}

// ModelBacked asks a Model first and falls back when the model errors,
// panics or returns a non-finite value.
type ModelBacked struct {
	model    Model
	name     string
	fallback Predictor
}

// NewModelBacked wraps m. A nil fallback means RuleBased.
func NewModelBacked(name string, m Model, fallback Predictor) *ModelBacked {
	if fallback == nil {
		fallback = RuleBased{}
	}
	return &ModelBacked{model: m, name: name, fallback: fallback}
}

// Name implements Predictor.
func (mb *ModelBacked) Name() string { return mb.name }

// Predict implements Predictor.
func (mb *ModelBacked) Predict(ctx context.Context, p model.HealthProfile) float64 {
	prob, err := mb.invoke(ctx, p)
	if err != nil {
		zap.L().Debug("predictor: model unavailable, using fallback",
			zap.String("model", mb.name),
			zap.String("fallback", mb.fallback.Name()),
			zap.Error(err),
		)
		return Clamp(mb.fallback.Predict(ctx, p))
	}
	return Clamp(prob)
}

func (mb *ModelBacked) invoke(ctx context.Context, p model.HealthProfile) (prob float64, err error) {
	if mb.model == nil {
		return 0, eris.Errorf("predictor: no model configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("predictor: model panicked: %v", r)
		}
	}()

	features := Features(p)
	if fw, ok := mb.model.(FeatureWidth); ok {
		w := fw.Width()
		if w <= 0 || w > len(features) {
			return 0, eris.Errorf("predictor: model expects %d features, have %d", w, len(features))
		}
		features = features[:w]
	}

	prob, err = mb.model.PredictProba(ctx, features)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return 0, eris.Errorf("predictor: model returned non-finite probability %v", prob)
	}
	return prob, nil
}

// Func adapts a function to the Model interface.
type Func func(ctx context.Context, features []float64) (float64, error)

// PredictProba implements Model.
func (f Func) PredictProba(ctx context.Context, features []float64) (float64, error) {
	return f(ctx, features)
}
