package predictor

import (
	"context"
	"math"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LogisticParams is the on-disk form of a logistic regression model.
//
//	intercept: -6.1
//	coefficients:
//	  age: 0.045
//	  bmi: 0.09
type LogisticParams struct {
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
}

// Logistic is a Model computing sigmoid(intercept + w·x).
type Logistic struct {
	intercept float64
	weights   []float64
	width     int
}

// NewLogistic builds a model from params. Coefficients must name known
// features; features without a coefficient get weight 0.
func NewLogistic(params LogisticParams) (*Logistic, error) {
	if len(params.Coefficients) == 0 {
		return nil, eris.New("predictor: logistic model has no coefficients")
	}

	weights := make([]float64, len(FeatureNames))
	width := 0
	for name, w := range params.Coefficients {
		idx := slices.Index(FeatureNames, name)
		if idx < 0 {
			return nil, eris.Errorf("predictor: unknown feature %q in logistic model", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, eris.Errorf("predictor: non-finite coefficient for %q", name)
		}
		weights[idx] = w
		width = max(width, idx+1)
	}

	return &Logistic{
		intercept: params.Intercept,
		weights:   weights[:width],
		width:     width,
	}, nil
}

// LoadLogistic reads a YAML model file.
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "predictor: read model %s", path)
	}

	var params LogisticParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, eris.Wrapf(err, "predictor: parse model %s", path)
	}
	return NewLogistic(params)
}

// Width implements FeatureWidth. It is the position of the last feature
// the model uses, so a model over age and bmi only needs [age, bmi].
func (l *Logistic) Width() int { return l.width }

// PredictProba implements Model.
func (l *Logistic) PredictProba(_ context.Context, features []float64) (float64, error) {
	if len(features) != l.width {
		return 0, eris.Errorf("predictor: logistic model expects %d features, got %d", l.width, len(features))
	}
	z := l.intercept
	for i, w := range l.weights {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
