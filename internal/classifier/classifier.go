// Package classifier maps a risk probability onto a discrete tier.
package classifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diabetes-risk/internal/config"
	"github.com/sells-group/diabetes-risk/internal/model"
)

// Classifier turns a probability into a tier. Implementations must be pure
// and total.
type Classifier interface {
	Classify(probability float64) model.Tier
}

// Func adapts a plain function to the Classifier interface.
type Func func(probability float64) model.Tier

// Classify calls f.
func (f Func) Classify(probability float64) model.Tier { return f(probability) }

// Thresholds splits [0,1] into three tiers. A probability equal to a
// threshold belongs to the higher tier.
type Thresholds struct {
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// Default returns the standard 0.34 / 0.67 split.
func Default() Thresholds {
	return Thresholds{Medium: 0.34, High: 0.67}
}

// FromConfig builds thresholds from config, validating them.
func FromConfig(c config.ClassifierConfig) (Thresholds, error) {
	t := Thresholds{Medium: c.Medium, High: c.High}
	if err := Validate(t); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Classify implements Classifier. NaN is treated as 0.
func (t Thresholds) Classify(p float64) model.Tier {
	if math.IsNaN(p) {
		p = 0
	}
	switch {
	case p < t.Medium:
		return model.TierLow
	case p < t.High:
		return model.TierMedium
	default:
		return model.TierHigh
	}
}

// Validate checks that 0 < Medium < High <= 1.
func Validate(t Thresholds) error {
	var errs []string

	if !(t.Medium > 0) {
		errs = append(errs, "medium threshold must be > 0")
	}
	if !(t.High <= 1) {
		errs = append(errs, "high threshold must be <= 1")
	}
	if !(t.Medium < t.High) {
		errs = append(errs, fmt.Sprintf("medium (%.2f) must be below high (%.2f)", t.Medium, t.High))
	}

	if len(errs) > 0 {
		return eris.Errorf("classifier: invalid thresholds: %s", strings.Join(errs, "; "))
	}
	return nil
}
