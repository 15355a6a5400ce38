package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Tier is the discrete risk category derived from a probability.
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// ParseTier parses a tier name, ignoring case.
func ParseTier(s string) (Tier, error) {
	switch normalize(s) {
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	}
	return "", eris.Errorf("model: unknown tier %q", s)
}

// AssessmentResult is the outcome of one scored workflow run.
type AssessmentResult struct {
	ID          string        `json:"id"`
	Probability float64       `json:"probability"`
	Tier        Tier          `json:"tier"`
	CreatedAt   time.Time     `json:"created_at"`
	Profile     HealthProfile `json:"profile"`
}

// AssessmentRecord is the persisted projection of an AssessmentResult.
// Field order matches the export column order.
type AssessmentRecord struct {
	CreatedAt   time.Time `json:"created_at" csv:"created_at"`
	Tier        Tier      `json:"tier" csv:"tier"`
	Probability float64   `json:"probability" csv:"probability"`
	Age         int       `json:"age" csv:"age"`
	WeightKg    float64   `json:"weight_kg" csv:"weight_kg"`
	HeightCm    float64   `json:"height_cm" csv:"height_cm"`
	BMI         *float64  `json:"bmi,omitempty" csv:"bmi,omitempty"`
}

// Project builds the history record for a result. BMI is carried only when
// both weight and height were present.
func Project(r AssessmentResult) AssessmentRecord {
	rec := AssessmentRecord{
		CreatedAt:   r.CreatedAt,
		Tier:        r.Tier,
		Probability: r.Probability,
		Age:         r.Profile.Age,
		WeightKg:    r.Profile.WeightKg,
		HeightCm:    r.Profile.HeightCm,
	}
	if r.Profile.WeightKg > 0 && r.Profile.HeightCm > 0 {
		b := r.Profile.BMI
		rec.BMI = &b
	}
	return rec
}
