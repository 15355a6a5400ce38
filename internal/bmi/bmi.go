// Package bmi derives body-mass index from weight and height.
package bmi

import "math"

// Category is a WHO adult BMI band.
type Category string

const (
	Underweight Category = "underweight"
	Normal      Category = "normal"
	Overweight  Category = "overweight"
	Obese       Category = "obese"
)

// Compute returns weight / (height in metres)^2 rounded to one decimal.
// The second return is false when either input is zero or negative; a
// missing value should be passed as 0.
func Compute(weightKg, heightCm float64) (float64, bool) {
	if !(weightKg > 0) || !(heightCm > 0) {
		return 0, false
	}
	m := heightCm / 100
	return Round1(weightKg / (m * m)), true
}

// FromInput is Compute for optional form values. It returns nil when the
// BMI is unavailable.
func FromInput(weightKg, heightCm *float64) *float64 {
	if weightKg == nil || heightCm == nil {
		return nil
	}
	v, ok := Compute(*weightKg, *heightCm)
	if !ok {
		return nil
	}
	return &v
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Classify returns the BMI band for v.
func Classify(v float64) Category {
	switch {
	case v < 18.5:
		return Underweight
	case v < 25:
		return Normal
	case v < 30:
		return Overweight
	default:
		return Obese
	}
}
