package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// SmokingStatus describes a person's smoking history.
type SmokingStatus string

const (
	SmokingNever   SmokingStatus = "never"
	SmokingFormer  SmokingStatus = "former"
	SmokingCurrent SmokingStatus = "current"
)

// StressLevel is the self-reported day-to-day stress level.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

// Profile field bounds.
const (
	MinAge        = 1
	MaxAge        = 120
	MaxWeightKg   = 300.0
	MaxHeightCm   = 250.0
	MinSleepHours = 3.0
	MaxSleepHours = 12.0

	// DefaultSleepHours is used when the form leaves sleep unanswered.
	DefaultSleepHours = 7.0
)

// normalize folds case for enum comparison. A Caser is stateful, so a new
// one is built per call.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ParseSmokingStatus parses a smoking status, ignoring case and surrounding space.
func ParseSmokingStatus(s string) (SmokingStatus, error) {
	switch SmokingStatus(normalize(s)) {
	case SmokingNever:
		return SmokingNever, nil
	case SmokingFormer:
		return SmokingFormer, nil
	case SmokingCurrent:
		return SmokingCurrent, nil
	}
	return "", eris.Errorf("model: unknown smoking status %q", s)
}

// ParseStressLevel parses a stress level, ignoring case and surrounding space.
func ParseStressLevel(s string) (StressLevel, error) {
	switch StressLevel(normalize(s)) {
	case StressLow:
		return StressLow, nil
	case StressModerate:
		return StressModerate, nil
	case StressHigh:
		return StressHigh, nil
	}
	return "", eris.Errorf("model: unknown stress level %q", s)
}

// Ordinal encodes the smoking status as 0 (never), 1 (former) or 2 (current).
func (s SmokingStatus) Ordinal() float64 {
	switch s {
	case SmokingFormer:
		return 1
	case SmokingCurrent:
		return 2
	default:
		return 0
	}
}

// Ordinal encodes the stress level as 0 (low), 1 (moderate) or 2 (high).
func (s StressLevel) Ordinal() float64 {
	switch s {
	case StressModerate:
		return 1
	case StressHigh:
		return 2
	default:
		return 0
	}
}

// RawInput is the field set collected from a form, flags or a CSV row.
// Every field is optional until the workflow validates it.
type RawInput struct {
	Age               *int           `json:"age,omitempty"`
	WeightKg          *float64       `json:"weight_kg,omitempty"`
	HeightCm          *float64       `json:"height_cm,omitempty"`
	FamilyHistory     *bool          `json:"family_history,omitempty"`
	RegularExercise   *bool          `json:"regular_exercise,omitempty"`
	HighBloodPressure *bool          `json:"high_blood_pressure,omitempty"`
	PriorHighGlucose  *bool          `json:"prior_high_glucose,omitempty"`
	Smoking           *SmokingStatus `json:"smoking_status,omitempty"`
	Stress            *StressLevel   `json:"stress_level,omitempty"`
	SleepHours        *float64       `json:"sleep_hours,omitempty"`
}

// Merge returns a copy of r with every non-nil field of other applied on top.
func (r RawInput) Merge(other RawInput) RawInput {
	out := r
	if other.Age != nil {
		out.Age = other.Age
	}
	if other.WeightKg != nil {
		out.WeightKg = other.WeightKg
	}
	if other.HeightCm != nil {
		out.HeightCm = other.HeightCm
	}
	if other.FamilyHistory != nil {
		out.FamilyHistory = other.FamilyHistory
	}
	if other.RegularExercise != nil {
		out.RegularExercise = other.RegularExercise
	}
	if other.HighBloodPressure != nil {
		out.HighBloodPressure = other.HighBloodPressure
	}
	if other.PriorHighGlucose != nil {
		out.PriorHighGlucose = other.PriorHighGlucose
	}
	if other.Smoking != nil {
		out.Smoking = other.Smoking
	}
	if other.Stress != nil {
		out.Stress = other.Stress
	}
	if other.SleepHours != nil {
		out.SleepHours = other.SleepHours
	}
	return out
}

// HealthProfile is a validated set of attributes for one assessment run.
type HealthProfile struct {
	Age               int           `json:"age"`
	WeightKg          float64       `json:"weight_kg"`
	HeightCm          float64       `json:"height_cm"`
	BMI               float64       `json:"bmi"`
	FamilyHistory     bool          `json:"family_history"`
	RegularExercise   bool          `json:"regular_exercise"`
	HighBloodPressure bool          `json:"high_blood_pressure"`
	PriorHighGlucose  bool          `json:"prior_high_glucose"`
	Smoking           SmokingStatus `json:"smoking_status"`
	Stress            StressLevel   `json:"stress_level"`
	SleepHours        float64       `json:"sleep_hours"`
}

// Ptr returns a pointer to v. Handy for building RawInput literals.
func Ptr[T any](v T) *T {
	return &v
}
