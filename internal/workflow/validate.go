package workflow

import (
	"fmt"

	"github.com/sells-group/diabetes-risk/internal/bmi"
	"github.com/sells-group/diabetes-risk/internal/model"
)

// BuildProfile checks raw and fills defaults for unanswered optional fields.
// It is pure; Session.Validate wraps it with the state transition.
func BuildProfile(raw model.RawInput) (*model.HealthProfile, error) {
	verr := &ValidationError{}

	if raw.Age == nil {
		verr.Missing = append(verr.Missing, "age")
	} else if *raw.Age < model.MinAge || *raw.Age > model.MaxAge {
		verr.Invalid = append(verr.Invalid, FieldError{"age", fmt.Sprintf("must be between %d and %d", model.MinAge, model.MaxAge)})
	}

	if raw.WeightKg == nil {
		verr.Missing = append(verr.Missing, "weight_kg")
	} else if !(*raw.WeightKg > 0) || *raw.WeightKg > model.MaxWeightKg {
		verr.Invalid = append(verr.Invalid, FieldError{"weight_kg", fmt.Sprintf("must be greater than 0 and at most %g", model.MaxWeightKg)})
	}

	if raw.HeightCm == nil {
		verr.Missing = append(verr.Missing, "height_cm")
	} else if !(*raw.HeightCm > 0) || *raw.HeightCm > model.MaxHeightCm {
		verr.Invalid = append(verr.Invalid, FieldError{"height_cm", fmt.Sprintf("must be greater than 0 and at most %g", model.MaxHeightCm)})
	}

	b := bmi.FromInput(raw.WeightKg, raw.HeightCm)
	if b == nil {
		verr.Missing = append(verr.Missing, "bmi")
	}

	sleep := model.DefaultSleepHours
	if raw.SleepHours != nil {
		sleep = *raw.SleepHours
		if !(sleep >= model.MinSleepHours && sleep <= model.MaxSleepHours) {
			verr.Invalid = append(verr.Invalid, FieldError{"sleep_hours", fmt.Sprintf("must be between %g and %g", model.MinSleepHours, model.MaxSleepHours)})
		}
	}

	smoking := model.SmokingNever
	if raw.Smoking != nil {
		v, err := model.ParseSmokingStatus(string(*raw.Smoking))
		if err != nil {
			verr.Invalid = append(verr.Invalid, FieldError{"smoking_status", "must be one of never, former, current"})
		}
		smoking = v
	}

	stress := model.StressLow
	if raw.Stress != nil {
		v, err := model.ParseStressLevel(string(*raw.Stress))
		if err != nil {
			verr.Invalid = append(verr.Invalid, FieldError{"stress_level", "must be one of low, moderate, high"})
		}
		stress = v
	}

	if !verr.empty() {
		return nil, verr
	}

	p := &model.HealthProfile{
		Age:        *raw.Age,
		WeightKg:   *raw.WeightKg,
		HeightCm:   *raw.HeightCm,
		BMI:        *b,
		Smoking:    smoking,
		Stress:     stress,
		SleepHours: sleep,
	}
	if raw.FamilyHistory != nil {
		p.FamilyHistory = *raw.FamilyHistory
	}
	if raw.RegularExercise != nil {
		p.RegularExercise = *raw.RegularExercise
	}
	if raw.HighBloodPressure != nil {
		p.HighBloodPressure = *raw.HighBloodPressure
	}
	if raw.PriorHighGlucose != nil {
		p.PriorHighGlucose = *raw.PriorHighGlucose
	}
	return p, nil
}
