package export

import (
	"encoding/csv"
	"errors"
	"io"
	"slices"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []model.AssessmentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	for _, rec := range records {
		rec.CreatedAt = rec.CreatedAt.UTC()
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// ReadCSV parses a CSV file written by WriteCSV. Columns may appear in any
// order; bmi may be absent or empty.
func ReadCSV(r io.Reader, opts ...ReadOption) ([]model.AssessmentRecord, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, eris.New("export: empty csv")
		}
		return nil, eris.Wrap(err, "export: read csv header")
	}

	header := dec.Header()
	for _, col := range Columns[:len(Columns)-1] {
		if !slices.Contains(header, col) {
			return nil, eris.Errorf("export: csv missing column %q", col)
		}
	}

	var out []model.AssessmentRecord
	for {
		var rec model.AssessmentRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "export: decode csv row %d", len(out)+1)
		}
		out = append(out, rec)
	}
	return out, validate(out, newReadConfig(opts))
}

type inputRow struct {
	Age               *int     `csv:"age"`
	WeightKg          *float64 `csv:"weight_kg"`
	HeightCm          *float64 `csv:"height_cm"`
	FamilyHistory     *bool    `csv:"family_history"`
	RegularExercise   *bool    `csv:"regular_exercise"`
	HighBloodPressure *bool    `csv:"high_blood_pressure"`
	PriorHighGlucose  *bool    `csv:"prior_high_glucose"`
	Smoking           string   `csv:"smoking_status"`
	Stress            string   `csv:"stress_level"`
	SleepHours        *float64 `csv:"sleep_hours"`
}

// ReadInputsCSV parses assessment inputs, one per row, for batch runs.
// Empty cells stay unset so the workflow can report them as missing.
func ReadInputsCSV(r io.Reader) ([]model.RawInput, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "export: read input header")
	}

	var out []model.RawInput
	for line := 2; ; line++ {
		var row inputRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "export: decode input line %d", line)
		}

		in := model.RawInput{
			Age:               row.Age,
			WeightKg:          row.WeightKg,
			HeightCm:          row.HeightCm,
			FamilyHistory:     row.FamilyHistory,
			RegularExercise:   row.RegularExercise,
			HighBloodPressure: row.HighBloodPressure,
			PriorHighGlucose:  row.PriorHighGlucose,
			SleepHours:        row.SleepHours,
		}
		if row.Smoking != "" {
			s, err := model.ParseSmokingStatus(row.Smoking)
			if err != nil {
				return nil, eris.Wrapf(err, "export: input line %d", line)
			}
			in.Smoking = &s
		}
		if row.Stress != "" {
			s, err := model.ParseStressLevel(row.Stress)
			if err != nil {
				return nil, eris.Wrapf(err, "export: input line %d", line)
			}
			in.Stress = &s
		}
		out = append(out, in)
	}
	return out, nil
}
