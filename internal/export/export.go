// Package export writes and reads assessment history as CSV, XLSX and JSON.
//
// All formats share one column order (Columns). Timestamps are written in
// UTC as RFC 3339 with nanoseconds so a CSV round trip is lossless.
package export

import (
	"encoding/json"
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diabetes-risk/internal/bmi"
	"github.com/sells-group/diabetes-risk/internal/classifier"
	"github.com/sells-group/diabetes-risk/internal/model"
)

// Columns is the stable export column order.
var Columns = []string{
	"created_at",
	"tier",
	"probability",
	"age",
	"weight_kg",
	"height_cm",
	"bmi",
}

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", eris.Errorf("export: unsupported format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// Write encodes records to w in format f.
func Write(w io.Writer, f Format, records []model.AssessmentRecord) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	}
	return eris.Errorf("export: unsupported format %q", f)
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.AssessmentRecord) error {
	if records == nil {
		records = []model.AssessmentRecord{}
	}
	out := make([]model.AssessmentRecord, len(records))
	for i, rec := range records {
		rec.CreatedAt = rec.CreatedAt.UTC()
		out[i] = rec
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(out), "export: encode json")
}

// ReadJSON reads a JSON array written by WriteJSON.
func ReadJSON(r io.Reader, opts ...ReadOption) ([]model.AssessmentRecord, error) {
	var out []model.AssessmentRecord
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "export: decode json")
	}
	return out, validate(out, newReadConfig(opts))
}

// ReadOption configures the checks applied to imported records.
type ReadOption func(*readConfig)

type readConfig struct {
	classifier classifier.Classifier
}

// WithClassifier checks imported tiers against c instead of the default
// thresholds.
func WithClassifier(c classifier.Classifier) ReadOption {
	return func(rc *readConfig) { rc.classifier = c }
}

func newReadConfig(opts []ReadOption) readConfig {
	rc := readConfig{classifier: classifier.Default()}
	for _, o := range opts {
		o(&rc)
	}
	return rc
}

// bmiTolerance absorbs the one-decimal rounding of a stored BMI.
const bmiTolerance = 0.051

// validate rejects records that could not have come out of a scored
// assessment. A missing BMI is derived from weight and height.
func validate(records []model.AssessmentRecord, rc readConfig) error {
	for i := range records {
		rec := &records[i]
		row := i + 1

		if _, err := model.ParseTier(string(rec.Tier)); err != nil {
			return eris.Wrapf(err, "export: row %d", row)
		}
		p := rec.Probability
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return eris.Errorf("export: row %d: probability %v out of range", row, p)
		}
		if want := rc.classifier.Classify(p); rec.Tier != want {
			return eris.Errorf("export: row %d: tier %s does not match probability %v (want %s)", row, rec.Tier, p, want)
		}

		if rec.Age < model.MinAge || rec.Age > model.MaxAge {
			return eris.Errorf("export: row %d: age %d out of range", row, rec.Age)
		}
		if !(rec.WeightKg > 0 && rec.WeightKg <= model.MaxWeightKg) {
			return eris.Errorf("export: row %d: weight_kg %v out of range", row, rec.WeightKg)
		}
		if !(rec.HeightCm > 0 && rec.HeightCm <= model.MaxHeightCm) {
			return eris.Errorf("export: row %d: height_cm %v out of range", row, rec.HeightCm)
		}

		derived, _ := bmi.Compute(rec.WeightKg, rec.HeightCm)
		if rec.BMI == nil {
			rec.BMI = &derived
			continue
		}
		if math.IsNaN(*rec.BMI) || math.Abs(*rec.BMI-derived) > bmiTolerance {
			return eris.Errorf("export: row %d: bmi %v does not match weight and height (want %v)", row, *rec.BMI, derived)
		}
	}
	return nil
}
