// Package trend summarises how a session's risk has moved over time.
package trend

import (
	"math"
	"slices"
	"strings"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// Direction describes the movement between the first and latest record.
type Direction string

const (
	Improving Direction = "improving"
	Worsening Direction = "worsening"
	Stable    Direction = "stable"
)

// StableBand is the largest probability change still reported as stable.
const StableBand = 0.01

// Summary is the aggregate view of a history.
type Summary struct {
	Count      int                `json:"count"`
	First      float64            `json:"first"`
	Latest     float64            `json:"latest"`
	Min        float64            `json:"min"`
	Max        float64            `json:"max"`
	Mean       float64            `json:"mean"`
	Delta      float64            `json:"delta"`
	Direction  Direction          `json:"direction"`
	LatestTier model.Tier         `json:"latest_tier,omitempty"`
	TierCounts map[model.Tier]int `json:"tier_counts"`
}

// Summarize computes the trend over records in insertion order. Records
// whose probability is not finite are skipped.
func Summarize(records []model.AssessmentRecord) Summary {
	records = finite(records)
	s := Summary{
		Direction: Stable,
		TierCounts: map[model.Tier]int{
			model.TierLow:    0,
			model.TierMedium: 0,
			model.TierHigh:   0,
		},
	}
	if len(records) == 0 {
		return s
	}

	s.Count = len(records)
	s.First = records[0].Probability
	s.Latest = records[len(records)-1].Probability
	s.LatestTier = records[len(records)-1].Tier
	s.Min, s.Max = math.Inf(1), math.Inf(-1)

	sum := 0.0
	for _, r := range records {
		sum += r.Probability
		s.Min = math.Min(s.Min, r.Probability)
		s.Max = math.Max(s.Max, r.Probability)
		s.TierCounts[r.Tier]++
	}
	s.Mean = sum / float64(len(records))
	s.Delta = s.Latest - s.First

	switch {
	case math.Abs(s.Delta) < StableBand:
		s.Direction = Stable
	case s.Delta < 0:
		s.Direction = Improving
	default:
		s.Direction = Worsening
	}
	return s
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders probabilities on a fixed 0..1 scale, one glyph per
// record with a finite probability.
func Sparkline(records []model.AssessmentRecord) string {
	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, r := range finite(records) {
		p := math.Max(0, math.Min(1, r.Probability))
		b.WriteRune(sparkBlocks[int(math.Round(p*float64(top)))])
	}
	return b.String()
}

func finite(records []model.AssessmentRecord) []model.AssessmentRecord {
	for i, r := range records {
		if math.IsNaN(r.Probability) || math.IsInf(r.Probability, 0) {
			out := slices.Clone(records[:i])
			for _, r := range records[i+1:] {
				if !math.IsNaN(r.Probability) && !math.IsInf(r.Probability, 0) {
					out = append(out, r)
				}
			}
			return out
		}
	}
	return records
}
