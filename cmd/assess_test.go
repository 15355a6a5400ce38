//go:build !integration

package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diabetes-risk/internal/advice"
	"github.com/sells-group/diabetes-risk/internal/classifier"
	"github.com/sells-group/diabetes-risk/internal/history"
	"github.com/sells-group/diabetes-risk/internal/model"
	"github.com/sells-group/diabetes-risk/internal/predictor"
)

func memoryEnv() *assessEnv {
	return &assessEnv{
		Backend:    history.NewMemoryBackend(),
		Predictor:  predictor.RuleBased{},
		Classifier: classifier.Default(),
		Narrator:   advice.Static{},
	}
}

func TestInputFromFlags(t *testing.T) {
	fs := pflag.NewFlagSet("assess", pflag.ContinueOnError)
	addProfileFlags(fs)
	require.NoError(t, fs.Parse([]string{"--age", "50", "--weight", "95", "--height", "170", "--exercise", "--smoking", "Former"}))

	raw, err := inputFromFlags(fs)
	require.NoError(t, err)
	require.NotNil(t, raw.Age)
	assert.Equal(t, 50, *raw.Age)
	assert.Equal(t, 95.0, *raw.WeightKg)
	assert.Equal(t, 170.0, *raw.HeightCm)
	require.NotNil(t, raw.RegularExercise)
	assert.True(t, *raw.RegularExercise)
	assert.Equal(t, model.SmokingFormer, *raw.Smoking)

	// Unset flags stay unanswered so the workflow applies its defaults.
	assert.Nil(t, raw.FamilyHistory)
	assert.Nil(t, raw.Stress)
	assert.Nil(t, raw.SleepHours)
}

func TestInputFromFlags_BadEnum(t *testing.T) {
	fs := pflag.NewFlagSet("assess", pflag.ContinueOnError)
	addProfileFlags(fs)
	require.NoError(t, fs.Parse([]string{"--stress", "extreme"}))

	_, err := inputFromFlags(fs)
	assert.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	res := model.AssessmentResult{
		Probability: 0.358,
		Tier:        model.TierMedium,
		CreatedAt:   time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		Profile:     model.HealthProfile{Age: 50, WeightKg: 95, HeightCm: 170, BMI: 32.9},
	}

	var buf bytes.Buffer
	formatResult(&buf, res, true, "Lifestyle tips\n\n"+advice.Disclaimer+"\n")

	out := buf.String()
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "35.8%")
	assert.Contains(t, out, "32.9 (obese)")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, advice.Summary(model.TierMedium))
	assert.Contains(t, out, advice.Disclaimer)
}

func TestRunBatch(t *testing.T) {
	env := memoryEnv()
	inputs := []model.RawInput{
		{Age: model.Ptr(50), WeightKg: model.Ptr(95.0), HeightCm: model.Ptr(170.0)},
		{Age: model.Ptr(25), WeightKg: model.Ptr(60.0), HeightCm: model.Ptr(175.0)},
		{Age: model.Ptr(40), WeightKg: model.Ptr(80.0), HeightCm: model.Ptr(0.0)},
		{Age: model.Ptr(80), WeightKg: model.Ptr(110.0), HeightCm: model.Ptr(160.0)},
	}

	rows := runBatch(context.Background(), env, "batch", inputs, 2)
	require.Len(t, rows, 4)

	assert.Equal(t, model.TierMedium, rows[0].Result.Tier)
	assert.Equal(t, model.TierLow, rows[1].Result.Tier)
	assert.Error(t, rows[2].Err)
	assert.Nil(t, rows[2].Result)
	assert.Equal(t, model.TierHigh, rows[3].Result.Tier)
	for i, r := range rows {
		assert.Equal(t, i+1, r.Row)
	}

	recs, err := env.Backend.Session("batch").List(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	var buf bytes.Buffer
	formatBatch(&buf, rows)
	out := buf.String()
	assert.Contains(t, out, "ROW")
	assert.Contains(t, out, "recorded")
	assert.Contains(t, out, "validation failed")
}

// slowFirstStore delays the first append so concurrent writers would
// overtake it.
type slowFirstStore struct {
	*history.Memory
	appends atomic.Int64
}

func (s *slowFirstStore) Append(ctx context.Context, rec model.AssessmentRecord) error {
	if s.appends.Add(1) == 1 {
		time.Sleep(20 * time.Millisecond)
	}
	return s.Memory.Append(ctx, rec)
}

type singleStoreBackend struct {
	store history.Store
}

func (b singleStoreBackend) Session(string) history.Store { return b.store }
func (b singleStoreBackend) Drop(string) {}
func (b singleStoreBackend) Migrate(context.Context) error { return nil }
func (b singleStoreBackend) Close() error { return nil }

func TestRunBatch_RecordsInCreatedAtOrder(t *testing.T) {
	store := &slowFirstStore{Memory: history.NewMemory()}
	env := memoryEnv()
	env.Backend = singleStoreBackend{store: store}

	inputs := make([]model.RawInput, 500)
	for i := range inputs {
		inputs[i] = model.RawInput{
			Age:      model.Ptr(20 + i%80),
			WeightKg: model.Ptr(50.0 + float64(i%60)),
			HeightCm: model.Ptr(150.0 + float64(i%40)),
		}
	}

	rows := runBatch(context.Background(), env, "ordered", inputs, 16)
	for _, r := range rows {
		require.NoError(t, r.Err)
	}

	recs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, len(inputs))
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].CreatedAt.Before(recs[i-1].CreatedAt),
			"record %d created before record %d", i, i-1)
	}
}
