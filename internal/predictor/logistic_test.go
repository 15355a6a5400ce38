package predictor

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diabetes-risk/internal/config"
)

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadLogistic(t *testing.T) {
	t.Parallel()

	path := writeModel(t, `
intercept: -5
coefficients:
  age: 0.05
  bmi: 0.1
`)
	m, err := LoadLogistic(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Width())

	got, err := m.PredictProba(context.Background(), []float64{50, 25})
	require.NoError(t, err)
	// z = -5 + 2.5 + 2.5 = 0
	assert.InDelta(t, 0.5, got, 1e-12)

	_, err = m.PredictProba(context.Background(), []float64{50})
	assert.Error(t, err)
}

func TestLoadLogisticErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"unknown feature", "intercept: 0\ncoefficients:\n  waist: 0.3\n"},
		{"no coefficients", "intercept: 1\n"},
		{"malformed", "intercept: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadLogistic(writeModel(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadLogistic(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogisticWidth(t *testing.T) {
	t.Parallel()

	m, err := NewLogistic(LogisticParams{
		Intercept:    -1,
		Coefficients: map[string]float64{"smoking": 0.4},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, m.Width())

	_, err = NewLogistic(LogisticParams{Coefficients: map[string]float64{"age": math.NaN()}})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Parallel()

	p, err := New(config.PredictorConfig{Kind: "rule"})
	require.NoError(t, err)
	assert.Equal(t, "rule", p.Name())

	p, err = New(config.PredictorConfig{
		Kind:      "logistic",
		ModelPath: writeModel(t, "intercept: 0\ncoefficients:\n  age: 0.01\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "logistic", p.Name())

	// An unreadable model degrades to rule-based scoring.
	p, err = New(config.PredictorConfig{Kind: "logistic", ModelPath: "/nonexistent/model.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "rule", p.Name())

	p, err = New(config.PredictorConfig{Kind: "http", Endpoint: "http://localhost:1/predict"})
	require.NoError(t, err)
	assert.Equal(t, "http", p.Name())

	_, err = New(config.PredictorConfig{Kind: "http"})
	assert.Error(t, err)

	_, err = New(config.PredictorConfig{Kind: "neural"})
	assert.Error(t, err)
}
