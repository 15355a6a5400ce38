package predictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diabetes-risk/internal/resilience"
)

func TestHTTPModelPredictProba(t *testing.T) {
	t.Parallel()

	var got probaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"probabilities": [[0.3, 0.7]]}`))
	}))
	defer srv.Close()

	m := NewHTTPModel(srv.URL, time.Second, WithWidth(2))
	p, err := m.PredictProba(context.Background(), []float64{50, 32.9})
	require.NoError(t, err)
	assert.Equal(t, 0.7, p)
	assert.Equal(t, [][]float64{{50, 32.9}}, got.Features)
	assert.Equal(t, 2, m.Width())
}

func TestHTTPModelErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error", http.StatusInternalServerError, `{}`, true},
		{"rate limited", http.StatusTooManyRequests, `{}`, true},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, false},
		{"empty probabilities", http.StatusOK, `{"probabilities": []}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m := NewHTTPModel(srv.URL, time.Second)
			_, err := m.PredictProba(context.Background(), []float64{1, 2})
			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
		})
	}
}

func TestHTTPModelBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	m := NewHTTPModel(srv.URL, time.Second, WithBreaker(cb), WithRateLimit(1000))

	for i := 0; i < 2; i++ {
		_, err := m.PredictProba(context.Background(), []float64{1})
		require.Error(t, err)
	}
	_, err := m.PredictProba(context.Background(), []float64{1})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())

	// Behind ModelBacked the open circuit is invisible.
	mb := NewModelBacked("http", m, nil)
	p := mb.Predict(context.Background(), profile(t, 50, 95, 170))
	assert.InDelta(t, 0.358, p, 1e-9)
}
