package predictor

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/diabetes-risk/internal/resilience"
)

type probaRequest struct {
	Features [][]float64 `json:"features"`
}

type probaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// HTTPModel calls a remote predict_proba endpoint.
type HTTPModel struct {
	client   *resty.Client
	endpoint string
	width    int
	breaker  *resilience.CircuitBreaker
	limiter  *rate.Limiter
}

// HTTPModelOption configures an HTTPModel.
type HTTPModelOption func(*HTTPModel)

// WithWidth sends only the first n features.
func WithWidth(n int) HTTPModelOption {
	return func(m *HTTPModel) { m.width = n }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) HTTPModelOption {
	return func(m *HTTPModel) { m.breaker = cb }
}

// WithRateLimit caps outbound requests per second. Zero disables the limiter.
func WithRateLimit(perSec float64) HTTPModelOption {
	return func(m *HTTPModel) {
		if perSec <= 0 {
			m.limiter = nil
			return
		}
		burst := max(int(perSec), 1)
		m.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// NewHTTPModel creates a remote model client.
func NewHTTPModel(endpoint string, timeout time.Duration, opts ...HTTPModelOption) *HTTPModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	m := &HTTPModel{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		endpoint: endpoint,
		width:    len(FeatureNames),
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Width implements FeatureWidth.
func (m *HTTPModel) Width() int { return m.width }

// PredictProba implements Model.
func (m *HTTPModel) PredictProba(ctx context.Context, features []float64) (float64, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return 0, eris.Wrap(err, "predictor: rate limit wait")
		}
	}

	return resilience.ExecuteVal(ctx, m.breaker, func(ctx context.Context) (float64, error) {
		return m.call(ctx, features)
	})
}

func (m *HTTPModel) call(ctx context.Context, features []float64) (float64, error) {
	var out probaResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(probaRequest{Features: [][]float64{features}}).
		SetResult(&out).
		Post(m.endpoint)
	if err != nil {
		if resilience.IsTransient(err) {
			return 0, resilience.NewTransientError(eris.Wrap(err, "predictor: http model request"), 0)
		}
		return 0, eris.Wrap(err, "predictor: http model request")
	}

	if resp.IsError() {
		err := eris.Errorf("predictor: http model returned %d: %s", resp.StatusCode(), resp.String())
		if resilience.IsTransientHTTPStatus(resp.StatusCode()) {
			return 0, resilience.NewTransientError(err, resp.StatusCode())
		}
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, eris.Errorf("predictor: http model returned unexpected status %d", resp.StatusCode())
	}

	if len(out.Probabilities) == 0 || len(out.Probabilities[0]) == 0 {
		return 0, eris.New("predictor: http model returned no probabilities")
	}
	row := out.Probabilities[0]
	// [p0, p1] from predict_proba; a single value is already p1.
	return row[len(row)-1], nil
}
