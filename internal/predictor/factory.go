package predictor

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/config"
	"github.com/sells-group/diabetes-risk/internal/resilience"
)

// New builds the predictor selected by cfg.Kind.
func New(cfg config.PredictorConfig) (Predictor, error) {
	switch cfg.Kind {
	case "", "rule":
		return RuleBased{}, nil

	case "logistic":
		m, err := LoadLogistic(cfg.ModelPath)
		if err != nil {
			zap.L().Warn("predictor: logistic model unavailable, using rule-based scoring",
				zap.String("model_path", cfg.ModelPath),
				zap.Error(err),
			)
			return RuleBased{}, nil
		}
		return NewModelBacked("logistic", m, RuleBased{}), nil

	case "http":
		if cfg.Endpoint == "" {
			return nil, eris.New("predictor: http kind requires an endpoint")
		}
		cb := resilience.NewCircuitBreaker(resilience.FromCircuitConfig(
			"predictor.http", cfg.FailureThreshold, cfg.ResetTimeoutSecs,
		))
		m := NewHTTPModel(cfg.Endpoint,
			time.Duration(cfg.TimeoutSecs)*time.Second,
			WithBreaker(cb),
			WithRateLimit(cfg.RatePerSec),
		)
		return NewModelBacked("http", m, RuleBased{}), nil
	}

	return nil, eris.Errorf("predictor: unknown kind %q", cfg.Kind)
}
