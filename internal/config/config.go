package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Predictor  PredictorConfig  `yaml:"predictor" mapstructure:"predictor"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Advice     AdviceConfig     `yaml:"advice" mapstructure:"advice"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the assessment history backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres, redis.
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32       `yaml:"max_conns" mapstructure:"max_conns"`
	Redis       RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings for the redis history driver.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	// TTLHours expires a session's history after that many hours without
	// writes. Zero keeps histories until cleared.
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// PredictorConfig selects and tunes the risk predictor.
type PredictorConfig struct {
	// Kind is one of rule, logistic, http.
	Kind             string  `yaml:"kind" mapstructure:"kind"`
	ModelPath        string  `yaml:"model_path" mapstructure:"model_path"`
	Endpoint         string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ClassifierConfig holds the tier thresholds.
type ClassifierConfig struct {
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	High   float64 `yaml:"high" mapstructure:"high"`
}

// AdviceConfig configures the optional recommendation narrative.
type AdviceConfig struct {
	Narrate      bool   `yaml:"narrate" mapstructure:"narrate"`
	AnthropicKey string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model        string `yaml:"model" mapstructure:"model"`
	MaxTokens    int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	SessionTTLMinutes int      `yaml:"session_ttl_minutes" mapstructure:"session_ttl_minutes"`
	CORSOrigins       []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIABRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "diabetes-risk.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.ttl_hours", 0)
	v.SetDefault("predictor.kind", "rule")
	v.SetDefault("predictor.timeout_secs", 5)
	v.SetDefault("predictor.rate_per_sec", 10.0)
	v.SetDefault("predictor.failure_threshold", 5)
	v.SetDefault("predictor.reset_timeout_secs", 30)
	v.SetDefault("classifier.medium", 0.34)
	v.SetDefault("classifier.high", 0.67)
	v.SetDefault("advice.narrate", false)
	v.SetDefault("advice.model", "claude-haiku-4-5-20251001")
	v.SetDefault("advice.max_tokens", 400)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_ttl_minutes", 30)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Command is one of
// "assess", "history" or "serve"; every command needs a usable store,
// predictor and classifier.
func (c *Config) Validate(command string) error {
	var errs []string

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver "+c.Store.Driver)
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, "store.redis.addr is required for driver redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch c.Predictor.Kind {
	case "rule":
	case "logistic":
		if c.Predictor.ModelPath == "" {
			errs = append(errs, "predictor.model_path is required for kind logistic")
		}
	case "http":
		if c.Predictor.Endpoint == "" {
			errs = append(errs, "predictor.endpoint is required for kind http")
		}
	default:
		errs = append(errs, fmt.Sprintf("predictor.kind %q is not supported", c.Predictor.Kind))
	}

	if !(c.Classifier.Medium > 0 && c.Classifier.Medium < c.Classifier.High && c.Classifier.High <= 1) {
		errs = append(errs, "classifier thresholds must satisfy 0 < medium < high <= 1")
	}

	if c.Advice.Narrate && c.Advice.AnthropicKey == "" {
		errs = append(errs, "advice.anthropic_key is required when advice.narrate is set")
	}

	if command == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
		}
		if c.Server.SessionTTLMinutes <= 0 {
			errs = append(errs, "server.session_ttl_minutes must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
