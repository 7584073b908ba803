package config

import (
	"time"
)

type Config struct {
	Logging        LoggingConfig        `mapstructure:"logging"`
	Server         ServerConfig         `mapstructure:"server"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	Hub            HubConfig            `mapstructure:"hub"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          RetryConfig          `mapstructure:"retry"`
	Routes         []RouteConfig        `mapstructure:"routes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Enabled             bool           `mapstructure:"enabled"`
	Port                int            `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration  `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration  `mapstructure:"write_timeout_seconds"`
	RateLimit           AdminRateLimit `mapstructure:"rate_limit"`
}

// AdminRateLimit limits admin API requests per client IP.
type AdminRateLimit struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPS             float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

type HubConfig struct {
	ServiceName string                 `mapstructure:"service_name"`
	MinLevel    *int                   `mapstructure:"min_level"`
	Labels      map[string]interface{} `mapstructure:"labels"`
}

type CircuitBreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// RouteConfig declares one filter node. Routes naming a parent hang off that
// route instead of the hub root; a parent must be declared first.
type RouteConfig struct {
	Name         string             `mapstructure:"name"`
	Parent       string             `mapstructure:"parent"`
	MinLevel     *int               `mapstructure:"min_level"`
	Match        MatchConfig        `mapstructure:"match"`
	Interceptors InterceptorsConfig `mapstructure:"interceptors"`
	Guard        GuardConfig        `mapstructure:"guard"`
	Sinks        []SinkConfig       `mapstructure:"sinks"`
}

type MatchConfig struct {
	Kind       string                 `mapstructure:"kind"` // "all", "labels", "condition", "expression"
	Labels     map[string]interface{} `mapstructure:"labels"`
	Key        string                 `mapstructure:"key"`
	Operator   string                 `mapstructure:"operator"`
	Value      interface{}            `mapstructure:"value"`
	Expression string                 `mapstructure:"expression"`
	OnError    string                 `mapstructure:"on_error"` // "allow", "deny", "error" (default: "error")
}

type InterceptorsConfig struct {
	AddLabels map[string]interface{} `mapstructure:"add_labels"`
	Redact    RedactConfig           `mapstructure:"redact"`
	RateLimit RateLimitConfig        `mapstructure:"rate_limit"`
}

type RedactConfig struct {
	Value       bool     `mapstructure:"value"`
	Labels      []string `mapstructure:"labels"`
	Replacement string   `mapstructure:"replacement"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type GuardConfig struct {
	Recover        bool `mapstructure:"recover"`
	Isolate        bool `mapstructure:"isolate"`
	Retry          bool `mapstructure:"retry"`
	CircuitBreaker bool `mapstructure:"circuit_breaker"`
}

type SinkConfig struct {
	Type     string `mapstructure:"type"`   // "log", "json", "collector", "discard"
	Output   string `mapstructure:"output"` // json: "stdout" or "stderr"
	Capacity int    `mapstructure:"capacity"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
