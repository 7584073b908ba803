package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labelbus/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("server.port", constants.DefaultAdminPort)
	viper.SetDefault("server.read_timeout_seconds", 10*time.Second)
	viper.SetDefault("server.write_timeout_seconds", 10*time.Second)
	viper.SetDefault("server.rate_limit.rps", 10.0)
	viper.SetDefault("server.rate_limit.burst", 20)
	viper.SetDefault("server.rate_limit.cleanup_interval", 5*time.Minute)
	viper.SetDefault("server.rate_limit.max_age", 10*time.Minute)

	viper.SetDefault("hub.service_name", constants.ServiceName)

	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60*time.Second)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 3)

	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.initial_interval", 10*time.Millisecond)
	viper.SetDefault("retry.max_interval", time.Second)
	viper.SetDefault("retry.multiplier", 2.0)
}

func bindEnvVariables() {
	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("server.enabled", "SERVER_ENABLED")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")
	viper.BindEnv("server.rate_limit.enabled", "SERVER_RATE_LIMIT_ENABLED")

	viper.BindEnv("hub.service_name", "HUB_SERVICE_NAME")
	viper.BindEnv("hub.min_level", "HUB_MIN_LEVEL")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
