package config

import (
	"errors"
	"fmt"

	"labelbus/internal/constants"
	"labelbus/pkg/stream"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateLogging(cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateRetry(cfg.Retry); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, ValidateRoutes(cfg.Routes)...)

	return errors.Join(errs...)
}

func validateLogging(cfg LoggingConfig) error {
	switch cfg.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level: %s (supported: debug, info, warn, error)", cfg.Level),
		}
	}

	switch cfg.Format {
	case "", "json", "console":
	default:
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format: %s (supported: json, console)", cfg.Format),
		}
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	if rl := cfg.RateLimit; rl.Enabled && (rl.RPS <= 0 || rl.Burst <= 0) {
		return &ValidationError{
			Field:   "server.rate_limit",
			Message: "rps and burst must be positive",
		}
	}

	return nil
}

func validateRetry(cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   "retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier < 0 {
		return &ValidationError{
			Field:   "retry.multiplier",
			Message: "multiplier must not be negative",
		}
	}

	return nil
}

// ValidateRoutes checks route declarations without building them.
func ValidateRoutes(routes []RouteConfig) []error {
	var errs []error
	seen := make(map[string]bool, len(routes))

	for i, r := range routes {
		field := fmt.Sprintf("routes[%d]", i)

		if r.Name == "" {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: "route name is required"})
		} else if seen[r.Name] {
			errs = append(errs, &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate route name: %s", r.Name)})
		}

		if r.Parent != "" && !seen[r.Parent] {
			errs = append(errs, &ValidationError{
				Field:   field + ".parent",
				Message: fmt.Sprintf("parent route %q must be declared before %q", r.Parent, r.Name),
			})
		}

		if err := validateMatch(field+".match", r.Match); err != nil {
			errs = append(errs, err)
		}

		if rl := r.Interceptors.RateLimit; rl.Enabled && (rl.RPS <= 0 || rl.Burst <= 0) {
			errs = append(errs, &ValidationError{
				Field:   field + ".interceptors.rate_limit",
				Message: "rps and burst must be positive",
			})
		}

		for j, s := range r.Sinks {
			if err := validateSink(fmt.Sprintf("%s.sinks[%d]", field, j), s); err != nil {
				errs = append(errs, err)
			}
		}

		if r.Name != "" {
			seen[r.Name] = true
		}
	}

	return errs
}

func validateMatch(field string, m MatchConfig) error {
	switch m.Kind {
	case constants.MatchAll, "":
		return nil
	case constants.MatchLabels:
		if len(m.Labels) == 0 {
			return &ValidationError{Field: field + ".labels", Message: "at least one label is required"}
		}
	case constants.MatchCondition:
		if _, err := stream.ParseOperator(m.Operator); err != nil {
			return &ValidationError{Field: field + ".operator", Message: err.Error()}
		}
		if m.Key == "" {
			return &ValidationError{Field: field + ".key", Message: "condition key is required"}
		}
	case constants.MatchExpression:
		if m.Expression == "" {
			return &ValidationError{Field: field + ".expression", Message: "expression is required"}
		}
		switch m.OnError {
		case "", constants.FallbackAllow, constants.FallbackDeny, constants.FallbackError:
		default:
			return &ValidationError{
				Field:   field + ".on_error",
				Message: fmt.Sprintf("unknown fallback: %s (supported: allow, deny, error)", m.OnError),
			}
		}
	default:
		return &ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown match kind: %s (supported: all, labels, condition, expression)", m.Kind),
		}
	}
	return nil
}

func validateSink(field string, s SinkConfig) error {
	switch s.Type {
	case constants.SinkLog, constants.SinkCollector, constants.SinkDiscard:
		return nil
	case constants.SinkJSON:
		switch s.Output {
		case "", "stdout", "stderr":
			return nil
		}
		return &ValidationError{Field: field + ".output", Message: fmt.Sprintf("unknown output: %s (supported: stdout, stderr)", s.Output)}
	default:
		return &ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("unknown sink type: %s (supported: log, json, collector, discard)", s.Type),
		}
	}
}
