// Package config provides configuration management for the Clever Forecast application.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/clever-forecast/internal/ensemble"
	"github.com/yourusername/clever-forecast/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("policy", validatePolicy)
	_ = v.RegisterValidation("sports", validateSports)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validatePolicy validates the ensemble combination policy name
func validatePolicy(fl validator.FieldLevel) bool {
	_, err := ensemble.PolicyByName(fl.Field().String())
	return err == nil
}

// validateSports validates that every map key names a known sport
func validateSports(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	for _, key := range field.MapKeys() {
		if !models.Sport(key.String()).Valid() {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Simulation.BatchSize > cfg.Simulation.Trials {
		return fmt.Errorf("simulation batch_size cannot exceed trials")
	}

	for sport, states := range cfg.Blend.ScoreImpact {
		for state, weight := range states {
			if !models.TemporalState(state).Valid() {
				return fmt.Errorf("blend score_impact for %s has unknown temporal state %q", sport, state)
			}
			if weight < 0 || weight > 1 {
				return fmt.Errorf("blend score_impact for %s/%s must be between 0 and 1", sport, state)
			}
		}
	}

	if cfg.Explainability.Enabled && cfg.Explainability.URL == "" {
		return fmt.Errorf("explainability url is required when explainability is enabled")
	}

	if cfg.Registry.Backend == "catalog" && !cfg.Database.Enabled {
		return fmt.Errorf("catalog registry backend requires the database to be enabled")
	}

	if cfg.Database.StorePredictions && !cfg.Database.Enabled {
		return fmt.Errorf("store_predictions requires the database to be enabled")
	}

	if cfg.Registry.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Registry.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid registry reload_schedule: %w", err)
		}
	}

	// Validate production environment requirements
	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	// Validate connection pool settings
	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "policy":
			fmt.Fprintf(&b, "- Field '%s' must be one of: %s, %s\n", field, ensemble.PolicyWeightedMean, ensemble.PolicyWeightedGeometric)
		case "sports":
			fmt.Fprintf(&b, "- Field '%s' contains an unknown sport\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
