// Package config provides configuration management for the Clever Forecast application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app" validate:"required"`
	Registry       RegistryConfig       `mapstructure:"registry" validate:"required"`
	Ensemble       EnsembleConfig       `mapstructure:"ensemble" validate:"required"`
	Simulation     SimulationConfig     `mapstructure:"simulation" validate:"required"`
	Blend          BlendConfig          `mapstructure:"blend"`
	Explainability ExplainabilityConfig `mapstructure:"explainability"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Server         ServerConfig         `mapstructure:"server" validate:"required"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	Secrets        SecretsConfig        `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// RegistryConfig represents model artifact storage configuration
type RegistryConfig struct {
	Backend        string `mapstructure:"backend" validate:"required,oneof=file catalog"`
	ArtifactRoot   string `mapstructure:"artifact_root" validate:"required"`
	ReloadSchedule string `mapstructure:"reload_schedule"`
	WarmOnStart    bool   `mapstructure:"warm_on_start"`
	LoadTimeoutSec int    `mapstructure:"load_timeout_seconds" validate:"gte=0"`
}

// EnsembleConfig represents the ensemble combiner configuration
type EnsembleConfig struct {
	Policy       string  `mapstructure:"policy" validate:"required,policy"`
	MinAgreement float64 `mapstructure:"min_agreement" validate:"gte=0,lte=1"`
}

// SimulationConfig represents Monte Carlo simulator configuration
type SimulationConfig struct {
	Trials          int     `mapstructure:"trials" validate:"required,gt=0"`
	BatchSize       int     `mapstructure:"batch_size" validate:"required,gt=0"`
	Workers         int     `mapstructure:"workers" validate:"gte=0"`
	TimeoutMs       int     `mapstructure:"timeout_ms" validate:"required,gt=0"`
	DivergenceRatio float64 `mapstructure:"divergence_ratio" validate:"required,gte=1"`
}

// BlendConfig holds score-impact weight overrides keyed by sport then
// temporal state.
type BlendConfig struct {
	ScoreImpact map[string]map[string]float64 `mapstructure:"score_impact" validate:"sports"`
}

// ExplainabilityConfig represents the explainability service configuration
type ExplainabilityConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	URL             string  `mapstructure:"url" validate:"omitempty,url"`
	APIKey          string  `mapstructure:"api_key"`
	TimeoutMs       int     `mapstructure:"timeout_ms" validate:"gte=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize    int     `mapstructure:"cache_max_size" validate:"gte=0"`
	CooldownSeconds int     `mapstructure:"breaker_cooldown_seconds" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
	StorePredictions   bool   `mapstructure:"store_predictions"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// ServerConfig represents the HTTP, gRPC and health listeners
type ServerConfig struct {
	HTTPPort               int `mapstructure:"http_port" validate:"required,min=1,max=65535"`
	GRPCPort               int `mapstructure:"grpc_port" validate:"omitempty,min=1,max=65535"`
	HealthPort             int `mapstructure:"health_port" validate:"omitempty,min=1,max=65535"`
	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds    int `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
	MaxBatchSize           int `mapstructure:"max_batch_size" validate:"gte=0"`
}

// TracingConfig represents OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint" validate:"omitempty,url"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate" validate:"gte=0,lte=1"`
}

// SecretsConfig represents the AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// BreakerCooldown returns how long the explainability breaker stays open
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Explainability.CooldownSeconds) * time.Second
}

// RegistryLoadTimeout bounds a single artifact load
func (c *Config) RegistryLoadTimeout() time.Duration {
	return time.Duration(c.Registry.LoadTimeoutSec) * time.Second
}

// SimulationTimeout returns the simulation budget as a duration
func (c *Config) SimulationTimeout() time.Duration {
	return time.Duration(c.Simulation.TimeoutMs) * time.Millisecond
}

// ExplainTimeout returns the explainability request deadline
func (c *Config) ExplainTimeout() time.Duration {
	return time.Duration(c.Explainability.TimeoutMs) * time.Millisecond
}

// ExplainCacheTTL returns how long explainability reports are cached
func (c *Config) ExplainCacheTTL() time.Duration {
	return time.Duration(c.Explainability.CacheTTLSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown deadline
func (c *Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
