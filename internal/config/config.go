// Package config loads the engine configuration from an optional YAML file
// with environment-variable overrides on top. Environment always wins, which
// is how deployments inject secrets (DSN, encryption key) without putting
// them in a file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SecretsConfig configures credential encryption at rest.
type SecretsConfig struct {
	// EncryptionKey is the hex-encoded 256-bit AES key sealing stored
	// provider credentials. Required; no default.
	EncryptionKey string `yaml:"encryption_key"`
}

// AIConfig tunes the generation pipeline.
type AIConfig struct {
	// Models overrides the default model per provider type.
	Models map[string]string `yaml:"models"`

	MaxTokens        int           `yaml:"max_tokens"`
	MaxContinuations int           `yaml:"max_continuations"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	RunTimeout       time.Duration `yaml:"run_timeout"`

	// DailyLimit is the free-generation allowance on the fallback provider.
	DailyLimit int `yaml:"daily_limit"`

	// RequestsPerSecond and Burst pace outgoing provider calls; zero
	// disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
}

// SweeperConfig tunes the stale-generation sweeper.
type SweeperConfig struct {
	StaleAge time.Duration `yaml:"stale_age"`
	Interval time.Duration `yaml:"interval"`
}

// Config is the root configuration.
type Config struct {
	Environment string        `yaml:"environment"`
	HTTP        HTTPConfig    `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Secrets     SecretsConfig `yaml:"secrets"`
	AI          AIConfig      `yaml:"ai"`
	Sweeper     SweeperConfig `yaml:"sweeper"`
}

// Default returns the configuration used when neither file nor environment
// say otherwise.
func Default() Config {
	return Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		AI: AIConfig{
			MaxTokens:        16384,
			MaxContinuations: 2,
			RequestTimeout:   2 * time.Minute,
			RunTimeout:       5 * time.Minute,
			DailyLimit:       10,
			MaxRetries:       2,
		},
		Sweeper: SweeperConfig{
			StaleAge: 15 * time.Minute,
			Interval: 5 * time.Minute,
		},
	}
}

// Load reads the YAML file at path (empty means defaults only), applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (or set LECTIO_DATABASE_DSN)")
	}
	if c.Secrets.EncryptionKey == "" {
		return fmt.Errorf("secrets.encryption_key is required (or set LECTIO_ENCRYPTION_KEY)")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Environment, "LECTIO_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LECTIO_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LECTIO_HTTP_PORT")
	overrideString(&cfg.Database.DSN, "LECTIO_DATABASE_DSN")
	overrideString(&cfg.Secrets.EncryptionKey, "LECTIO_ENCRYPTION_KEY")
	overrideInt(&cfg.AI.MaxTokens, "LECTIO_AI_MAX_TOKENS")
	overrideInt(&cfg.AI.MaxContinuations, "LECTIO_AI_MAX_CONTINUATIONS")
	overrideDuration(&cfg.AI.RequestTimeout, "LECTIO_AI_REQUEST_TIMEOUT")
	overrideDuration(&cfg.AI.RunTimeout, "LECTIO_AI_RUN_TIMEOUT")
	overrideInt(&cfg.AI.DailyLimit, "LECTIO_AI_DAILY_LIMIT")
	overrideInt(&cfg.AI.MaxRetries, "LECTIO_AI_MAX_RETRIES")
	overrideDuration(&cfg.Sweeper.StaleAge, "LECTIO_SWEEPER_STALE_AGE")
	overrideDuration(&cfg.Sweeper.Interval, "LECTIO_SWEEPER_INTERVAL")
}

func overrideString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func overrideInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = parsed
		}
	}
}
