// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Price policies for non-numeric price text
const (
	PricePolicyZero   = "zero"   // coerce non-numeric prices to 0 and log a repair
	PricePolicyReject = "reject" // reject records whose price text is non-numeric
)

// Config represents the application configuration
type Config struct {
	// Cleaning policy
	Pipeline *PipelineConfig `validate:"required"`

	// Record stores
	RawStore  *StoreConfig `validate:"required"`
	Canonical *StoreConfig `validate:"required"`

	// Driver blocks, loaded only when a store selects the driver
	Postgres  *PostgresConfig
	Snowflake *SnowflakeConfig
	Pebble    *PebbleConfig

	// Observability
	MetricsAddr string // empty disables the metrics listener
	LogLevel    string
}

// PipelineConfig holds the cleaning policy knobs
type PipelineConfig struct {
	CustomerPlaceholder string `validate:"required"`
	PricePolicy         string `validate:"oneof=zero reject"`
	DateOverridesPath   string
	WorkerCount         int `validate:"min=0"` // 0 means derive from batch size and CPU count
	PurgeDuplicates     bool
	VerifyAfterWrite    bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real deployments set the
// environment directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Pipeline:    LoadPipelineConfig(),
		RawStore:    LoadStoreConfig("RAW_STORE", "pebble", "raw_orders"),
		Canonical:   LoadStoreConfig("CANONICAL_STORE", "pebble", "clean_orders"),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	// Load driver blocks on demand so a pebble-only run needs no database env
	if cfg.RawStore.Driver == DriverSnowflake {
		snowCfg, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Snowflake configuration: %w", err)
		}
		cfg.Snowflake = snowCfg
	}

	if cfg.RawStore.Driver == DriverPostgres || cfg.Canonical.Driver == DriverPostgres {
		pgCfg, err := LoadPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load PostgreSQL configuration: %w", err)
		}
		cfg.Postgres = pgCfg
	}

	if cfg.RawStore.Driver == DriverPebble || cfg.Canonical.Driver == DriverPebble {
		cfg.Pebble = LoadPebbleConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPipelineConfig loads cleaning policy from environment variables
func LoadPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		CustomerPlaceholder: getEnv("CUSTOMER_PLACEHOLDER", "Unknown Customer"),
		PricePolicy:         getEnv("PRICE_POLICY", PricePolicyZero),
		DateOverridesPath:   getEnv("DATE_OVERRIDES_PATH", ""),
		WorkerCount:         getEnvAsInt("WORKER_COUNT", 0),
		PurgeDuplicates:     getEnvAsBool("PURGE_DUPLICATES", false),
		VerifyAfterWrite:    getEnvAsBool("VERIFY_AFTER_WRITE", true),
	}
}

// Validate ensures all required configuration is present and consistent.
// Struct tags cover per-field rules; driver/block pairings are checked by hand.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Canonical.Driver == DriverSnowflake {
		return errors.New("snowflake is a raw source only, not a canonical target")
	}

	if c.RawStore.Driver == DriverSnowflake && c.Snowflake == nil {
		return errors.New("snowflake configuration is required for the raw store")
	}

	if (c.RawStore.Driver == DriverPostgres || c.Canonical.Driver == DriverPostgres) && c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	if (c.RawStore.Driver == DriverPebble || c.Canonical.Driver == DriverPebble) && c.Pebble == nil {
		return errors.New("pebble configuration is required")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
