// pkg/config/config_test.go
package config

import (
	"testing"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv resets every variable Load reads so tests see the defaults
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RAW_STORE_DRIVER", "RAW_STORE_TABLE",
		"CANONICAL_STORE_DRIVER", "CANONICAL_STORE_TABLE",
		"CUSTOMER_PLACEHOLDER", "PRICE_POLICY", "DATE_OVERRIDES_PATH",
		"WORKER_COUNT", "PURGE_DUPLICATES", "VERIFY_AFTER_WRITE",
		"METRICS_ADDR", "LOG_LEVEL", "PEBBLE_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults to the embedded store", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, DriverPebble, cfg.RawStore.Driver)
		assert.Equal(t, "raw_orders", cfg.RawStore.Table)
		assert.Equal(t, DriverPebble, cfg.Canonical.Driver)
		assert.Equal(t, "clean_orders", cfg.Canonical.Table)
		require.NotNil(t, cfg.Pebble)
		assert.Equal(t, "./order-data", cfg.Pebble.Path)
		assert.Nil(t, cfg.Postgres)
		assert.Nil(t, cfg.Snowflake)

		assert.Equal(t, "Unknown Customer", cfg.Pipeline.CustomerPlaceholder)
		assert.Equal(t, PricePolicyZero, cfg.Pipeline.PricePolicy)
		assert.Zero(t, cfg.Pipeline.WorkerCount)
		assert.False(t, cfg.Pipeline.PurgeDuplicates)
		assert.True(t, cfg.Pipeline.VerifyAfterWrite)
	})

	t.Run("driver names are case-insensitive", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RAW_STORE_DRIVER", "MEMORY")
		t.Setenv("CANONICAL_STORE_DRIVER", "Memory")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, cfg.RawStore.Driver)
		assert.Equal(t, DriverMemory, cfg.Canonical.Driver)
	})

	t.Run("memory stores need no driver blocks", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RAW_STORE_DRIVER", "memory")
		t.Setenv("CANONICAL_STORE_DRIVER", "memory")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Nil(t, cfg.Pebble)
		assert.Nil(t, cfg.Postgres)
		assert.Nil(t, cfg.Snowflake)
	})

	t.Run("an unknown price policy fails validation", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRICE_POLICY", "coerce")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PricePolicy")
	})

	t.Run("an unknown driver fails validation", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RAW_STORE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Driver")
	})

	t.Run("snowflake cannot be the canonical target", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RAW_STORE_DRIVER", "memory")
		t.Setenv("CANONICAL_STORE_DRIVER", "snowflake")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "raw source only")
	})

	t.Run("a snowflake raw store requires credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RAW_STORE_DRIVER", "snowflake")
		t.Setenv("SNOWFLAKE_USER", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("a postgres canonical store requires credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CANONICAL_STORE_DRIVER", "postgres")
		t.Setenv("POSTGRES_USER", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("pipeline knobs come from the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WORKER_COUNT", "4")
		t.Setenv("PURGE_DUPLICATES", "true")
		t.Setenv("VERIFY_AFTER_WRITE", "false")
		t.Setenv("CUSTOMER_PLACEHOLDER", "N. N.")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Pipeline.WorkerCount)
		assert.True(t, cfg.Pipeline.PurgeDuplicates)
		assert.False(t, cfg.Pipeline.VerifyAfterWrite)
		assert.Equal(t, "N. N.", cfg.Pipeline.CustomerPlaceholder)
	})

	t.Run("unparseable numbers fall back to defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WORKER_COUNT", "many")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Zero(t, cfg.Pipeline.WorkerCount)
	})
}

func TestLoadSnowflakeConfig(t *testing.T) {
	t.Setenv("SNOWFLAKE_USER", "loader")
	t.Setenv("SNOWFLAKE_PASSWORD", "secret")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-xy12345")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "INGEST_WH")
	t.Setenv("SNOWFLAKE_DATABASE", "")
	t.Setenv("SNOWFLAKE_SCHEMA", "")
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "externalbrowser")

	cfg, err := LoadSnowflakeConfig()
	require.NoError(t, err)
	assert.Equal(t, "loader", cfg.User)
	assert.Equal(t, "ORDERS_STAGING", cfg.Database)
	assert.Equal(t, "PUBLIC", cfg.Schema)
	assert.Equal(t, gosnowflake.AuthTypeExternalBrowser, cfg.Authenticator)
}

func TestConnectionString(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "ingress",
		Password: "secret",
		Database: "orders",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=ingress password=secret dbname=orders sslmode=require",
		cfg.ConnectionString())
}
