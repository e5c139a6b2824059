// pkg/store/factory.go
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
)

// StoreFactory creates record stores from the configured drivers
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRawStore opens the raw store selected by configuration
func (f *StoreFactory) CreateRawStore(ctx context.Context) (RawStore, error) {
	f.logger.Info("Creating raw store",
		zap.String("driver", f.cfg.RawStore.Driver),
		zap.String("table", f.cfg.RawStore.Table))

	switch f.cfg.RawStore.Driver {
	case config.DriverPostgres:
		return NewPostgresRawStore(ctx, f.cfg.Postgres, f.cfg.RawStore.Table)
	case config.DriverSnowflake:
		return NewSnowflakeRawStore(ctx, f.cfg.Snowflake, f.cfg.RawStore.Table)
	case config.DriverPebble:
		return NewPebbleRawStore(f.cfg.Pebble, f.cfg.RawStore.Table)
	case config.DriverMemory:
		return NewMemoryRawStore(), nil
	default:
		return nil, fmt.Errorf("unknown raw store driver: %s", f.cfg.RawStore.Driver)
	}
}

// CreateCanonicalStore opens the canonical store selected by configuration.
// Snowflake is rejected here as well as at configuration time: the canonical
// dataset lives in a store this pipeline owns.
func (f *StoreFactory) CreateCanonicalStore(ctx context.Context) (CanonicalStore, error) {
	f.logger.Info("Creating canonical store",
		zap.String("driver", f.cfg.Canonical.Driver),
		zap.String("table", f.cfg.Canonical.Table))

	switch f.cfg.Canonical.Driver {
	case config.DriverPostgres:
		return NewPostgresCanonicalStore(ctx, f.cfg.Postgres, f.cfg.Canonical.Table)
	case config.DriverPebble:
		return NewPebbleCanonicalStore(f.cfg.Pebble, f.cfg.Canonical.Table)
	case config.DriverMemory:
		return NewMemoryCanonicalStore(), nil
	default:
		return nil, fmt.Errorf("unknown canonical store driver: %s", f.cfg.Canonical.Driver)
	}
}

// CreateAllStores opens both stores, cleaning up the raw store if the
// canonical store fails.
func (f *StoreFactory) CreateAllStores(ctx context.Context) (RawStore, CanonicalStore, error) {
	raw, err := f.CreateRawStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create raw store: %w", err)
	}

	canonical, err := f.CreateCanonicalStore(ctx)
	if err != nil {
		raw.Close()
		return nil, nil, fmt.Errorf("failed to create canonical store: %w", err)
	}

	return raw, canonical, nil
}
