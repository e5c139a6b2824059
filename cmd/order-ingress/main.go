package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/order-ingress/pkg/cleaner"
	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/metrics"
	"github.com/David-Botos/order-ingress/pkg/model"
	"github.com/David-Botos/order-ingress/pkg/pipeline"
	"github.com/David-Botos/order-ingress/pkg/store"
)

var (
	// Global flags
	envFile string
	debug   bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "order-ingress",
	Short: "Cleans raw order batches into a validated canonical dataset",
	Long: `order-ingress reads a batch of raw, inconsistently formatted order
records from the configured raw store, repairs or rejects each record
through a fixed sequence of cleaning stages, and bulk inserts the
surviving canonical records into the canonical store.

Every repair is written to an audit log, every rejection carries a
reason code, and nothing is ever modified in place.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}

		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		if debug {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd runs the cleaning pipeline once over the raw store
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cleaning pipeline over the raw store",
	RunE:  runBatch,
}

// seedCmd loads a demo dirty batch for local development
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a demo dirty batch into the raw store",
	RunE:  seedRaw,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file loaded before configuration")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reg := metrics.NewRegistry()
	stopMetrics := serveMetrics(cfg.MetricsAddr, reg)
	defer stopMetrics()

	factory := store.NewStoreFactory(cfg, logger.Named("store-factory"))
	rawStore, canonicalStore, err := factory.CreateAllStores(ctx)
	if err != nil {
		return err
	}
	defer rawStore.Close()
	defer canonicalStore.Close()

	if err := canonicalStore.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure canonical schema: %w", err)
	}

	cl, err := cleaner.New(cfg.Pipeline, logger.Named("cleaner"))
	if err != nil {
		return err
	}

	sink, closeSink, err := newRepairSink(cfg, canonicalStore)
	if err != nil {
		return err
	}
	defer closeSink()

	pl, err := pipeline.New(cfg.Pipeline, cl, rawStore, canonicalStore, sink, reg, logger.Named("pipeline"))
	if err != nil {
		return err
	}

	result, err := pl.Execute(ctx)
	if err != nil {
		return err
	}

	logger.Info("Ingress run finished",
		zap.String("runID", result.RunID),
		zap.Int("rawRecords", result.RawCount),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("duplicatesDropped", len(result.DroppedDuplicates)),
		zap.Int("repairs", len(result.Repairs)),
		zap.Float64("acceptRate", result.AcceptRate()),
		zap.Duration("duration", result.Duration))

	for _, rej := range result.Rejected {
		logger.Warn("Record left in raw store for review",
			zap.Int64("orderID", rej.Raw.OrderID),
			zap.String("reason", string(rej.Reason)),
			zap.String("detail", rej.Detail))
	}

	return nil
}

func seedRaw(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	factory := store.NewStoreFactory(cfg, logger.Named("store-factory"))
	rawStore, err := factory.CreateRawStore(ctx)
	if err != nil {
		return err
	}
	defer rawStore.Close()

	if err := rawStore.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure raw schema: %w", err)
	}

	batch := demoBatch()
	if err := rawStore.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to seed raw store: %w", err)
	}

	logger.Info("Seeded raw store", zap.Int("records", len(batch)))
	return nil
}

// newRepairSink picks a repair log backend matching the canonical store.
// Postgres shares the canonical pool, Pebble gets its own keyspace, and
// everything else falls back to memory.
func newRepairSink(cfg *config.Config, canonical store.CanonicalStore) (cleaner.RepairSink, func(), error) {
	switch cs := canonical.(type) {
	case *store.PostgresCanonicalStore:
		sink, err := cleaner.NewSQLRepairSink(cs.DB(), logger.Named("repair-log"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create repair sink: %w", err)
		}
		return sink, func() {}, nil

	case *store.PebbleCanonicalStore:
		sink, err := store.NewPebbleRepairSink(cfg.Pebble)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create repair sink: %w", err)
		}
		return sink, func() { _ = sink.Close() }, nil

	default:
		return cleaner.NewMemoryRepairSink(), func() {}, nil
	}
}

// serveMetrics exposes the registry while a run is in flight. An empty
// address disables the listener.
func serveMetrics(addr string, reg *metrics.Registry) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// demoBatch returns a small dirty batch exercising every repair and
// rejection path: mixed date separators, day-first dates, a calendar-invalid
// date, missing and negative fields, a non-numeric price and one exact
// duplicate.
func demoBatch() []model.RawOrderRecord {
	return []model.RawOrderRecord{
		{OrderID: 1, CustomerName: model.StringPtr("John Doe"), OrderDate: model.StringPtr("2023-12-01"), Product: model.StringPtr("Widget A"), Quantity: model.StringPtr("5"), Price: model.StringPtr("19.99")},
		{OrderID: 2, CustomerName: model.StringPtr("Jane Smith"), OrderDate: model.StringPtr("23/11/2023"), Product: model.StringPtr("Widget B"), Quantity: model.StringPtr("2"), Price: model.StringPtr("29.99")},
		{OrderID: 3, CustomerName: model.StringPtr("John Doe"), OrderDate: model.StringPtr("2023-12-01"), Product: model.StringPtr("Widget A"), Quantity: model.StringPtr("5"), Price: model.StringPtr("19.99")},
		{OrderID: 4, CustomerName: nil, OrderDate: model.StringPtr("15-10-2023"), Product: model.StringPtr("Widget C"), Quantity: model.StringPtr("3"), Price: model.StringPtr("15.50")},
		{OrderID: 5, CustomerName: model.StringPtr("Dana Cruz"), OrderDate: model.StringPtr("2023-11-05"), Product: model.StringPtr("Widget D"), Quantity: model.StringPtr("two"), Price: model.StringPtr("12.00")},
		{OrderID: 6, CustomerName: model.StringPtr("Bob Wilson"), OrderDate: model.StringPtr("2023-13-01"), Product: model.StringPtr("Widget E"), Quantity: model.StringPtr("-2"), Price: model.StringPtr("30.00")},
		{OrderID: 7, CustomerName: model.StringPtr("Charlie Fox"), OrderDate: model.StringPtr("2023-11-30"), Product: model.StringPtr("Widget F"), Quantity: nil, Price: model.StringPtr("40.00")},
		{OrderID: 8, CustomerName: model.StringPtr("Eve Adams"), OrderDate: model.StringPtr("2023-12-15"), Product: model.StringPtr("Widget G"), Quantity: model.StringPtr("4"), Price: model.StringPtr("abc")},
	}
}
