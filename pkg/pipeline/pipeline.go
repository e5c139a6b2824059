package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/cleaner"
	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/metrics"
	"github.com/David-Botos/order-ingress/pkg/model"
	"github.com/David-Botos/order-ingress/pkg/store"
)

// Outcome labels for the records metric
const (
	outcomeAccepted  = "accepted"
	outcomeRejected  = "rejected"
	outcomeDuplicate = "duplicate"
)

// Worker pool sizing
const (
	minRecordsPerWorker = 64
	maxWorkers          = 8
)

// Pipeline runs raw batches through the cleaning stages in fixed order:
// field coercion, date normalization and null resolution fan out over a
// worker pool, then duplicate resolution and constraint enforcement run as
// global passes over the collected candidates.
type Pipeline struct {
	cfg       *config.PipelineConfig
	cleaner   *cleaner.Cleaner
	dedupe    *DuplicateResolver
	enforcer  *ConstraintEnforcer
	verifier  *Verifier
	raw       store.RawStore
	canonical store.CanonicalStore
	sink      cleaner.RepairSink
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// New assembles a pipeline. The stores and repair sink may be nil when the
// caller only uses Run on batches it holds in memory.
func New(
	cfg *config.PipelineConfig,
	cl *cleaner.Cleaner,
	raw store.RawStore,
	canonical store.CanonicalStore,
	sink cleaner.RepairSink,
	reg *metrics.Registry,
	logger *zap.Logger,
) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline configuration cannot be nil")
	}
	if cl == nil {
		return nil, errors.New("cleaner cannot be nil")
	}
	if reg == nil {
		return nil, errors.New("metrics registry cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	p := &Pipeline{
		cfg:       cfg,
		cleaner:   cl,
		dedupe:    NewDuplicateResolver(logger),
		enforcer:  NewConstraintEnforcer(logger),
		raw:       raw,
		canonical: canonical,
		sink:      sink,
		metrics:   reg,
		logger:    logger,
	}

	if canonical != nil {
		p.verifier = NewVerifier(canonical, logger)
	}

	return p, nil
}

// Run processes an already-materialized raw batch through every stage and
// returns the batch outcome. It performs no store I/O; Execute layers the
// scan and the canonical write on top. The returned error is non-nil only
// for fatal conditions, a malformed batch or a cancelled context; individual
// bad records come back inside the result as rejections.
func (p *Pipeline) Run(ctx context.Context, batch []model.RawOrderRecord) (*BatchResult, error) {
	if err := checkRawKeys(batch); err != nil {
		p.logger.Error("Raw batch failed precondition check", zap.Error(err))
		return nil, err
	}

	job := NewBatchJob()
	result := NewBatchResult(job, len(batch))

	p.logger.Info("Starting batch run",
		zap.String("runID", job.ID),
		zap.Int("rawRecords", len(batch)))

	candidates, err := p.cleanBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	// Stamp the run onto every repair so the audit trail ties back here
	for i := range candidates {
		for j := range candidates[i].Repairs {
			candidates[i].Repairs[j].RunID = job.ID
		}
		result.Repairs = append(result.Repairs, candidates[i].Repairs...)
	}

	kept, dropped := p.dedupe.Resolve(candidates)
	result.DroppedDuplicates = dropped

	result.Accepted, result.Rejected = p.enforcer.Enforce(kept)

	result.Complete()
	p.observe(result)

	p.logger.Info("Batch run completed",
		zap.String("runID", job.ID),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("duplicatesDropped", len(result.DroppedDuplicates)),
		zap.Int("repairs", len(result.Repairs)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// Execute performs a full run against the configured stores: scan the raw
// batch, run the stages, bulk insert the accepted records, then write
// verification, the optional duplicate purge and the repair log.
func (p *Pipeline) Execute(ctx context.Context) (*BatchResult, error) {
	if p.raw == nil || p.canonical == nil {
		return nil, errors.New("raw and canonical stores are required for Execute")
	}

	batch, err := p.raw.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan raw store: %w", err)
	}

	var before int64
	if p.cfg.VerifyAfterWrite {
		if before, err = p.canonical.Count(ctx); err != nil {
			return nil, fmt.Errorf("failed to count canonical store: %w", err)
		}
	}

	result, err := p.Run(ctx, batch)
	if err != nil {
		return nil, err
	}

	if err := p.canonical.BulkInsert(ctx, result.Accepted); err != nil {
		return nil, fmt.Errorf("failed to write canonical records: %w", err)
	}

	if p.cfg.VerifyAfterWrite {
		if _, _, err := p.verifier.VerifyWrite(ctx, before, len(result.Accepted)); err != nil {
			p.logger.Warn("Write verification could not complete", zap.Error(err))
		}
	}

	if p.cfg.PurgeDuplicates {
		p.purgeDuplicates(ctx, result.DroppedDuplicates)
	}

	if p.sink != nil && len(result.Repairs) > 0 {
		if err := p.sink.Record(ctx, result.Repairs); err != nil {
			p.logger.Warn("Failed to record repair operations", zap.Error(err))
		}
	}

	return result, nil
}

// cleanBatch fans the repair stages out over a bounded worker pool and
// collects the candidates back in deterministic order.
func (p *Pipeline) cleanBatch(ctx context.Context, batch []model.RawOrderRecord) ([]cleaner.Candidate, error) {
	workerCount := p.cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = calculateWorkerCount(len(batch))
	}

	p.logger.Debug("Starting cleaning workers", zap.Int("workerCount", workerCount))

	jobs := make(chan model.RawOrderRecord)
	results := make(chan cleaner.Candidate, workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.start(ctx, jobs, results)
		}(newWorker(i, p.cleaner, p.logger))
	}

	go func() {
		defer close(jobs)
		for _, rec := range batch {
			select {
			case jobs <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	candidates := make([]cleaner.Candidate, 0, len(batch))
	for cand := range results {
		candidates = append(candidates, cand)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled during cleaning: %w", err)
	}

	// Collection order depends on worker scheduling; restore batch order
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Raw.OrderID < candidates[j].Raw.OrderID
	})

	return candidates, nil
}

// purgeDuplicates physically removes dropped duplicates from the raw store.
// Failures are logged and skipped: the canonical write already succeeded,
// and a leftover raw duplicate only costs a drop on the next run.
func (p *Pipeline) purgeDuplicates(ctx context.Context, dropped []DroppedDuplicate) {
	for _, dup := range dropped {
		if err := p.raw.DeleteByKey(ctx, dup.Raw.OrderID); err != nil {
			p.logger.Warn("Failed to purge duplicate from raw store",
				zap.Int64("orderID", dup.Raw.OrderID),
				zap.Error(err))
			continue
		}
		p.logger.Debug("Purged duplicate from raw store",
			zap.Int64("orderID", dup.Raw.OrderID))
	}
}

// observe publishes the batch outcome to the metrics registry
func (p *Pipeline) observe(result *BatchResult) {
	p.metrics.Records.WithLabelValues(outcomeAccepted).Add(float64(len(result.Accepted)))
	p.metrics.Records.WithLabelValues(outcomeRejected).Add(float64(len(result.Rejected)))
	p.metrics.Records.WithLabelValues(outcomeDuplicate).Add(float64(len(result.DroppedDuplicates)))
	p.metrics.DuplicatesDropped.Add(float64(len(result.DroppedDuplicates)))

	for _, op := range result.Repairs {
		p.metrics.Repairs.WithLabelValues(op.Kind).Inc()
	}
	for _, rej := range result.Rejected {
		p.metrics.Rejections.WithLabelValues(string(rej.Reason)).Inc()
	}

	p.metrics.LastBatchSize.Set(float64(result.RawCount))
	p.metrics.BatchDuration.Observe(result.Duration.Seconds())
}

// calculateWorkerCount determines the worker pool size from the available
// CPUs and the batch size. Cleaning is CPU-light, so small batches get a
// correspondingly small pool.
func calculateWorkerCount(batchSize int) int {
	// Use 75% of available CPUs
	cpuBased := int(math.Ceil(float64(runtime.NumCPU()) * 0.75))

	// One worker per block of records, at least one
	sizeBased := batchSize/minRecordsPerWorker + 1

	workerCount := cpuBased
	if sizeBased < workerCount {
		workerCount = sizeBased
	}

	if workerCount < 1 {
		workerCount = 1
	} else if workerCount > maxWorkers {
		workerCount = maxWorkers
	}

	return workerCount
}
