package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/cleaner"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// worker runs the per-field repair stages over records pulled from the job
// channel. The stages before duplicate resolution share no state across
// records, so workers never coordinate beyond the channels.
type worker struct {
	id      int
	cleaner *cleaner.Cleaner
	logger  *zap.Logger
}

// newWorker creates a worker bound to the shared cleaner
func newWorker(id int, cl *cleaner.Cleaner, logger *zap.Logger) *worker {
	return &worker{
		id:      id,
		cleaner: cl,
		logger:  logger.With(zap.Int("workerID", id)),
	}
}

// start processes records until the job channel closes or the context ends
func (w *worker) start(ctx context.Context, jobs <-chan model.RawOrderRecord, results chan<- cleaner.Candidate) {
	w.logger.Debug("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Worker stopping due to context cancellation")
			return

		case rec, ok := <-jobs:
			if !ok {
				w.logger.Debug("Worker stopping due to closed job channel")
				return
			}

			cand := w.cleaner.Clean(rec)

			select {
			case results <- cand:
			case <-ctx.Done():
				w.logger.Warn("Context cancelled while sending result",
					zap.Int64("orderID", rec.OrderID))
				return
			}
		}
	}
}
