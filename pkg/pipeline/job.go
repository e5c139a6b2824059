package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// BatchJob identifies one pipeline run
type BatchJob struct {
	ID        string    // Unique run identifier
	CreatedAt time.Time // Job creation timestamp
}

// NewBatchJob creates a job with a fresh run identifier
func NewBatchJob() BatchJob {
	return BatchJob{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}

// DroppedDuplicate records a raw record discarded by duplicate resolution,
// together with the order that was kept in its place.
type DroppedDuplicate struct {
	Raw         model.RawOrderRecord
	KeptOrderID int64
}

// BatchResult is the outcome of one pipeline run
type BatchResult struct {
	RunID             string
	RawCount          int
	Accepted          []model.CleanOrderRecord
	Rejected          []model.RejectedRecord
	DroppedDuplicates []DroppedDuplicate
	Repairs           []model.RepairOperation
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// NewBatchResult initializes a result for a job
func NewBatchResult(job BatchJob, rawCount int) *BatchResult {
	return &BatchResult{
		RunID:     job.ID,
		RawCount:  rawCount,
		StartTime: time.Now(),
	}
}

// Complete marks the run as finished and calculates duration
func (r *BatchResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// AcceptRate returns the percentage of raw records that became canonical
func (r *BatchResult) AcceptRate() float64 {
	if r.RawCount == 0 {
		return 0
	}
	return float64(len(r.Accepted)) / float64(r.RawCount) * 100
}
