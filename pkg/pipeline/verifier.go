package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/store"
)

// Verifier checks the canonical store's row delta against the accepted count
// after a bulk write.
type Verifier struct {
	canonical store.CanonicalStore
	logger    *zap.Logger
}

// NewVerifier creates a verifier for the canonical store
func NewVerifier(canonical store.CanonicalStore, logger *zap.Logger) *Verifier {
	return &Verifier{
		canonical: canonical,
		logger:    logger,
	}
}

// VerifyWrite compares the post-write count against the pre-write count plus
// the accepted records. A mismatch is reported, not fatal: the rows are
// already committed and the caller decides what to do about the discrepancy.
func (v *Verifier) VerifyWrite(ctx context.Context, before int64, accepted int) (bool, int64, error) {
	after, err := v.canonical.Count(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count canonical store: %w", err)
	}

	expected := before + int64(accepted)
	if after != expected {
		v.logger.Warn("Row count verification failed",
			zap.Int64("expected", expected),
			zap.Int64("actual", after),
			zap.Int64("difference", expected-after))
		return false, after, nil
	}

	v.logger.Info("Row count verification successful", zap.Int64("count", after))
	return true, after, nil
}
