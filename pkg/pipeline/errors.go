package pipeline

import (
	"errors"
	"fmt"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// ErrMalformedBatch marks a raw batch that violates the extract's own
// primary-key guarantee. It is a precondition failure: no stage runs, and
// rerunning without fixing the extract will fail the same way.
var ErrMalformedBatch = errors.New("malformed raw batch")

// checkRawKeys verifies order_id uniqueness across the raw batch before any
// stage touches it.
func checkRawKeys(batch []model.RawOrderRecord) error {
	seen := make(map[int64]struct{}, len(batch))
	for _, rec := range batch {
		if _, dup := seen[rec.OrderID]; dup {
			return fmt.Errorf("%w: duplicate raw order_id %d", ErrMalformedBatch, rec.OrderID)
		}
		seen[rec.OrderID] = struct{}{}
	}
	return nil
}
