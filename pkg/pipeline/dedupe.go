package pipeline

import (
	"sort"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/cleaner"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// DuplicateResolver detects records that describe the same real-world order
// and keeps exactly one per duplicate key. It runs as a single global pass
// after cleaning, so keys compare repaired values rather than raw spellings.
type DuplicateResolver struct {
	logger *zap.Logger
}

// NewDuplicateResolver creates a duplicate resolver
func NewDuplicateResolver(logger *zap.Logger) *DuplicateResolver {
	return &DuplicateResolver{logger: logger}
}

// Resolve keeps the lowest order_id among candidates sharing a duplicate key
// and reports the rest as dropped. The kept set does not depend on input
// order; survivors and drops come back sorted by order_id. Faulted
// candidates bypass the key map entirely: they can never reach the canonical
// store, so there is nothing for them to collide with.
func (d *DuplicateResolver) Resolve(candidates []cleaner.Candidate) ([]cleaner.Candidate, []DroppedDuplicate) {
	lowest := make(map[model.DuplicateKey]int64, len(candidates))
	for _, cand := range candidates {
		if cand.Fault != nil {
			continue
		}
		key := cand.Key()
		if id, ok := lowest[key]; !ok || cand.Raw.OrderID < id {
			lowest[key] = cand.Raw.OrderID
		}
	}

	kept := make([]cleaner.Candidate, 0, len(candidates))
	var dropped []DroppedDuplicate

	for _, cand := range candidates {
		if cand.Fault != nil {
			kept = append(kept, cand)
			continue
		}

		keptID := lowest[cand.Key()]
		if cand.Raw.OrderID != keptID {
			d.logger.Info("Dropping duplicate order",
				zap.Int64("orderID", cand.Raw.OrderID),
				zap.Int64("keptOrderID", keptID))
			dropped = append(dropped, DroppedDuplicate{Raw: cand.Raw, KeptOrderID: keptID})
			continue
		}

		kept = append(kept, cand)
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Raw.OrderID < kept[j].Raw.OrderID
	})
	sort.Slice(dropped, func(i, j int) bool {
		return dropped[i].Raw.OrderID < dropped[j].Raw.OrderID
	})

	return kept, dropped
}
