package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/cleaner"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// ConstraintEnforcer is the final gate before canonical storage. It
// re-validates every invariant on the fully-processed record rather than
// trusting the earlier stages, and turns each failure into a rejection with
// a reason code.
type ConstraintEnforcer struct {
	logger *zap.Logger
}

// NewConstraintEnforcer creates a constraint enforcer
func NewConstraintEnforcer(logger *zap.Logger) *ConstraintEnforcer {
	return &ConstraintEnforcer{logger: logger}
}

// Enforce splits the candidates into accepted canonical records and
// rejections. One record's rejection never affects the others.
func (e *ConstraintEnforcer) Enforce(candidates []cleaner.Candidate) ([]model.CleanOrderRecord, []model.RejectedRecord) {
	accepted := make([]model.CleanOrderRecord, 0, len(candidates))
	var rejected []model.RejectedRecord
	seen := make(map[int64]struct{}, len(candidates))

	for _, cand := range candidates {
		if rej := e.check(cand, seen); rej != nil {
			e.logger.Warn("Rejected record",
				zap.Int64("orderID", cand.Raw.OrderID),
				zap.String("reason", string(rej.Reason)),
				zap.String("detail", rej.Detail))
			rejected = append(rejected, *rej)
			continue
		}

		seen[cand.Raw.OrderID] = struct{}{}
		accepted = append(accepted, cand.Promote())
	}

	return accepted, rejected
}

// check re-validates one candidate against every canonical invariant. Most
// of these cannot fail when the earlier stages behave, but the gate holds
// regardless of where a record came from.
func (e *ConstraintEnforcer) check(cand cleaner.Candidate, seen map[int64]struct{}) *model.RejectedRecord {
	if cand.Fault != nil {
		rej := model.NewRejection(cand.Raw, cand.Fault.Reason, cand.Fault.Detail)
		return &rej
	}

	if strings.TrimSpace(cand.Product) == "" {
		rej := model.NewRejection(cand.Raw, model.ReasonProductMissing, "product is absent or empty")
		return &rej
	}

	if strings.TrimSpace(cand.CustomerName) == "" {
		rej := model.NewRejection(cand.Raw, model.ReasonCustomerEmpty, "customer name is empty after cleaning")
		return &rej
	}

	if cand.Quantity < 0 {
		rej := model.Rejectionf(cand.Raw, model.ReasonQuantityNegative, "quantity %d is negative after cleaning", cand.Quantity)
		return &rej
	}

	if cand.Price.IsNegative() {
		rej := model.Rejectionf(cand.Raw, model.ReasonPriceNegative, "price %s is negative", cand.Price.StringFixed(model.PriceScale))
		return &rej
	}

	if cand.OrderDate.IsZero() {
		rej := model.NewRejection(cand.Raw, model.ReasonDateMissing, "order date was never normalized")
		return &rej
	}

	if _, dup := seen[cand.Raw.OrderID]; dup {
		rej := model.Rejectionf(cand.Raw, model.ReasonDuplicateOrderID, "order_id %d already accepted in this batch", cand.Raw.OrderID)
		return &rej
	}

	return nil
}
