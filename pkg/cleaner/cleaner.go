// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// Fault records the first condition that made a record unrepairable. Faulted
// candidates still flow through the remaining stages and are rejected at the
// constraint gate with the recorded reason.
type Fault struct {
	Reason model.Reason
	Detail string
}

// Candidate is a record after the per-field repair stages, before duplicate
// resolution and constraint enforcement.
type Candidate struct {
	Raw          model.RawOrderRecord
	CustomerName string
	Product      string
	OrderDate    time.Time
	Quantity     int64
	Price        decimal.Decimal
	Repairs      []model.RepairOperation
	Fault        *Fault
}

// Key derives the duplicate key from the candidate's cleaned values, so two
// spellings of the same order compare equal after repair.
func (c Candidate) Key() model.DuplicateKey {
	return model.DuplicateKey{
		CustomerName: c.CustomerName,
		OrderDate:    c.OrderDate.Format(model.DateLayout),
		Product:      c.Product,
		Quantity:     c.Quantity,
		Price:        c.Price.StringFixed(model.PriceScale),
	}
}

// Promote converts the candidate into a canonical record. Only the
// constraint gate calls this, after re-checking every invariant.
func (c Candidate) Promote() model.CleanOrderRecord {
	return model.CleanOrderRecord{
		OrderID:      c.Raw.OrderID,
		CustomerName: c.CustomerName,
		OrderDate:    c.OrderDate,
		Product:      c.Product,
		Quantity:     c.Quantity,
		Price:        c.Price.Round(model.PriceScale),
	}
}

func (c *Candidate) addRepair(op *model.RepairOperation) {
	if op != nil {
		c.Repairs = append(c.Repairs, *op)
	}
}

func (c *Candidate) addRepairs(ops []*model.RepairOperation) {
	for _, op := range ops {
		c.addRepair(op)
	}
}

// setFault keeps the first fault; later stages cannot overwrite it
func (c *Candidate) setFault(f *Fault) {
	if f != nil && c.Fault == nil {
		c.Fault = f
	}
}

// Cleaner applies the per-field repair stages to raw records: price and
// quantity coercion, date normalization, and customer-name defaulting.
type Cleaner struct {
	placeholder string
	pricePolicy string
	overrides   OverrideTable
	logger      *zap.Logger
}

// New creates a Cleaner from the pipeline policy, loading the date override
// table when one is configured.
func New(cfg *config.PipelineConfig, logger *zap.Logger) (*Cleaner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline configuration cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cleaner := &Cleaner{
		placeholder: cfg.CustomerPlaceholder,
		pricePolicy: cfg.PricePolicy,
		overrides:   OverrideTable{},
		logger:      logger,
	}

	if cfg.DateOverridesPath != "" {
		overrides, err := LoadOverrides(cfg.DateOverridesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load date overrides: %w", err)
		}
		cleaner.overrides = overrides
		logger.Info("Loaded date override table",
			zap.String("path", cfg.DateOverridesPath),
			zap.Int("entries", len(overrides)))
	}

	return cleaner, nil
}

// WithOverrides replaces the override table and returns the cleaner
func (c *Cleaner) WithOverrides(overrides OverrideTable) *Cleaner {
	c.overrides = overrides
	return c
}

// Clean runs the repair stages over one raw record in fixed order and
// returns the candidate together with every repair that was applied. The
// input is never mutated. A stage that cannot repair its field marks the
// record with a fault instead of stopping the remaining stages, so the
// audit trail stays complete even for records headed for rejection.
func (c *Cleaner) Clean(raw model.RawOrderRecord) Candidate {
	cand := Candidate{
		Raw:     raw,
		Product: model.StringValue(raw.Product),
	}

	price, priceRepair, priceFault := c.coercePrice(raw)
	cand.Price = price
	cand.addRepair(priceRepair)
	cand.setFault(priceFault)

	qty, qtyRepair, qtyFault := coerceQuantity(raw)
	cand.Quantity = qty
	cand.addRepair(qtyRepair)
	cand.setFault(qtyFault)

	date, dateRepairs, dateFault := c.normalizeDate(raw)
	cand.OrderDate = date
	cand.addRepairs(dateRepairs)
	cand.setFault(dateFault)

	name, nameRepair := c.resolveCustomerName(raw)
	cand.CustomerName = name
	cand.addRepair(nameRepair)

	for _, op := range cand.Repairs {
		c.logger.Debug("Repaired field",
			zap.Int64("orderID", raw.OrderID),
			zap.String("field", op.Field),
			zap.String("kind", op.Kind),
			zap.String("newValue", op.NewValue))
	}

	return cand
}
