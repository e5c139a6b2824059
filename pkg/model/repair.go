// pkg/model/repair.go
package model

import (
	"time"
)

// Repair kinds recorded by the cleaning stages
const (
	RepairPriceZeroed        = "price_nonnumeric_zeroed"
	RepairQuantityDefaulted  = "quantity_defaulted"
	RepairQuantitySignFolded = "quantity_sign_folded"
	RepairCustomerDefaulted  = "customer_name_defaulted"
	RepairDateSeparators     = "date_separators_normalized"
	RepairDateReordered      = "date_reordered_dmy"
	RepairDateOverridden     = "date_overridden"
)

// RepairOperation represents a single field repair applied during cleaning
type RepairOperation struct {
	RunID         string    // Batch run that produced the repair
	OrderID       int64     // Raw record the repair applied to
	Field         string    // Field that was repaired
	OriginalValue *string   // Original value (nil when the field was absent)
	NewValue      string    // Value after the repair
	Kind          string    // One of the Repair* constants
	AppliedAt     time.Time // When the repair was applied
}

// NewRepair builds a repair record for a field that held a value
func NewRepair(orderID int64, field string, original *string, newValue, kind string) *RepairOperation {
	return &RepairOperation{
		OrderID:       orderID,
		Field:         field,
		OriginalValue: original,
		NewValue:      newValue,
		Kind:          kind,
		AppliedAt:     time.Now().UTC(),
	}
}
