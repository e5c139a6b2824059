// pkg/model/reject.go
package model

import (
	"fmt"
	"time"
)

// Reason identifies why a record was rejected by the pipeline
type Reason string

const (
	// ReasonQuantityUnparseable means quantity text parsed as neither a signed
	// integer nor absence; never confused with "absent" (which repairs to 0)
	ReasonQuantityUnparseable Reason = "quantity_unparseable"
	// ReasonDateInvalid means the date failed calendar validation and no
	// override entry produced a valid replacement
	ReasonDateInvalid Reason = "date_invalid"
	// ReasonDateMissing means the date text was absent; dates have no safe default
	ReasonDateMissing Reason = "date_missing"
	// ReasonPriceInvalid means price text was non-numeric under the reject policy
	ReasonPriceInvalid Reason = "price_invalid"
	// ReasonPriceMissing means the price text was absent, violating the raw
	// schema's presence guarantee
	ReasonPriceMissing Reason = "price_missing"
	// ReasonPriceNegative means the price parsed but is below zero
	ReasonPriceNegative Reason = "price_negative"
	// ReasonQuantityNegative means a negative quantity survived to the final gate
	ReasonQuantityNegative Reason = "quantity_negative"
	// ReasonCustomerEmpty means the customer name is still empty at the final gate
	ReasonCustomerEmpty Reason = "customer_name_empty"
	// ReasonProductMissing means the product text was absent or empty
	ReasonProductMissing Reason = "product_missing"
	// ReasonDuplicateOrderID means another record in the batch already claimed
	// this order_id
	ReasonDuplicateOrderID Reason = "duplicate_order_id"
)

// RejectedRecord carries a raw record out of the pipeline together with the
// reason it could not be made canonical. Rejections are data, not errors.
type RejectedRecord struct {
	Raw        RawOrderRecord
	Reason     Reason
	Detail     string
	RejectedAt time.Time
}

// NewRejection builds a rejection entry with the current timestamp
func NewRejection(raw RawOrderRecord, reason Reason, detail string) RejectedRecord {
	return RejectedRecord{
		Raw:        raw,
		Reason:     reason,
		Detail:     detail,
		RejectedAt: time.Now().UTC(),
	}
}

// Rejectionf builds a rejection entry with a formatted detail message
func Rejectionf(raw RawOrderRecord, reason Reason, format string, args ...interface{}) RejectedRecord {
	return NewRejection(raw, reason, fmt.Sprintf(format, args...))
}

// String returns a compact description for logs
func (r RejectedRecord) String() string {
	return fmt.Sprintf("order %d rejected (%s): %s", r.Raw.OrderID, r.Reason, r.Detail)
}
