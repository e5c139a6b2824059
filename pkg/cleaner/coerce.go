// pkg/cleaner/coerce.go
package cleaner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// coercePrice makes the price field numeric. Non-numeric text is repaired to
// zero under the zero policy and is a fault under the reject policy; numeric
// values pass through exactly, including negatives, which the constraint
// gate rejects later. An absent price violates the raw schema's presence
// guarantee and is always a fault.
func (c *Cleaner) coercePrice(raw model.RawOrderRecord) (decimal.Decimal, *model.RepairOperation, *Fault) {
	if raw.Price == nil {
		return decimal.Zero, nil, &Fault{
			Reason: model.ReasonPriceMissing,
			Detail: "price is absent from the raw record",
		}
	}

	text := strings.TrimSpace(*raw.Price)
	price, err := decimal.NewFromString(text)
	if err == nil {
		return price, nil, nil
	}

	if c.pricePolicy == config.PricePolicyReject {
		return decimal.Zero, nil, &Fault{
			Reason: model.ReasonPriceInvalid,
			Detail: fmt.Sprintf("price %q is not numeric", *raw.Price),
		}
	}

	repair := model.NewRepair(raw.OrderID, "price", raw.Price, "0", model.RepairPriceZeroed)
	return decimal.Zero, repair, nil
}

// coerceQuantity parses the quantity field as a signed integer and folds
// negative values to their magnitude: negative quantities are sign errors,
// not bad records. Absence repairs to zero. Text that does not parse at all
// is a fault, never a default, so malformed values are not confused with
// absent ones.
func coerceQuantity(raw model.RawOrderRecord) (int64, *model.RepairOperation, *Fault) {
	if raw.Quantity == nil {
		repair := model.NewRepair(raw.OrderID, "quantity", nil, "0", model.RepairQuantityDefaulted)
		return 0, repair, nil
	}

	text := strings.TrimSpace(*raw.Quantity)
	qty, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, nil, &Fault{
			Reason: model.ReasonQuantityUnparseable,
			Detail: fmt.Sprintf("quantity %q does not parse as an integer", *raw.Quantity),
		}
	}

	if qty < 0 {
		folded := strconv.FormatInt(-qty, 10)
		repair := model.NewRepair(raw.OrderID, "quantity", raw.Quantity, folded, model.RepairQuantitySignFolded)
		return -qty, repair, nil
	}

	return qty, nil, nil
}
