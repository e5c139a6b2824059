// pkg/cleaner/nulls.go
package cleaner

import (
	"strings"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// resolveCustomerName substitutes the configured placeholder for an absent
// or blank customer name. No other field has a default-substitution policy:
// a name can be safely invented, a quantity or price cannot.
func (c *Cleaner) resolveCustomerName(raw model.RawOrderRecord) (string, *model.RepairOperation) {
	if raw.CustomerName != nil && strings.TrimSpace(*raw.CustomerName) != "" {
		return *raw.CustomerName, nil
	}

	repair := model.NewRepair(raw.OrderID, "customer_name", raw.CustomerName, c.placeholder, model.RepairCustomerDefaulted)
	return c.placeholder, repair
}
