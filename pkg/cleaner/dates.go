// pkg/cleaner/dates.go
package cleaner

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/David-Botos/order-ingress/pkg/model"
)

// dmyPattern matches two digits, two digits, four digits: day-month-year
// text after separator normalization.
var dmyPattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)

// OverrideTable maps order identifiers to replacement date literals. It
// corrects known anomalies that no general rule can repair.
type OverrideTable map[int64]string

// overrideFile is the YAML shape of the override configuration file
type overrideFile struct {
	DateOverrides map[int64]string `yaml:"date_overrides"`
}

// LoadOverrides reads a date override table from a YAML file.
func LoadOverrides(path string) (OverrideTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file: %w", err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse override file %s: %w", path, err)
	}

	return OverrideTable(file.DateOverrides), nil
}

// normalizeDate converts free-form date text into a canonical calendar date.
// Separators are unified first, then day-month-year text is reordered, and
// the result must denote a real calendar day. Records whose date is still
// invalid get one last chance through the override table; after that they
// are faults, because there is no safe placeholder for a date.
func (c *Cleaner) normalizeDate(raw model.RawOrderRecord) (time.Time, []*model.RepairOperation, *Fault) {
	if raw.OrderDate == nil || strings.TrimSpace(*raw.OrderDate) == "" {
		return time.Time{}, nil, &Fault{
			Reason: model.ReasonDateMissing,
			Detail: "order date is absent from the raw record",
		}
	}

	var repairs []*model.RepairOperation
	text := strings.TrimSpace(*raw.OrderDate)

	// Separator normalization runs before format detection so the slash
	// and dash spellings of one date land on the same shape.
	if strings.Contains(text, "/") {
		normalized := strings.ReplaceAll(text, "/", "-")
		repairs = append(repairs, model.NewRepair(raw.OrderID, "order_date", raw.OrderDate, normalized, model.RepairDateSeparators))
		text = normalized
	}

	// Day-month-year text is reordered to year-month-day. Anything else
	// keeps its shape and stands or falls with calendar validation.
	if m := dmyPattern.FindStringSubmatch(text); m != nil {
		reordered := fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
		repairs = append(repairs, model.NewRepair(raw.OrderID, "order_date", model.StringPtr(text), reordered, model.RepairDateReordered))
		text = reordered
	}

	if date, ok := parseCalendarDate(text); ok {
		return date, repairs, nil
	}

	if replacement, ok := c.overrides[raw.OrderID]; ok {
		date, valid := parseCalendarDate(replacement)
		if !valid {
			return time.Time{}, repairs, &Fault{
				Reason: model.ReasonDateInvalid,
				Detail: fmt.Sprintf("override %q for order %d is not a valid date", replacement, raw.OrderID),
			}
		}
		repairs = append(repairs, model.NewRepair(raw.OrderID, "order_date", model.StringPtr(text), replacement, model.RepairDateOverridden))
		return date, repairs, nil
	}

	return time.Time{}, repairs, &Fault{
		Reason: model.ReasonDateInvalid,
		Detail: fmt.Sprintf("order date %q does not denote a calendar day", *raw.OrderDate),
	}
}

// parseCalendarDate promotes year-month-day text to a date. The round trip
// back to text must reproduce the input exactly, which rejects shapes Go's
// parser tolerates on its own, such as two-digit years and unpadded months.
func parseCalendarDate(text string) (time.Time, bool) {
	date, err := time.Parse(model.DateLayout, text)
	if err != nil {
		return time.Time{}, false
	}
	if date.Format(model.DateLayout) != text {
		return time.Time{}, false
	}
	return date, true
}
