// pkg/cleaner/dates_test.go
package cleaner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/order-ingress/pkg/model"
)

func TestNormalizeDate(t *testing.T) {
	cl := newTestCleaner(t)

	t.Run("canonical dates need no repair", func(t *testing.T) {
		d, repairs, fault := cl.normalizeDate(testRaw(1))

		assert.Nil(t, fault)
		assert.Empty(t, repairs)
		assert.Equal(t, date(t, "2023-12-01"), d)
	})

	t.Run("cleaning its own output changes nothing", func(t *testing.T) {
		raw := testRaw(2)
		raw.OrderDate = model.StringPtr("23/11/2023")
		first, _, fault := cl.normalizeDate(raw)
		require.Nil(t, fault)

		again := testRaw(2)
		again.OrderDate = model.StringPtr(first.Format(model.DateLayout))
		second, repairs, fault := cl.normalizeDate(again)

		assert.Nil(t, fault)
		assert.Empty(t, repairs)
		assert.Equal(t, first, second)
	})

	t.Run("slash separators are normalized to dashes", func(t *testing.T) {
		raw := testRaw(3)
		raw.OrderDate = model.StringPtr("23/11/2023")
		d, repairs, fault := cl.normalizeDate(raw)

		require.Nil(t, fault)
		require.Len(t, repairs, 2)
		assert.Equal(t, model.RepairDateSeparators, repairs[0].Kind)
		assert.Equal(t, "23-11-2023", repairs[0].NewValue)
		assert.Equal(t, model.RepairDateReordered, repairs[1].Kind)
		assert.Equal(t, "2023-11-23", repairs[1].NewValue)
		assert.Equal(t, date(t, "2023-11-23"), d)
	})

	t.Run("slash and dash spellings land on the same date", func(t *testing.T) {
		slash := testRaw(4)
		slash.OrderDate = model.StringPtr("23/11/2023")
		dash := testRaw(4)
		dash.OrderDate = model.StringPtr("23-11-2023")

		fromSlash, _, slashFault := cl.normalizeDate(slash)
		require.Nil(t, slashFault)
		fromDash, _, dashFault := cl.normalizeDate(dash)
		require.Nil(t, dashFault)

		assert.Equal(t, fromSlash, fromDash)
	})

	t.Run("day-month-year text is reordered", func(t *testing.T) {
		raw := testRaw(5)
		raw.OrderDate = model.StringPtr("15-10-2023")
		d, repairs, fault := cl.normalizeDate(raw)

		require.Nil(t, fault)
		require.Len(t, repairs, 1)
		assert.Equal(t, model.RepairDateReordered, repairs[0].Kind)
		assert.Equal(t, date(t, "2023-10-15"), d)
	})

	t.Run("absent or blank dates are faults", func(t *testing.T) {
		for name, value := range map[string]*string{
			"nil":        nil,
			"empty":      model.StringPtr(""),
			"whitespace": model.StringPtr("   "),
		} {
			raw := testRaw(6)
			raw.OrderDate = value
			_, _, fault := cl.normalizeDate(raw)
			require.NotNil(t, fault, name)
			assert.Equal(t, model.ReasonDateMissing, fault.Reason, name)
		}
	})

	t.Run("dates no calendar contains are faults", func(t *testing.T) {
		for _, text := range []string{"2023-13-01", "2023-02-30", "2023-00-10", "garbage"} {
			raw := testRaw(7)
			raw.OrderDate = model.StringPtr(text)
			_, _, fault := cl.normalizeDate(raw)
			require.NotNil(t, fault, text)
			assert.Equal(t, model.ReasonDateInvalid, fault.Reason, text)
		}
	})

	t.Run("two-digit years are rejected", func(t *testing.T) {
		raw := testRaw(8)
		raw.OrderDate = model.StringPtr("23-11-23")
		_, _, fault := cl.normalizeDate(raw)

		require.NotNil(t, fault)
		assert.Equal(t, model.ReasonDateInvalid, fault.Reason)
	})

	t.Run("unpadded months are rejected", func(t *testing.T) {
		raw := testRaw(9)
		raw.OrderDate = model.StringPtr("2023-1-02")
		_, _, fault := cl.normalizeDate(raw)

		require.NotNil(t, fault)
		assert.Equal(t, model.ReasonDateInvalid, fault.Reason)
	})
}

func TestDateOverrides(t *testing.T) {
	t.Run("the override replaces a date no rule can repair", func(t *testing.T) {
		cl := newTestCleaner(t).WithOverrides(OverrideTable{6: "2023-01-13"})

		raw := testRaw(6)
		raw.OrderDate = model.StringPtr("2023-13-01")
		d, repairs, fault := cl.normalizeDate(raw)

		require.Nil(t, fault)
		require.Len(t, repairs, 1)
		assert.Equal(t, model.RepairDateOverridden, repairs[0].Kind)
		assert.Equal(t, "2023-01-13", repairs[0].NewValue)
		assert.Equal(t, date(t, "2023-01-13"), d)
	})

	t.Run("a valid date ignores its override", func(t *testing.T) {
		cl := newTestCleaner(t).WithOverrides(OverrideTable{6: "2023-01-13"})

		d, repairs, fault := cl.normalizeDate(testRaw(6))

		assert.Nil(t, fault)
		assert.Empty(t, repairs)
		assert.Equal(t, date(t, "2023-12-01"), d)
	})

	t.Run("overrides apply per order, not per value", func(t *testing.T) {
		cl := newTestCleaner(t).WithOverrides(OverrideTable{6: "2023-01-13"})

		raw := testRaw(7)
		raw.OrderDate = model.StringPtr("2023-13-01")
		_, _, fault := cl.normalizeDate(raw)

		require.NotNil(t, fault)
		assert.Equal(t, model.ReasonDateInvalid, fault.Reason)
	})

	t.Run("an invalid override is itself a fault", func(t *testing.T) {
		cl := newTestCleaner(t).WithOverrides(OverrideTable{6: "2023-99-99"})

		raw := testRaw(6)
		raw.OrderDate = model.StringPtr("2023-13-01")
		_, _, fault := cl.normalizeDate(raw)

		require.NotNil(t, fault)
		assert.Equal(t, model.ReasonDateInvalid, fault.Reason)
		assert.Contains(t, fault.Detail, "override")
	})
}

func TestLoadOverrides(t *testing.T) {
	t.Run("reads the table from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.yaml")
		content := "date_overrides:\n  6: \"2023-01-13\"\n  42: \"2024-02-29\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		table, err := LoadOverrides(path)
		require.NoError(t, err)
		assert.Len(t, table, 2)
		assert.Equal(t, "2023-01-13", table[6])
		assert.Equal(t, "2024-02-29", table[42])
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.yaml")
		require.NoError(t, os.WriteFile(path, []byte("date_overrides: ["), 0o644))

		_, err := LoadOverrides(path)
		assert.Error(t, err)
	})
}
