// pkg/cleaner/cleaner_test.go
package cleaner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

// testPipelineConfig returns the cleaning policy used throughout the package tests
func testPipelineConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		CustomerPlaceholder: "Unknown Customer",
		PricePolicy:         config.PricePolicyZero,
	}
}

func newTestCleaner(t *testing.T) *Cleaner {
	t.Helper()
	cl, err := New(testPipelineConfig(), zap.NewNop())
	require.NoError(t, err)
	return cl
}

// testRaw returns a raw record that needs no repairs
func testRaw(orderID int64) model.RawOrderRecord {
	return model.RawOrderRecord{
		OrderID:      orderID,
		CustomerName: model.StringPtr("John Doe"),
		OrderDate:    model.StringPtr("2023-12-01"),
		Product:      model.StringPtr("Widget A"),
		Quantity:     model.StringPtr("5"),
		Price:        model.StringPtr("19.99"),
	}
}

func date(t *testing.T, text string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, text)
	require.NoError(t, err)
	return d
}

func TestNew(t *testing.T) {
	t.Run("requires a configuration", func(t *testing.T) {
		_, err := New(nil, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("requires a logger", func(t *testing.T) {
		_, err := New(testPipelineConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("loads the override table when one is configured", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.yaml")
		require.NoError(t, os.WriteFile(path, []byte("date_overrides:\n  6: \"2023-01-13\"\n"), 0o644))

		cfg := testPipelineConfig()
		cfg.DateOverridesPath = path
		cl, err := New(cfg, zap.NewNop())
		require.NoError(t, err)

		raw := testRaw(6)
		raw.OrderDate = model.StringPtr("2023-13-01")
		cand := cl.Clean(raw)
		require.Nil(t, cand.Fault)
		assert.Equal(t, date(t, "2023-01-13"), cand.OrderDate)
	})

	t.Run("fails when the override file cannot be read", func(t *testing.T) {
		cfg := testPipelineConfig()
		cfg.DateOverridesPath = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := New(cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestClean(t *testing.T) {
	cl := newTestCleaner(t)

	t.Run("a well-formed record passes through untouched", func(t *testing.T) {
		cand := cl.Clean(testRaw(1))

		assert.Nil(t, cand.Fault)
		assert.Empty(t, cand.Repairs)
		assert.Equal(t, "John Doe", cand.CustomerName)
		assert.Equal(t, "Widget A", cand.Product)
		assert.Equal(t, int64(5), cand.Quantity)
		assert.Equal(t, "19.99", cand.Price.StringFixed(model.PriceScale))
		assert.Equal(t, date(t, "2023-12-01"), cand.OrderDate)
	})

	t.Run("missing customer name gets the placeholder", func(t *testing.T) {
		raw := testRaw(2)
		raw.CustomerName = nil
		cand := cl.Clean(raw)

		assert.Equal(t, "Unknown Customer", cand.CustomerName)
		require.Len(t, cand.Repairs, 1)
		assert.Equal(t, model.RepairCustomerDefaulted, cand.Repairs[0].Kind)
		assert.Nil(t, cand.Repairs[0].OriginalValue)
	})

	t.Run("blank customer name gets the placeholder", func(t *testing.T) {
		raw := testRaw(3)
		raw.CustomerName = model.StringPtr("   ")
		cand := cl.Clean(raw)

		assert.Equal(t, "Unknown Customer", cand.CustomerName)
		require.Len(t, cand.Repairs, 1)
		assert.Equal(t, model.RepairCustomerDefaulted, cand.Repairs[0].Kind)
	})

	t.Run("repairs accumulate across fields", func(t *testing.T) {
		raw := testRaw(4)
		raw.CustomerName = nil
		raw.OrderDate = model.StringPtr("15-10-2023")
		raw.Quantity = model.StringPtr("-2")
		cand := cl.Clean(raw)

		require.Nil(t, cand.Fault)
		require.Len(t, cand.Repairs, 3)

		kinds := make([]string, 0, len(cand.Repairs))
		for _, op := range cand.Repairs {
			kinds = append(kinds, op.Kind)
			assert.Equal(t, int64(4), op.OrderID)
		}
		assert.ElementsMatch(t, []string{
			model.RepairQuantitySignFolded,
			model.RepairDateReordered,
			model.RepairCustomerDefaulted,
		}, kinds)

		assert.Equal(t, int64(2), cand.Quantity)
		assert.Equal(t, date(t, "2023-10-15"), cand.OrderDate)
		assert.Equal(t, "Unknown Customer", cand.CustomerName)
	})

	t.Run("a fault does not stop the remaining stages", func(t *testing.T) {
		raw := testRaw(5)
		raw.Quantity = model.StringPtr("two")
		raw.CustomerName = nil
		cand := cl.Clean(raw)

		require.NotNil(t, cand.Fault)
		assert.Equal(t, model.ReasonQuantityUnparseable, cand.Fault.Reason)
		assert.Equal(t, "Unknown Customer", cand.CustomerName)
		require.Len(t, cand.Repairs, 1)
		assert.Equal(t, model.RepairCustomerDefaulted, cand.Repairs[0].Kind)
	})

	t.Run("the first fault wins", func(t *testing.T) {
		raw := testRaw(6)
		raw.Price = nil
		raw.Quantity = model.StringPtr("two")
		cand := cl.Clean(raw)

		require.NotNil(t, cand.Fault)
		assert.Equal(t, model.ReasonPriceMissing, cand.Fault.Reason)
	})

	t.Run("the raw input rides along unmodified", func(t *testing.T) {
		raw := testRaw(7)
		raw.Quantity = model.StringPtr("-2")
		cand := cl.Clean(raw)

		assert.Equal(t, raw, cand.Raw)
		assert.Equal(t, "-2", *cand.Raw.Quantity)
	})
}

func TestCandidateKey(t *testing.T) {
	cl := newTestCleaner(t)

	t.Run("raw spelling differences never reach the key", func(t *testing.T) {
		a := testRaw(1)
		a.OrderDate = model.StringPtr("2023-12-01")

		b := testRaw(2)
		b.OrderDate = model.StringPtr("01/12/2023")

		assert.Equal(t, cl.Clean(a).Key(), cl.Clean(b).Key())
	})

	t.Run("different quantities produce different keys", func(t *testing.T) {
		a := testRaw(1)
		b := testRaw(2)
		b.Quantity = model.StringPtr("6")

		assert.NotEqual(t, cl.Clean(a).Key(), cl.Clean(b).Key())
	})
}

func TestPromote(t *testing.T) {
	cl := newTestCleaner(t)

	rec := cl.Clean(testRaw(9)).Promote()
	assert.Equal(t, int64(9), rec.OrderID)
	assert.Equal(t, "John Doe", rec.CustomerName)
	assert.Equal(t, "Widget A", rec.Product)
	assert.Equal(t, int64(5), rec.Quantity)
	assert.Equal(t, "19.99", rec.Price.StringFixed(model.PriceScale))
	assert.Equal(t, date(t, "2023-12-01"), rec.OrderDate)
}
