// pkg/cleaner/coerce_test.go
package cleaner

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/config"
	"github.com/David-Botos/order-ingress/pkg/model"
)

func TestCoercePrice(t *testing.T) {
	cl := newTestCleaner(t)

	t.Run("numeric text passes through exactly", func(t *testing.T) {
		price, repair, fault := cl.coercePrice(testRaw(1))

		assert.Nil(t, fault)
		assert.Nil(t, repair)
		assert.True(t, price.Equal(decimal.RequireFromString("19.99")))
	})

	t.Run("surrounding whitespace is tolerated", func(t *testing.T) {
		raw := testRaw(2)
		raw.Price = model.StringPtr("  19.99 ")
		price, repair, fault := cl.coercePrice(raw)

		assert.Nil(t, fault)
		assert.Nil(t, repair)
		assert.True(t, price.Equal(decimal.RequireFromString("19.99")))
	})

	t.Run("negative prices pass coercion for the gate to reject", func(t *testing.T) {
		raw := testRaw(3)
		raw.Price = model.StringPtr("-5.00")
		price, repair, fault := cl.coercePrice(raw)

		assert.Nil(t, fault)
		assert.Nil(t, repair)
		assert.True(t, price.IsNegative())
	})

	t.Run("absent price is always a fault", func(t *testing.T) {
		raw := testRaw(4)
		raw.Price = nil
		_, repair, fault := cl.coercePrice(raw)

		assert.Nil(t, repair)
		require.NotNil(t, fault)
		assert.Equal(t, model.ReasonPriceMissing, fault.Reason)
	})

	t.Run("non-numeric text is zeroed under the zero policy", func(t *testing.T) {
		raw := testRaw(5)
		raw.Price = model.StringPtr("abc")
		price, repair, fault := cl.coercePrice(raw)

		assert.Nil(t, fault)
		require.NotNil(t, repair)
		assert.Equal(t, model.RepairPriceZeroed, repair.Kind)
		assert.Equal(t, "abc", model.StringValue(repair.OriginalValue))
		assert.Equal(t, "0", repair.NewValue)
		assert.True(t, price.IsZero())
	})

	t.Run("non-numeric text is a fault under the reject policy", func(t *testing.T) {
		cfg := testPipelineConfig()
		cfg.PricePolicy = config.PricePolicyReject
		strict, err := New(cfg, zap.NewNop())
		require.NoError(t, err)

		raw := testRaw(6)
		raw.Price = model.StringPtr("abc")
		_, repair, fault := strict.coercePrice(raw)

		assert.Nil(t, repair)
		require.NotNil(t, fault)
		assert.Equal(t, model.ReasonPriceInvalid, fault.Reason)
	})
}

func TestCoerceQuantity(t *testing.T) {
	t.Run("integer text parses", func(t *testing.T) {
		qty, repair, fault := coerceQuantity(testRaw(1))

		assert.Nil(t, fault)
		assert.Nil(t, repair)
		assert.Equal(t, int64(5), qty)
	})

	t.Run("absent quantity defaults to zero", func(t *testing.T) {
		raw := testRaw(2)
		raw.Quantity = nil
		qty, repair, fault := coerceQuantity(raw)

		assert.Nil(t, fault)
		require.NotNil(t, repair)
		assert.Equal(t, model.RepairQuantityDefaulted, repair.Kind)
		assert.Nil(t, repair.OriginalValue)
		assert.Equal(t, "0", repair.NewValue)
		assert.Equal(t, int64(0), qty)
	})

	t.Run("negative quantity folds to its magnitude", func(t *testing.T) {
		raw := testRaw(3)
		raw.Quantity = model.StringPtr("-2")
		qty, repair, fault := coerceQuantity(raw)

		assert.Nil(t, fault)
		require.NotNil(t, repair)
		assert.Equal(t, model.RepairQuantitySignFolded, repair.Kind)
		assert.Equal(t, "2", repair.NewValue)
		assert.Equal(t, int64(2), qty)
	})

	t.Run("the folded result is never negative", func(t *testing.T) {
		for _, text := range []string{"-1", "-99", "-100000"} {
			raw := testRaw(4)
			raw.Quantity = model.StringPtr(text)
			qty, _, fault := coerceQuantity(raw)
			require.Nil(t, fault, "quantity %q", text)
			assert.GreaterOrEqual(t, qty, int64(0), "quantity %q", text)
		}
	})

	t.Run("non-integer text is a fault, never a default", func(t *testing.T) {
		for _, text := range []string{"two", "2.5", "", "1e3"} {
			raw := testRaw(5)
			raw.Quantity = model.StringPtr(text)
			_, repair, fault := coerceQuantity(raw)
			assert.Nil(t, repair, "quantity %q", text)
			require.NotNil(t, fault, "quantity %q", text)
			assert.Equal(t, model.ReasonQuantityUnparseable, fault.Reason)
		}
	})
}
