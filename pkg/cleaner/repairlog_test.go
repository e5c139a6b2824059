// pkg/cleaner/repairlog_test.go
package cleaner

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/model"
)

func TestMemoryRepairSink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemoryRepairSink()

	first := model.NewRepair(1, "quantity", nil, "0", model.RepairQuantityDefaulted)
	second := model.NewRepair(2, "customer_name", nil, "Unknown Customer", model.RepairCustomerDefaulted)

	require.NoError(t, sink.Record(ctx, []model.RepairOperation{*first}))
	require.NoError(t, sink.Record(ctx, []model.RepairOperation{*second}))

	ops := sink.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, int64(1), ops[0].OrderID)
	assert.Equal(t, int64(2), ops[1].OrderID)

	// The returned slice is a copy; callers cannot corrupt the sink
	ops[0].OrderID = 99
	assert.Equal(t, int64(1), sink.Operations()[0].OrderID)
}

func TestNewSQLRepairSink(t *testing.T) {
	t.Run("requires a database handle", func(t *testing.T) {
		_, err := NewSQLRepairSink(nil, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("requires a logger", func(t *testing.T) {
		_, err := NewSQLRepairSink(&sqlx.DB{}, nil)
		assert.Error(t, err)
	})
}
