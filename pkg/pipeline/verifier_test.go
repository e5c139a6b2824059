package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/order-ingress/pkg/model"
	"github.com/David-Botos/order-ingress/pkg/store"
)

// failingCanonical fails every count so the error path can be exercised
type failingCanonical struct{}

func (failingCanonical) EnsureSchema(context.Context) error { return nil }

func (failingCanonical) BulkInsert(context.Context, []model.CleanOrderRecord) error { return nil }

func (failingCanonical) Count(context.Context) (int64, error) {
	return 0, errors.New("count failed")
}

func (failingCanonical) Close() error { return nil }

func TestVerifyWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("matching counts verify", func(t *testing.T) {
		canonical := store.NewMemoryCanonicalStore()
		require.NoError(t, canonical.BulkInsert(ctx, []model.CleanOrderRecord{
			mkCandidate(1, "John Doe", "2023-12-01", "Widget A", 5, "19.99").Promote(),
			mkCandidate(2, "Jane Smith", "2023-11-23", "Widget B", 2, "29.99").Promote(),
		}))

		v := NewVerifier(canonical, zap.NewNop())
		ok, after, err := v.VerifyWrite(ctx, 0, 2)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(2), after)
	})

	t.Run("a mismatch reports without failing", func(t *testing.T) {
		canonical := store.NewMemoryCanonicalStore()
		require.NoError(t, canonical.BulkInsert(ctx, []model.CleanOrderRecord{
			mkCandidate(1, "John Doe", "2023-12-01", "Widget A", 5, "19.99").Promote(),
		}))

		v := NewVerifier(canonical, zap.NewNop())
		ok, after, err := v.VerifyWrite(ctx, 0, 3)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), after)
	})

	t.Run("count errors surface", func(t *testing.T) {
		v := NewVerifier(failingCanonical{}, zap.NewNop())
		_, _, err := v.VerifyWrite(ctx, 0, 1)
		assert.Error(t, err)
	})
}
