package resourcemanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareParameterTypeDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("no structure clears details", func(t *testing.T) {
		in := &ResourceInput{Name: "float", Details: nil}
		err := prepareParameterTypeDetails(ctx, in)
		require.Nil(t, err)
		assert.Nil(t, in.Details)
	})

	t.Run("explicit null structure clears details", func(t *testing.T) {
		in := &ResourceInput{Name: "float", Details: map[string]any{"structure": nil}}
		err := prepareParameterTypeDetails(ctx, in)
		require.Nil(t, err)
		assert.Nil(t, in.Details)
	})

	t.Run("valid structure is kept", func(t *testing.T) {
		structure := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rate": map[string]any{"type": "number"},
			},
			"required": []any{"rate"},
		}
		in := &ResourceInput{Name: "model_params", Details: map[string]any{"structure": structure}}
		err := prepareParameterTypeDetails(ctx, in)
		require.Nil(t, err)
		assert.Equal(t, structure, in.Details["structure"])
	})

	t.Run("non-object structure is rejected", func(t *testing.T) {
		in := &ResourceInput{Name: "bad", Details: map[string]any{"structure": "not an object"}}
		err := prepareParameterTypeDetails(ctx, in)
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrInvalidStructure)
	})

	t.Run("structure that fails schema compilation is rejected", func(t *testing.T) {
		in := &ResourceInput{Name: "bad", Details: map[string]any{
			"structure": map[string]any{"type": 12},
		}}
		err := prepareParameterTypeDetails(ctx, in)
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrInvalidStructure)
	})
}
