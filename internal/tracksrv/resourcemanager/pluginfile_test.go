package resourcemanager

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
)

func TestPreparePluginFileDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("contents are compressed", func(t *testing.T) {
		source := "def run(params):\n    return params\n"
		in := &ResourceInput{Name: "main.py", Details: map[string]any{"contents": source}}
		err := preparePluginFileDetails(ctx, in)
		require.Nil(t, err)
		compressed, ok := in.Details["contents"].([]byte)
		require.True(t, ok)
		decoded, derr := snappy.Decode(nil, compressed)
		require.NoError(t, derr)
		assert.Equal(t, source, string(decoded))
	})

	t.Run("missing contents default to empty", func(t *testing.T) {
		in := &ResourceInput{Name: "empty.py", Details: map[string]any{}}
		err := preparePluginFileDetails(ctx, in)
		require.Nil(t, err)
		compressed, ok := in.Details["contents"].([]byte)
		require.True(t, ok)
		decoded, derr := snappy.Decode(nil, compressed)
		require.NoError(t, derr)
		assert.Empty(t, decoded)
	})

	t.Run("non-string contents are rejected", func(t *testing.T) {
		in := &ResourceInput{Name: "bad.py", Details: map[string]any{"contents": 42}}
		err := preparePluginFileDetails(ctx, in)
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestPluginFileContents(t *testing.T) {
	source := "import json\n"
	// Stored details round-trip through JSON, which base64s the compressed bytes.
	view := &ResourceView{
		ID: uuid.New(),
		Details: map[string]any{
			"contents": base64.StdEncoding.EncodeToString(snappy.Encode(nil, []byte(source))),
		},
	}
	text, err := PluginFileContents(view)
	require.Nil(t, err)
	assert.Equal(t, source, text)

	t.Run("missing contents yield empty string", func(t *testing.T) {
		text, err := PluginFileContents(&ResourceView{Details: nil})
		require.Nil(t, err)
		assert.Empty(t, text)
	})

	t.Run("malformed base64 fails", func(t *testing.T) {
		_, err := PluginFileContents(&ResourceView{Details: map[string]any{"contents": "!!not base64!!"}})
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrTrackerError)
	})

	t.Run("malformed compressed data fails", func(t *testing.T) {
		bogus := base64.StdEncoding.EncodeToString([]byte("not snappy data"))
		_, err := PluginFileContents(&ResourceView{Details: map[string]any{"contents": bogus}})
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrTrackerError)
	})
}
