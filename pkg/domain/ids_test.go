package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHolderID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseHolderID("")
		require.Error(t, err)
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseHolderID(strings.Repeat("a", 129))
		require.Error(t, err)
	})

	t.Run("accepts boundary length", func(t *testing.T) {
		holder, err := ParseHolderID(strings.Repeat("a", 128))
		require.NoError(t, err)
		assert.Len(t, holder.String(), 128)
	})

	t.Run("valid id round-trips", func(t *testing.T) {
		holder, err := ParseHolderID("GABC123")
		require.NoError(t, err)
		assert.Equal(t, "GABC123", holder.String())
		assert.False(t, holder.IsNil())
	})

	t.Run("zero value is nil", func(t *testing.T) {
		assert.True(t, HolderID("").IsNil())
	})
}

func TestParseTokenID(t *testing.T) {
	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParseTokenID("0")
		require.Error(t, err)
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		_, err := ParseTokenID("seven")
		require.Error(t, err)
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := ParseTokenID("-1")
		require.Error(t, err)
	})

	t.Run("valid id round-trips", func(t *testing.T) {
		tokenID, err := ParseTokenID("42")
		require.NoError(t, err)
		assert.Equal(t, TokenID(42), tokenID)
		assert.Equal(t, "42", tokenID.String())
		assert.False(t, tokenID.IsNil())
	})

	t.Run("zero value is nil", func(t *testing.T) {
		assert.True(t, TokenID(0).IsNil())
	})
}
