package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrNotFound, "key lookup failed")
		assert.Error(t, err)
		assert.Equal(t, "key lookup failed: not found", err.Error())
		assert.True(t, Is(err, ErrNotFound))
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain through multiple wraps", func(t *testing.T) {
		err := Wrap(Wrap(ErrInvalidState, "cannot rotate"), "rotation request")
		assert.True(t, Is(err, ErrInvalidState))
		assert.False(t, Is(err, ErrNotFound))
	})
}

func TestIs(t *testing.T) {
	t.Run("matches sentinel errors", func(t *testing.T) {
		assert.True(t, Is(ErrConflict, ErrConflict))
		assert.False(t, Is(ErrConflict, ErrInvalidInput))
	})
}

func TestNew(t *testing.T) {
	err := New("boom")
	assert.EqualError(t, err, "boom")
}
