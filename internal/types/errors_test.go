package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(DUPLICATE_NAME, "node already exists")
	assert.Equal(t, "[DUPLICATE_NAME] node already exists", err.Error())

	wrapped := WrapError(BACKEND_ERROR, "query failed", errors.New("connection reset"))
	assert.Equal(t, "[BACKEND_ERROR] query failed: connection reset", wrapped.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(BACKEND_ERROR, "outer", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestErrorIsByCode(t *testing.T) {
	a := NewError(NOT_FOUND, "missing topic")
	b := NewError(NOT_FOUND, "missing knowledge")
	c := NewError(DUPLICATE_NAME, "collision")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestErrorIsThroughWrapping(t *testing.T) {
	inner := NewError(DIMENSION_MISMATCH, "got 128, want 384")
	outer := fmt.Errorf("store embedding: %w", inner)

	assert.True(t, HasCode(outer, DIMENSION_MISMATCH))
	assert.Equal(t, DIMENSION_MISMATCH, CodeOf(outer))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, HasCode(errors.New("plain"), BACKEND_ERROR))
}

func TestRetryable(t *testing.T) {
	assert.False(t, NewError(INVALID_REQUEST, "bad").Retryable)
	assert.True(t, NewRetryableError(BACKEND_ERROR, "transient").Retryable)
}
