package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrAttemptsExhausted, "locked")
	wrapped := fmt.Errorf("submit: %w", typed)

	got := FromError(wrapped)

	assert.Equal(t, "ATTEMPTS_EXHAUSTED", got.Code)
	assert.Equal(t, http.StatusForbidden, got.Status)
	assert.Equal(t, "locked", got.Message)
}

func TestFromErrorHidesUntypedErrors(t *testing.T) {
	got := FromError(stderrors.New("pq: connection refused"))

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, ErrInternal.Message, got.Message)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
}

func TestIsMatchesClonesByCode(t *testing.T) {
	clone := Clone(ErrValidation, "activityId required")

	assert.True(t, stderrors.Is(clone, ErrValidation))
	assert.False(t, stderrors.Is(clone, ErrNotFound))
}
