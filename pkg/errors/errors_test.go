package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("forward homework: %w", ErrNoNextOccurrence)
	appErr := FromError(wrapped)
	assert.Equal(t, ErrNoNextOccurrence.Code, appErr.Code)
	assert.Equal(t, http.StatusPreconditionFailed, appErr.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestIsComparesCodesAcrossClones(t *testing.T) {
	clone := Clone(ErrOccurrenceCancelled, "lesson occ-1 is cancelled")
	assert.True(t, Is(clone, ErrOccurrenceCancelled))
	assert.False(t, Is(clone, ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
	assert.Equal(t, "lesson occ-1 is cancelled", clone.Message)
	assert.Equal(t, "lesson is already cancelled", ErrOccurrenceCancelled.Message)
}
