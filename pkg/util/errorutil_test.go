package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		err := NewRateLimited("slow down", nil)
		domainErr := ToDomainError(err)
		assert.Equal(t, CodeRateLimited, domainErr.Code)
		assert.Equal(t, "slow down", domainErr.Message)
	})

	t.Run("unwraps wrapped domain errors", func(t *testing.T) {
		err := fmt.Errorf("handling command: %w", NewNotAuthorized("operators only"))
		domainErr := ToDomainError(err)
		assert.Equal(t, CodeNotAuthorized, domainErr.Code)
	})

	t.Run("unknown errors become internal with a generic message", func(t *testing.T) {
		domainErr := ToDomainError(errors.New("pq: connection refused"))
		assert.Equal(t, CodeInternalError, domainErr.Code)
		assert.NotContains(t, domainErr.Message, "pq:")
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewAlreadyActive("dup", nil), CodeAlreadyActive))
	assert.False(t, HasCode(NewAlreadyActive("dup", nil), CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternalError))
	assert.False(t, HasCode(nil, CodeInternalError))
}

func TestExternalCallFailed(t *testing.T) {
	cause := errors.New("429 too many requests")
	err := NewExternalCallFailed("failed to open the ticket, please try again", cause)

	require.ErrorIs(t, err, cause)
	// The user-facing message hides the cause; Error keeps it for logs.
	assert.Equal(t, "failed to open the ticket, please try again", ToDomainError(err).Message)
	assert.Contains(t, err.Error(), "429")
}
