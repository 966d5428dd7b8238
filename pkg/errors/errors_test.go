package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsSentinelIdentity(t *testing.T) {
	err := Clone(ErrBusinessRule, "Tienes regularidad vigente")
	wrapped := fmt.Errorf("sign up: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrBusinessRule))
	assert.False(t, stderrors.Is(wrapped, ErrLocked))
	assert.Equal(t, "Tienes regularidad vigente", FromError(wrapped).Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestLockedIsDistinctStatus(t *testing.T) {
	assert.Equal(t, http.StatusLocked, ErrLocked.Status)
	assert.Equal(t, http.StatusBadRequest, ErrBusinessRule.Status)
}
