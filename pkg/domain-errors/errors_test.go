package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodedErrors(t *testing.T) {
	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "failed to load request")

		require.Error(t, err)
		assert.True(t, HasCode(err, CodeInternal))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load request: connection refused", err.Error())
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("respond: %w", New(CodeDonorCommitted, "donor already committed"))
		assert.Equal(t, CodeDonorCommitted, CodeOf(err))
	})

	t.Run("uncoded errors report internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})
}

func TestIsPolicy(t *testing.T) {
	policy := []Code{
		CodeRequestNotPending, CodeAlreadyResponded, CodeDonorCommitted, CodeCooldownActive,
		CodeCancelWindowExpired, CodeIncompatibleBloodType, CodeMaxStageReached, CodeNoActiveCommitment,
	}
	for _, code := range policy {
		assert.True(t, IsPolicy(New(code, "rejected")), string(code))
	}

	assert.False(t, IsPolicy(New(CodeNotFound, "missing")))
	assert.False(t, IsPolicy(New(CodeInternal, "db down")))
	assert.False(t, IsPolicy(errors.New("plain")))
}
