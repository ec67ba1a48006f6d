package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeNotFound, "unit not found"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to save unit")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save unit: connection reset", err.Error())
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestFieldErrors(t *testing.T) {
	t.Run("empty collector yields nil", func(t *testing.T) {
		fe := FieldErrors{}
		assert.NoError(t, fe.Err())
	})

	t.Run("collects every message per field", func(t *testing.T) {
		fe := FieldErrors{}
		fe.Add("password", "too short")
		fe.Add("password", "entirely numeric")
		fe.Add("email", "already registered")

		err := fe.Err()
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeValidation))
		assert.Equal(t, []string{"email", "password"}, fe.Keys())
		assert.Len(t, Fields(err)["password"], 2)
	})

	t.Run("returned error is detached from collector", func(t *testing.T) {
		fe := FieldErrors{}
		fe.Add("username", "taken")
		err := fe.Err()
		fe.Add("username", "later")
		assert.Len(t, Fields(err)["username"], 1)
	})
}

func TestWithField(t *testing.T) {
	base := New(CodeConflict, "unit already has a principal resident")
	err := WithField(base, "is_principal", "held by residency 123")

	assert.True(t, HasCode(err, CodeConflict))
	assert.Equal(t, []string{"held by residency 123"}, Fields(err)["is_principal"])
	assert.Nil(t, Fields(base), "original error must not be mutated")
}

func TestConflict(t *testing.T) {
	err := Conflict("unit already has a principal resident", map[string][]string{
		"conflicting_residency_id": {"r-1"},
	})
	assert.True(t, HasCode(err, CodeConflict))
	assert.Equal(t, "unit already has a principal resident", Message(err))
	assert.Equal(t, []string{"r-1"}, Fields(err)["conflicting_residency_id"])
}
