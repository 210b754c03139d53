package attendance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	wrapped := fmt.Errorf("confirm: %w", ErrNetwork.Wrap(errors.New("connection reset")))

	assert.True(t, errors.Is(wrapped, ErrNetwork))
	assert.False(t, errors.Is(wrapped, ErrAuthMissing))

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindNetworkError, kind)
	assert.Equal(t, "NETWORK_ERROR", kind.String())
}

func TestErrorWithMessage(t *testing.T) {
	err := ErrFaceVerificationFailed.WithMessage("Face does not match (similarity 0.31)")

	assert.True(t, errors.Is(err, ErrFaceVerificationFailed))
	assert.Equal(t, "Face does not match (similarity 0.31)", err.Error())
	assert.Equal(t, ErrFaceVerificationFailed.Message, "Face does not match your profile photo")
}

func TestKindFatal(t *testing.T) {
	assert.False(t, KindLocationUnavailable.Fatal())
	assert.True(t, KindNoFaceDetected.Fatal())
	assert.Equal(t, "UNKNOWN", Kind(0).String())
}

func TestViewOf(t *testing.T) {
	assert.Nil(t, ViewOf(nil))
	assert.Nil(t, ViewOf(errors.New("raw")))

	v := ViewOf(fmt.Errorf("x: %w", ErrNoFaceDetected))
	require.NotNil(t, v)
	assert.Equal(t, "NO_FACE_DETECTED", v.Code)
	assert.Equal(t, ErrNoFaceDetected.Message, v.Message)
}

func TestKindOfUntyped(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
}
