package face

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
)

type fakeEngine struct {
	enrollErr error
	enrolls   int
	result    face.Result
	verifyErr error
}

func (f *fakeEngine) Enroll(context.Context, string, face.Reference) error {
	f.enrolls++
	return f.enrollErr
}

func (f *fakeEngine) Detect(context.Context, image.Image) (int, error) { return 1, nil }

func (f *fakeEngine) Verify(context.Context, string, []byte) (face.Result, error) {
	return f.result, f.verifyErr
}

func TestEnrollIsIdempotentPerReference(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewFaceService(eng, nil)
	ctx := context.Background()

	require.NoError(t, svc.Enroll(ctx, "emp-1", "data:image/jpeg;base64,AA"))
	require.NoError(t, svc.Enroll(ctx, "emp-1", "data:image/jpeg;base64,AA"))
	assert.Equal(t, 1, eng.enrolls)

	require.NoError(t, svc.Enroll(ctx, "emp-1", "data:image/jpeg;base64,BB"))
	assert.Equal(t, 2, eng.enrolls)
	assert.True(t, svc.Enrolled("emp-1"))
}

func TestEnrollFailureTranslates(t *testing.T) {
	eng := &fakeEngine{enrollErr: face.ErrNoFaceInReference}
	svc := NewFaceService(eng, nil)

	err := svc.Enroll(context.Background(), "emp-1", "https://hr.example.com/p.jpg")

	assert.ErrorIs(t, err, attendance.ErrFaceRecognitionUnavailable)
	assert.False(t, svc.Enrolled("emp-1"))
}

func TestVerifyRequiresEnrollment(t *testing.T) {
	svc := NewFaceService(&fakeEngine{result: face.Result{Success: true, Matched: true}}, nil)

	_, err := svc.Verify(context.Background(), "emp-1", []byte{1})

	assert.ErrorIs(t, err, attendance.ErrFaceRecognitionUnavailable)
}

func TestVerifyOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		result  face.Result
		err     error
		wantErr error
	}{
		{"matched", face.Result{Success: true, Matched: true, Similarity: 0.82}, nil, nil},
		{"mismatch", face.Result{Success: true, Matched: false, Similarity: 0.2, Message: "Face does not match"}, nil, attendance.ErrFaceVerificationFailed},
		{"engine failure", face.Result{Success: false, Message: "model not loaded"}, nil, attendance.ErrFaceRecognitionUnavailable},
		{"transport", face.Result{}, face.ErrEngineUnavailable, attendance.ErrFaceRecognitionUnavailable},
		{"not enrolled", face.Result{}, face.ErrNotEnrolled, attendance.ErrFaceRecognitionUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{result: tc.result, verifyErr: tc.err}
			svc := NewFaceService(eng, nil)
			require.NoError(t, svc.Enroll(context.Background(), "emp-1", "ref"))

			res, err := svc.Verify(context.Background(), "emp-1", []byte{1})

			if tc.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, res.Matched)
				assert.InDelta(t, tc.result.Similarity, res.Similarity, 1e-9)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.False(t, res.Matched)
		})
	}
}

func TestVerifyMismatchKeepsEngineMessage(t *testing.T) {
	eng := &fakeEngine{result: face.Result{Success: true, Matched: false, Message: "Similarity too low"}}
	svc := NewFaceService(eng, nil)
	require.NoError(t, svc.Enroll(context.Background(), "emp-1", "ref"))

	_, err := svc.Verify(context.Background(), "emp-1", []byte{1})

	var ae *attendance.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Similarity too low", ae.Message)
}

func TestNotEnrolledDropsLocalRecord(t *testing.T) {
	eng := &fakeEngine{verifyErr: face.ErrNotEnrolled}
	svc := NewFaceService(eng, nil)
	require.NoError(t, svc.Enroll(context.Background(), "emp-1", "ref"))

	_, err := svc.Verify(context.Background(), "emp-1", []byte{1})
	assert.ErrorIs(t, err, face.ErrNotEnrolled)
	assert.False(t, svc.Enrolled("emp-1"))

	// later attempts still report the lost template so callers can re-enroll
	_, err = svc.Verify(context.Background(), "emp-1", []byte{1})
	assert.ErrorIs(t, err, attendance.ErrFaceRecognitionUnavailable)
	assert.ErrorIs(t, err, face.ErrNotEnrolled)
}
