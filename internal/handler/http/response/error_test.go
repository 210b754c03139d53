package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/validator"
)

func TestStatusOf(t *testing.T) {
	cases := map[attendance.Kind]int{
		attendance.KindNoFaceDetected:             http.StatusUnprocessableEntity,
		attendance.KindMultipleFacesDetected:      http.StatusUnprocessableEntity,
		attendance.KindFaceVerificationFailed:     http.StatusUnprocessableEntity,
		attendance.KindFaceRecognitionUnavailable: http.StatusServiceUnavailable,
		attendance.KindCameraUnavailable:          http.StatusServiceUnavailable,
		attendance.KindLocationUnavailable:        http.StatusServiceUnavailable,
		attendance.KindNoProfilePhoto:             http.StatusPreconditionFailed,
		attendance.KindAuthMissing:                http.StatusUnauthorized,
		attendance.KindNetworkError:               http.StatusBadGateway,
		attendance.KindAlreadyCheckedIn:           http.StatusConflict,
		attendance.KindNotCheckedIn:               http.StatusConflict,
		attendance.KindDialogNotOpen:              http.StatusConflict,
		attendance.KindSubmissionInProgress:       http.StatusConflict,
		attendance.Kind(0):                        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusOf(kind), kind.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleErrorKind(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(rec, attendance.ErrNotCheckedIn.Wrap(errors.New("no record")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_CHECKED_IN", resp.Error.Code)
	assert.Equal(t, "You have not checked in yet", resp.Error.Message)
}

func TestHandleErrorValidation(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(rec, validator.ValidationErrors{{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "start_date must be in YYYY-MM-DD format", resp.Error.Details["start_date"])
}

func TestHandleErrorUnknownHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleErrorWithData(rec, errors.New("pq: connection reset"), map[string]string{"status": "checked_in"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Contains(t, rec.Body.String(), `"status":"checked_in"`)
}
