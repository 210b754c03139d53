package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/validator"
)

// StatusOf maps an attendance kind to the HTTP status of the local API.
func StatusOf(kind attendance.Kind) int {
	switch kind {
	case attendance.KindNoFaceDetected,
		attendance.KindMultipleFacesDetected,
		attendance.KindFaceVerificationFailed:
		return http.StatusUnprocessableEntity
	case attendance.KindFaceRecognitionUnavailable,
		attendance.KindCameraUnavailable,
		attendance.KindLocationUnavailable:
		return http.StatusServiceUnavailable
	case attendance.KindNoProfilePhoto:
		return http.StatusPreconditionFailed
	case attendance.KindAuthMissing:
		return http.StatusUnauthorized
	case attendance.KindNetworkError:
		return http.StatusBadGateway
	case attendance.KindAlreadyCheckedIn,
		attendance.KindNotCheckedIn,
		attendance.KindDialogNotOpen,
		attendance.KindSubmissionInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	HandleErrorWithData(w, err, nil)
}

// HandleErrorWithData is HandleError with a data payload, used to return the
// kiosk state alongside a failed action.
func HandleErrorWithData(w http.ResponseWriter, err error, data any) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		writeJSON(w, http.StatusUnprocessableEntity, Response{
			Success: false,
			Data:    data,
			Error: &ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Validation failed",
				Details: validationErrs.ToMap(),
			},
		})
		return
	}

	var e *attendance.Error
	if errors.As(err, &e) {
		writeJSON(w, StatusOf(e.Kind), Response{
			Success: false,
			Data:    data,
			Error: &ErrorDetail{
				Code:    e.Kind.String(),
				Message: e.Message,
			},
		})
		return
	}

	switch {
	case errors.Is(err, context.Canceled):
		// nginx-style 499: the client closed the request
		writeJSON(w, 499, Response{
			Success: false,
			Data:    data,
			Error:   &ErrorDetail{Code: "CANCELED", Message: "Request canceled"},
		})
	default:
		slog.Error("Unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Data:    data,
			Error: &ErrorDetail{
				Code:    "INTERNAL_SERVER_ERROR",
				Message: "An unexpected error occurred",
			},
		})
	}
}
