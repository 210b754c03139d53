package attendance

import "errors"

// Kind is the closed set of failures surfaced to the user. Every kind is
// recoverable: the flow stays usable and the user may retry.
type Kind uint8

const (
	KindNoFaceDetected Kind = iota + 1
	KindMultipleFacesDetected
	KindFaceVerificationFailed
	KindFaceRecognitionUnavailable
	KindCameraUnavailable
	KindLocationUnavailable
	KindNoProfilePhoto
	KindAuthMissing
	KindNetworkError

	// Guard failures
	KindAlreadyCheckedIn
	KindNotCheckedIn
	KindDialogNotOpen
	KindSubmissionInProgress
)

var kindCodes = map[Kind]string{
	KindNoFaceDetected:             "NO_FACE_DETECTED",
	KindMultipleFacesDetected:      "MULTIPLE_FACES_DETECTED",
	KindFaceVerificationFailed:     "FACE_VERIFICATION_FAILED",
	KindFaceRecognitionUnavailable: "FACE_RECOGNITION_UNAVAILABLE",
	KindCameraUnavailable:          "CAMERA_UNAVAILABLE",
	KindLocationUnavailable:        "LOCATION_UNAVAILABLE",
	KindNoProfilePhoto:             "NO_PROFILE_PHOTO",
	KindAuthMissing:                "AUTH_MISSING",
	KindNetworkError:               "NETWORK_ERROR",
	KindAlreadyCheckedIn:           "ALREADY_CHECKED_IN",
	KindNotCheckedIn:               "NOT_CHECKED_IN",
	KindDialogNotOpen:              "DIALOG_NOT_OPEN",
	KindSubmissionInProgress:       "SUBMISSION_IN_PROGRESS",
}

// String returns the wire code of the kind, e.g. "NO_FACE_DETECTED".
func (k Kind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "UNKNOWN"
}

// Fatal reports whether the kind aborts the action it occurred in.
// Location failures degrade to a placeholder instead.
func (k Kind) Fatal() bool {
	return k != KindLocationUnavailable
}

// Error is a taxonomy value with a short, human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNoFaceDetected)
// holds for wrapped and re-messaged values alike.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: cause}
}

// WithMessage returns a copy of e with a different user-facing message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Cause: e.Cause}
}

// Attendance domain errors
var (
	ErrNoFaceDetected             = &Error{Kind: KindNoFaceDetected, Message: "No face detected, position your face in front of the camera"}
	ErrMultipleFacesDetected      = &Error{Kind: KindMultipleFacesDetected, Message: "Multiple faces detected, make sure only you are in frame"}
	ErrFaceVerificationFailed     = &Error{Kind: KindFaceVerificationFailed, Message: "Face does not match your profile photo"}
	ErrFaceRecognitionUnavailable = &Error{Kind: KindFaceRecognitionUnavailable, Message: "Face recognition is not available right now"}
	ErrCameraUnavailable          = &Error{Kind: KindCameraUnavailable, Message: "Camera is not available, check camera permission"}
	ErrLocationUnavailable        = &Error{Kind: KindLocationUnavailable, Message: "Location is not available"}
	ErrNoProfilePhoto             = &Error{Kind: KindNoProfilePhoto, Message: "No profile photo found, upload one to enable face check-in"}
	ErrAuthMissing                = &Error{Kind: KindAuthMissing, Message: "You are not signed in"}
	ErrNetwork                    = &Error{Kind: KindNetworkError, Message: "Could not reach the server, please try again"}

	ErrAlreadyCheckedIn     = &Error{Kind: KindAlreadyCheckedIn, Message: "You have already checked in today"}
	ErrNotCheckedIn         = &Error{Kind: KindNotCheckedIn, Message: "You have not checked in yet"}
	ErrDialogNotOpen        = &Error{Kind: KindDialogNotOpen, Message: "Open the camera before confirming"}
	ErrSubmissionInProgress = &Error{Kind: KindSubmissionInProgress, Message: "Your attendance is already being submitted"}
)

// KindOf extracts the taxonomy kind from err.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
