package attendance

import (
	"errors"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

// CheckInRequest is the body of POST /attendance/check-in.
type CheckInRequest struct {
	EmployeeID          string             `json:"employeeId"`
	Employee            string             `json:"employee"`
	CheckInTime         time.Time          `json:"checkInTime"`
	Latitude            *float64           `json:"latitude"`
	Longitude           *float64           `json:"longitude"`
	Address             string             `json:"address"`
	Accuracy            *float64           `json:"accuracy"`
	Photo               string             `json:"photo"`
	FaceVerified        bool               `json:"faceVerified"`
	FaceMatchSimilarity *float64           `json:"faceMatchSimilarity,omitempty"`
	VerificationMethod  VerificationMethod `json:"verificationMethod"`
	DetectedFaces       int                `json:"detectedFaces"`
	Department          string             `json:"department,omitempty"`
	TeamID              string             `json:"teamId,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	return validateSubmission(r.EmployeeID, r.Latitude, r.Longitude, r.Photo, r.FaceVerified, r.VerificationMethod, r.DetectedFaces)
}

// CheckOutRequest is the body of POST /attendance/check-out.
type CheckOutRequest struct {
	EmployeeID          string             `json:"employeeId"`
	Employee            string             `json:"employee"`
	CheckOutTime        time.Time          `json:"checkOutTime"`
	Latitude            *float64           `json:"latitude"`
	Longitude           *float64           `json:"longitude"`
	Address             string             `json:"address"`
	Accuracy            *float64           `json:"accuracy"`
	Photo               string             `json:"photo"`
	FaceVerified        bool               `json:"faceVerified"`
	FaceMatchSimilarity *float64           `json:"faceMatchSimilarity,omitempty"`
	VerificationMethod  VerificationMethod `json:"verificationMethod"`
	DetectedFaces       int                `json:"detectedFaces"`
	Department          string             `json:"department,omitempty"`
	TeamID              string             `json:"teamId,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	return validateSubmission(r.EmployeeID, r.Latitude, r.Longitude, r.Photo, r.FaceVerified, r.VerificationMethod, r.DetectedFaces)
}

func validateSubmission(employeeID string, lat, lng *float64, photo string, verified bool, method VerificationMethod, faces int) error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(employeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employeeId",
			Message: "employeeId is required",
		})
	} else if !validator.IsValidEmployeeID(employeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employeeId",
			Message: "employeeId contains invalid characters",
		})
	}

	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if lng != nil && !validator.IsValidLongitude(*lng) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if !validator.IsDataURL(photo, "image/jpeg") {
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "photo must be a base64 image/jpeg data URL",
		})
	}

	if !verified || method != VerificationFaceRecognition {
		errs = append(errs, validator.ValidationError{
			Field:   "faceVerified",
			Message: "face verification is required",
		})
	}

	if faces != 1 {
		errs = append(errs, validator.ValidationError{
			Field:   "detectedFaces",
			Message: "exactly one face must be detected",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NewCheckInRequest builds the submission for a verified attempt.
func NewCheckInRequest(p Submitter, a VerificationAttempt) CheckInRequest {
	lat, lng, acc := coordinates(a.Location)
	return CheckInRequest{
		EmployeeID:          p.EmployeeID,
		Employee:            p.Name,
		CheckInTime:         a.CapturedAt,
		Latitude:            lat,
		Longitude:           lng,
		Address:             a.Location.Address,
		Accuracy:            acc,
		Photo:               a.CapturedPhoto,
		FaceVerified:        a.Result.Matched,
		FaceMatchSimilarity: similarity(a.Result),
		VerificationMethod:  VerificationFaceRecognition,
		DetectedFaces:       a.DetectedFaceCount,
		Department:          p.Department,
		TeamID:              p.TeamID,
	}
}

// NewCheckOutRequest builds the submission for a verified attempt.
func NewCheckOutRequest(p Submitter, a VerificationAttempt) CheckOutRequest {
	lat, lng, acc := coordinates(a.Location)
	return CheckOutRequest{
		EmployeeID:          p.EmployeeID,
		Employee:            p.Name,
		CheckOutTime:        a.CapturedAt,
		Latitude:            lat,
		Longitude:           lng,
		Address:             a.Location.Address,
		Accuracy:            acc,
		Photo:               a.CapturedPhoto,
		FaceVerified:        a.Result.Matched,
		FaceMatchSimilarity: similarity(a.Result),
		VerificationMethod:  VerificationFaceRecognition,
		DetectedFaces:       a.DetectedFaceCount,
		Department:          p.Department,
		TeamID:              p.TeamID,
	}
}

// Submitter identifies who a submission is made for.
type Submitter struct {
	EmployeeID string
	Name       string
	Department string
	TeamID     string
}

func coordinates(l Location) (lat, lng, acc *float64) {
	if !l.Available {
		return nil, nil, nil
	}
	return &l.Latitude, &l.Longitude, &l.Accuracy
}

func similarity(r VerificationResult) *float64 {
	if !r.Success {
		return nil
	}
	s := r.Similarity
	return &s
}

// HistoryFilter selects the recent attendance history of one employee.
type HistoryFilter struct {
	EmployeeID string `json:"employeeId"`
	StartDate  string `json:"startDate"` // YYYY-MM-DD
	EndDate    string `json:"endDate"`   // YYYY-MM-DD
}

func (f *HistoryFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employeeId",
			Message: "employeeId is required",
		})
	}

	start, okStart := validator.IsValidDate(f.StartDate)
	if !okStart {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, okEnd := validator.IsValidDate(f.EndDate)
	if !okEnd {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StateResponse is the snapshot exposed to the UI shell.
type StateResponse struct {
	EmployeeID       string              `json:"employee_id,omitempty"`
	EngineStatus     EngineStatus        `json:"engine_status"`
	Status           DayStatus           `json:"status"`
	Today            *AttendanceDay      `json:"today,omitempty"`
	WorkingHours     string              `json:"working_hours"`
	Dialog           DialogState         `json:"dialog"`
	DialogAction     Action              `json:"dialog_action,omitempty"`
	DetectedFaces    int                 `json:"detected_faces"`
	Processing       bool                `json:"processing"`
	LastVerification *VerificationResult `json:"last_verification,omitempty"`
	LastError        *ErrorView          `json:"last_error,omitempty"`
	CanCheckIn       bool                `json:"can_check_in"`
	CanCheckOut      bool                `json:"can_check_out"`
}

// ErrorView is the user-facing rendering of an *Error.
type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ViewOf renders err; nil when err carries no taxonomy kind.
func ViewOf(err error) *ErrorView {
	var e *Error
	if err == nil || !errors.As(err, &e) {
		return nil
	}
	return &ErrorView{Code: e.Kind.String(), Message: e.Message}
}
