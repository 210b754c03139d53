package attendance

import (
	"time"
)

// VerificationMethod records how identity was established for a check-in/out.
type VerificationMethod string

const (
	VerificationFaceRecognition VerificationMethod = "face_recognition"
)

// Location is the best-effort position captured alongside a check-in/out.
type Location struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Address    string    `json:"address"`
	CapturedAt time.Time `json:"timestamp"`

	// Available is false when no fix could be obtained; coordinates are zero then.
	Available bool `json:"-"`
}

// AttendanceDay is one record per employee per calendar day, owned by the backend.
type AttendanceDay struct {
	ID                  string             `json:"id,omitempty"`
	EmployeeID          string             `json:"employeeId"`
	CheckInTime         *time.Time         `json:"checkInTime,omitempty"`
	CheckOutTime        *time.Time         `json:"checkOutTime,omitempty"`
	CheckInLocation     *Location          `json:"checkInLocation,omitempty"`
	CheckOutLocation    *Location          `json:"checkOutLocation,omitempty"`
	CheckInPhoto        string             `json:"checkInPhoto,omitempty"`
	CheckOutPhoto       string             `json:"checkOutPhoto,omitempty"`
	FaceVerified        bool               `json:"faceVerified"`
	FaceMatchSimilarity *float64           `json:"faceMatchSimilarity,omitempty"`
	VerificationMethod  VerificationMethod `json:"verificationMethod,omitempty"`
	DetectedFaceCount   int                `json:"detectedFaceCount"`
}

// CheckedIn reports an open session: checked in, not yet checked out.
func (d *AttendanceDay) CheckedIn() bool {
	return d != nil && d.CheckInTime != nil && d.CheckOutTime == nil
}

// Completed reports a day with both check-in and check-out.
func (d *AttendanceDay) Completed() bool {
	return d != nil && d.CheckInTime != nil && d.CheckOutTime != nil
}

// Valid enforces the record invariant: no check-out without a check-in, and
// check-out strictly after check-in.
func (d *AttendanceDay) Valid() bool {
	if d == nil {
		return true
	}
	if d.CheckOutTime == nil {
		return true
	}
	if d.CheckInTime == nil {
		return false
	}
	return d.CheckOutTime.After(*d.CheckInTime)
}

// Holiday annotates the attendance calendar.
type Holiday struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// Action is the attendance event a verification dialog was opened for.
type Action string

const (
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
)

// DayStatus is today's attendance state as seen by the kiosk.
type DayStatus string

const (
	DayCheckedOut DayStatus = "checked_out"
	DayCheckedIn  DayStatus = "checked_in"
	DayCompleted  DayStatus = "completed"
)

// StatusOf derives the day status from a (possibly nil) record.
func StatusOf(d *AttendanceDay) DayStatus {
	switch {
	case d.Completed():
		return DayCompleted
	case d.CheckedIn():
		return DayCheckedIn
	default:
		return DayCheckedOut
	}
}

// EngineStatus is the readiness of face recognition for the current employee.
type EngineStatus string

const (
	EngineIdle            EngineStatus = "idle"
	EngineAwaitingProfile EngineStatus = "awaiting_profile"
	EngineReady           EngineStatus = "ready"
	EngineUnavailable     EngineStatus = "unavailable"
	EngineNoProfilePhoto  EngineStatus = "no_profile_photo"
)

// DialogState is the camera dialog sub-state.
type DialogState string

const (
	DialogClosed    DialogState = "closed"
	DialogOpening   DialogState = "opening"
	DialogLive      DialogState = "live"
	DialogVerifying DialogState = "verifying"
)

// VerificationResult is the outcome reported by the face engine.
type VerificationResult struct {
	Success    bool    `json:"success"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
	Message    string  `json:"message,omitempty"`
}

// VerificationAttempt is the transient value produced per confirm action.
// It only lives for the current dialog.
type VerificationAttempt struct {
	Action            Action
	DetectedFaceCount int
	CapturedPhoto     string // data URL, image/jpeg
	Location          Location
	Result            VerificationResult
	CapturedAt        time.Time
}
