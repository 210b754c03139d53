package validator

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}

// IsDataURL reports whether s is a base64 data URL of the given MIME type
// with a decodable, non-empty payload.
func IsDataURL(s, mime string) bool {
	prefix := "data:" + mime + ";base64,"
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	payload := s[len(prefix):]
	if payload == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

var employeeIDRegex = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// IsValidEmployeeID accepts opaque backend identifiers (uuid, numeric or code).
func IsValidEmployeeID(id string) bool {
	return employeeIDRegex.MatchString(id)
}

// IsValidLatitude / IsValidLongitude check WGS84 ranges.
func IsValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func IsValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
