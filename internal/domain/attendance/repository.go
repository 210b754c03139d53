package attendance

import (
	"context"
)

// AttendanceAPI is the attendance surface of the HR backend. The kiosk never
// mutates an AttendanceDay directly; it submits intents and re-fetches.
// Failures are returned as *Error values (AUTH_MISSING, NETWORK_ERROR).
type AttendanceAPI interface {
	// GetToday returns today's record, or nil when none exists yet.
	GetToday(ctx context.Context, employeeID string) (*AttendanceDay, error)

	CheckIn(ctx context.Context, req CheckInRequest) (*AttendanceDay, error)
	CheckOut(ctx context.Context, req CheckOutRequest) (*AttendanceDay, error)

	// History lists records between filter.StartDate and filter.EndDate inclusive.
	History(ctx context.Context, filter HistoryFilter) ([]AttendanceDay, error)

	// Holidays annotates the calendar; not used by the check-in flow.
	Holidays(ctx context.Context) ([]Holiday, error)
}
