package attendance

import (
	"fmt"
	"time"
)

const (
	// BreakThreshold is the elapsed time above which the break allowance applies.
	BreakThreshold = 4 * time.Hour
	// BreakAllowance is subtracted from the displayed total once past the threshold.
	BreakAllowance = time.Hour
)

// WorkedDuration applies the break rule to the elapsed time in whole
// seconds. The result is a display value only; the persisted record is
// never adjusted.
func WorkedDuration(elapsed time.Duration) time.Duration {
	elapsed = elapsed.Truncate(time.Second)
	if elapsed <= 0 {
		return 0
	}
	if elapsed > BreakThreshold {
		elapsed -= BreakAllowance
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// FormatRunning renders an open session as "Hh Mm Ss".
func FormatRunning(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// FormatFrozen renders a completed session as "Hh Mm".
func FormatFrozen(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
}

// WorkingHours returns the display string for day at now: running while
// checked in, frozen once completed, empty otherwise.
func WorkingHours(day *AttendanceDay, now time.Time) string {
	switch {
	case day.Completed():
		return FormatFrozen(WorkedDuration(day.CheckOutTime.Sub(*day.CheckInTime)))
	case day.CheckedIn():
		return FormatRunning(WorkedDuration(now.Sub(*day.CheckInTime)))
	default:
		return ""
	}
}
