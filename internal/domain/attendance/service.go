package attendance

import (
	"context"
)

// AttendanceService is the attendance state machine exposed to the UI shell.
// Every action returns the resulting snapshot; failures are *Error values and
// leave the flow in a retryable state.
type AttendanceService interface {
	// Mount resolves the profile and enrolls the face template.
	Mount(ctx context.Context) (StateResponse, error)

	// Unmount tears down the dialog, camera, poller and ticker.
	Unmount()

	// Refresh re-fetches today's record from the backend.
	Refresh(ctx context.Context) (StateResponse, error)

	StartCheckIn(ctx context.Context) (StateResponse, error)
	ConfirmCheckIn(ctx context.Context) (StateResponse, error)
	StartCheckOut(ctx context.Context) (StateResponse, error)
	ConfirmCheckOut(ctx context.Context) (StateResponse, error)

	// Cancel closes the dialog; in-flight results for it are discarded.
	Cancel()

	State() StateResponse

	// History returns recent attendance records of the current employee.
	History(ctx context.Context, startDate, endDate string) ([]AttendanceDay, error)

	Holidays(ctx context.Context) ([]Holiday, error)
}
