package hrms

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
)

// AttendanceClient implements attendance.AttendanceAPI over the REST backend.
type AttendanceClient struct {
	*Client
}

var _ attendance.AttendanceAPI = AttendanceClient{}

func (c AttendanceClient) GetToday(ctx context.Context, employeeID string) (*attendance.AttendanceDay, error) {
	var day attendance.AttendanceDay
	q := url.Values{"employeeId": {employeeID}}
	if err := c.do(ctx, http.MethodGet, "attendance/today", q, nil, &day); err != nil {
		return nil, translate(err)
	}
	if day.EmployeeID == "" && day.CheckInTime == nil {
		return nil, nil
	}
	return &day, nil
}

func (c AttendanceClient) CheckIn(ctx context.Context, req attendance.CheckInRequest) (*attendance.AttendanceDay, error) {
	var day attendance.AttendanceDay
	if err := c.do(ctx, http.MethodPost, "attendance/check-in", nil, req, &day); err != nil {
		return nil, translate(err)
	}
	if day.CheckInTime == nil {
		return nil, nil
	}
	return &day, nil
}

func (c AttendanceClient) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (*attendance.AttendanceDay, error) {
	var day attendance.AttendanceDay
	if err := c.do(ctx, http.MethodPost, "attendance/check-out", nil, req, &day); err != nil {
		return nil, translate(err)
	}
	if day.CheckInTime == nil {
		return nil, nil
	}
	return &day, nil
}

func (c AttendanceClient) History(ctx context.Context, filter attendance.HistoryFilter) ([]attendance.AttendanceDay, error) {
	q := url.Values{
		"employeeId": {filter.EmployeeID},
		"startDate":  {filter.StartDate},
		"endDate":    {filter.EndDate},
	}

	// the backend answers either a bare list or {attendances:[...]}
	var raw rawList[attendance.AttendanceDay]
	if err := c.do(ctx, http.MethodGet, "attendance", q, nil, &raw); err != nil {
		return nil, translate(err)
	}
	return raw.items("attendances", "records"), nil
}

func (c AttendanceClient) Holidays(ctx context.Context) ([]attendance.Holiday, error) {
	var body struct {
		Holidays []attendance.Holiday `json:"holidays"`
	}
	if err := c.do(ctx, http.MethodGet, "settings/company/holidays", nil, nil, &body); err != nil {
		return nil, translate(err)
	}
	return body.Holidays, nil
}
