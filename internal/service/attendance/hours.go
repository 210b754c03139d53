package attendance

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/sse"
)

// syncHoursLocked recomputes the working-hours display and runs the ticker
// only while a session is open. A completed day is frozen.
func (s *AttendanceServiceImpl) syncHoursLocked() {
	s.workingHours = attendance.WorkingHours(s.today, s.cfg.Now())

	if !s.today.CheckedIn() {
		s.stopHoursLocked()
		return
	}
	if s.hours != nil {
		return
	}
	gen := s.mountGen
	s.hours = cron.Every(context.Background(), "working-hours", s.cfg.TickInterval, s.cfg.NewTicker, func(context.Context) {
		s.tickHours(gen)
	})
}

func (s *AttendanceServiceImpl) stopHoursLocked() {
	s.hours.Cancel()
	s.hours = nil
}

func (s *AttendanceServiceImpl) tickHours(gen uint64) {
	s.mu.Lock()
	if gen != s.mountGen || s.hours == nil || !s.today.CheckedIn() {
		s.mu.Unlock()
		return
	}
	display := attendance.WorkingHours(s.today, s.cfg.Now())
	changed := display != s.workingHours
	s.workingHours = display
	s.mu.Unlock()

	if changed {
		s.emit(sse.EventWorkingHours, map[string]string{"working_hours": display})
	}
}
