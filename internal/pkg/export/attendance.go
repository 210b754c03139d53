package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
)

const sheetName = "Attendance"

var headers = []string{
	"Date", "Check In", "Check Out", "Working Hours",
	"Check In Address", "Check Out Address", "Face Verified", "Similarity", "Holiday",
}

// WriteAttendanceXLSX renders history as a single-sheet workbook. Holidays
// annotate matching dates. Times are rendered in loc.
func WriteAttendanceXLSX(w io.Writer, days []attendance.AttendanceDay, holidays []attendance.Holiday, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	holidayByDate := make(map[string]string, len(holidays))
	for _, h := range holidays {
		holidayByDate[h.Date] = h.Name
	}

	for i, d := range days {
		row := i + 2
		values := rowValues(d, holidayByDate, loc)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "D", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "E", "F", 36); err != nil {
		return err
	}

	return f.Write(w)
}

func rowValues(d attendance.AttendanceDay, holidays map[string]string, loc *time.Location) []any {
	var date, in, out string
	if d.CheckInTime != nil {
		t := d.CheckInTime.In(loc)
		date = t.Format("2006-01-02")
		in = t.Format("15:04:05")
	}
	if d.CheckOutTime != nil {
		out = d.CheckOutTime.In(loc).Format("15:04:05")
	}

	var inAddr, outAddr string
	if d.CheckInLocation != nil {
		inAddr = d.CheckInLocation.Address
	}
	if d.CheckOutLocation != nil {
		outAddr = d.CheckOutLocation.Address
	}

	var similarity any = ""
	if d.FaceMatchSimilarity != nil {
		similarity = *d.FaceMatchSimilarity
	}

	verified := "No"
	if d.FaceVerified {
		verified = "Yes"
	}

	var worked string
	if d.Completed() {
		worked = attendance.WorkingHours(&d, *d.CheckOutTime)
	}

	return []any{date, in, out, worked, inAddr, outAddr, verified, similarity, holidays[date]}
}
