package leave

import (
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
)

const calendarUIDDomain = "@workpulse"

// CalendarName labels a leave by the employee's code and name when loaded.
func CalendarName(l Leave) string {
	if l.Employee == nil {
		return l.EmployeeID
	}
	return l.Employee.EmployeeID + " " + l.Employee.FirstName + " " + l.Employee.LastName
}

// WriteCalendar writes leaves as all-day iCalendar events. DTEND is exclusive,
// so the event ends the day after EndDate.
func WriteCalendar(w io.Writer, rows []Leave, stamp time.Time) error {
	cal := ics.NewCalendarFor("WorkPulse")
	cal.SetMethod(ics.MethodPublish)
	for _, l := range rows {
		event := cal.AddEvent(l.ID + calendarUIDDomain)
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(l.StartDate)
		event.SetAllDayEndAt(l.EndDate.AddDate(0, 0, 1))
		event.SetSummary(CalendarName(l) + " (" + l.LeaveType + ")")
	}
	_, err := io.WriteString(w, cal.Serialize())
	return err
}
