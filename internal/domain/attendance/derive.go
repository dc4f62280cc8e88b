package attendance

import "time"

const (
	StandardWorkMinutes = 8 * 60
	halfDayMinutes      = 4 * 60
)

// DeriveWorkHours recomputes WorkHours and Overtime from the check-in,
// check-out and completed breaks. Records without both punches are returned
// unchanged. It is idempotent and must run before every save.
func DeriveWorkHours(r Record) Record {
	if r.CheckIn.Time == nil || r.CheckOut.Time == nil {
		return r
	}
	worked := r.CheckOut.Time.Sub(*r.CheckIn.Time)
	for _, b := range r.Breaks {
		if b.End != nil && b.End.After(b.Start) {
			worked -= b.End.Sub(b.Start)
		}
	}
	minutes := int(worked / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	r.WorkHours = minutes
	r.Overtime = max(0, minutes-StandardWorkMinutes)
	return r
}

// ArrivalStatus is late when checkIn falls after the workday start plus grace
// on the same local day.
func ArrivalStatus(checkIn time.Time, workdayStart string, grace time.Duration, loc *time.Location) string {
	start, err := time.Parse("15:04", workdayStart)
	if err != nil {
		return StatusPresent
	}
	local := checkIn.In(loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), start.Hour(), start.Minute(), 0, 0, loc).Add(grace)
	if local.After(cutoff) {
		return StatusLate
	}
	return StatusPresent
}

// OpenBreak returns the index of the break without an end, or -1.
func (r Record) OpenBreak() int {
	for i := len(r.Breaks) - 1; i >= 0; i-- {
		if r.Breaks[i].End == nil {
			return i
		}
	}
	return -1
}

// CalendarDate truncates t to its calendar day in loc, expressed as UTC
// midnight to match DATE columns.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
