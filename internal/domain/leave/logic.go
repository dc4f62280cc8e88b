package leave

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// TotalDays is 0.5 for a half-day leave and the inclusive day count otherwise.
func TotalDays(l Leave) float64 {
	if l.IsHalfDay {
		return 0.5
	}
	return math.Round(l.EndDate.Sub(l.StartDate).Hours()/24) + 1
}

func Validate(l Leave) error {
	if l.EndDate.Before(l.StartDate) {
		return ErrInvalidRange
	}
	if l.IsHalfDay && !l.EndDate.Equal(l.StartDate) {
		return ErrHalfDayRange
	}
	if l.EndDate.Year() != l.StartDate.Year() {
		return ErrCrossesYear
	}
	return nil
}

// Overlaps reports whether two inclusive date ranges share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// RecalculateAvailable sets available = allocated + carriedForward - used - pending
// on every entry. Call it before each balance save.
func RecalculateAvailable(b Balance) Balance {
	entries := make([]BalanceEntry, len(b.Entries))
	for i, e := range b.Entries {
		e.Available = e.Allocated + e.CarriedForward - e.Used - e.Pending
		entries[i] = e
	}
	b.Entries = entries
	return b
}

// CheckPolicy applies the notice and maximum-length rules of p to l. today is a
// UTC-midnight calendar date.
func CheckPolicy(p Policy, l Leave, today time.Time) error {
	if !p.IsActive {
		return ErrTypeUnavailable
	}
	if p.MinNoticeDays > 0 && l.StartDate.Before(today.AddDate(0, 0, p.MinNoticeDays)) {
		return ErrNoticePeriod
	}
	if p.MaxConsecutiveDays > 0 && l.TotalDays > float64(p.MaxConsecutiveDays) {
		return ErrMaxConsecutive
	}
	return nil
}

// Cancellable reports whether a leave may still be cancelled on today.
func Cancellable(l Leave, today time.Time) bool {
	switch l.Status {
	case StatusPending:
		return true
	case StatusApproved:
		return l.StartDate.After(today)
	default:
		return false
	}
}

// ApplyReview moves days out of pending and, on approval, into used.
func ApplyReview(e *BalanceEntry, days float64, approved bool) {
	e.Pending = math.Max(0, e.Pending-days)
	if approved {
		e.Used += days
	}
}

// ReleaseCancelled returns the days held by a cancelled leave to the balance.
func ReleaseCancelled(e *BalanceEntry, days float64, previousStatus string) {
	switch previousStatus {
	case StatusPending:
		e.Pending = math.Max(0, e.Pending-days)
	case StatusApproved:
		e.Used = math.Max(0, e.Used-days)
	}
}
