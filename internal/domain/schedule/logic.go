package schedule

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	dateLayout     = "2006-01-02"
	maxOccurrences = 366
	defaultRule    = "FREQ=DAILY"
)

// CrossesMidnight reports whether a window ending at or before its start
// finishes on the following day.
func CrossesMidnight(start, end string) bool {
	return end <= start
}

// ExpandDates returns every date matched by rule from start through until,
// inclusive. An empty rule means every day. The range may span at most
// maxOccurrences days and rules repeat at most once per day.
func ExpandDates(rule string, start, until time.Time) ([]time.Time, error) {
	if until.Before(start) {
		return nil, ErrInvalidRange
	}
	if int(until.Sub(start).Hours()/24)+1 > maxOccurrences {
		return nil, ErrTooManyDates
	}
	rule = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if rule == "" {
		rule = defaultRule
	}
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, ErrInvalidRule
	}
	if opt.Freq > rrule.DAILY {
		return nil, ErrInvalidRule
	}
	opt.Byhour, opt.Byminute, opt.Bysecond = nil, nil, nil
	opt.Dtstart = start
	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, ErrInvalidRule
	}

	limit := until.AddDate(0, 0, 1)
	dates := []time.Time{}
	next := rr.Iterator()
	for occurrence, ok := next(); ok && occurrence.Before(limit); occurrence, ok = next() {
		d := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(), 0, 0, 0, 0, time.UTC)
		if n := len(dates); n > 0 && dates[n-1].Equal(d) {
			continue
		}
		dates = append(dates, d)
		if len(dates) > maxOccurrences {
			return nil, ErrTooManyDates
		}
	}
	return dates, nil
}

// SplitConflicts separates dates already taken by an active schedule.
func SplitConflicts(dates []time.Time, taken map[string]bool) (free []time.Time, skipped []string) {
	skipped = []string{}
	for _, d := range dates {
		key := d.Format(dateLayout)
		if taken[key] {
			skipped = append(skipped, key)
			continue
		}
		free = append(free, d)
	}
	return free, skipped
}

func IsActive(status string) bool {
	return status == StatusScheduled || status == StatusInProgress
}
