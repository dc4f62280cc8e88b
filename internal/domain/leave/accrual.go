package leave

import (
	"math"
	"time"
)

// YearEntries builds the opening balance for year from the active tracked
// policies. Allocations come from the employee's personal allowance when set,
// else the policy, and are prorated for employees who joined during year.
// Unused days from previous carry forward up to each policy's limit.
func YearEntries(year int, policies []Policy, profile Profile, previous *Balance) []BalanceEntry {
	entries := make([]BalanceEntry, 0, len(policies))
	for _, p := range policies {
		if !p.IsActive || !p.TrackBalance {
			continue
		}
		allocation := p.AnnualAllocation
		if v, ok := profile.Allowances[p.LeaveType]; ok && v > 0 {
			allocation = v
		}
		if profile.JoinDate != nil {
			allocation = proratedAllocation(allocation, *profile.JoinDate, year)
		}
		entry := BalanceEntry{Type: p.LeaveType, Allocated: allocation}
		if previous != nil {
			if prev := previous.Entry(p.LeaveType); prev != nil {
				entry.CarriedForward = carryForward(prev.Available, p.MaxCarryForward)
			}
		}
		entries = append(entries, entry)
	}
	return RecalculateAvailable(Balance{Entries: entries}).Entries
}

func carryForward(available, limit float64) float64 {
	if available <= 0 || limit <= 0 {
		return 0
	}
	return math.Min(available, limit)
}

// proratedAllocation scales rate by the share of year remaining after the join
// date, rounded down to the nearest half day.
func proratedAllocation(rate float64, joined time.Time, year int) float64 {
	periodStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := periodStart.AddDate(1, 0, 0)
	if !joined.After(periodStart) {
		return rate
	}
	if !joined.Before(end) {
		return 0
	}
	total := end.Sub(periodStart).Hours()
	remaining := end.Sub(joined).Hours()
	return math.Floor(rate*(remaining/total)*2) / 2
}
