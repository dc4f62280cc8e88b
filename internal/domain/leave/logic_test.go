package leave

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTotalDays(t *testing.T) {
	tests := []struct {
		name string
		l    Leave
		want float64
	}{
		{"single day", Leave{StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 10)}, 1},
		{"three days", Leave{StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 12)}, 3},
		{"across month end", Leave{StartDate: date(2025, 1, 30), EndDate: date(2025, 2, 2)}, 4},
		{"half day", Leave{StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 10), IsHalfDay: true}, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalDays(tc.l); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Leave{StartDate: date(2025, 2, 10), EndDate: date(2025, 2, 9)}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if err := Validate(Leave{StartDate: date(2025, 2, 10), EndDate: date(2025, 2, 11), IsHalfDay: true}); !errors.Is(err, ErrHalfDayRange) {
		t.Fatalf("expected ErrHalfDayRange, got %v", err)
	}
	if err := Validate(Leave{StartDate: date(2025, 12, 30), EndDate: date(2026, 1, 3)}); !errors.Is(err, ErrCrossesYear) {
		t.Fatalf("expected ErrCrossesYear, got %v", err)
	}
	if err := Validate(Leave{StartDate: date(2025, 2, 10), EndDate: date(2025, 2, 10), IsHalfDay: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecalculateAvailable(t *testing.T) {
	b := RecalculateAvailable(Balance{Entries: []BalanceEntry{
		{Type: TypeAnnual, Allocated: 14, CarriedForward: 2, Used: 3, Pending: 1.5, Available: 99},
		{Type: TypeSick, Allocated: 7},
	}})
	if b.Entries[0].Available != 11.5 {
		t.Fatalf("expected 11.5 annual, got %v", b.Entries[0].Available)
	}
	if b.Entries[1].Available != 7 {
		t.Fatalf("expected 7 sick, got %v", b.Entries[1].Available)
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps(date(2025, 3, 1), date(2025, 3, 5), date(2025, 3, 5), date(2025, 3, 7)) {
		t.Fatal("expected shared boundary day to overlap")
	}
	if Overlaps(date(2025, 3, 1), date(2025, 3, 4), date(2025, 3, 5), date(2025, 3, 7)) {
		t.Fatal("expected adjacent ranges not to overlap")
	}
}

func TestCheckPolicy(t *testing.T) {
	today := date(2025, 3, 1)
	policy := Policy{IsActive: true, MinNoticeDays: 7, MaxConsecutiveDays: 5}

	short := Leave{StartDate: date(2025, 3, 3), EndDate: date(2025, 3, 3), TotalDays: 1}
	if err := CheckPolicy(policy, short, today); !errors.Is(err, ErrNoticePeriod) {
		t.Fatalf("expected ErrNoticePeriod, got %v", err)
	}
	long := Leave{StartDate: date(2025, 3, 10), EndDate: date(2025, 3, 16), TotalDays: 7}
	if err := CheckPolicy(policy, long, today); !errors.Is(err, ErrMaxConsecutive) {
		t.Fatalf("expected ErrMaxConsecutive, got %v", err)
	}
	ok := Leave{StartDate: date(2025, 3, 8), EndDate: date(2025, 3, 8), TotalDays: 1}
	if err := CheckPolicy(policy, ok, today); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policy.IsActive = false
	if err := CheckPolicy(policy, ok, today); !errors.Is(err, ErrTypeUnavailable) {
		t.Fatalf("expected ErrTypeUnavailable, got %v", err)
	}
}

func TestCancellable(t *testing.T) {
	today := date(2025, 3, 10)
	tests := []struct {
		status string
		start  time.Time
		want   bool
	}{
		{StatusPending, date(2025, 3, 1), true},
		{StatusApproved, date(2025, 3, 11), true},
		{StatusApproved, date(2025, 3, 10), false},
		{StatusRejected, date(2025, 3, 20), false},
		{StatusCancelled, date(2025, 3, 20), false},
	}
	for _, tc := range tests {
		if got := Cancellable(Leave{Status: tc.status, StartDate: tc.start}, today); got != tc.want {
			t.Fatalf("%s starting %s: expected %v", tc.status, tc.start.Format("2006-01-02"), tc.want)
		}
	}
}

func TestYearEntriesCarryForwardAndAllowances(t *testing.T) {
	policies := []Policy{
		{LeaveType: TypeAnnual, AnnualAllocation: 14, MaxCarryForward: 5, TrackBalance: true, IsActive: true},
		{LeaveType: TypeSick, AnnualAllocation: 7, TrackBalance: true, IsActive: true},
		{LeaveType: TypeUnpaid, TrackBalance: false, IsActive: true},
		{LeaveType: TypeMaternity, AnnualAllocation: 84, TrackBalance: true, IsActive: false},
	}
	previous := &Balance{Entries: []BalanceEntry{
		{Type: TypeAnnual, Available: 8},
		{Type: TypeSick, Available: 3},
	}}
	profile := Profile{Allowances: map[string]float64{TypeAnnual: 16}}

	entries := YearEntries(2025, policies, profile, previous)
	if len(entries) != 2 {
		t.Fatalf("expected tracked active types only, got %+v", entries)
	}
	annual := entries[0]
	if annual.Allocated != 16 || annual.CarriedForward != 5 || annual.Available != 21 {
		t.Fatalf("unexpected annual entry %+v", annual)
	}
	sick := entries[1]
	if sick.CarriedForward != 0 || sick.Available != 7 {
		t.Fatalf("sick leave must not carry forward: %+v", sick)
	}
}

func TestYearEntriesProratesJoiners(t *testing.T) {
	joined := date(2025, 7, 2)
	policies := []Policy{{LeaveType: TypeAnnual, AnnualAllocation: 14, TrackBalance: true, IsActive: true}}

	entries := YearEntries(2025, policies, Profile{JoinDate: &joined}, nil)
	if entries[0].Allocated != 7 {
		t.Fatalf("expected half-year allocation of 7, got %v", entries[0].Allocated)
	}
	entries = YearEntries(2026, policies, Profile{JoinDate: &joined}, nil)
	if entries[0].Allocated != 14 {
		t.Fatalf("expected full allocation after join year, got %v", entries[0].Allocated)
	}
}
