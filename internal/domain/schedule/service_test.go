package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeStore struct {
	shifts    map[string]Shift
	schedules map[string]Schedule
	swaps     map[string]SwapRequest
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts: map[string]Shift{
			"day":   {ID: "day", Name: "Day", StartTime: "08:00", EndTime: "16:00", IsActive: true},
			"night": {ID: "night", Name: "Night", StartTime: "22:00", EndTime: "06:00", CrossesMidnight: true, IsActive: true},
			"old":   {ID: "old", Name: "Old", StartTime: "09:00", EndTime: "17:00"},
		},
		schedules: map[string]Schedule{},
		swaps:     map[string]SwapRequest{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) ListShifts(context.Context, bool) ([]Shift, error) { return nil, nil }

func (f *fakeStore) GetShift(_ context.Context, id string) (Shift, error) {
	sh, ok := f.shifts[id]
	if !ok {
		return Shift{}, ErrShiftNotFound
	}
	return sh, nil
}

func (f *fakeStore) CreateShift(_ context.Context, sh Shift) (Shift, error) {
	sh.ID = f.nextID("shift")
	f.shifts[sh.ID] = sh
	return sh, nil
}

func (f *fakeStore) UpdateShift(_ context.Context, id string, sh Shift) (Shift, error) {
	f.shifts[id] = sh
	return sh, nil
}

func (f *fakeStore) DeleteShift(_ context.Context, id string) error {
	delete(f.shifts, id)
	return nil
}

func (f *fakeStore) activeOn(employeeID string, d time.Time, excludeID string) bool {
	for _, sch := range f.schedules {
		if sch.ID != excludeID && sch.EmployeeID == employeeID && sch.Date.Equal(d) && IsActive(sch.Status) {
			return true
		}
	}
	return false
}

func (f *fakeStore) Create(_ context.Context, sch Schedule) (Schedule, error) {
	if f.activeOn(sch.EmployeeID, sch.Date, "") {
		return Schedule{}, ErrConflict
	}
	sch.ID = f.nextID("sch")
	f.schedules[sch.ID] = sch
	return sch, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Schedule, error) {
	sch, ok := f.schedules[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return sch, nil
}

func (f *fakeStore) List(context.Context, Filter, int, int) ([]Schedule, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) Save(_ context.Context, sch Schedule) (Schedule, error) {
	f.schedules[sch.ID] = sch
	return sch, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.schedules, id)
	return nil
}

func (f *fakeStore) ActiveDates(_ context.Context, employeeID string, from, to time.Time, excludeID string) (map[string]bool, error) {
	taken := map[string]bool{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if f.activeOn(employeeID, d, excludeID) {
			taken[d.Format(dateLayout)] = true
		}
	}
	return taken, nil
}

func (f *fakeStore) Stats(context.Context, Filter) (Stats, error) { return Stats{}, nil }

func (f *fakeStore) CreateSwap(_ context.Context, req SwapRequest) (SwapRequest, error) {
	req.ID = f.nextID("swap")
	f.swaps[req.ID] = req
	return req, nil
}

func (f *fakeStore) GetSwap(_ context.Context, id string) (SwapRequest, error) {
	req, ok := f.swaps[id]
	if !ok {
		return SwapRequest{}, ErrSwapNotFound
	}
	return req, nil
}

func (f *fakeStore) ListSwaps(context.Context, SwapFilter, int, int) ([]SwapRequest, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) ApproveSwap(_ context.Context, id, reviewerID string, at time.Time) (SwapRequest, error) {
	req, ok := f.swaps[id]
	if !ok {
		return SwapRequest{}, ErrSwapNotFound
	}
	if req.Status != SwapPending {
		return SwapRequest{}, ErrSwapNotPending
	}
	source, target := f.schedules[req.ScheduleID], f.schedules[req.TargetScheduleID]
	source.EmployeeID, target.EmployeeID = target.EmployeeID, source.EmployeeID
	f.schedules[source.ID], f.schedules[target.ID] = source, target
	req.Status = SwapApproved
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &at
	f.swaps[id] = req
	return req, nil
}

func (f *fakeStore) CloseSwap(_ context.Context, id, status string, reviewerID *string, at time.Time) (SwapRequest, error) {
	req, ok := f.swaps[id]
	if !ok {
		return SwapRequest{}, ErrSwapNotFound
	}
	if req.Status != SwapPending {
		return SwapRequest{}, ErrSwapNotPending
	}
	req.Status = status
	req.ReviewedBy = reviewerID
	req.ReviewedAt = &at
	f.swaps[id] = req
	return req, nil
}

func TestCreateRejectsConflictAndInactiveShift(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "day", Date: date(2025, 3, 3)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "night", Date: date(2025, 3, 3)}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-2", ShiftID: "old", Date: date(2025, 3, 3)}); !errors.Is(err, ErrShiftInactive) {
		t.Fatalf("expected ErrShiftInactive, got %v", err)
	}
}

func TestCreateCopiesShiftWindow(t *testing.T) {
	svc := NewService(newFakeStore())
	sch, err := svc.Create(context.Background(), "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "night", Date: date(2025, 3, 3), EndTime: "07:00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sch.StartTime != "22:00" || sch.EndTime != "07:00" || sch.Status != StatusScheduled || sch.CreatedBy == nil {
		t.Fatalf("unexpected schedule %+v", sch)
	}
}

func TestCreateRecurringSkipsConflicts(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "day", Date: date(2025, 3, 5)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	result, err := svc.CreateRecurring(ctx, "hr-1", Recurrence{
		EmployeeID: "emp-1",
		ShiftID:    "night",
		Start:      date(2025, 3, 3),
		Until:      date(2025, 3, 9),
		Rule:       "FREQ=WEEKLY;BYDAY=MO,WE,FR",
	})
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if len(result.Created) != 2 {
		t.Fatalf("expected 2 created, got %d", len(result.Created))
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "2025-03-05" {
		t.Fatalf("expected 2025-03-05 skipped, got %v", result.Skipped)
	}
}

func TestUpdateReactivationChecksConflict(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	first, _ := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "day", Date: date(2025, 3, 3)})
	cancelled := StatusCancelled
	if _, err := svc.Update(ctx, first.ID, ScheduleUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "night", Date: date(2025, 3, 3)}); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
	scheduled := StatusScheduled
	if _, err := svc.Update(ctx, first.ID, ScheduleUpdate{Status: &scheduled}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSwapLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	mine, _ := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-1", ShiftID: "day", Date: date(2025, 3, 3)})
	theirs, _ := svc.Create(ctx, "hr-1", Assignment{EmployeeID: "emp-2", ShiftID: "night", Date: date(2025, 3, 4)})

	if _, err := svc.RequestSwap(ctx, "emp-2", SwapInput{ScheduleID: mine.ID, TargetScheduleID: theirs.ID}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.RequestSwap(ctx, "emp-1", SwapInput{ScheduleID: mine.ID, TargetScheduleID: mine.ID}); !errors.Is(err, ErrSwapSameEmployee) {
		t.Fatalf("expected ErrSwapSameEmployee, got %v", err)
	}
	req, err := svc.RequestSwap(ctx, "emp-1", SwapInput{ScheduleID: mine.ID, TargetScheduleID: theirs.ID, Reason: "appointment"})
	if err != nil {
		t.Fatalf("request swap: %v", err)
	}
	if _, err := svc.CancelSwap(ctx, req.ID, "emp-2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on cancel, got %v", err)
	}
	if _, err := svc.ApproveSwap(ctx, req.ID, "mgr-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := store.schedules[mine.ID].EmployeeID; got != "emp-2" {
		t.Fatalf("expected schedule reassigned to emp-2, got %s", got)
	}
	if _, err := svc.RejectSwap(ctx, req.ID, "mgr-1"); !errors.Is(err, ErrSwapNotPending) {
		t.Fatalf("expected ErrSwapNotPending, got %v", err)
	}
}
