package payroll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeStore struct {
	employees map[string]EmployeeSnapshot
	leaves    map[string][]LeaveWindow
	overtime  map[string]float64
	salaries  map[string]Salary
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employees: map[string]EmployeeSnapshot{
			"u1": {ID: "u1", EmployeeCode: "EMP0001", FirstName: "Nimal", LastName: "Perera", BasicSalary: 100000, MonthlyLeaveAllowance: 3, EmploymentStatus: "active", IsActive: true},
			"u2": {ID: "u2", EmployeeCode: "EMP0002", FirstName: "Kamala", LastName: "Silva", BasicSalary: 80000, EmploymentStatus: "terminated", IsActive: true},
			"u3": {ID: "u3", EmployeeCode: "EMP0003", FirstName: "Ruwan", LastName: "Dias", BasicSalary: 80000, EmploymentStatus: "active", IsActive: false},
		},
		leaves:   map[string][]LeaveWindow{},
		overtime: map[string]float64{},
		salaries: map[string]Salary{},
	}
}

func (f *fakeStore) Employee(_ context.Context, id string) (EmployeeSnapshot, error) {
	e, ok := f.employees[id]
	if !ok {
		return EmployeeSnapshot{}, ErrEmployeeNotFound
	}
	return e, nil
}

func (f *fakeStore) ApprovedLeaves(_ context.Context, id string, _, _ time.Time) ([]LeaveWindow, error) {
	return f.leaves[id], nil
}

func (f *fakeStore) OvertimeHours(_ context.Context, id string, _, _ time.Time) (float64, error) {
	return f.overtime[id], nil
}

func (f *fakeStore) Exists(_ context.Context, id string, month, year int) (bool, error) {
	for _, s := range f.salaries {
		if s.EmployeeID == id && s.Month == month && s.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Create(ctx context.Context, s Salary) (Salary, error) {
	if exists, _ := f.Exists(ctx, s.EmployeeID, s.Month, s.Year); exists {
		return Salary{}, ErrDuplicate
	}
	f.seq++
	s = RecalculateTotals(s)
	s.ID = fmt.Sprintf("sal-%d", f.seq)
	s.Status = StatusPending
	f.salaries[s.ID] = s
	return s, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Salary, error) {
	s, ok := f.salaries[id]
	if !ok {
		return Salary{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) List(context.Context, Filter, int, int) ([]Salary, int, error) {
	out := []Salary{}
	for _, s := range f.salaries {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeStore) SaveAdjustments(_ context.Context, s Salary) (Salary, error) {
	current, ok := f.salaries[s.ID]
	if !ok {
		return Salary{}, ErrNotFound
	}
	if current.Status != StatusPending {
		return Salary{}, ErrNotPending
	}
	s = RecalculateTotals(s)
	f.salaries[s.ID] = s
	return s, nil
}

func (f *fakeStore) transition(id, from, to string, at time.Time) (Salary, error) {
	s, ok := f.salaries[id]
	if !ok {
		return Salary{}, ErrNotFound
	}
	if s.Status != from {
		return Salary{}, ErrInvalidTransition
	}
	s.Status = to
	if to == StatusApproved {
		s.ApprovedAt = &at
	} else {
		s.PaidAt = &at
	}
	f.salaries[id] = s
	return s, nil
}

func (f *fakeStore) Approve(_ context.Context, id, approverID string, at time.Time) (Salary, error) {
	s, err := f.transition(id, StatusPending, StatusApproved, at)
	if err == nil {
		s.ApprovedBy = &approverID
		f.salaries[id] = s
	}
	return s, err
}

func (f *fakeStore) MarkPaid(_ context.Context, id string, at time.Time) (Salary, error) {
	return f.transition(id, StatusApproved, StatusPaid, at)
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	s, ok := f.salaries[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusPending {
		return ErrNotPending
	}
	delete(f.salaries, id)
	return nil
}

func TestCalculateRejections(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"missing employee", "nobody", ErrEmployeeNotFound},
		{"terminated", "u2", ErrEmployeeInactive},
		{"deactivated", "u3", ErrEmployeeInactive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Calculate(ctx, CalculateInput{EmployeeID: tc.id, Month: 3, Year: 2025}); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateRejectsDuplicatePeriod(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()
	in := CalculateInput{EmployeeID: "u1", Month: 3, Year: 2025}

	if _, err := svc.Create(ctx, "hr-1", in); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Calculate(ctx, in); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate from calculate, got %v", err)
	}
	if _, err := svc.Create(ctx, "hr-1", in); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate from create, got %v", err)
	}
	in.Month = 4
	if _, err := svc.Create(ctx, "hr-1", in); err != nil {
		t.Fatalf("next month should be accepted: %v", err)
	}
}

func TestCalculateUsesLeaveAndOvertime(t *testing.T) {
	store := newFakeStore()
	store.leaves["u1"] = []LeaveWindow{{Start: date(2025, 3, 3), End: date(2025, 3, 7)}}
	store.overtime["u1"] = 10
	svc := NewService(store)

	s, err := svc.Calculate(context.Background(), CalculateInput{EmployeeID: "u1", Month: 3, Year: 2025, Bonus: 5000})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if s.NoPayLeaveDays != 2 || s.OvertimePay != 6250 {
		t.Fatalf("unexpected leave/overtime %+v", s)
	}
	if s.NetPayableSalary != 136250 {
		t.Fatalf("expected net 136250, got %v", s.NetPayableSalary)
	}
	if len(store.salaries) != 0 {
		t.Fatal("calculate must not persist")
	}
}

func TestSalaryLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	svc.Now = func() time.Time { return time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	s, err := svc.Create(ctx, "hr-1", CalculateInput{EmployeeID: "u1", Month: 3, Year: 2025})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.MarkPaid(ctx, s.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected pending salary not payable, got %v", err)
	}
	bonus, apit := 10000.0, 1500.0
	updated, err := svc.Update(ctx, s.ID, Adjustments{Bonus: &bonus, APIT: &apit})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.NetPayableSalary != s.NetPayableSalary+bonus-apit {
		t.Fatalf("expected net to include adjustments, got %v", updated.NetPayableSalary)
	}
	if _, err := svc.Approve(ctx, s.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Update(ctx, s.ID, Adjustments{Bonus: &bonus}); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := svc.Delete(ctx, s.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected approved salary not deletable, got %v", err)
	}
	paid, err := svc.MarkPaid(ctx, s.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != StatusPaid || paid.PaidAt == nil {
		t.Fatalf("unexpected paid salary %+v", paid)
	}
}
