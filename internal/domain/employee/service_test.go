package employee

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"workpulse/internal/domain/auth"
	cryptoutil "workpulse/internal/platform/crypto"
)

type fakeStore struct {
	items   map[string]Employee
	created []NewRecord
	nextID  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]Employee{}, nextID: "EMP0007"}
}

func (f *fakeStore) List(_ context.Context, _ Filter, _, _ int) ([]Employee, int, error) {
	out := []Employee{}
	for _, e := range f.items {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Employee, error) {
	e, ok := f.items[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) Create(_ context.Context, rec NewRecord) (Employee, error) {
	for _, e := range f.items {
		if e.EmployeeID == rec.EmployeeID || e.Email == rec.Email {
			return Employee{}, ErrDuplicate
		}
	}
	f.created = append(f.created, rec)
	e := Employee{
		ID: "id-" + rec.EmployeeID, EmployeeID: rec.EmployeeID, Email: rec.Email, Role: rec.Role,
		EmploymentStatus: rec.EmploymentStatus, IsActive: true, IsPasswordSet: rec.PasswordHash != "",
		Compensation: &Compensation{BasicSalary: rec.BasicSalary}, BankAccountEnc: rec.BankAccountEnc,
	}
	f.items[e.ID] = e
	return e, nil
}

func (f *fakeStore) Update(_ context.Context, id string, in UpdateInput, _ *time.Time) (Employee, error) {
	e, ok := f.items[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	if in.Department != nil {
		e.Department = *in.Department
	}
	f.items[id] = e
	return e, nil
}

func (f *fakeStore) UpdateSalary(_ context.Context, id string, in SalaryUpdate, enc []byte) (Employee, error) {
	e, ok := f.items[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	if in.BasicSalary != nil {
		e.Compensation.BasicSalary = *in.BasicSalary
	}
	if enc != nil {
		e.BankAccountEnc = enc
	}
	f.items[id] = e
	return e, nil
}

func (f *fakeStore) SetPassword(_ context.Context, id, _ string) error {
	e, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	e.IsPasswordSet = true
	f.items[id] = e
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeStore) Stats(context.Context) (Stats, error) { return Stats{Total: len(f.items)}, nil }

func (f *fakeStore) NextEmployeeID(context.Context) (string, error) { return f.nextID, nil }

func newCrypto(t *testing.T) *cryptoutil.Service {
	t.Helper()
	c, err := cryptoutil.New(strings.Repeat("0f", 32))
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	return c
}

func TestCreateWithoutPasswordLeavesFlagUnset(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newCrypto(t))

	e, err := svc.Create(context.Background(), CreateInput{Email: "nurse@example.com", FirstName: "N", LastName: "S", BasicSalary: 100000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.IsPasswordSet {
		t.Fatal("expected isPasswordSet=false for HR-created account")
	}
	if e.EmployeeID != "EMP0007" || e.Role != auth.RoleEmployee || e.EmploymentStatus != StatusActive {
		t.Fatalf("unexpected defaults: %+v", e)
	}

	if err := svc.AssignPassword(context.Background(), e.ID, "Assigned123"); err != nil {
		t.Fatalf("assign password: %v", err)
	}
	if !store.items[e.ID].IsPasswordSet {
		t.Fatal("expected isPasswordSet=true after assignment")
	}
}

func TestCreateHashesPassword(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	if _, err := svc.Create(context.Background(), CreateInput{EmployeeID: "emp0100", Email: "a@example.com", Password: "Secret123", FirstName: "A", LastName: "B"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec := store.created[0]
	if rec.EmployeeID != "EMP0100" {
		t.Fatalf("expected uppercased employee id, got %s", rec.EmployeeID)
	}
	if rec.PasswordHash == "" || rec.PasswordHash == "Secret123" {
		t.Fatal("expected bcrypt hash, never plaintext")
	}
	if err := auth.CheckPassword(rec.PasswordHash, "Secret123"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	in := CreateInput{EmployeeID: "EMP0001", Email: "a@example.com", FirstName: "A", LastName: "B"}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateRejectsBadJoinDate(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	_, err := svc.Create(context.Background(), CreateInput{Email: "a@example.com", FirstName: "A", LastName: "B", JoinDate: "03/01/2024"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBankAccountEncryptedAtRestAndRedacted(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newCrypto(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Email: "a@example.com", FirstName: "A", LastName: "B", BankAccount: "001-22334455"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if strings.Contains(string(store.items[created.ID].BankAccountEnc), "001-22334455") {
		t.Fatal("bank account stored in plaintext")
	}

	hr := auth.UserContext{UserID: "hr-1", Role: auth.RoleHR}
	got, err := svc.Get(ctx, hr, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Compensation == nil || got.Compensation.BankAccountNumber != "001-22334455" {
		t.Fatalf("expected decrypted account for hr, got %+v", got.Compensation)
	}

	manager := auth.UserContext{UserID: "m-1", Role: auth.RoleManager}
	got, err = svc.Get(ctx, manager, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Compensation != nil {
		t.Fatal("expected compensation hidden from manager")
	}

	owner := auth.UserContext{UserID: created.ID, Role: auth.RoleEmployee}
	got, err = svc.Get(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Compensation == nil {
		t.Fatal("expected owner to see own compensation")
	}
}

func TestDeleteSelfRejected(t *testing.T) {
	store := newFakeStore()
	store.items["u1"] = Employee{ID: "u1"}
	svc := NewService(store, nil)
	if err := svc.Delete(context.Background(), auth.UserContext{UserID: "u1", Role: auth.RoleAdmin}, "u1"); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
}
