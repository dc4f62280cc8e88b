package attendancehandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/attendance"
	"workpulse/internal/domain/auth"
	"workpulse/internal/transport/http/middleware"
)

type fakeStore struct {
	records map[string]attendance.Record
}

func recordKey(userID string, date time.Time) string {
	return userID + "-" + date.Format("20060102")
}

func (f *fakeStore) Create(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	k := recordKey(rec.UserID, rec.Date)
	if _, ok := f.records[k]; ok {
		return attendance.Record{}, attendance.ErrAlreadyCheckedIn
	}
	rec.ID = k
	f.records[k] = rec
	return rec, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (attendance.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) GetByUserDate(ctx context.Context, userID string, date time.Time) (attendance.Record, error) {
	return f.Get(ctx, recordKey(userID, date))
}

func (f *fakeStore) Save(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) List(_ context.Context, filter attendance.Filter, _, _ int) ([]attendance.Record, int, error) {
	out := []attendance.Record{}
	for _, rec := range f.records {
		if filter.UserID == "" || rec.UserID == filter.UserID {
			out = append(out, rec)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Stats(context.Context, attendance.Filter) (attendance.Stats, error) {
	return attendance.Stats{TotalRecords: len(f.records)}, nil
}

func newRouter(store *fakeStore, user auth.UserContext) http.Handler {
	svc := attendance.NewService(store, time.UTC, "08:30", 15*time.Minute)
	svc.Now = func() time.Time { return time.Date(2024, 3, 4, 8, 10, 0, 0, time.UTC) }
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestClockInTwiceConflicts(t *testing.T) {
	store := &fakeStore{records: map[string]attendance.Record{}}
	router := newRouter(store, auth.UserContext{UserID: "u1", Role: auth.RoleEmployee})

	if rec := serve(router, http.MethodPost, "/attendance/clock-in", ""); rec.Code != http.StatusCreated {
		t.Fatalf("first clock-in: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(router, http.MethodPost, "/attendance/clock-in", `{"method":"mobile"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second clock-in, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/attendance/clock-in", `{"method":"carrier-pigeon"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid method to fail validation, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/attendance/break/end", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected no_open_break, got %d", rec.Code)
	}
}

func TestClockOutWithoutClockIn(t *testing.T) {
	router := newRouter(&fakeStore{records: map[string]attendance.Record{}}, auth.UserContext{UserID: "u1", Role: auth.RoleEmployee})
	if rec := serve(router, http.MethodPost, "/attendance/clock-out", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/attendance/today", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected empty today, got %d", rec.Code)
	}
}

func TestAttendanceAccess(t *testing.T) {
	store := &fakeStore{records: map[string]attendance.Record{
		"r2": {ID: "r2", UserID: "u2", Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Status: attendance.StatusPresent},
	}}
	tests := []struct {
		name   string
		user   auth.UserContext
		method string
		path   string
		body   string
		want   int
	}{
		{"employee cannot list everyone", auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}, http.MethodGet, "/attendance", "", http.StatusForbidden},
		{"employee lists own records", auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}, http.MethodGet, "/attendance/my", "", http.StatusOK},
		{"employee cannot read colleague record", auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}, http.MethodGet, "/attendance/r2", "", http.StatusForbidden},
		{"manager reads colleague record", auth.UserContext{UserID: "m1", Role: auth.RoleManager}, http.MethodGet, "/attendance/r2", "", http.StatusOK},
		{"manager cannot correct", auth.UserContext{UserID: "m1", Role: auth.RoleManager}, http.MethodPut, "/attendance/r2", `{"notes":"x"}`, http.StatusForbidden},
		{"hr corrects", auth.UserContext{UserID: "h1", Role: auth.RoleHR}, http.MethodPut, "/attendance/r2", `{"status":"late"}`, http.StatusOK},
		{"hr cannot move check-in to another day", auth.UserContext{UserID: "h1", Role: auth.RoleHR}, http.MethodPut, "/attendance/r2", `{"checkInTime":"2024-03-05T08:00:00Z"}`, http.StatusBadRequest},
		{"hr corrects check-in time", auth.UserContext{UserID: "h1", Role: auth.RoleHR}, http.MethodPut, "/attendance/r2", `{"checkInTime":"2024-03-04T08:05:00Z"}`, http.StatusOK},
		{"bad date range", auth.UserContext{UserID: "h1", Role: auth.RoleHR}, http.MethodGet, "/attendance/stats?startDate=2024-03-05&endDate=2024-03-01", "", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(newRouter(store, tc.user), tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
