package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type shiftPayload struct {
	Name      string  `json:"name" validate:"required"`
	StartTime string  `json:"startTime" validate:"required,hhmm"`
	Email     string  `json:"email" validate:"omitempty,email"`
	Hours     float64 `json:"hours" validate:"gte=0"`
}

func TestValidatorStructUsesJSONNames(t *testing.T) {
	v := NewValidator()
	v.Struct(shiftPayload{StartTime: "25:99", Email: "nope", Hours: -1})
	issues := v.Issues()
	fields := map[string]bool{}
	for _, issue := range issues {
		fields[issue.Field] = true
	}
	for _, want := range []string{"name", "startTime", "email", "hours"} {
		if !fields[want] {
			t.Fatalf("expected issue for %s, got %+v", want, issues)
		}
	}
}

func TestValidatorRejectWritesEnvelope(t *testing.T) {
	v := NewValidator()
	v.Add("endDate", "must be on or after startDate")
	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected reject")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "validation_error" || len(env.Error.Details.Fields) != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestPasswordStrong(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Stronger123", true},
		{"S1hort", false},
		{"longpassword1", false},
		{"LONGPASSWORD1", false},
		{"LongPassword", false},
	}
	for _, tc := range tests {
		if got := PasswordStrong(tc.password); got != tc.want {
			t.Fatalf("PasswordStrong(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"", 1, 10, 0},
		{"page=3&limit=20", 3, 20, 40},
		{"page=0&limit=-5", 1, 10, 0},
		{"page=2&limit=500", 2, 100, 100},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/leaves?"+tc.query, nil)
		got := ParsePagination(req, 10, 100)
		if got.Page != tc.wantPage || got.Limit != tc.wantLimit || got.Offset != tc.wantOffset {
			t.Fatalf("query %q: got %+v", tc.query, got)
		}
	}
}

func TestPaginationMeta(t *testing.T) {
	meta := Pagination{Page: 2, Limit: 10}.Meta(21)
	if meta.Current != 2 || meta.Pages != 3 || meta.Total != 21 {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	var dst map[string]any
	if DecodeJSON(rec, req, &dst, "") {
		t.Fatal("expected decode failure")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected forwarded ip, got %q", got)
	}
}
