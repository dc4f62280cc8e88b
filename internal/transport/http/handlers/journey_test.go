package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"workpulse/internal/app/server"
	"workpulse/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		WorkdayStart:       "08:30",
		LateGrace:          15 * time.Minute,
		Timezone:           "UTC",
		ShutdownTimeout:    time.Second,
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server, config.Config) {
	t.Helper()
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	ts := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return app, ts, cfg
}

func TestWorkdayJourney(t *testing.T) {
	_, ts, cfg := startApp(t)
	client := ts.Client()
	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword, http.StatusOK)

	email := fmt.Sprintf("nurse-%d@example.com", time.Now().UnixNano())
	password := "Nurse1234"
	status, env := send(t, client, http.MethodPost, ts.URL+"/api/employees", adminToken, map[string]any{
		"email":       email,
		"password":    password,
		"firstName":   "Journey",
		"lastName":    "Nurse",
		"department":  "Emergency",
		"designation": "Staff Nurse",
		"basicSalary": 100000,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create employee: %d %+v", status, env.Error)
	}
	employeeID := dataString(t, env, "id")

	nurseToken := login(t, client, ts.URL, email, password, http.StatusOK)
	if status, env := send(t, client, http.MethodPost, ts.URL+"/api/attendance/clock-in", nurseToken, nil, nil); status != http.StatusCreated {
		t.Fatalf("clock in: %d %+v", status, env.Error)
	}
	if status, env := send(t, client, http.MethodPost, ts.URL+"/api/attendance/clock-in", nurseToken, nil, nil); status != http.StatusConflict || errorCode(env) != "already_checked_in" {
		t.Fatalf("expected duplicate clock-in conflict, got %d %+v", status, env.Error)
	}

	now := time.Now().UTC()
	salaryBody := map[string]any{"employeeId": employeeID, "month": int(now.Month()), "year": now.Year()}
	headers := map[string]string{"Idempotency-Key": "journey-" + employeeID}
	first, firstEnv := send(t, client, http.MethodPost, ts.URL+"/api/salaries", adminToken, salaryBody, headers)
	replay, replayEnv := send(t, client, http.MethodPost, ts.URL+"/api/salaries", adminToken, salaryBody, headers)
	if first != http.StatusCreated || replay != http.StatusCreated {
		t.Fatalf("expected idempotent salary creation, got %d then %d", first, replay)
	}
	if dataString(t, firstEnv, "id") != dataString(t, replayEnv, "id") {
		t.Fatal("expected replay to return the same salary")
	}
	if status, env := send(t, client, http.MethodPost, ts.URL+"/api/salaries", adminToken, salaryBody, nil); status != http.StatusConflict || errorCode(env) != "salary_exists" {
		t.Fatalf("expected duplicate salary conflict, got %d %+v", status, env.Error)
	}
	if status, _ := send(t, client, http.MethodGet, ts.URL+"/api/salaries/"+dataString(t, firstEnv, "id"), nurseToken, nil, nil); status != http.StatusOK {
		t.Fatalf("expected owner to read salary, got %d", status)
	}

	if status, env := send(t, client, http.MethodPut, ts.URL+"/api/admin/users/"+employeeID+"/deactivate", adminToken, nil, nil); status != http.StatusOK {
		t.Fatalf("deactivate: %d %+v", status, env.Error)
	}
	if status, _ := send(t, client, http.MethodGet, ts.URL+"/api/auth/me", nurseToken, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected revoked session, got %d", status)
	}
	login(t, client, ts.URL, email, password, http.StatusUnauthorized)
	login(t, client, ts.URL, email, "wrong-password", http.StatusUnauthorized)
}

func TestEndpointsReturnValidationErrors(t *testing.T) {
	_, ts, cfg := startApp(t)
	client := ts.Client()
	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword, http.StatusOK)

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		fields []string
	}{
		{"leave dates inverted", "/api/leaves", map[string]any{"leaveType": "annual", "startDate": "2030-04-10", "endDate": "2030-04-01", "reason": "trip"}, []string{"endDate"}},
		{"salary period", "/api/salaries/calculate", map[string]any{"employeeId": "not-a-uuid", "month": 13, "year": 2024}, []string{"employeeId", "month"}},
		{"weak reset", "/api/auth/reset", map[string]any{"token": "", "newPassword": "weak"}, []string{"token", "newPassword"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := send(t, client, http.MethodPost, ts.URL+tc.path, adminToken, tc.body, nil)
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %+v", status, env.Error)
			}
			for _, field := range tc.fields {
				assertValidationErrorField(t, env, field)
			}
		})
	}
}

func login(t *testing.T, client *http.Client, baseURL, email, password string, want int) string {
	t.Helper()
	status, env := send(t, client, http.MethodPost, baseURL+"/api/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	if status != want {
		t.Fatalf("login %s: expected %d, got %d %+v", email, want, status, env.Error)
	}
	if want != http.StatusOK {
		return ""
	}
	return dataString(t, env, "token")
}

func send(t *testing.T, client *http.Client, method, url, token string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", string(raw), err)
	}
	return resp.StatusCode, env
}

func dataString(t *testing.T, env envelope, key string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("failed to decode envelope data: %v", err)
	}
	value, _ := payload[key].(string)
	if value == "" {
		t.Fatalf("expected %q in %s", key, string(env.Data))
	}
	return value
}

func errorCode(env envelope) string {
	if m, ok := env.Error.(map[string]any); ok {
		code, _ := m["code"].(string)
		return code
	}
	return ""
}

func assertValidationErrorField(t *testing.T, env envelope, field string) {
	t.Helper()
	if code := errorCode(env); code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
	errMap, _ := env.Error.(map[string]any)
	details, ok := errMap["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %+v", errMap["details"])
	}
	fields, ok := details["fields"].([]any)
	if !ok {
		t.Fatalf("expected details.fields array, got %+v", details["fields"])
	}
	for _, item := range fields {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if value, _ := entry["field"].(string); value == field {
			return
		}
	}
	t.Fatalf("expected validation error for field %q, got %+v", field, fields)
}
