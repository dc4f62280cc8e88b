package shared

import (
	"net/http"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(DateLayout, value)
}

// DateRange reads optional startDate/endDate query parameters.
func DateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := ParseDate(r.URL.Query().Get("startDate"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(r.URL.Query().Get("endDate"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// QueryInt returns fallback when the parameter is missing or not a number.
func QueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
