package server

import (
	"strings"
	"time"

	"github.com/billora/billora/internal/lifecycle"
)

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalStatus(s string) *lifecycle.Status {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	status := lifecycle.Status(s)
	return &status
}

// parseOptionalTime accepts RFC 3339 timestamps or bare dates.
func parseOptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
