package models

import (
	"testing"
	"time"
)

func TestStoryActive(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	story := Story{ExpiresAt: expiry}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"well before expiry", expiry.Add(-time.Hour), true},
		{"one nanosecond before", expiry.Add(-time.Nanosecond), true},
		{"exactly at expiry", expiry, false},
		{"after expiry", expiry.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := story.Active(tt.now); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}
