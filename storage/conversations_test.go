package storage

import (
	"testing"
	"time"

	"campusfeed/storage/models"
)

func TestCountUnread(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	messages := []models.Message{
		{SenderID: "other", CreatedAt: t1},
		{SenderID: "other", CreatedAt: t2},
		{SenderID: "reader", CreatedAt: t3},
		{SenderID: "other", CreatedAt: t3},
	}

	tests := []struct {
		name       string
		lastReadAt time.Time
		expected   int64
	}{
		{"never read", time.Time{}, 3},
		{"read up to t1", t1, 2},
		{"read up to t2", t2, 1},
		{"fully read", t3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countUnread(messages, tt.lastReadAt, "reader")
			if got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}

// A message stamped exactly at the watermark counts as read.
func TestCountUnreadBoundary(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []models.Message{{SenderID: "other", CreatedAt: at}}

	if got := countUnread(messages, at, "reader"); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
