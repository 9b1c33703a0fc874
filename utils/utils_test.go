package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

var intFromStringTests = []struct {
	input        string
	defaultValue int
	expected     int
}{
	{"42", 0, 42},
	{"-7", 0, -7},
	{"", 10, 10},
	{"abc", 10, 10},
	{"3.5", 10, 10},
}

func TestIntFromString(t *testing.T) {
	for _, tt := range intFromStringTests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IntFromString(tt.input, tt.defaultValue); got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	failure := errors.New("always")
	err := Retry(context.Background(), 3, time.Millisecond, func(error) bool { return true }, func() error {
		calls++
		return failure
	})
	if !errors.Is(err, failure) {
		t.Errorf("got %v, want %v", err, failure)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(error) bool { return false }, func() error {
		calls++
		return errors.New("fatal")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 5, 10*time.Millisecond, func(error) bool { return true }, func() error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
