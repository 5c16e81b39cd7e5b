package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"xscraper/pkg/logger"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		spec  string
		valid bool
	}{
		{"0 3 * * *", true},
		{"*/15 * * * *", true},
		{"@hourly", true},
		{"@every 2h", true},
		{"0 0 3 * * *", false},
		{"whenever", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidateSchedule(tt.spec)
		if tt.valid && err != nil {
			t.Errorf("ValidateSchedule(%q) unexpected error: %v", tt.spec, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateSchedule(%q) expected error", tt.spec)
		}
	}
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(logger.NewTestLogger())
	err := s.Run(context.Background(), "not a schedule", func(context.Context) {
		t.Error("fn must not run")
	})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var runs int32
	s := NewScheduler(logger.NewTestLogger())
	err := s.Run(ctx, "@every 1s", func(context.Context) {
		atomic.AddInt32(&runs, 1)
		cancel()
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
}
