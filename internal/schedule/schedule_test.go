package schedule_test

import (
	"testing"
	"time"

	"filesentry/internal/schedule"
)

func TestIsScanDue(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lastStarted time.Time
		interval    time.Duration
		want        bool
	}{
		{"never scanned", time.Time{}, time.Hour, true},
		{"interval elapsed", now.Add(-2 * time.Hour), time.Hour, true},
		{"exactly at interval", now.Add(-time.Hour), time.Hour, true},
		{"within interval", now.Add(-30 * time.Minute), time.Hour, false},
		{"zero interval disables", time.Time{}, 0, false},
		{"negative interval disables", now.Add(-24 * time.Hour), -time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schedule.IsScanDue(tt.lastStarted, tt.interval, now); got != tt.want {
				t.Errorf("IsScanDue(%v, %v) = %v, want %v", tt.lastStarted, tt.interval, got, tt.want)
			}
		})
	}
}
