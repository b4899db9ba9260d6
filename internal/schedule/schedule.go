// Package schedule triggers scans on a fixed interval and on filesystem
// activity. It only decides WHEN to scan; the orchestrator owns the rest.
package schedule

import (
	"context"
	"errors"
	"time"

	"filesentry/internal/model"
	"filesentry/internal/scan"
)

// ScanRunner is the orchestrator entry point the triggers call.
type ScanRunner interface {
	Run(ctx context.Context, scanType model.ScanType) (*model.ScanResult, error)
}

// LatestSource reports the most recent completed scan.
type LatestSource interface {
	LatestCompletedScan() (*model.ScanResult, error)
}

// IsScanDue reports whether a scheduled scan should run, given when the
// last completed scan started. A non-positive interval disables scheduling.
func IsScanDue(lastStarted time.Time, interval time.Duration, now time.Time) bool {
	if interval <= 0 {
		return false
	}
	if lastStarted.IsZero() {
		return true
	}
	return !lastStarted.Add(interval).After(now)
}

// Scheduler runs scheduled scans whenever one is due.
type Scheduler struct {
	store    LatestSource
	runner   ScanRunner
	interval time.Duration
	poll     time.Duration
	clock    scan.Clock
	logger   scan.Logger
}

// NewScheduler creates a scheduler that checks for due scans once a minute.
func NewScheduler(store LatestSource, runner ScanRunner, interval time.Duration,
	clock scan.Clock, logger scan.Logger) *Scheduler {
	poll := time.Minute
	if interval < poll {
		poll = interval
	}
	return &Scheduler{
		store:    store,
		runner:   runner,
		interval: interval,
		poll:     poll,
		clock:    clock,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, starting a scheduled scan whenever one
// is due. Scan failures are logged and do not stop the scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maybeScan(ctx)
		}
	}
}

func (s *Scheduler) maybeScan(ctx context.Context) {
	latest, err := s.store.LatestCompletedScan()
	if err != nil {
		s.logger.Error("schedule check failed", "error", err)
		return
	}
	var lastStarted time.Time
	if latest != nil {
		lastStarted = latest.StartedAt
	}
	if !IsScanDue(lastStarted, s.interval, s.clock.Now()) {
		return
	}

	if _, err := s.runner.Run(ctx, model.ScanScheduled); err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			s.logger.Debug("scheduled scan skipped, another scan is running")
			return
		}
		s.logger.Error("scheduled scan failed", "error", err)
	}
}
