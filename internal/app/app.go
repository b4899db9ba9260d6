// Package app is the application layer between the CLI and the engine.
// It constructs all collaborators from config, exposes the high-level
// operations, and manages resource lifecycles on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"filesentry/internal/cache"
	"filesentry/internal/config"
	"filesentry/internal/encryption"
	"filesentry/internal/model"
	"filesentry/internal/priority"
	"filesentry/internal/retention"
	"filesentry/internal/scan"
	"filesentry/internal/schedule"
	"filesentry/internal/security"
	"filesentry/internal/store"
	"filesentry/internal/vault"
)

// App wires the engine together for one CLI invocation or a long-running
// watch process.
type App struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	cache     *cache.Cache
	scanner   *scan.Scanner
	retention *retention.Engine
	scheduler *schedule.Scheduler
	logger    scan.Logger
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Scan", "Prune") and tags
// every log line. The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	slogger, logFile, err := newLogger(cfg.LogDir, operation)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	st, err := store.NewStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	cipher, err := encryption.NewCipherFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	clock := scan.RealClock{}
	contentCache := cache.New(st, cipher, clock, logger)

	policy, err := security.NewPatternPolicy(cfg.Security.SensitivePatterns)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating security policy: %w", err)
	}

	inline := make([]model.PriorityRule, 0, len(cfg.Priority))
	for _, r := range cfg.Priority {
		inline = append(inline, model.PriorityRule{Pattern: r.Pattern, Level: r.Level})
	}
	classifier, err := priority.NewClassifier(st, inline, clock, logger)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating priority classifier: %w", err)
	}

	text := scan.NewTextClassifier(cfg.Scan.TextExtensions)
	settings := config.NewSettings(cfg)
	scanner := scan.NewScanner(cfg.RootDir, st, settings, policy, classifier,
		contentCache, text, clock, scan.UUIDGenerator{}, logger)

	archiver, err := vault.NewArchiverFromConfig(context.Background(), cfg.Archive)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive vault: %w", err)
	}

	eng, err := retention.NewEngine(st, contentCache, archiver, clock, logger,
		cfg.Retention.Tier2Days, cfg.Retention.Tier3Days, !cfg.Retention.PruneBaseline)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating retention engine: %w", err)
	}

	a := &App{
		cfg:       cfg,
		store:     st,
		cache:     contentCache,
		scanner:   scanner,
		retention: eng,
		logger:    logger,
		logFile:   logFile,
	}
	if cfg.Schedule.IntervalMinutes > 0 {
		interval := time.Duration(cfg.Schedule.IntervalMinutes) * time.Minute
		a.scheduler = schedule.NewScheduler(st, scanner, interval, clock, logger)
	}
	return a, nil
}

// RunScan executes one scan synchronously and returns its final state.
func (a *App) RunScan(ctx context.Context, scanType model.ScanType) (*model.ScanResult, error) {
	return a.scanner.Run(ctx, scanType)
}

// GetScanStatus returns the scan with the given ID, or nil if unknown.
func (a *App) GetScanStatus(scanID string) (*model.ScanResult, error) {
	return a.store.GetScanResult(scanID)
}

// GetScanSummary returns the notification-facing totals for a scan.
func (a *App) GetScanSummary(scanID string) (*model.ScanSummary, error) {
	sr, err := a.store.GetScanResult(scanID)
	if err != nil {
		return nil, err
	}
	if sr == nil {
		return nil, fmt.Errorf("scan %s not found", scanID)
	}
	return &model.ScanSummary{
		ScanID:  sr.ID,
		Total:   sr.FilesScanned,
		Changed: sr.FilesChanged,
		New:     sr.FilesNew,
		Deleted: sr.FilesDeleted,
	}, nil
}

// GetHistory returns the most recent scans, newest first.
func (a *App) GetHistory(limit int) ([]*model.ScanResult, error) {
	return a.store.ListScanResults(limit)
}

// GetFileRecords returns all records owned by a scan.
func (a *App) GetFileRecords(scanID string) ([]*model.FileRecord, error) {
	return a.store.FileRecordsByScan(scanID)
}

// GetDiff returns the stored diff content for one file of one scan.
func (a *App) GetDiff(scanID, path string) (string, error) {
	records, err := a.store.FileRecordsByScan(scanID)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if rec.FilePath == path {
			if rec.DiffContent == "" {
				return "", fmt.Errorf("no diff recorded for %s (status %s)", path, rec.Status)
			}
			return rec.DiffContent, nil
		}
	}
	return "", fmt.Errorf("no record for %s in scan %s", path, scanID)
}

// MarkBaseline repoints the baseline at the given scan.
func (a *App) MarkBaseline(scanID string) error {
	return a.store.SetBaseline(scanID)
}

// Prune runs one retention sweep.
func (a *App) Prune(ctx context.Context) (*retention.Result, error) {
	return a.retention.Prune(ctx)
}

// CleanupCache removes expired content-cache entries.
func (a *App) CleanupCache() (int64, error) {
	return a.cache.CleanupExpired()
}

// Watch runs the long-lived mode: filesystem-triggered scans, scheduled
// scans when an interval is configured, and the periodic retention sweep.
// Blocks until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	sweep := time.Duration(a.cfg.Retention.SweepIntervalHours) * time.Hour
	go a.retention.RunSweeper(ctx, sweep)
	if a.scheduler != nil {
		go a.scheduler.Run(ctx)
	}

	debounce := time.Duration(a.cfg.Schedule.DebounceSeconds) * time.Second
	watcher := schedule.NewWatcher(a.cfg.RootDir, debounce, a.scanner, a.logger)
	return watcher.Run(ctx)
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
