// Package retention implements the tiered aging policy over historical
// scans: recent scans keep full diffs, older scans are stripped to
// summary-only records, and scans past the outer horizon are deleted,
// optionally archived first.
package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"filesentry/internal/model"
	"filesentry/internal/scan"
)

// Store is the persistence surface the sweep operates on. It only ever
// touches closed historical scans, never the currently running one.
type Store interface {
	BaselineScanID() (string, error)
	ListClosedScansBefore(cutoff time.Time) ([]*model.ScanResult, error)
	FileRecordsByScan(scanID string) ([]*model.FileRecord, error)
	HasCriticalRecords(scanID string) (bool, error)
	StripDiffContent(scanID string) (int64, error)
	DeleteScanResult(id string) error
}

// CacheCleaner removes expired content-cache entries. Optional.
type CacheCleaner interface {
	CleanupExpired() (int64, error)
}

// Archiver receives a scan's full export before the scan is deleted.
// Optional; without one, expired scans are deleted without a copy.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// Result summarizes one prune sweep.
type Result struct {
	ScansStripped int
	DiffsStripped int64
	ScansArchived int
	ScansDeleted  int
	CacheRemoved  int64
}

// Engine runs the sweep. Safe to invoke repeatedly; every operation is
// idempotent.
type Engine struct {
	store    Store
	cache    CacheCleaner
	archiver Archiver
	clock    scan.Clock
	logger   scan.Logger

	tier2Days    int
	tier3Days    int
	keepBaseline bool
}

// NewEngine creates a retention engine. cache and archiver may be nil.
func NewEngine(store Store, cache CacheCleaner, archiver Archiver,
	clock scan.Clock, logger scan.Logger, tier2Days, tier3Days int, keepBaseline bool) (*Engine, error) {
	if tier3Days < tier2Days {
		return nil, fmt.Errorf("tier3 horizon (%d days) is shorter than tier2 (%d days)", tier3Days, tier2Days)
	}
	return &Engine{
		store:        store,
		cache:        cache,
		archiver:     archiver,
		clock:        clock,
		logger:       logger,
		tier2Days:    tier2Days,
		tier3Days:    tier3Days,
		keepBaseline: keepBaseline,
	}, nil
}

// Prune applies the tier policy once. Per-scan failures are collected and
// the sweep continues; a partially failed sweep reports what it did finish.
func (e *Engine) Prune(ctx context.Context) (*Result, error) {
	now := e.clock.Now()
	tier2Cutoff := now.AddDate(0, 0, -e.tier2Days)
	tier3Cutoff := now.AddDate(0, 0, -e.tier3Days)

	baselineID, err := e.store.BaselineScanID()
	if err != nil {
		return nil, fmt.Errorf("reading baseline pointer: %w", err)
	}

	scans, err := e.store.ListClosedScansBefore(tier2Cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing prunable scans: %w", err)
	}

	result := &Result{}
	var errs error
	for _, sr := range scans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if e.keepBaseline && sr.ID == baselineID {
			continue
		}

		// Deletion is decided first so the archive export still carries
		// full diff content. Critical scans fall through to stripping.
		if sr.StartedAt.Before(tier3Cutoff) {
			critical, err := e.store.HasCriticalRecords(sr.ID)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("checking scan %s: %w", sr.ID, err))
				continue
			}
			if !critical {
				if e.archiver != nil {
					if err := e.archive(ctx, sr); err != nil {
						// Never delete what we failed to copy out. The scan is
						// retained untouched until the next sweep retries.
						errs = multierror.Append(errs, fmt.Errorf("archiving scan %s: %w", sr.ID, err))
						continue
					}
					result.ScansArchived++
				}
				if err := e.store.DeleteScanResult(sr.ID); err != nil {
					errs = multierror.Append(errs, fmt.Errorf("deleting scan %s: %w", sr.ID, err))
					continue
				}
				result.ScansDeleted++
				e.logger.Info("expired scan deleted", "scan_id", sr.ID, "started_at", sr.StartedAt)
				continue
			}
			e.logger.Debug("expired scan protected by critical records", "scan_id", sr.ID)
		}

		stripped, err := e.store.StripDiffContent(sr.ID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("stripping scan %s: %w", sr.ID, err))
			continue
		}
		if stripped > 0 {
			result.ScansStripped++
			result.DiffsStripped += stripped
			e.logger.Debug("diff content stripped", "scan_id", sr.ID, "records", stripped)
		}
	}

	if e.cache != nil {
		removed, err := e.cache.CleanupExpired()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cleaning cache: %w", err))
		}
		result.CacheRemoved = removed
	}

	return result, errs
}

// RunSweeper prunes on a fixed interval until ctx is cancelled. Failures
// are logged and retried on the next tick; they never propagate.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := e.Prune(ctx)
			if err != nil {
				e.logger.Error("prune sweep failed", "error", err)
				continue
			}
			if result.ScansStripped > 0 || result.ScansDeleted > 0 || result.CacheRemoved > 0 {
				e.logger.Info("prune sweep finished",
					"stripped", result.ScansStripped,
					"deleted", result.ScansDeleted,
					"archived", result.ScansArchived,
					"cache_removed", result.CacheRemoved,
				)
			}
		}
	}
}

// scanExport is the archive payload for one deleted scan.
type scanExport struct {
	Scan    *model.ScanResult   `json:"scan"`
	Records []*model.FileRecord `json:"records"`
}

func (e *Engine) archive(ctx context.Context, sr *model.ScanResult) error {
	records, err := e.store.FileRecordsByScan(sr.ID)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	data, err := json.MarshalIndent(&scanExport{Scan: sr, Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	name := fmt.Sprintf("scans/%s.json", sr.ID)
	if err := e.archiver.Archive(ctx, name, data); err != nil {
		return err
	}
	e.logger.Debug("scan archived", "scan_id", sr.ID, "object", name)
	return nil
}
