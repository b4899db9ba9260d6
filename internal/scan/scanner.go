// Package scan implements the scan orchestrator: it walks the target tree,
// classifies every file against the previous scan's record set, generates
// diffs for changed text files, and persists the resulting records.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"filesentry/internal/checksum"
	"filesentry/internal/diff"
	"filesentry/internal/model"
)

// ErrScanInProgress is returned when a scan is requested while another scan
// holds the run lock.
var ErrScanInProgress = errors.New("a scan is already running")

// Scanner drives end-to-end scan executions against a single root directory.
// At most one scan runs at a time; Execute fails fast instead of queueing
// behind the lock.
type Scanner struct {
	root       string
	store      Store
	settings   Settings
	access     AccessPolicy
	classifier PriorityClassifier // optional
	cache      ContentCache
	text       *TextClassifier
	clock      Clock
	idgen      IDGenerator
	logger     Logger

	mu sync.Mutex
}

// NewScanner creates a scanner for the tree rooted at root. The classifier
// may be nil, in which case records carry no priority level and no velocity
// events are emitted.
func NewScanner(root string, store Store, settings Settings, access AccessPolicy,
	classifier PriorityClassifier, cache ContentCache, text *TextClassifier,
	clock Clock, idgen IDGenerator, logger Logger) *Scanner {
	return &Scanner{
		root:       root,
		store:      store,
		settings:   settings,
		access:     access,
		classifier: classifier,
		cache:      cache,
		text:       text,
		clock:      clock,
		idgen:      idgen,
		logger:     logger,
	}
}

// Enqueue creates a scan in the queued state without executing it. A
// background worker is expected to pick it up via Execute.
func (s *Scanner) Enqueue(scanType model.ScanType) (*model.ScanResult, error) {
	sr := &model.ScanResult{
		ID:        s.idgen.New(),
		StartedAt: s.clock.Now(),
		Status:    model.ScanQueued,
		ScanType:  scanType,
	}
	if err := s.store.CreateScanResult(sr); err != nil {
		return nil, fmt.Errorf("creating scan result: %w", err)
	}
	return sr, nil
}

// Run executes a scan synchronously. This is the entry point used by the
// CLI, the scheduler, and the watcher. The run lock is taken before the
// queued row is created, so a rejected Run leaves no record behind.
func (s *Scanner) Run(ctx context.Context, scanType model.ScanType) (*model.ScanResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.mu.Unlock()

	sr, err := s.Enqueue(scanType)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, sr)
}

// Execute runs a previously enqueued scan to a terminal state. It returns
// ErrScanInProgress without touching the record if another scan holds the
// run lock; the caller owns retrying the queued row.
func (s *Scanner) Execute(ctx context.Context, sr *model.ScanResult) (*model.ScanResult, error) {
	if !s.mu.TryLock() {
		return sr, ErrScanInProgress
	}
	defer s.mu.Unlock()
	return s.execute(ctx, sr)
}

// execute drives a scan to its terminal state. The caller holds the run lock.
func (s *Scanner) execute(ctx context.Context, sr *model.ScanResult) (*model.ScanResult, error) {
	sr.Status = model.ScanRunning
	if err := s.store.UpdateScanStatus(sr.ID, model.ScanRunning, ""); err != nil {
		return sr, fmt.Errorf("marking scan running: %w", err)
	}
	s.logger.Info("scan started", "scan_id", sr.ID, "type", sr.ScanType, "root", s.root)

	runErr := s.run(ctx, sr)

	sr.DurationMS = s.clock.Now().Sub(sr.StartedAt).Milliseconds()
	sr.MemoryPeak = heapWatermark()
	finished := s.clock.Now()
	sr.FinishedAt = &finished

	switch {
	case runErr == nil:
		sr.Status = model.ScanCompleted
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		sr.Status = model.ScanCancelled
		sr.Notes = "scan cancelled; partial results retained"
	default:
		sr.Status = model.ScanFailed
		sr.Notes = runErr.Error()
	}

	if err := s.store.FinalizeScanResult(sr); err != nil {
		return sr, fmt.Errorf("finalizing scan result: %w", err)
	}

	if sr.Status == model.ScanCompleted {
		if err := s.adoptBaselineIfFirst(sr); err != nil {
			s.logger.Warn("baseline adoption failed", "scan_id", sr.ID, "error", err)
		}
	}

	s.logger.Info("scan finished",
		"scan_id", sr.ID,
		"status", sr.Status,
		"scanned", sr.FilesScanned,
		"changed", sr.FilesChanged,
		"new", sr.FilesNew,
		"deleted", sr.FilesDeleted,
		"duration_ms", sr.DurationMS,
	)
	if runErr != nil {
		return sr, runErr
	}
	return sr, nil
}

// run executes the walk-classify-persist body. Any returned error is
// scan-level: a context error produces cancelled, everything else failed.
func (s *Scanner) run(ctx context.Context, sr *model.ScanResult) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("scan root unavailable: %w", err)
	}

	filter, errs := NewFilter(s.settings.GetScanFileTypes(), s.settings.GetExcludePatterns(), s.settings.GetMaxFileSize(), s.text)
	for _, err := range errs {
		s.logger.Warn("exclude pattern dropped", "error", err)
	}

	baseline, err := s.loadBaseline(filter)
	if err != nil {
		return fmt.Errorf("loading comparison baseline: %w", err)
	}

	engine := checksum.NewEngine(s.settings.GetMaxFileSize())
	ttl := time.Duration(s.settings.GetRetentionPeriodDays()) * 24 * time.Hour

	seen := make(map[string]bool, len(baseline))

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return fmt.Errorf("enumerating scan root: %w", err)
			}
			s.logger.Warn("subtree skipped", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		info, err := d.Info()
		if err != nil {
			s.logger.Debug("file skipped", "path", relPath, "reason", err)
			return nil
		}
		if !filter.Includes(relPath, info.Size()) {
			return nil
		}
		if filter.LooksBinaryExecutable(path, relPath) {
			s.logger.Debug("file skipped", "path", relPath, "reason", "binary signature")
			return nil
		}

		sum, err := engine.Sum(path)
		if err != nil {
			var skip *checksum.SkipError
			if errors.As(err, &skip) {
				s.logger.Debug("file skipped", "path", relPath, "reason", skip.Reason)
				return nil
			}
			s.logger.Warn("checksum failed", "path", relPath, "error", err)
			return nil
		}
		seen[relPath] = true

		rec := s.classify(relPath, path, sum, info, filter, baseline, ttl)
		return s.persist(sr, rec)
	})
	if walkErr != nil {
		return walkErr
	}

	// Everything left in the baseline was not seen this run. Only files
	// actually gone from disk are deleted; filtered-out survivors are
	// neither deleted nor reported.
	for relPath, prev := range baseline {
		if seen[relPath] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(relPath))); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			s.logger.Warn("deletion check failed", "path", relPath, "error", err)
			continue
		}
		rec := &model.FileRecord{
			FilePath:         relPath,
			FileSize:         prev.FileSize,
			Status:           model.FileDeleted,
			PreviousChecksum: prev.Checksum,
			IsSensitive:      prev.IsSensitive,
			LastModified:     prev.LastModified,
		}
		if err := s.persist(sr, rec); err != nil {
			return err
		}
	}

	return nil
}

// classify produces the FileRecord for one surviving current file.
func (s *Scanner) classify(relPath, absPath, sum string, info fs.FileInfo,
	filter *Filter, baseline map[string]*model.FileRecord, ttl time.Duration) *model.FileRecord {

	rec := &model.FileRecord{
		FilePath:     relPath,
		FileSize:     info.Size(),
		Checksum:     sum,
		LastModified: info.ModTime().UTC(),
	}

	prev, inBaseline := baseline[relPath]
	switch {
	case !inBaseline:
		rec.Status = model.FileNew
		allowed, _ := s.access.IsFileAccessible(relPath)
		rec.IsSensitive = !allowed
		if allowed && filter.IsText(relPath) {
			s.cacheContent(relPath, sum, absPath, ttl)
		}

	case prev.Checksum == sum:
		rec.Status = model.FileUnchanged

	default:
		rec.Status = model.FileChanged
		rec.PreviousChecksum = prev.Checksum
		allowed, reason := s.access.IsFileAccessible(relPath)
		if !allowed {
			rec.IsSensitive = true
			rec.DiffContent = redactionNotice(reason)
		} else if filter.IsText(relPath) {
			rec.DiffContent = s.generateDiff(relPath, absPath, prev.Checksum, sum, ttl)
		}
	}

	if s.classifier != nil {
		if level, ok := s.classifier.Classify(relPath); ok {
			rec.PriorityLevel = level
		}
	}
	return rec
}

// generateDiff reads the current content, fetches the previous version from
// the cache, and produces either a unified diff or the summary fallback.
// The current content is cached either way so the next comparison has it.
func (s *Scanner) generateDiff(relPath, absPath, prevSum, curSum string, ttl time.Duration) string {
	current, err := os.ReadFile(absPath)
	if err != nil {
		s.logger.Warn("diff read failed", "path", relPath, "error", err)
		return changeSummary(prevSum, curSum, 0, 0)
	}
	defer s.cacheContent(relPath, curSum, absPath, ttl)

	previous, ok := s.cache.Get(relPath, prevSum)
	if !ok {
		return changeSummary(prevSum, curSum, int64(len(current)), countLines(current))
	}
	return diff.Unified(string(previous), string(current), relPath)
}

// cacheContent stores the file's current bytes for the next scan's diff.
// Best-effort: failures degrade the next diff to a summary, nothing more.
func (s *Scanner) cacheContent(relPath, sum, absPath string, ttl time.Duration) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		s.logger.Debug("cache read skipped", "path", relPath, "error", err)
		return
	}
	s.cache.Store(relPath, sum, content, ttl, false)
}

// persist writes one record, updates the running totals, and emits a
// velocity event for non-unchanged records. A write failure is scan-level.
func (s *Scanner) persist(sr *model.ScanResult, rec *model.FileRecord) error {
	if err := s.store.InsertFileRecords(sr.ID, []*model.FileRecord{rec}); err != nil {
		return fmt.Errorf("persisting file record for %s: %w", rec.FilePath, err)
	}

	switch rec.Status {
	case model.FileNew:
		sr.FilesScanned++
		sr.FilesNew++
	case model.FileChanged:
		sr.FilesScanned++
		sr.FilesChanged++
	case model.FileUnchanged:
		sr.FilesScanned++
	case model.FileDeleted:
		sr.FilesDeleted++
	}

	if s.classifier != nil && rec.Status != model.FileUnchanged {
		if err := s.classifier.RecordChange(rec.FilePath, sr.ID, rec.Status); err != nil {
			s.logger.Warn("velocity event failed", "path", rec.FilePath, "error", err)
		}
	}
	return nil
}

// loadBaseline builds the comparison set from the most recent completed
// scan. Records deleted in that scan are dropped, so a file reported deleted
// once is not re-reported on every subsequent run. Records whose paths no
// longer pass the current filter are dropped so configuration changes do
// not masquerade as deletions.
func (s *Scanner) loadBaseline(filter *Filter) (map[string]*model.FileRecord, error) {
	latest, err := s.store.LatestCompletedScan()
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return map[string]*model.FileRecord{}, nil
	}

	records, err := s.store.FileRecordsByScan(latest.ID)
	if err != nil {
		return nil, err
	}

	baseline := make(map[string]*model.FileRecord, len(records))
	for _, rec := range records {
		if rec.Status == model.FileDeleted {
			continue
		}
		if !filter.Includes(rec.FilePath, rec.FileSize) {
			continue
		}
		baseline[rec.FilePath] = rec
	}
	return baseline, nil
}

// adoptBaselineIfFirst promotes the scan to baseline when none exists yet.
func (s *Scanner) adoptBaselineIfFirst(sr *model.ScanResult) error {
	current, err := s.store.BaselineScanID()
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	if err := s.store.SetBaseline(sr.ID); err != nil {
		return err
	}
	sr.IsBaseline = true
	s.logger.Info("baseline adopted", "scan_id", sr.ID)
	return nil
}

func redactionNotice(reason string) string {
	if reason == "" {
		reason = "access denied by security policy"
	}
	return fmt.Sprintf("[diff redacted: %s]", reason)
}

// changeSummary is the diff fallback when no previous content is cached.
func changeSummary(prevSum, curSum string, size int64, lines int) string {
	return fmt.Sprintf(
		"content changed (no cached previous version)\nprevious_checksum: %s\ncurrent_checksum: %s\nsize_bytes: %d\nline_count: %d",
		prevSum, curSum, size, lines)
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// heapWatermark samples the heap as a best-effort memory figure for the
// scan row.
func heapWatermark() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}
