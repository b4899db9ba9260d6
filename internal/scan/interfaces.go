package scan

import (
	"time"

	"filesentry/internal/model"
)

// Store provides the record persistence operations the orchestrator needs.
// All methods should be implemented with appropriate transaction handling.
type Store interface {
	// ScanResult operations

	// CreateScanResult inserts a new scan row in its initial state.
	CreateScanResult(sr *model.ScanResult) error

	// UpdateScanStatus transitions a scan's status and appends notes.
	UpdateScanStatus(id string, status model.ScanStatus, notes string) error

	// FinalizeScanResult records totals, duration, memory watermark, and the
	// terminal status in one update.
	FinalizeScanResult(sr *model.ScanResult) error

	// GetScanResult returns a scan by ID, or nil if absent.
	GetScanResult(id string) (*model.ScanResult, error)

	// LatestCompletedScan returns the most recently completed scan, or nil.
	// Its record set is the default comparison target for the next scan.
	LatestCompletedScan() (*model.ScanResult, error)

	// BaselineScanID returns the current baseline pointer, or "" if unset.
	BaselineScanID() (string, error)

	// SetBaseline atomically repoints the baseline at scanID.
	SetBaseline(scanID string) error

	// FileRecord operations

	// InsertFileRecords appends records to a scan inside one transaction.
	InsertFileRecords(scanID string, records []*model.FileRecord) error

	// FileRecordsByScan returns all records owned by a scan.
	FileRecordsByScan(scanID string) ([]*model.FileRecord, error)
}

// Settings is the resolved configuration the orchestrator consumes.
// It is supplied entirely by the settings collaborator; the orchestrator has
// no hardcoded filter defaults of its own.
type Settings interface {
	GetScanFileTypes() []string
	GetExcludePatterns() []string
	GetMaxFileSize() int64
	GetRetentionPeriodDays() int
	GetRetentionTier2Days() int
	GetRetentionTier3Days() int
}

// AccessPolicy decides whether file content may be read and exposed.
// Paths it refuses are sensitive: never read, cached, diffed, or logged.
type AccessPolicy interface {
	IsFileAccessible(path string) (allowed bool, reason string)
}

// PriorityClassifier annotates records with a priority level and records
// change velocity. Both operations are optional collaborators; a nil
// classifier disables them.
type PriorityClassifier interface {
	// Classify returns the priority level for a path, if any rule matches.
	Classify(path string) (level string, ok bool)

	// RecordChange appends a velocity event for an observed change.
	RecordChange(path, scanID string, status model.FileStatus) error
}

// ContentCache is the content store used to reconstruct diffs across runs.
type ContentCache interface {
	Store(path, checksum string, content []byte, ttl time.Duration, isSensitive bool) bool
	Get(path, checksum string) ([]byte, bool)
}
