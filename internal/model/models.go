package model

import "time"

// ScanStatus is the lifecycle state of a scan execution.
type ScanStatus string

const (
	ScanQueued    ScanStatus = "queued"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

// ScanType records how a scan was triggered.
type ScanType string

const (
	ScanManual    ScanType = "manual"
	ScanScheduled ScanType = "scheduled"
)

// FileStatus is the classification of a file relative to the previous scan.
type FileStatus string

const (
	FileNew       FileStatus = "new"
	FileChanged   FileStatus = "changed"
	FileDeleted   FileStatus = "deleted"
	FileUnchanged FileStatus = "unchanged"
)

// PriorityCritical is the priority level that protects a scan from deletion.
const PriorityCritical = "critical"

// ScanResult is one row per scan execution.
// It is created in queued/running state and finalized exactly once;
// afterwards only soft operations apply (mark-as-baseline, delete).
type ScanResult struct {
	ID           string // UUID
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       ScanStatus
	ScanType     ScanType
	FilesScanned int
	FilesChanged int
	FilesNew     int
	FilesDeleted int
	DurationMS   int64
	MemoryPeak   int64 // heap watermark in bytes, best-effort
	IsBaseline   bool  // computed from the baseline pointer, never stored per-row
	Notes        string
}

// FileRecord is one row per file per scan. It is exclusively owned by its
// ScanResult and cascade-deleted with it.
//
// Invariants:
//   - Checksum is empty only when Status is deleted.
//   - PreviousChecksum is set only when Status is changed or deleted.
//   - DiffContent is set only for changed, non-sensitive, text files.
type FileRecord struct {
	ID               int64
	ScanResultID     string
	FilePath         string // relative to the scan root, never absolute
	FileSize         int64
	Checksum         string // 64 lowercase hex chars (SHA-256)
	Status           FileStatus
	PreviousChecksum string
	IsSensitive      bool
	DiffContent      string
	LastModified     time.Time
	PriorityLevel    string // set by the priority classifier, "" when unclassified
}

// CacheEntry is an encrypted, compressed content blob keyed by
// (file path, checksum), kept only long enough to reconstruct diffs.
type CacheEntry struct {
	FilePath  string
	Checksum  string
	Blob      []byte // ciphertext, gzip-compressed
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PriorityRule maps a path pattern to a priority level.
// Rules are owned by the priority classification collaborator.
type PriorityRule struct {
	ID      int64
	Pattern string
	Level   string
}

// VelocityEvent is one append-only row per observed file change,
// consumed by alerting and the retention engine's protection rules.
type VelocityEvent struct {
	ID         int64
	FilePath   string
	ScanID     string
	Status     FileStatus
	RecordedAt time.Time
}

// ScanSummary is the notification-facing view of a completed scan.
type ScanSummary struct {
	ScanID  string
	Total   int
	Changed int
	New     int
	Deleted int
}
