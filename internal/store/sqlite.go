// Package store persists scan results, file records, cache entries,
// priority rules, and velocity events in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"filesentry/internal/model"
	"filesentry/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements every persistence interface of the engine over a
// single SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and migrates it to
// the latest schema version. path can be ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	st := NewSQLiteStoreFromDB(db)
	st.path = path
	return st, nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for the connection's configuration and schema.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the engine relies on. Exported for tools and tests.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys drive the cascade from scan_results to file_records;
	// SQLite ships with them OFF.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// PRAGMAs apply per connection, and a pooled ":memory:" path opens a
	// fresh database per connection. One connection keeps both stable.
	db.SetMaxOpenConns(1)

	return db, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the raw connection for migration status checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// ScanResult operations

const scanResultColumns = `s.id, s.started_at, s.finished_at, s.status, s.scan_type,
	s.files_scanned, s.files_changed, s.files_new, s.files_deleted,
	s.duration_ms, s.memory_peak, s.notes,
	EXISTS(SELECT 1 FROM baseline_pointer b WHERE b.scan_result_id = s.id)`

func (s *SQLiteStore) CreateScanResult(sr *model.ScanResult) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_results (id, started_at, status, scan_type, notes)
		VALUES (?, ?, ?, ?, ?)`,
		sr.ID, sr.StartedAt, string(sr.Status), string(sr.ScanType), sr.Notes)
	if err != nil {
		return fmt.Errorf("inserting scan result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateScanStatus(id string, status model.ScanStatus, notes string) error {
	res, err := s.db.Exec(`
		UPDATE scan_results
		SET status = ?, notes = CASE WHEN ? = '' THEN notes ELSE ? END
		WHERE id = ?`,
		string(status), notes, notes, id)
	if err != nil {
		return fmt.Errorf("updating scan status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating scan status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("scan %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) FinalizeScanResult(sr *model.ScanResult) error {
	var finished sql.NullTime
	if sr.FinishedAt != nil {
		finished = sql.NullTime{Time: *sr.FinishedAt, Valid: true}
	}
	res, err := s.db.Exec(`
		UPDATE scan_results
		SET finished_at = ?, status = ?, files_scanned = ?, files_changed = ?,
		    files_new = ?, files_deleted = ?, duration_ms = ?, memory_peak = ?,
		    notes = ?
		WHERE id = ?`,
		finished, string(sr.Status), sr.FilesScanned, sr.FilesChanged,
		sr.FilesNew, sr.FilesDeleted, sr.DurationMS, sr.MemoryPeak,
		sr.Notes, sr.ID)
	if err != nil {
		return fmt.Errorf("finalizing scan result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalizing scan result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("scan %s not found", sr.ID)
	}
	return nil
}

func (s *SQLiteStore) GetScanResult(id string) (*model.ScanResult, error) {
	row := s.db.QueryRow(`SELECT `+scanResultColumns+` FROM scan_results s WHERE s.id = ?`, id)
	sr, err := scanResultFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting scan result: %w", err)
	}
	return sr, nil
}

func (s *SQLiteStore) LatestCompletedScan() (*model.ScanResult, error) {
	row := s.db.QueryRow(`
		SELECT ` + scanResultColumns + `
		FROM scan_results s
		WHERE s.status = 'completed'
		ORDER BY s.started_at DESC, s.id DESC
		LIMIT 1`)
	sr, err := scanResultFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest completed scan: %w", err)
	}
	return sr, nil
}

// ListScanResults returns scans newest-first. limit <= 0 returns all.
func (s *SQLiteStore) ListScanResults(limit int) ([]*model.ScanResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT `+scanResultColumns+`
		FROM scan_results s
		ORDER BY s.started_at DESC, s.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan results: %w", err)
	}
	defer rows.Close()
	return collectScanResults(rows)
}

// ListClosedScansBefore returns scans in a terminal state started before
// cutoff, oldest first. The retention sweep iterates these.
func (s *SQLiteStore) ListClosedScansBefore(cutoff time.Time) ([]*model.ScanResult, error) {
	rows, err := s.db.Query(`
		SELECT `+scanResultColumns+`
		FROM scan_results s
		WHERE s.status IN ('completed', 'failed', 'cancelled') AND s.started_at < ?
		ORDER BY s.started_at ASC, s.id ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing closed scans: %w", err)
	}
	defer rows.Close()
	return collectScanResults(rows)
}

// DeleteScanResult removes a scan and, via cascade, all its file records.
func (s *SQLiteStore) DeleteScanResult(id string) error {
	if _, err := s.db.Exec(`DELETE FROM scan_results WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting scan result: %w", err)
	}
	return nil
}

// Baseline pointer operations

func (s *SQLiteStore) BaselineScanID() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT scan_result_id FROM baseline_pointer WHERE id = 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("reading baseline pointer: %w", err)
	}
	return id, nil
}

// SetBaseline atomically repoints the baseline at scanID. Only completed
// scans can become the baseline.
func (s *SQLiteStore) SetBaseline(scanID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	if err := tx.QueryRow(`SELECT status FROM scan_results WHERE id = ?`, scanID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("scan %s not found", scanID)
		}
		return fmt.Errorf("checking scan status: %w", err)
	}
	if status != string(model.ScanCompleted) {
		return fmt.Errorf("scan %s is %s, only completed scans can be baseline", scanID, status)
	}

	_, err = tx.Exec(`
		INSERT INTO baseline_pointer (id, scan_result_id) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET scan_result_id = excluded.scan_result_id`, scanID)
	if err != nil {
		return fmt.Errorf("setting baseline pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FileRecord operations

func (s *SQLiteStore) InsertFileRecords(scanID string, records []*model.FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO file_records (scan_result_id, file_path, file_size, checksum,
			status, previous_checksum, is_sensitive, diff_content, last_modified,
			priority_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var diff sql.NullString
		if rec.DiffContent != "" {
			diff = sql.NullString{String: rec.DiffContent, Valid: true}
		}
		var modified sql.NullTime
		if !rec.LastModified.IsZero() {
			modified = sql.NullTime{Time: rec.LastModified, Valid: true}
		}
		if _, err := stmt.Exec(scanID, rec.FilePath, rec.FileSize, rec.Checksum,
			string(rec.Status), rec.PreviousChecksum, rec.IsSensitive, diff,
			modified, rec.PriorityLevel); err != nil {
			return fmt.Errorf("inserting file record %s: %w", rec.FilePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FileRecordsByScan(scanID string) ([]*model.FileRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, scan_result_id, file_path, file_size, checksum, status,
		       previous_checksum, is_sensitive, diff_content, last_modified,
		       priority_level
		FROM file_records
		WHERE scan_result_id = ?
		ORDER BY file_path ASC`, scanID)
	if err != nil {
		return nil, fmt.Errorf("listing file records: %w", err)
	}
	defer rows.Close()

	var records []*model.FileRecord
	for rows.Next() {
		var (
			rec      model.FileRecord
			status   string
			diff     sql.NullString
			modified sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.ScanResultID, &rec.FilePath, &rec.FileSize,
			&rec.Checksum, &status, &rec.PreviousChecksum, &rec.IsSensitive,
			&diff, &modified, &rec.PriorityLevel); err != nil {
			return nil, fmt.Errorf("scanning file record: %w", err)
		}
		rec.Status = model.FileStatus(status)
		rec.DiffContent = diff.String
		if modified.Valid {
			rec.LastModified = modified.Time
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing file records: %w", err)
	}
	return records, nil
}

// HasCriticalRecords reports whether the scan owns at least one file record
// with critical priority.
func (s *SQLiteStore) HasCriticalRecords(scanID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM file_records
			WHERE scan_result_id = ? AND priority_level = ?
		)`, scanID, model.PriorityCritical).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking critical records: %w", err)
	}
	return exists, nil
}

// StripDiffContent nulls out diff_content for every record of the scan,
// returning how many rows carried one.
func (s *SQLiteStore) StripDiffContent(scanID string) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE file_records SET diff_content = NULL
		WHERE scan_result_id = ? AND diff_content IS NOT NULL`, scanID)
	if err != nil {
		return 0, fmt.Errorf("stripping diff content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stripping diff content: %w", err)
	}
	return n, nil
}

// Content cache operations

func (s *SQLiteStore) GetCacheEntry(path, checksum string) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	err := s.db.QueryRow(`
		SELECT file_path, checksum, blob, expires_at, created_at
		FROM content_cache
		WHERE file_path = ? AND checksum = ?`, path, checksum).
		Scan(&entry.FilePath, &entry.Checksum, &entry.Blob, &entry.ExpiresAt, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteStore) PutCacheEntry(entry *model.CacheEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO content_cache (file_path, checksum, blob, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.FilePath, entry.Checksum, entry.Blob, entry.ExpiresAt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RefreshCacheEntry(path, checksum string, expiresAt time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE content_cache SET expires_at = ?
		WHERE file_path = ? AND checksum = ?`, expiresAt, path, checksum)
	if err != nil {
		return false, fmt.Errorf("refreshing cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("refreshing cache entry: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) DeleteCacheEntry(path, checksum string) error {
	if _, err := s.db.Exec(`
		DELETE FROM content_cache WHERE file_path = ? AND checksum = ?`, path, checksum); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteExpiredCacheEntries(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM content_cache WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting expired cache entries: %w", err)
	}
	return n, nil
}

// Priority rule and velocity log operations

func (s *SQLiteStore) ListPriorityRules() ([]*model.PriorityRule, error) {
	rows, err := s.db.Query(`SELECT id, pattern, level FROM priority_rules ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing priority rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.PriorityRule
	for rows.Next() {
		var rule model.PriorityRule
		if err := rows.Scan(&rule.ID, &rule.Pattern, &rule.Level); err != nil {
			return nil, fmt.Errorf("scanning priority rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing priority rules: %w", err)
	}
	return rules, nil
}

func (s *SQLiteStore) InsertPriorityRule(pattern, level string) (*model.PriorityRule, error) {
	res, err := s.db.Exec(`
		INSERT INTO priority_rules (pattern, level) VALUES (?, ?)
		ON CONFLICT(pattern) DO UPDATE SET level = excluded.level`, pattern, level)
	if err != nil {
		return nil, fmt.Errorf("inserting priority rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("inserting priority rule: %w", err)
	}
	return &model.PriorityRule{ID: id, Pattern: pattern, Level: level}, nil
}

func (s *SQLiteStore) InsertVelocityEvent(ev *model.VelocityEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO velocity_log (file_path, scan_id, status, recorded_at)
		VALUES (?, ?, ?, ?)`,
		ev.FilePath, ev.ScanID, string(ev.Status), ev.RecordedAt)
	if err != nil {
		return fmt.Errorf("inserting velocity event: %w", err)
	}
	return nil
}

// RecentVelocityEvents returns events for a path recorded at or after since,
// newest first.
func (s *SQLiteStore) RecentVelocityEvents(path string, since time.Time) ([]*model.VelocityEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, file_path, scan_id, status, recorded_at
		FROM velocity_log
		WHERE file_path = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC`, path, since)
	if err != nil {
		return nil, fmt.Errorf("listing velocity events: %w", err)
	}
	defer rows.Close()

	var events []*model.VelocityEvent
	for rows.Next() {
		var (
			ev     model.VelocityEvent
			status string
		)
		if err := rows.Scan(&ev.ID, &ev.FilePath, &ev.ScanID, &status, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning velocity event: %w", err)
		}
		ev.Status = model.FileStatus(status)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing velocity events: %w", err)
	}
	return events, nil
}

// row scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResultFromRow(row rowScanner) (*model.ScanResult, error) {
	var (
		sr       model.ScanResult
		finished sql.NullTime
		status   string
		scanType string
	)
	err := row.Scan(&sr.ID, &sr.StartedAt, &finished, &status, &scanType,
		&sr.FilesScanned, &sr.FilesChanged, &sr.FilesNew, &sr.FilesDeleted,
		&sr.DurationMS, &sr.MemoryPeak, &sr.Notes, &sr.IsBaseline)
	if err != nil {
		return nil, err
	}
	sr.Status = model.ScanStatus(status)
	sr.ScanType = model.ScanType(scanType)
	if finished.Valid {
		sr.FinishedAt = &finished.Time
	}
	return &sr, nil
}

func collectScanResults(rows *sql.Rows) ([]*model.ScanResult, error) {
	var results []*model.ScanResult
	for rows.Next() {
		sr, err := scanResultFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scan result: %w", err)
		}
		results = append(results, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing scan results: %w", err)
	}
	return results, nil
}
