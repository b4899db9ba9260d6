package testutil

import (
	"fmt"
	"sync"

	"filesentry/internal/model"
)

// MemStore is an in-memory scan.Store for tests. It mirrors the SQLite
// store's semantics: copies in, copies out, baseline kept as a pointer.
type MemStore struct {
	mu         sync.Mutex
	scans      map[string]*model.ScanResult
	order      []string // insertion order of scan IDs
	records    map[string][]*model.FileRecord
	baselineID string
	nextRecID  int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		scans:   make(map[string]*model.ScanResult),
		records: make(map[string][]*model.FileRecord),
	}
}

func (s *MemStore) CreateScanResult(sr *model.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[sr.ID]; ok {
		return fmt.Errorf("scan %s already exists", sr.ID)
	}
	cp := *sr
	s.scans[sr.ID] = &cp
	s.order = append(s.order, sr.ID)
	return nil
}

func (s *MemStore) UpdateScanStatus(id string, status model.ScanStatus, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.scans[id]
	if !ok {
		return fmt.Errorf("scan %s not found", id)
	}
	sr.Status = status
	if notes != "" {
		sr.Notes = notes
	}
	return nil
}

func (s *MemStore) FinalizeScanResult(sr *model.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[sr.ID]; !ok {
		return fmt.Errorf("scan %s not found", sr.ID)
	}
	cp := *sr
	s.scans[sr.ID] = &cp
	return nil
}

func (s *MemStore) GetScanResult(id string) (*model.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.scans[id]
	if !ok {
		return nil, nil
	}
	cp := *sr
	cp.IsBaseline = id == s.baselineID
	return &cp, nil
}

func (s *MemStore) LatestCompletedScan() (*model.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		sr := s.scans[s.order[i]]
		if sr.Status == model.ScanCompleted {
			cp := *sr
			cp.IsBaseline = sr.ID == s.baselineID
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) BaselineScanID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baselineID, nil
}

func (s *MemStore) SetBaseline(scanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[scanID]; !ok {
		return fmt.Errorf("scan %s not found", scanID)
	}
	s.baselineID = scanID
	return nil
}

func (s *MemStore) InsertFileRecords(scanID string, records []*model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[scanID]; !ok {
		return fmt.Errorf("scan %s not found", scanID)
	}
	for _, rec := range records {
		cp := *rec
		s.nextRecID++
		cp.ID = s.nextRecID
		cp.ScanResultID = scanID
		s.records[scanID] = append(s.records[scanID], &cp)
	}
	return nil
}

func (s *MemStore) FileRecordsByScan(scanID string) ([]*model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.FileRecord, 0, len(s.records[scanID]))
	for _, rec := range s.records[scanID] {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// ScanIDs returns scan IDs in creation order.
func (s *MemStore) ScanIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
