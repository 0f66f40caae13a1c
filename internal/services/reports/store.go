// Package reports holds synthesized memos in process memory and
// orchestrates their creation.
package reports

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/models"
)

// Store is an in-memory report store. Reports are immutable once inserted
// and are evicted oldest-first when the store exceeds its capacity.
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	reports  map[string]*models.Report
	order    []string // insertion order for capacity eviction
	capacity int      // 0 = unbounded
	logger   arbor.ILogger
}

// NewStore creates a report store. A capacity of 0 disables eviction.
func NewStore(capacity int, logger arbor.ILogger) *Store {
	return &Store{
		reports:  make(map[string]*models.Report),
		order:    make([]string, 0),
		capacity: capacity,
		logger:   logger,
	}
}

// Put inserts a report under a freshly generated identifier and returns it.
// The identifier is random so it cannot be guessed from the ticker or time.
func (s *Store) Put(report *models.Report) string {
	id := common.NewReportID()

	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = id
	s.reports[id] = report
	s.order = append(s.order, id)

	// Evict oldest entries beyond capacity
	if s.capacity > 0 {
		for len(s.order) > s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.reports, oldest)

			if s.logger != nil {
				s.logger.Debug().
					Str("report_id", oldest).
					Msg("Evicted oldest report over capacity")
			}
		}
	}

	return id
}

// Get returns a copy of the report for an identifier, or NotFoundError if
// the identifier was never issued or the report has been evicted. Callers
// get their own copy so the stored report stays immutable.
func (s *Store) Get(id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, &models.NotFoundError{ID: id}
	}

	snapshot := *report
	return &snapshot, nil
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Sweep removes reports older than maxAge and returns how many were
// removed. A maxAge of 0 removes nothing.
func (s *Store) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		report, ok := s.reports[id]
		if !ok {
			continue
		}
		if report.CreatedAt.Before(cutoff) {
			delete(s.reports, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept

	return removed
}
