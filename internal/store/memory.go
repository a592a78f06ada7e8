package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-publisher/internal/weather"
)

var (
	// ErrNotFound is returned when the archive holds no records.
	ErrNotFound = errors.New("no archived records")
)

// MemoryStore is a concurrency-safe in-memory archive of weather records,
// kept sorted by timestamp.
type MemoryStore struct {
	mu sync.RWMutex

	records []weather.Record

	// retention configuration
	maxHistory int           // max number of records
	maxAge     time.Duration // optional max age of records

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRecord inserts a record and enforces retention. A record with the same
// timestamp as an archived one replaces it.
func (s *MemoryStore) SaveRecord(rec weather.Record) error {
	ts, ok := rec.Time()
	if !ok {
		return weather.ErrNoTimestamp
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.records), func(i int) bool {
		t, _ := s.records[i].Time()
		return !t.Before(ts)
	})
	if i < len(s.records) {
		if t, _ := s.records[i].Time(); t.Equal(ts) {
			s.records[i] = rec.Clone()
			return nil
		}
	}
	s.records = append(s.records, nil)
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = rec.Clone()

	s.enforceRetention()
	return nil
}

// Prune applies age retention without inserting anything and reports how many
// records were removed.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records)
	s.enforceRetention()
	return before - len(s.records)
}

// Len returns the number of archived records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) enforceRetention() {
	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.records) > s.maxHistory {
		over := len(s.records) - s.maxHistory
		s.records = s.records[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := sort.Search(len(s.records), func(i int) bool {
			t, _ := s.records[i].Time()
			return !t.Before(cutoff)
		})
		if i > 0 {
			s.records = s.records[i:]
		}
	}
}

// GetLatest returns the most recent record.
func (s *MemoryStore) GetLatest() (weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, ErrNotFound
	}
	return s.records[len(s.records)-1].Clone(), nil
}

// GetRange returns copies of the records with from < time_ts <= to, oldest
// first. An empty range is not an error.
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Record
	for _, rec := range s.records {
		ts, _ := rec.Time()
		if ts.After(from) && !ts.After(to) {
			result = append(result, rec.Clone())
		}
	}
	return result, nil
}
