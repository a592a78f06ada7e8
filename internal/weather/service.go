package weather

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoTimestamp is returned for records without a time_ts field.
var ErrNoTimestamp = errors.New("record has no time_ts")

// Service archives incoming records and fans them out to listeners.
type Service struct {
	store Store

	mu        sync.RWMutex
	listeners []RecordListener
}

// NewService creates a new Service.
func NewService(store Store) *Service {
	return &Service{
		store: store,
	}
}

// Subscribe registers a listener for newly archived records.
func (s *Service) Subscribe(l RecordListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// AddRecord persists the record and then notifies every listener. Listeners
// must not block; the uploader only enqueues.
func (s *Service) AddRecord(rec Record) error {
	if _, ok := rec.Time(); !ok {
		return ErrNoTimestamp
	}

	if err := s.store.SaveRecord(rec); err != nil {
		return fmt.Errorf("archive record: %w", err)
	}

	s.mu.RLock()
	listeners := make([]RecordListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l.NewArchiveRecord(rec.Clone())
	}
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (Record, error) {
	return s.store.GetLatest()
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]Record, error) {
	return s.store.GetRange(from, to)
}
