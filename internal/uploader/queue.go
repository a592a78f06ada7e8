package uploader

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-publisher/internal/weather"
)

// Entry is a queued record.
type Entry struct {
	ID       uuid.UUID
	Record   weather.Record
	Enqueued time.Time
}

// Queue is a FIFO of records shared by any number of producers and a single
// consuming worker. When maxBacklog > 0 the oldest entries are dropped so that
// at most maxBacklog remain; Put never blocks on the consumer.
type Queue struct {
	mu         sync.Mutex
	entries    []Entry
	maxBacklog int
	ready      chan struct{}
}

// NewQueue creates a queue; maxBacklog <= 0 means unbounded.
func NewQueue(maxBacklog int) *Queue {
	return &Queue{
		maxBacklog: maxBacklog,
		ready:      make(chan struct{}, 1),
	}
}

// Put appends a record and returns the entries discarded by backlog trimming.
func (q *Queue) Put(rec weather.Record) (Entry, []Entry) {
	e := Entry{
		ID:       uuid.New(),
		Record:   rec,
		Enqueued: time.Now(),
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	var dropped []Entry
	if q.maxBacklog > 0 && len(q.entries) > q.maxBacklog {
		over := len(q.entries) - q.maxBacklog
		dropped = append(dropped, q.entries[:over]...)
		q.entries = append([]Entry(nil), q.entries[over:]...)
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return e, dropped
}

// Get removes and returns the oldest entry, blocking until one is available
// or ctx is done.
func (q *Queue) Get(ctx context.Context) (Entry, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}
		if e, ok := q.TryGet(); ok {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryGet is the non-blocking form of Get.
func (q *Queue) TryGet() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]

	if len(q.entries) > 0 {
		// keep the consumer awake for the rest
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return e, true
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain removes and returns every queued entry.
func (q *Queue) Drain() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}
