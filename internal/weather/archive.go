package weather

import (
	"context"
	"time"
)

// Store is the contract the in-memory archive (and any future persistent store) must satisfy.
type Store interface {
	SaveRecord(rec Record) error
	GetLatest() (Record, error)
	// GetRange returns records with from < time_ts <= to, oldest first.
	GetRange(from, to time.Time) ([]Record, error)
}

// RecordListener receives every newly archived record.
type RecordListener interface {
	NewArchiveRecord(rec Record)
}

// Augmenter enriches a record before it is formatted for upload.
type Augmenter interface {
	Augment(ctx context.Context, rec Record) (Record, error)
}

// AugmenterFunc adapts a plain function to Augmenter.
type AugmenterFunc func(ctx context.Context, rec Record) (Record, error)

func (f AugmenterFunc) Augment(ctx context.Context, rec Record) (Record, error) {
	return f(ctx, rec)
}
