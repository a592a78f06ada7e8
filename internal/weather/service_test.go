package weather_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-publisher/internal/store"
	"github.com/i474232898/weather-publisher/internal/weather"
)

type recordingListener struct {
	mu      sync.Mutex
	records []weather.Record
}

func (l *recordingListener) NewArchiveRecord(rec weather.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

func TestService_AddRecordArchivesAndNotifies(t *testing.T) {
	memStore := store.NewMemoryStore(0, 0)
	svc := weather.NewService(memStore)

	l1, l2 := &recordingListener{}, &recordingListener{}
	svc.Subscribe(l1)
	svc.Subscribe(l2)

	rec := weather.NewRecord(time.Unix(1700000000, 0), map[string]float64{weather.FieldOutTemp: 55})
	require.NoError(t, svc.AddRecord(rec))

	latest, err := svc.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, 55.0, latest[weather.FieldOutTemp])

	require.Len(t, l1.records, 1)
	require.Len(t, l2.records, 1)

	// listeners get their own copy
	l1.records[0][weather.FieldOutTemp] = 0
	assert.Equal(t, 55.0, l2.records[0][weather.FieldOutTemp])
}

func TestService_AddRecordWithoutTimestamp(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(0, 0))
	l := &recordingListener{}
	svc.Subscribe(l)

	err := svc.AddRecord(weather.Record{weather.FieldOutTemp: 10})
	assert.ErrorIs(t, err, weather.ErrNoTimestamp)
	assert.Empty(t, l.records)
}
