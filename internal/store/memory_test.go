package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-publisher/internal/weather"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(offset time.Duration, rain float64) weather.Record {
	return weather.NewRecord(base.Add(offset), map[string]float64{weather.FieldRain: rain})
}

func TestSaveRecord_KeepsOrder(t *testing.T) {
	s := NewMemoryStore(0, 0)

	require.NoError(t, s.SaveRecord(rec(10*time.Minute, 1)))
	require.NoError(t, s.SaveRecord(rec(0, 2)))
	require.NoError(t, s.SaveRecord(rec(5*time.Minute, 3)))

	got, err := s.GetRange(base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0][weather.FieldRain])
	assert.Equal(t, 3.0, got[1][weather.FieldRain])
	assert.Equal(t, 1.0, got[2][weather.FieldRain])
}

func TestSaveRecord_ReplacesSameTimestamp(t *testing.T) {
	s := NewMemoryStore(0, 0)

	require.NoError(t, s.SaveRecord(rec(0, 1)))
	require.NoError(t, s.SaveRecord(rec(0, 7)))

	assert.Equal(t, 1, s.Len())
	latest, err := s.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, 7.0, latest[weather.FieldRain])
}

func TestSaveRecord_NoTimestamp(t *testing.T) {
	s := NewMemoryStore(0, 0)
	err := s.SaveRecord(weather.Record{weather.FieldOutTemp: 20})
	assert.ErrorIs(t, err, weather.ErrNoTimestamp)
}

func TestSaveRecord_MaxHistoryDropsOldest(t *testing.T) {
	s := NewMemoryStore(2, 0)

	require.NoError(t, s.SaveRecord(rec(0, 1)))
	require.NoError(t, s.SaveRecord(rec(time.Minute, 2)))
	require.NoError(t, s.SaveRecord(rec(2*time.Minute, 3)))

	got, err := s.GetRange(base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0][weather.FieldRain])
	assert.Equal(t, 3.0, got[1][weather.FieldRain])
}

func TestPrune_MaxAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return base }

	require.NoError(t, s.SaveRecord(rec(-30*time.Minute, 1)))
	assert.Equal(t, 1, s.Len())

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 0, s.Len())
}

func TestGetLatest_Empty(t *testing.T) {
	s := NewMemoryStore(0, 0)
	_, err := s.GetLatest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRange_ExcludesLowerBound(t *testing.T) {
	s := NewMemoryStore(0, 0)
	require.NoError(t, s.SaveRecord(rec(0, 1)))
	require.NoError(t, s.SaveRecord(rec(time.Hour, 2)))

	got, err := s.GetRange(base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0][weather.FieldRain])
}

func TestGetRange_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore(0, 0)
	require.NoError(t, s.SaveRecord(rec(0, 1)))

	got, err := s.GetRange(base.Add(-time.Minute), base)
	require.NoError(t, err)
	got[0][weather.FieldRain] = 99

	latest, err := s.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, 1.0, latest[weather.FieldRain])
}
