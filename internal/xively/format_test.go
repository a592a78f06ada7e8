package xively

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-publisher/internal/weather"
)

func streamsByID(p *Payload) map[string]Datastream {
	out := make(map[string]Datastream, len(p.Datastreams))
	for _, s := range p.Datastreams {
		out[s.ID] = s
	}
	return out
}

func TestFormat_NoRecognizedFields(t *testing.T) {
	rec := weather.Record{weather.FieldTime: 1000000000, "inTemp": 70, weather.FieldRain: 0.1}

	p, err := Format(rec, "")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFormat_OutTemp(t *testing.T) {
	rec := weather.Record{weather.FieldOutTemp: 72.5, weather.FieldTime: 1000000000}

	p, err := Format(rec, "")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "1.0.0", p.Version)
	require.Len(t, p.Datastreams, 1)
	s := p.Datastreams[0]
	assert.Equal(t, "outTemp", s.ID)
	require.Len(t, s.Datapoints, 1)
	assert.Equal(t, "72.5", s.Datapoints[0].Value)
	assert.Equal(t, "2001-09-09T01:46:40Z", s.Datapoints[0].At)
}

func TestFormat_StationPrefix(t *testing.T) {
	rec := weather.Record{weather.FieldOutTemp: 72.5, weather.FieldTime: 1000000000}

	p, err := Format(rec, "home")
	require.NoError(t, err)
	require.Len(t, p.Datastreams, 1)
	assert.Equal(t, "home_outTemp", p.Datastreams[0].ID)
}

func TestFormat_OneStreamPerPresentField(t *testing.T) {
	rec := weather.Record{
		weather.FieldTime:        1700000000,
		weather.FieldBarometer:   30.1234,
		weather.FieldOutHumidity: 72,
		weather.FieldWindDir:     5,
		weather.FieldWindSpeed:   3.456,
		weather.FieldDewpoint:    math.NaN(),
		weather.FieldUV:          2,
		"extraTemp1":             60,
	}

	p, err := Format(rec, "")
	require.NoError(t, err)

	got := streamsByID(p)
	assert.Len(t, got, 5)
	for id, s := range got {
		assert.Len(t, s.Datapoints, 1, id)
		assert.Equal(t, "2023-11-14T22:13:20Z", s.Datapoints[0].At, id)
	}

	assert.Equal(t, "30.123", got["barometer"].Datapoints[0].Value)
	assert.Equal(t, "072", got["outHumidity"].Datapoints[0].Value)
	assert.Equal(t, "005", got["windDir"].Datapoints[0].Value)
	assert.Equal(t, "3.46", got["windSpeed"].Datapoints[0].Value)
	assert.Equal(t, "2.00", got["UV"].Datapoints[0].Value)
	assert.NotContains(t, got, "dewpoint")
	assert.NotContains(t, got, "extraTemp1")
}

func TestFormat_AllFields(t *testing.T) {
	rec := weather.Record{weather.FieldTime: 1700000000}
	for _, f := range Fields() {
		rec[f] = 1
	}

	p, err := Format(rec, "st")
	require.NoError(t, err)

	got := streamsByID(p)
	assert.Len(t, got, len(Fields()))
	for _, f := range Fields() {
		assert.Contains(t, got, "st_"+f)
	}
}

func TestFormat_MissingTimestamp(t *testing.T) {
	_, err := Format(weather.Record{weather.FieldOutTemp: 1}, "")
	assert.ErrorIs(t, err, weather.ErrNoTimestamp)
}
