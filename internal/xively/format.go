package xively

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-publisher/internal/weather"
)

// PayloadVersion is the Xively feed document version.
const PayloadVersion = "1.0.0"

// timeLayout is the datapoint timestamp format, always UTC.
const timeLayout = "2006-01-02T15:04:05Z"

type Datapoint struct {
	At    string `json:"at"`
	Value string `json:"value"`
}

type Datastream struct {
	ID         string      `json:"id"`
	Datapoints []Datapoint `json:"datapoints"`
}

// Payload is the body of a feed update.
type Payload struct {
	Version     string       `json:"version"`
	Datastreams []Datastream `json:"datastreams"`
}

// fields lists the uploaded observations and their value formats.
var fields = []struct {
	name   string
	format string
}{
	{weather.FieldBarometer, "%.3f"},     // inHg
	{weather.FieldOutTemp, "%.1f"},       // F
	{weather.FieldOutHumidity, "%03.0f"}, // %
	{weather.FieldWindSpeed, "%.2f"},     // mph
	{weather.FieldWindDir, "%03.0f"},     // compass degree
	{weather.FieldWindGust, "%.2f"},      // mph
	{weather.FieldDewpoint, "%.1f"},      // F
	{weather.FieldRain24, "%.2f"},        // in
	{weather.FieldHourRain, "%.2f"},      // in
	{weather.FieldDayRain, "%.2f"},       // in
	{weather.FieldRadiation, "%.2f"},     // W/m^2
	{weather.FieldUV, "%.2f"},
}

// Fields returns the names of the observations that are uploaded.
func Fields() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.name
	}
	return out
}

// Format builds the feed update for a record. Stream ids are prefixed with
// "<station>_" when station is not empty; the caller escapes station.
// It returns nil when the record carries none of the uploaded fields.
func Format(rec weather.Record, station string) (*Payload, error) {
	ts, ok := rec.Time()
	if !ok {
		return nil, weather.ErrNoTimestamp
	}
	at := FormatTime(ts)

	var streams []Datastream
	for _, f := range fields {
		v, ok := rec.Get(f.name)
		if !ok {
			continue
		}
		id := f.name
		if station != "" {
			id = station + "_" + f.name
		}
		streams = append(streams, Datastream{
			ID:         id,
			Datapoints: []Datapoint{{At: at, Value: fmt.Sprintf(f.format, v)}},
		})
	}

	if len(streams) == 0 {
		return nil, nil
	}
	return &Payload{
		Version:     PayloadVersion,
		Datastreams: streams,
	}, nil
}

// FormatTime renders a timestamp the way datapoints carry it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
