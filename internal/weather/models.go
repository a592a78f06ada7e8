package weather

import (
	"math"
	"time"
)

// Observation field names as they appear in a Record.
const (
	FieldTime        = "time_ts"
	FieldBarometer   = "barometer"
	FieldOutTemp     = "outTemp"
	FieldOutHumidity = "outHumidity"
	FieldWindSpeed   = "windSpeed"
	FieldWindDir     = "windDir"
	FieldWindGust    = "windGust"
	FieldDewpoint    = "dewpoint"
	FieldRain        = "rain"
	FieldRain24      = "rain24"
	FieldHourRain    = "hourRain"
	FieldDayRain     = "dayRain"
	FieldRadiation   = "radiation"
	FieldUV          = "UV"
)

// Record is one timestamped set of named observations. The timestamp is stored
// under FieldTime as seconds since the epoch. A NaN value is treated as missing.
type Record map[string]float64

// Get returns the value of a field and whether it is present.
func (r Record) Get(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Time returns the record timestamp (always UTC).
func (r Record) Time() (time.Time, bool) {
	ts, ok := r.Get(FieldTime)
	if !ok {
		return time.Time{}, false
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// Clone returns a shallow copy safe to modify.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NewRecord builds a record stamped with ts.
func NewRecord(ts time.Time, values map[string]float64) Record {
	r := make(Record, len(values)+1)
	for k, v := range values {
		r[k] = v
	}
	r[FieldTime] = float64(ts.Unix())
	return r
}
