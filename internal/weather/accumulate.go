package weather

import (
	"context"
	"fmt"
	"time"
)

// SumField adds up a field over the records that carry it.
// The second result is the number of records that contributed.
func SumField(records []Record, field string) (float64, int) {
	var (
		sum float64
		n   int
	)
	for _, r := range records {
		if v, ok := r.Get(field); ok {
			sum += v
			n++
		}
	}
	return sum, n
}

// RainAugmenter backfills the rain accumulators hourRain, rain24 and dayRain
// from archived rain values. Fields already present in the record are kept.
type RainAugmenter struct {
	store Store
	loc   *time.Location
}

// NewRainAugmenter creates an augmenter; loc decides where "day" starts for
// dayRain (nil means UTC).
func NewRainAugmenter(store Store, loc *time.Location) *RainAugmenter {
	if loc == nil {
		loc = time.UTC
	}
	return &RainAugmenter{store: store, loc: loc}
}

func (a *RainAugmenter) Augment(ctx context.Context, rec Record) (Record, error) {
	ts, ok := rec.Time()
	if !ok {
		return rec, nil
	}

	local := ts.In(a.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)

	windows := []struct {
		field string
		from  time.Time
	}{
		{FieldHourRain, ts.Add(-time.Hour)},
		{FieldRain24, ts.Add(-24 * time.Hour)},
		{FieldDayRain, midnight},
	}

	out := rec.Clone()
	for _, w := range windows {
		if _, present := out.Get(w.field); present {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		records, err := a.store.GetRange(w.from, ts)
		if err != nil {
			return rec, fmt.Errorf("%s lookup: %w", w.field, err)
		}
		if sum, n := SumField(records, FieldRain); n > 0 {
			out[w.field] = sum
		}
	}
	return out, nil
}
