// Package metrics turns a snapshot of service records into the figures
// shown on the shop dashboard. Everything here is a pure function of its
// input.
package metrics

import (
	"time"

	"luthier-backend/internal/record"
)

// Range is an inclusive date window. A nil bound disables filtering.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Active reports whether both bounds are set.
func (r Range) Active() bool {
	return r.Start != nil && r.End != nil
}

// Bounds returns the window widened to whole UTC days.
func (r Range) Bounds() (from, to time.Time) {
	from = startOfDay(*r.Start)
	to = startOfDay(*r.End).Add(24*time.Hour - time.Nanosecond)
	return from, to
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Filter keeps the records whose reference date lies inside rng. When rng
// is not active the input slice is returned as is. Undated records never
// match an active range.
func Filter(records []record.ServiceRecord, rng Range) []record.ServiceRecord {
	if !rng.Active() {
		return records
	}
	from, to := rng.Bounds()
	out := make([]record.ServiceRecord, 0, len(records))
	for _, r := range records {
		ref := r.ReferenceDate()
		if ref == nil {
			continue
		}
		if ref.Before(from) || ref.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}
