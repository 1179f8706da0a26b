// Package availability decides whether a provider can host a booking window
// and enumerates the free slots of a day. It is pure: callers load a
// consistent domain.DaySchedule and pass it in.
package availability

import (
	"sort"
	"time"

	"consultbook/backend/internal/domain"
)

// IsAvailable reports whether [start, start+d) can be booked. The window must
// fit inside a single active weekly rule for the weekday, must not touch an
// exception of that date, and must not overlap an occupying booking.
func IsAvailable(day domain.DaySchedule, start time.Time, d time.Duration) bool {
	if d <= 0 {
		return false
	}
	loc := day.Date.Location()
	local := start.In(loc)
	if !domain.SameDate(local, day.Date) {
		return false
	}

	from := domain.ClockOf(local)
	to := from.Add(d)
	if local.Second() != 0 || local.Nanosecond() != 0 {
		to++
	}

	covered := false
	for _, r := range day.Rules {
		if r.DayOfWeek == local.Weekday() && r.Contains(from, to) {
			covered = true
			break
		}
	}
	if !covered {
		return false
	}

	for _, e := range day.Exceptions {
		if domain.SameDate(e.Date, local) && e.Blocks(from, to) {
			return false
		}
	}

	end := start.Add(d)
	for _, b := range day.Bookings {
		if b.Status.Occupies() && b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// FreeSlots enumerates slot starts from each active rule of the weekday,
// stepping by slotLength, and keeps those that are available for a booking
// of slotLength. The result is ascending and free of duplicates.
func FreeSlots(day domain.DaySchedule, slotLength time.Duration) []time.Time {
	if slotLength < time.Minute {
		return nil
	}

	weekday := day.Date.Weekday()
	seen := make(map[int64]struct{})
	out := make([]time.Time, 0)

	for _, r := range day.Rules {
		if !r.Active || r.DayOfWeek != weekday {
			continue
		}
		for c := r.StartTime; c.Add(slotLength) <= r.EndTime; c = c.Add(slotLength) {
			t := c.On(day.Date)
			if _, dup := seen[t.Unix()]; dup {
				continue
			}
			if !IsAvailable(day, t, slotLength) {
				continue
			}
			seen[t.Unix()] = struct{}{}
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
