package scheduling

import "time"

const DefaultIntervalMinutes = 30

type SlotOptions struct {
	IntervalMinutes   int
	Now               time.Time
	MinAdvanceMinutes int
}

// GenerateSlots lists the bookable start times of day, one every interval from
// the opening time up to (not including) the closing time. On the same
// calendar day as Now, starts earlier than Now+MinAdvanceMinutes are dropped.
//
// A closed, missing or malformed weekday yields no slots. Whether day itself
// is in the past or beyond the booking horizon is the caller's concern; see
// DayBookable.
func GenerateSlots(day time.Time, hours BusinessHours, opts SlotOptions) []TimeSlot {
	open, close, ok := hours.Window(day)
	if !ok {
		return nil
	}
	interval := opts.IntervalMinutes
	if interval <= 0 {
		interval = DefaultIntervalMinutes
	}
	step := time.Duration(interval) * time.Minute

	var earliest time.Time
	if !opts.Now.IsZero() && SameDay(day, opts.Now) {
		earliest = opts.Now.Add(time.Duration(opts.MinAdvanceMinutes) * time.Minute)
	}

	var slots []TimeSlot
	for t := open; t.Before(close); t = t.Add(step) {
		if !earliest.IsZero() && t.Before(earliest) {
			continue
		}
		slots = append(slots, TimeSlot{Label: t.Format("15:04"), Instant: t})
	}
	return slots
}

// DayBookable reports whether day lies between today and today+maxFutureDays
// inclusive, both taken in now's location.
func DayBookable(day, now time.Time, maxFutureDays int) bool {
	today := StartOfDay(now)
	d := StartOfDay(day.In(now.Location()))
	if d.Before(today) {
		return false
	}
	return !d.After(today.AddDate(0, 0, maxFutureDays))
}
