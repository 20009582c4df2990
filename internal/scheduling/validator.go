package scheduling

import (
	"fmt"
	"time"
)

type ReasonCode string

const (
	ReasonInvalidDuration      ReasonCode = "invalid_duration"
	ReasonInPast               ReasonCode = "in_past"
	ReasonBeyondHorizon        ReasonCode = "beyond_horizon"
	ReasonOutsideBusinessHours ReasonCode = "outside_business_hours"
	ReasonInsufficientNotice   ReasonCode = "insufficient_notice"
	ReasonConflict             ReasonCode = "conflict"
)

// ValidationContext is everything Validate needs besides the candidate. Now
// fixes both the wall clock and the business location: "today", the weekday
// and the time of day of the candidate are all read in Now's location.
type ValidationContext struct {
	BusinessHours     BusinessHours
	Now               time.Time
	MinAdvanceMinutes int
	MaxFutureDays     int
	EmergencyOverride bool
	Existing          []Appointment
}

// ContextFor builds a ValidationContext from business settings.
func ContextFor(s Settings, now time.Time, existing []Appointment, override bool) ValidationContext {
	return ValidationContext{
		BusinessHours:     s.BusinessHours,
		Now:               now.In(s.Location()),
		MinAdvanceMinutes: s.MinAdvanceMinutes,
		MaxFutureDays:     s.MaxFutureDays,
		EmergencyOverride: override,
		Existing:          existing,
	}
}

type Result struct {
	Valid    bool         `json:"valid"`
	Code     ReasonCode   `json:"code,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Conflict *Appointment `json:"conflict,omitempty"`
}

func reject(code ReasonCode, format string, args ...any) Result {
	return Result{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Validate runs the booking rules in order and stops at the first failure:
// past date, booking horizon, business hours, advance notice (skipped under
// emergency override) and finally professional conflicts.
func Validate(c Candidate, vc ValidationContext) Result {
	if c.Duration <= 0 {
		return reject(ReasonInvalidDuration, "duration must be a positive number of minutes")
	}
	now := vc.Now
	date := c.Date.In(now.Location())
	today := StartOfDay(now)

	if date.Before(today) {
		return reject(ReasonInPast, "cannot book on a past date (%s)", date.Format("2006-01-02"))
	}
	if horizon := today.AddDate(0, 0, vc.MaxFutureDays+1); !date.Before(horizon) {
		return reject(ReasonBeyondHorizon, "cannot book more than %d days ahead", vc.MaxFutureDays)
	}

	open, close, ok := vc.BusinessHours.Window(date)
	if !ok {
		return reject(ReasonOutsideBusinessHours, "business is closed on %s", date.Weekday())
	}
	if date.Before(open) || !date.Before(close) {
		return reject(ReasonOutsideBusinessHours, "%s is outside business hours (%s-%s)",
			date.Format("15:04"), open.Format("15:04"), close.Format("15:04"))
	}

	if !vc.EmergencyOverride {
		earliest := now.Add(time.Duration(vc.MinAdvanceMinutes) * time.Minute)
		if date.Before(earliest) {
			return reject(ReasonInsufficientNotice, "appointments need at least %d minutes advance notice", vc.MinAdvanceMinutes)
		}
	}

	c.Date = date
	if res := HasConflict(vc.Existing, c); res.Conflict {
		return Result{Code: ReasonConflict, Reason: res.Reason, Conflict: res.With}
	}
	return Result{Valid: true}
}
