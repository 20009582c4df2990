package scheduling

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusNoShow    Status = "no_show"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusConfirmed, StatusCompleted, StatusCanceled, StatusNoShow:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPix          PaymentMethod = "pix"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOther        PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case "", PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentPix, PaymentBankTransfer, PaymentOther:
		return true
	}
	return false
}

type Appointment struct {
	ID               string        `json:"id"`
	BusinessID       string        `json:"business_id"`
	ClientID         string        `json:"client_id"`
	ClientName       string        `json:"client_name,omitempty"`
	ProfessionalID   string        `json:"professional_id"`
	ServiceID        string        `json:"service_id"`
	ServiceName      string        `json:"service_name,omitempty"`
	Date             time.Time     `json:"date"`
	Duration         int           `json:"duration"` // minutes
	PriceCents       int64         `json:"price_cents"`
	PaymentMethod    PaymentMethod `json:"payment_method,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Status           Status        `json:"status"`
	SendConfirmation bool          `json:"send_confirmation"`
	SendReminder     bool          `json:"send_reminder"`
	CreatedAt        time.Time     `json:"created_at,omitempty"`
	UpdatedAt        time.Time     `json:"updated_at,omitempty"`
}

// End is the exclusive end of the appointment interval.
func (a Appointment) End() time.Time {
	return a.Date.Add(time.Duration(a.Duration) * time.Minute)
}

// Patch carries the fields an update may change. Nil fields are left as is.
type Patch struct {
	Date     *time.Time `json:"date,omitempty"`
	Duration *int       `json:"duration,omitempty"`
	Status   *Status    `json:"status,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

// Apply returns a copy of a with the patch applied.
func (p Patch) Apply(a Appointment) Appointment {
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	return a
}

// DayHours is the opening window for one weekday, "HH:MM" in 24-hour format.
type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// BusinessHours is keyed by weekday index (0=Sunday ... 6=Saturday).
// A missing entry means the business is closed that day.
type BusinessHours map[time.Weekday]DayHours

// Window returns the opening and closing instants of day's weekday in day's
// location. ok is false when the day is closed, missing, malformed or empty.
func (b BusinessHours) Window(day time.Time) (open, close time.Time, ok bool) {
	hours, found := b[day.Weekday()]
	if !found || !hours.Enabled {
		return time.Time{}, time.Time{}, false
	}
	startMin, err := ParseClock(hours.Start)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endMin, err := ParseClock(hours.End)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if endMin <= startMin {
		return time.Time{}, time.Time{}, false
	}
	midnight := StartOfDay(day)
	return atMinute(midnight, startMin), atMinute(midnight, endMin), true
}

// DefaultBusinessHours is Monday to Friday 09:00-18:00.
func DefaultBusinessHours() BusinessHours {
	weekday := DayHours{Enabled: true, Start: "09:00", End: "18:00"}
	return BusinessHours{
		time.Monday:    weekday,
		time.Tuesday:   weekday,
		time.Wednesday: weekday,
		time.Thursday:  weekday,
		time.Friday:    weekday,
	}
}

// Settings is the business configuration the core reads.
type Settings struct {
	BusinessHours       BusinessHours `json:"business_hours"`
	MinAdvanceMinutes   int           `json:"min_advance_minutes"`
	MaxFutureDays       int           `json:"max_future_days"`
	SlotIntervalMinutes int           `json:"slot_interval_minutes"`
	RequireConfirmation bool          `json:"require_confirmation"`
	Timezone            string        `json:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Interval returns the slot interval, defaulting to 30 minutes.
func (s Settings) Interval() int {
	if s.SlotIntervalMinutes <= 0 {
		return DefaultIntervalMinutes
	}
	return s.SlotIntervalMinutes
}

type TimeSlot struct {
	Label   string    `json:"label"`
	Instant time.Time `json:"instant"`
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func atMinute(midnight time.Time, minute int) time.Time {
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), minute/60, minute%60, 0, 0, midnight.Location())
}

// ParseClock returns the minute of day for a wall-clock time written as
// "HH:MM" or "HH:MM:SS". Seconds are dropped.
func ParseClock(s string) (int, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if tt, err := time.Parse(layout, s); err == nil {
			return tt.Hour()*60 + tt.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
}
