// Package calendar holds the calendar view state: the granularity being shown,
// the period anchor, the selected day, the active filters, an in-progress drag
// and the appointment collection every view is derived from.
//
// State is a value. Every transition returns a new State and never mutates a
// slice reachable from the receiver, so old states stay valid snapshots.
package calendar

import (
	"time"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
)

// ParseViewMode maps a query value to a ViewMode, defaulting to month.
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ViewWeek:
		return ViewWeek
	case ViewDay:
		return ViewDay
	default:
		return ViewMonth
	}
}

// FilterAll is accepted as "no filter" next to the empty string.
const FilterAll = "all"

type DragInProgress struct {
	AppointmentID string    `json:"appointment_id"`
	OriginalDate  time.Time `json:"original_date"`
}

type State struct {
	Mode               ViewMode        `json:"view_mode"`
	Anchor             time.Time       `json:"anchor_date"`
	Selected           time.Time       `json:"selected_date"`
	ServiceFilter      string          `json:"service_filter,omitempty"`
	ProfessionalFilter string          `json:"professional_filter,omitempty"`
	Drag               *DragInProgress `json:"drag_in_progress,omitempty"`

	appointments []scheduling.Appointment
}

// New starts in month view anchored and selected on today.
func New(today time.Time, appointments []scheduling.Appointment) State {
	day := scheduling.StartOfDay(today)
	return State{
		Mode:         ViewMonth,
		Anchor:       day,
		Selected:     day,
		appointments: clone(appointments),
	}
}

// Appointments returns a copy of the held collection.
func (s State) Appointments() []scheduling.Appointment {
	return clone(s.appointments)
}

// Find looks up an appointment by id in the held collection.
func (s State) Find(id string) (scheduling.Appointment, bool) {
	for _, a := range s.appointments {
		if a.ID == id {
			return a, true
		}
	}
	return scheduling.Appointment{}, false
}

func (s State) SetView(mode ViewMode) State {
	s.Mode = mode
	return s
}

// Next moves the anchor one period forward. Day view has no period stepping.
func (s State) Next() State {
	return s.step(1)
}

func (s State) Prev() State {
	return s.step(-1)
}

func (s State) step(dir int) State {
	switch s.Mode {
	case ViewMonth:
		s.Anchor = addMonths(s.Anchor, dir)
	case ViewWeek:
		s.Anchor = s.Anchor.AddDate(0, 0, 7*dir)
	}
	return s
}

// SelectDay selects day and drills down into day view.
func (s State) SelectDay(day time.Time) State {
	s.Selected = scheduling.StartOfDay(day)
	if s.Mode == ViewMonth || s.Mode == ViewWeek {
		s.Mode = ViewDay
	}
	return s
}

func (s State) SetServiceFilter(serviceID string) State {
	s.ServiceFilter = serviceID
	return s
}

func (s State) SetProfessionalFilter(professionalID string) State {
	s.ProfessionalFilter = professionalID
	return s
}

// Refresh swaps in a freshly loaded collection. A drag whose appointment is
// gone from the new collection is dropped.
func (s State) Refresh(appointments []scheduling.Appointment) State {
	s.appointments = clone(appointments)
	if s.Drag != nil {
		if _, ok := s.Find(s.Drag.AppointmentID); !ok {
			s.Drag = nil
		}
	}
	return s
}

// Upsert replaces the appointment with the same id, or appends it.
func (s State) Upsert(appt scheduling.Appointment) State {
	next := make([]scheduling.Appointment, 0, len(s.appointments)+1)
	replaced := false
	for _, a := range s.appointments {
		if a.ID == appt.ID {
			next = append(next, appt)
			replaced = true
			continue
		}
		next = append(next, a)
	}
	if !replaced {
		next = append(next, appt)
	}
	s.appointments = next
	return s
}

// BeginDrag picks up an appointment. Unknown ids leave the state untouched,
// the collection may have changed under a background refresh.
func (s State) BeginDrag(appointmentID string) State {
	appt, ok := s.Find(appointmentID)
	if !ok {
		return s
	}
	s.Drag = &DragInProgress{AppointmentID: appt.ID, OriginalDate: appt.Date}
	return s
}

func (s State) CancelDrag() State {
	s.Drag = nil
	return s
}

func (s State) Dragging() bool {
	return s.Drag != nil
}

func clone(in []scheduling.Appointment) []scheduling.Appointment {
	if in == nil {
		return nil
	}
	out := make([]scheduling.Appointment, len(in))
	copy(out, in)
	return out
}

// addMonths steps whole months, clamping the day to the target month's length
// so Jan 31 + 1 month is Feb 28/29 rather than early March.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	day := t.Day()
	if last := daysIn(target); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
