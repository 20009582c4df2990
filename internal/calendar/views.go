package calendar

import (
	"sort"
	"time"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

// CalendarDays is the day grid for the current mode. In month view the grid
// starts with nil placeholders, one per weekday before the first of the month
// (weeks start on Sunday). Week view is the seven days of the week holding the
// anchor; day view is the selected day.
func (s State) CalendarDays() []*time.Time {
	switch s.Mode {
	case ViewWeek:
		start := WeekStart(s.Anchor)
		days := make([]*time.Time, 0, 7)
		for i := 0; i < 7; i++ {
			d := start.AddDate(0, 0, i)
			days = append(days, &d)
		}
		return days
	case ViewDay:
		d := scheduling.StartOfDay(s.Selected)
		return []*time.Time{&d}
	default:
		first := time.Date(s.Anchor.Year(), s.Anchor.Month(), 1, 0, 0, 0, 0, s.Anchor.Location())
		offset := int(first.Weekday())
		n := daysIn(first)
		days := make([]*time.Time, offset, offset+n)
		for i := 0; i < n; i++ {
			d := first.AddDate(0, 0, i)
			days = append(days, &d)
		}
		return days
	}
}

// WeekStart returns the Sunday starting t's week, at midnight.
func WeekStart(t time.Time) time.Time {
	day := scheduling.StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// FilteredAppointments applies the service and professional filters and sorts
// by start time.
func (s State) FilteredAppointments() []scheduling.Appointment {
	var out []scheduling.Appointment
	for _, a := range s.appointments {
		if active(s.ServiceFilter) && a.ServiceID != s.ServiceFilter {
			continue
		}
		if active(s.ProfessionalFilter) && a.ProfessionalID != s.ProfessionalFilter {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// AppointmentsOn returns the filtered appointments starting on day.
func (s State) AppointmentsOn(day time.Time) []scheduling.Appointment {
	start := scheduling.StartOfDay(day)
	return s.between(start, start.AddDate(0, 0, 1))
}

func (s State) DayAppointments() []scheduling.Appointment {
	return s.AppointmentsOn(s.Selected)
}

// WeekAppointments returns the filtered appointments in the anchor's week.
func (s State) WeekAppointments() []scheduling.Appointment {
	start := WeekStart(s.Anchor)
	return s.between(start, start.AddDate(0, 0, 7))
}

func (s State) between(from, to time.Time) []scheduling.Appointment {
	var out []scheduling.Appointment
	for _, a := range s.FilteredAppointments() {
		if !a.Date.Before(from) && a.Date.Before(to) {
			out = append(out, a)
		}
	}
	return out
}

func active(filter string) bool {
	return filter != "" && filter != FilterAll
}

// MonthAppointments returns the filtered appointments in the anchor's month.
func (s State) MonthAppointments() []scheduling.Appointment {
	first := time.Date(s.Anchor.Year(), s.Anchor.Month(), 1, 0, 0, 0, 0, s.Anchor.Location())
	return s.between(first, first.AddDate(0, 1, 0))
}

// Visible returns the appointments the current mode shows.
func (s State) Visible() []scheduling.Appointment {
	switch s.Mode {
	case ViewWeek:
		return s.WeekAppointments()
	case ViewDay:
		return s.DayAppointments()
	default:
		return s.MonthAppointments()
	}
}
