package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

// Memory is an in-process appointment store with the same overlap rule as the
// database constraint. It backs local runs without a database.
type Memory struct {
	mu    sync.RWMutex
	appts map[string]scheduling.Appointment
	now   func() time.Time
}

func NewMemory(seed ...scheduling.Appointment) *Memory {
	m := &Memory{appts: make(map[string]scheduling.Appointment), now: time.Now}
	for _, a := range seed {
		m.appts[a.ID] = a
	}
	return m
}

func (m *Memory) List(_ context.Context, businessID string) ([]scheduling.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]scheduling.Appointment, 0)
	for _, a := range m.appts {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) Create(_ context.Context, appt scheduling.Appointment) (scheduling.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if m.overlaps(appt) {
		return scheduling.Appointment{}, booking.ErrSlotTaken
	}
	now := m.now().UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now
	m.appts[appt.ID] = appt
	return appt, nil
}

func (m *Memory) Update(_ context.Context, id string, patch scheduling.Patch) (scheduling.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.appts[id]
	if !ok {
		return scheduling.Appointment{}, booking.ErrNotFound
	}
	next := patch.Apply(current)
	if m.overlaps(next) {
		return scheduling.Appointment{}, booking.ErrSlotTaken
	}
	next.UpdatedAt = m.now().UTC()
	m.appts[id] = next
	return next, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return booking.ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

// overlaps must be called with mu held.
func (m *Memory) overlaps(appt scheduling.Appointment) bool {
	if appt.Status == scheduling.StatusCanceled {
		return false
	}
	others := make([]scheduling.Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		others = append(others, a)
	}
	return scheduling.HasConflict(others, scheduling.Candidate{
		ProfessionalID:       appt.ProfessionalID,
		Date:                 appt.Date,
		Duration:             appt.Duration,
		ExcludeAppointmentID: appt.ID,
	}).Conflict
}
