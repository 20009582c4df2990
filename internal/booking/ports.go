package booking

import (
	"context"
	"errors"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

var (
	// ErrNotFound is returned by stores for unknown appointment ids.
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken is the store's authoritative rejection of an overlapping
	// booking for the same professional.
	ErrSlotTaken = errors.New("professional already booked for that interval")
)

// AppointmentStore is the remote CRUD store owning appointments.
type AppointmentStore interface {
	List(ctx context.Context, businessID string) ([]scheduling.Appointment, error)
	Create(ctx context.Context, appt scheduling.Appointment) (scheduling.Appointment, error)
	Update(ctx context.Context, id string, patch scheduling.Patch) (scheduling.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// SettingsProvider exposes business configuration.
type SettingsProvider interface {
	Settings(ctx context.Context, businessID string) (scheduling.Settings, error)
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
	NoticeInfo    NoticeKind = "info"
)

// Notifier is a fire-and-forget channel for user-facing messages.
type Notifier interface {
	Notify(ctx context.Context, kind NoticeKind, message string)
}

// Mirror receives every committed appointment, e.g. to copy it to an
// external calendar. Failures never undo the commit.
type Mirror interface {
	Sync(ctx context.Context, appt scheduling.Appointment) error
}
