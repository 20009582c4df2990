// Package booking drives the two committed mutation points of the scheduler,
// moving an appointment (drag and drop) and creating one through the booking
// stepper, plus direct status changes. Every mutation re-runs the validator
// against the collection held by the caller's calendar state right before it
// reaches the store, and every failure leaves that state as it was.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gustavouu/unclic-manager-sub000/internal/calendar"
	"github.com/Gustavouu/unclic-manager-sub000/internal/metrics"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

var tracer = otel.Tracer("scheduler.internal.booking")

type Service struct {
	store    AppointmentStore
	settings SettingsProvider
	notifier Notifier
	mirror   Mirror
	metrics  *metrics.SchedulingMetrics
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the controller to its collaborators. notifier may be nil.
func NewService(store AppointmentStore, settings SettingsProvider, notifier Notifier, opts ...Option) *Service {
	if store == nil {
		panic("booking: appointment store required")
	}
	if settings == nil {
		panic("booking: settings provider required")
	}
	s := &Service{
		store:    store,
		settings: settings,
		notifier: notifier,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadCalendar fetches the business's appointments and settings and returns a
// fresh calendar state anchored on today in the business timezone.
func (s *Service) LoadCalendar(ctx context.Context, businessID string) (calendar.State, scheduling.Settings, error) {
	settings, err := s.settings.Settings(ctx, businessID)
	if err != nil {
		return calendar.State{}, scheduling.Settings{}, fmt.Errorf("booking: load settings: %w", err)
	}
	started := time.Now()
	appts, err := s.store.List(ctx, businessID)
	s.metrics.ObserveStoreCall("list", started)
	if err != nil {
		return calendar.State{}, scheduling.Settings{}, fmt.Errorf("booking: list appointments: %w", err)
	}
	return calendar.New(s.now().In(settings.Location()), appts), settings, nil
}

// Validate checks a candidate against the business rules and the collection
// held by state.
func (s *Service) Validate(ctx context.Context, businessID string, state calendar.State, c scheduling.Candidate, override bool) (scheduling.Result, error) {
	settings, err := s.settings.Settings(ctx, businessID)
	if err != nil {
		return scheduling.Result{}, fmt.Errorf("booking: load settings: %w", err)
	}
	return s.validateWith(settings, state, c, override), nil
}

func (s *Service) validateWith(settings scheduling.Settings, state calendar.State, c scheduling.Candidate, override bool) scheduling.Result {
	vc := scheduling.ContextFor(settings, s.now(), state.Appointments(), override)
	res := scheduling.Validate(c, vc)
	s.metrics.ObserveValidation(string(res.Code))
	return res
}

type SlotAvailability struct {
	scheduling.TimeSlot
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Slots lists the slots of day. With a professional and duration, each slot
// also says whether that professional is free for the whole duration.
func (s *Service) Slots(ctx context.Context, businessID string, state calendar.State, day time.Time, professionalID string, duration int) ([]SlotAvailability, error) {
	settings, err := s.settings.Settings(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("booking: load settings: %w", err)
	}
	loc := settings.Location()
	now := s.now().In(loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	if !scheduling.DayBookable(day, now, settings.MaxFutureDays) {
		return nil, nil
	}

	slots := scheduling.GenerateSlots(day, settings.BusinessHours, scheduling.SlotOptions{
		IntervalMinutes:   settings.Interval(),
		Now:               now,
		MinAdvanceMinutes: settings.MinAdvanceMinutes,
	})
	existing := state.Appointments()
	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		sa := SlotAvailability{TimeSlot: slot, Available: true}
		if professionalID != "" && duration > 0 {
			res := scheduling.HasConflict(existing, scheduling.Candidate{
				ProfessionalID: professionalID,
				Date:           slot.Instant,
				Duration:       duration,
			})
			if res.Conflict {
				sa.Available = false
				sa.Reason = res.Reason
			}
		}
		out = append(out, sa)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, kind NoticeKind, format string, args ...any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, kind, fmt.Sprintf(format, args...))
}

func (s *Service) sync(ctx context.Context, appt scheduling.Appointment) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Sync(ctx, appt); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("mirror sync failed")
	}
}

// storeFailure maps a store error onto an outcome. A taken slot or vanished
// appointment is a rejection the user can act on, anything else is external.
func storeFailure(span trace.Span, err error) Outcome {
	switch {
	case errors.Is(err, ErrSlotTaken):
		return rejected(scheduling.ReasonConflict, "professional already has an appointment in that interval")
	case errors.Is(err, ErrNotFound):
		return rejected(CodeNotFound, "appointment no longer exists")
	default:
		span.RecordError(err)
		return failed(err)
	}
}

func (s *Service) finish(op string, span trace.Span, out Outcome) Outcome {
	span.SetAttributes(attribute.String("scheduler.outcome", out.Kind.String()))
	if out.Code != "" {
		span.SetAttributes(attribute.String("scheduler.reason_code", string(out.Code)))
	}
	s.metrics.ObserveMutation(op, out.Kind.String())
	return out
}
