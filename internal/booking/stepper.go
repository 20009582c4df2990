package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Gustavouu/unclic-manager-sub000/internal/calendar"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

type Step int

const (
	StepClient Step = iota
	StepServiceProfessional
	StepDateTime
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepClient:
		return "client"
	case StepServiceProfessional:
		return "service_professional"
	case StepDateTime:
		return "date_time"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Draft accumulates the booking form across steps.
type Draft struct {
	BusinessID        string                   `json:"business_id"`
	ClientID          string                   `json:"client_id"`
	ClientName        string                   `json:"client_name"`
	ServiceID         string                   `json:"service_id"`
	ServiceName       string                   `json:"service_name"`
	ProfessionalID    string                   `json:"professional_id"`
	Duration          int                      `json:"duration"`
	PriceCents        int64                    `json:"price_cents"`
	PaymentMethod     scheduling.PaymentMethod `json:"payment_method,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
	Date              *time.Time               `json:"date,omitempty"`
	EmergencyOverride bool                     `json:"emergency_override"`
	SendConfirmation  bool                     `json:"send_confirmation"`
	SendReminder      bool                     `json:"send_reminder"`
}

func (d Draft) candidate() scheduling.Candidate {
	c := scheduling.Candidate{ProfessionalID: d.ProfessionalID, Duration: d.Duration}
	if d.Date != nil {
		c.Date = *d.Date
	}
	return c
}

// Stepper is the state of one booking session.
type Stepper struct {
	Current Step  `json:"current_step"`
	Draft   Draft `json:"draft"`
}

func NewStepper(businessID string) Stepper {
	return Stepper{
		Current: StepClient,
		Draft: Draft{
			BusinessID:       businessID,
			SendConfirmation: true,
			SendReminder:     true,
		},
	}
}

// Back returns to the previous step. Leaving the date step backward clears
// the chosen date. Back on the first step is a no-op.
func (st Stepper) Back() Stepper {
	if st.Current == StepClient {
		return st
	}
	if st.Current == StepDateTime {
		st.Draft.Date = nil
	}
	st.Current--
	return st
}

// Check is the verdict on whether a step may be left forward.
type Check struct {
	OK     bool                  `json:"ok"`
	Code   scheduling.ReasonCode `json:"code,omitempty"`
	Reason string                `json:"reason,omitempty"`
}

var pass = Check{OK: true}

func presence(step Step, d Draft) Check {
	switch step {
	case StepClient:
		if strings.TrimSpace(d.ClientID) == "" {
			return Check{Code: CodeMissingClient, Reason: "select a client"}
		}
	case StepServiceProfessional:
		if strings.TrimSpace(d.ServiceID) == "" || strings.TrimSpace(d.ProfessionalID) == "" {
			return Check{Code: CodeMissingService, Reason: "select a service and a professional"}
		}
		if d.Duration <= 0 {
			return Check{Code: scheduling.ReasonInvalidDuration, Reason: "service duration must be positive"}
		}
	case StepDateTime:
		if d.Date == nil {
			return Check{Code: CodeMissingDate, Reason: "select a date and time"}
		}
	}
	return pass
}

// CanAdvance reports whether the current step may be left forward. The date
// step runs the full validator against the collection held by cal. The
// confirmation step never advances; it is left through Submit.
func (s *Service) CanAdvance(ctx context.Context, cal calendar.State, st Stepper) (Check, error) {
	if st.Current == StepConfirmation {
		return Check{Code: CodeWrongStep, Reason: "confirmation is the last step, submit the booking instead"}, nil
	}
	if c := presence(st.Current, st.Draft); !c.OK {
		return c, nil
	}
	if st.Current != StepDateTime {
		return pass, nil
	}
	res, err := s.Validate(ctx, st.Draft.BusinessID, cal, st.Draft.candidate(), st.Draft.EmergencyOverride)
	if err != nil {
		return Check{}, err
	}
	if !res.Valid {
		return Check{Code: res.Code, Reason: res.Reason}, nil
	}
	return pass, nil
}

// Next advances one step when CanAdvance allows it. Leaving the service step
// forward clears any previously chosen date, since it was validated against a
// different professional or duration. Next on the confirmation step is a
// no-op; use Submit.
func (s *Service) Next(ctx context.Context, cal calendar.State, st Stepper) (Stepper, Check, error) {
	if st.Current == StepConfirmation {
		return st, pass, nil
	}
	check, err := s.CanAdvance(ctx, cal, st)
	if err != nil || !check.OK {
		return st, check, err
	}
	if st.Current == StepServiceProfessional {
		st.Draft.Date = nil
	}
	st.Current++
	return st, check, nil
}

// Submit creates the appointment described by a draft on the confirmation
// step. All steps are re-checked and the validator re-runs against cal before
// the store is called. On any failure the stepper stays where it is and cal is
// returned unchanged.
func (s *Service) Submit(ctx context.Context, cal calendar.State, st Stepper) (calendar.State, Outcome) {
	ctx, span := tracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.business_id", st.Draft.BusinessID))

	if st.Current != StepConfirmation {
		return cal, s.finish("create", span, rejected(CodeWrongStep,
			fmt.Sprintf("booking can only be submitted from the confirmation step, not %s", st.Current)))
	}
	for step := StepClient; step < StepConfirmation; step++ {
		if c := presence(step, st.Draft); !c.OK {
			return cal, s.finish("create", span, rejected(c.Code, c.Reason))
		}
	}

	settings, err := s.settings.Settings(ctx, st.Draft.BusinessID)
	if err != nil {
		s.logger.Error().Err(err).Str("business_id", st.Draft.BusinessID).Msg("load settings failed")
		s.notify(ctx, NoticeError, "could not create appointment: %v", err)
		return cal, s.finish("create", span, failed(err))
	}
	res := s.validateWith(settings, cal, st.Draft.candidate(), st.Draft.EmergencyOverride)
	if !res.Valid {
		s.notify(ctx, NoticeError, "could not create appointment: %s", res.Reason)
		return cal, s.finish("create", span, rejected(res.Code, res.Reason))
	}

	status := scheduling.StatusScheduled
	if settings.RequireConfirmation {
		status = scheduling.StatusPending
	}
	d := st.Draft
	appt := scheduling.Appointment{
		BusinessID:       d.BusinessID,
		ClientID:         d.ClientID,
		ClientName:       d.ClientName,
		ProfessionalID:   d.ProfessionalID,
		ServiceID:        d.ServiceID,
		ServiceName:      d.ServiceName,
		Date:             *d.Date,
		Duration:         d.Duration,
		PriceCents:       d.PriceCents,
		PaymentMethod:    d.PaymentMethod,
		Notes:            d.Notes,
		Status:           status,
		SendConfirmation: d.SendConfirmation,
		SendReminder:     d.SendReminder,
	}

	started := time.Now()
	created, err := s.store.Create(ctx, appt)
	s.metrics.ObserveStoreCall("create", started)
	if err != nil {
		out := storeFailure(span, err)
		s.logger.Warn().Err(err).Str("business_id", d.BusinessID).Msg("booking not committed")
		s.notify(ctx, NoticeError, "could not create appointment: %s", out.Reason)
		return cal, s.finish("create", span, out)
	}

	s.logger.Info().
		Str("appointment_id", created.ID).
		Str("professional_id", created.ProfessionalID).
		Time("date", created.Date).
		Str("status", string(created.Status)).
		Msg("appointment created")
	s.sync(ctx, created)
	s.notify(ctx, NoticeSuccess, "appointment booked for %s on %s",
		created.ClientName, created.Date.In(settings.Location()).Format("2006-01-02 15:04"))
	return cal.Upsert(created), s.finish("create", span, succeeded(created))
}

var (
	// ErrFieldNotEditable is returned when an update touches a field that
	// does not belong to the current step.
	ErrFieldNotEditable = errors.New("field cannot be edited on this step")
	// ErrInvalidField is returned when an update carries a value the field
	// does not accept.
	ErrInvalidField = errors.New("invalid field value")
)

// DraftUpdate carries the fields a client sets on the current step. Nil fields
// are left as they are.
type DraftUpdate struct {
	ClientID          *string                   `json:"client_id"`
	ClientName        *string                   `json:"client_name"`
	ServiceID         *string                   `json:"service_id"`
	ServiceName       *string                   `json:"service_name"`
	ProfessionalID    *string                   `json:"professional_id"`
	Duration          *int                      `json:"duration"`
	PriceCents        *int64                    `json:"price_cents"`
	Date              *time.Time                `json:"date"`
	EmergencyOverride *bool                     `json:"emergency_override"`
	PaymentMethod     *scheduling.PaymentMethod `json:"payment_method"`
	Notes             *string                   `json:"notes"`
	SendConfirmation  *bool                     `json:"send_confirmation"`
	SendReminder      *bool                     `json:"send_reminder"`
}

type field struct {
	name string
	set  bool
	step Step
}

func (u DraftUpdate) fields() []field {
	return []field{
		{"client_id", u.ClientID != nil, StepClient},
		{"client_name", u.ClientName != nil, StepClient},
		{"service_id", u.ServiceID != nil, StepServiceProfessional},
		{"service_name", u.ServiceName != nil, StepServiceProfessional},
		{"professional_id", u.ProfessionalID != nil, StepServiceProfessional},
		{"duration", u.Duration != nil, StepServiceProfessional},
		{"price_cents", u.PriceCents != nil, StepServiceProfessional},
		{"date", u.Date != nil, StepDateTime},
		{"emergency_override", u.EmergencyOverride != nil, StepDateTime},
		{"payment_method", u.PaymentMethod != nil, StepConfirmation},
		{"notes", u.Notes != nil, StepConfirmation},
		{"send_confirmation", u.SendConfirmation != nil, StepConfirmation},
		{"send_reminder", u.SendReminder != nil, StepConfirmation},
	}
}

// Apply sets the fields of the current step. Fields of any other step are
// refused so an earlier choice cannot change behind a validated date.
func (st Stepper) Apply(u DraftUpdate) (Stepper, error) {
	for _, f := range u.fields() {
		if f.set && f.step != st.Current {
			return st, fmt.Errorf("%w: %s belongs to the %s step", ErrFieldNotEditable, f.name, f.step)
		}
	}
	if u.PaymentMethod != nil && !u.PaymentMethod.Valid() {
		return st, fmt.Errorf("%w: unknown payment method %q", ErrInvalidField, *u.PaymentMethod)
	}

	d := &st.Draft
	setString(&d.ClientID, u.ClientID)
	setString(&d.ClientName, u.ClientName)
	setString(&d.ServiceID, u.ServiceID)
	setString(&d.ServiceName, u.ServiceName)
	setString(&d.ProfessionalID, u.ProfessionalID)
	setString(&d.Notes, u.Notes)
	if u.Duration != nil {
		d.Duration = *u.Duration
	}
	if u.PriceCents != nil {
		d.PriceCents = *u.PriceCents
	}
	if u.Date != nil {
		date := *u.Date
		d.Date = &date
	}
	if u.EmergencyOverride != nil {
		d.EmergencyOverride = *u.EmergencyOverride
	}
	if u.PaymentMethod != nil {
		d.PaymentMethod = *u.PaymentMethod
	}
	if u.SendConfirmation != nil {
		d.SendConfirmation = *u.SendConfirmation
	}
	if u.SendReminder != nil {
		d.SendReminder = *u.SendReminder
	}
	return st, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
