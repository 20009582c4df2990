package booking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Gustavouu/unclic-manager-sub000/internal/calendar"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

type DropRequest struct {
	Date              time.Time `json:"date"`
	EmergencyOverride bool      `json:"emergency_override"`
}

// Drop finishes the drag held in state by moving the appointment to req.Date.
// The drag slot is cleared whatever happens. The appointment only changes in
// the returned state once the store accepted the new date; on rejection or
// store failure it stays at its original date.
func (s *Service) Drop(ctx context.Context, state calendar.State, req DropRequest) (calendar.State, Outcome) {
	ctx, span := tracer.Start(ctx, "booking.drop")
	defer span.End()

	if !state.Dragging() {
		return state, s.finish("reschedule", span, rejected(CodeNoDrag, "no appointment is being moved"))
	}
	drag := *state.Drag
	state = state.CancelDrag()
	span.SetAttributes(attribute.String("scheduler.appointment_id", drag.AppointmentID))

	appt, ok := state.Find(drag.AppointmentID)
	if !ok {
		s.notify(ctx, NoticeWarning, "appointment no longer exists")
		return state, s.finish("reschedule", span, rejected(CodeNotFound, "appointment no longer exists"))
	}

	settings, err := s.settings.Settings(ctx, appt.BusinessID)
	if err != nil {
		s.logger.Error().Err(err).Str("business_id", appt.BusinessID).Msg("load settings failed")
		s.notify(ctx, NoticeError, "could not move appointment: %v", err)
		return state, s.finish("reschedule", span, failed(err))
	}

	res := s.validateWith(settings, state, scheduling.Candidate{
		ProfessionalID:       appt.ProfessionalID,
		Date:                 req.Date,
		Duration:             appt.Duration,
		ExcludeAppointmentID: appt.ID,
	}, req.EmergencyOverride)
	if !res.Valid {
		s.notify(ctx, NoticeError, "could not move appointment: %s", res.Reason)
		return state, s.finish("reschedule", span, rejected(res.Code, res.Reason))
	}

	newDate := req.Date
	started := time.Now()
	updated, err := s.store.Update(ctx, appt.ID, scheduling.Patch{Date: &newDate})
	s.metrics.ObserveStoreCall("update", started)
	if err != nil {
		out := storeFailure(span, err)
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("reschedule not committed")
		s.notify(ctx, NoticeError, "could not move appointment: %s", out.Reason)
		return state, s.finish("reschedule", span, out)
	}

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Time("from", drag.OriginalDate).
		Time("to", updated.Date).
		Msg("appointment moved")
	s.sync(ctx, updated)
	s.notify(ctx, NoticeSuccess, "appointment moved to %s", updated.Date.In(settings.Location()).Format("2006-01-02 15:04"))
	return state.Upsert(updated), s.finish("reschedule", span, succeeded(updated))
}
