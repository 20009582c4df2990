package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Gustavouu/unclic-manager-sub000/internal/calendar"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

var transitions = map[scheduling.Status][]scheduling.Status{
	scheduling.StatusPending:   {scheduling.StatusScheduled, scheduling.StatusConfirmed, scheduling.StatusCanceled},
	scheduling.StatusScheduled: {scheduling.StatusConfirmed, scheduling.StatusCanceled, scheduling.StatusCompleted, scheduling.StatusNoShow},
	scheduling.StatusConfirmed: {scheduling.StatusCompleted, scheduling.StatusCanceled, scheduling.StatusNoShow},
}

// CanTransition reports whether an appointment may move from one status to
// another. Completed, canceled and no-show are terminal.
func CanTransition(from, to scheduling.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ChangeStatus moves the appointment id held by state to status to. Canceling
// an appointment that is already canceled succeeds without touching the store.
func (s *Service) ChangeStatus(ctx context.Context, state calendar.State, id string, to scheduling.Status) (calendar.State, Outcome) {
	ctx, span := tracer.Start(ctx, "booking.change_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.appointment_id", id),
		attribute.String("scheduler.status", string(to)),
	)

	appt, ok := state.Find(id)
	if !ok {
		return state, s.finish("status", span, rejected(CodeNotFound, "appointment no longer exists"))
	}
	if appt.Status == to && to == scheduling.StatusCanceled {
		return state, s.finish("status", span, succeeded(appt))
	}
	if !to.Valid() || !CanTransition(appt.Status, to) {
		return state, s.finish("status", span, rejected(CodeInvalidTransition,
			fmt.Sprintf("cannot change status from %s to %s", appt.Status, to)))
	}

	started := time.Now()
	updated, err := s.store.Update(ctx, id, scheduling.Patch{Status: &to})
	s.metrics.ObserveStoreCall("update", started)
	if err != nil {
		out := storeFailure(span, err)
		s.logger.Warn().Err(err).Str("appointment_id", id).Msg("status change not committed")
		s.notify(ctx, NoticeError, "could not update appointment: %s", out.Reason)
		return state, s.finish("status", span, out)
	}

	s.logger.Info().
		Str("appointment_id", id).
		Str("from", string(appt.Status)).
		Str("to", string(updated.Status)).
		Msg("appointment status changed")
	s.sync(ctx, updated)
	if to == scheduling.StatusCanceled {
		s.notify(ctx, NoticeInfo, "appointment for %s canceled", updated.ClientName)
	} else {
		s.notify(ctx, NoticeSuccess, "appointment marked %s", updated.Status)
	}
	return state.Upsert(updated), s.finish("status", span, succeeded(updated))
}

// Cancel is a logical delete: the appointment stays in the store as canceled
// and stops counting for conflicts.
func (s *Service) Cancel(ctx context.Context, state calendar.State, id string) (calendar.State, Outcome) {
	return s.ChangeStatus(ctx, state, id, scheduling.StatusCanceled)
}

// Remove deletes the appointment from the store for good. Only canceled
// appointments may be removed.
func (s *Service) Remove(ctx context.Context, state calendar.State, id string) (calendar.State, Outcome) {
	ctx, span := tracer.Start(ctx, "booking.remove")
	defer span.End()

	appt, ok := state.Find(id)
	if !ok {
		return state, s.finish("delete", span, rejected(CodeNotFound, "appointment no longer exists"))
	}
	if appt.Status != scheduling.StatusCanceled {
		return state, s.finish("delete", span, rejected(CodeInvalidTransition, "only canceled appointments can be removed"))
	}

	started := time.Now()
	err := s.store.Delete(ctx, id)
	s.metrics.ObserveStoreCall("delete", started)
	if err != nil {
		return state, s.finish("delete", span, storeFailure(span, err))
	}

	s.logger.Info().Str("appointment_id", id).Msg("appointment removed")
	remaining := make([]scheduling.Appointment, 0, len(state.Appointments()))
	for _, a := range state.Appointments() {
		if a.ID != id {
			remaining = append(remaining, a)
		}
	}
	return state.Refresh(remaining), s.finish("delete", span, succeeded(appt))
}
