package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

// Mirror copies committed appointments into the business's Google Calendar.
// Businesses that never connected a calendar are skipped.
type Mirror struct {
	conn   *Connector
	logger zerolog.Logger
}

func NewMirror(conn *Connector, logger zerolog.Logger) *Mirror {
	return &Mirror{conn: conn, logger: logger}
}

func (m *Mirror) Sync(ctx context.Context, appt scheduling.Appointment) error {
	srv, err := m.conn.service(ctx, appt.BusinessID)
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}

	id := EventID(appt.ID)
	calID := m.conn.calendarID
	if appt.Status == scheduling.StatusCanceled {
		err := srv.Events.Delete(calID, id).Context(ctx).Do()
		if err != nil && !isGone(err) {
			return fmt.Errorf("gcal: delete event: %w", err)
		}
		m.logger.Debug().Str("appointment_id", appt.ID).Msg("calendar event removed")
		return nil
	}

	ev := toEvent(appt)
	if _, err := srv.Events.Update(calID, id, ev).Context(ctx).Do(); err != nil {
		if !isGone(err) {
			return fmt.Errorf("gcal: update event: %w", err)
		}
		ev.Id = id
		if _, err := srv.Events.Insert(calID, ev).Context(ctx).Do(); err != nil {
			return fmt.Errorf("gcal: insert event: %w", err)
		}
	}
	m.logger.Debug().Str("appointment_id", appt.ID).Str("event_id", id).Msg("calendar event synced")
	return nil
}

func toEvent(appt scheduling.Appointment) *calendar.Event {
	summary := appt.ServiceName
	if appt.ClientName != "" {
		summary = fmt.Sprintf("%s - %s", appt.ServiceName, appt.ClientName)
	}
	status := "confirmed"
	if appt.Status == scheduling.StatusPending {
		status = "tentative"
	}
	return &calendar.Event{
		Summary:     summary,
		Description: appt.Notes,
		Status:      status,
		Start:       &calendar.EventDateTime{DateTime: appt.Date.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: appt.End().UTC().Format(time.RFC3339)},
	}
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone)
}
