package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// Candidate is a proposed booking interval for a professional.
type Candidate struct {
	ProfessionalID       string    `json:"professional_id"`
	Date                 time.Time `json:"date"`
	Duration             int       `json:"duration"`
	ExcludeAppointmentID string    `json:"exclude_appointment_id,omitempty"`
}

func (c Candidate) End() time.Time {
	return c.Date.Add(time.Duration(c.Duration) * time.Minute)
}

type ConflictResult struct {
	Conflict bool
	With     *Appointment
	Reason   string
}

// HasConflict checks c against the non-canceled appointments of the same
// professional, ignoring c.ExcludeAppointmentID. Intervals are half-open, so an
// appointment ending exactly when the candidate starts does not conflict.
func HasConflict(existing []Appointment, c Candidate) ConflictResult {
	start, end := c.Date, c.End()
	for i := range existing {
		other := existing[i]
		if other.ProfessionalID != c.ProfessionalID || other.Status == StatusCanceled {
			continue
		}
		if c.ExcludeAppointmentID != "" && other.ID == c.ExcludeAppointmentID {
			continue
		}
		if start.Before(other.End()) && other.Date.Before(end) {
			return ConflictResult{Conflict: true, With: &other, Reason: conflictReason(other, start.Location())}
		}
	}
	return ConflictResult{}
}

func conflictReason(other Appointment, loc *time.Location) string {
	span := fmt.Sprintf("%s-%s", other.Date.In(loc).Format("15:04"), other.End().In(loc).Format("15:04"))
	var who []string
	if other.ClientName != "" {
		who = append(who, other.ClientName)
	}
	if other.ServiceName != "" {
		who = append(who, other.ServiceName)
	}
	if len(who) == 0 {
		return fmt.Sprintf("professional already has an appointment at %s", span)
	}
	return fmt.Sprintf("professional already has an appointment at %s (%s)", span, strings.Join(who, ", "))
}
