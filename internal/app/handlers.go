package app

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/businessconfig"
	"github.com/Gustavouu/unclic-manager-sub000/internal/calendar"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

const dayLayout = "2006-01-02"

// respond writes a mutation outcome. Rejections are 422 except conflicts (409)
// and vanished appointments (404); store failures are 502.
func respond(c *gin.Context, out booking.Outcome, okStatus int) {
	switch out.Kind {
	case booking.OutcomeSuccess:
		c.JSON(okStatus, out.Appointment)
	case booking.OutcomeRejected:
		status := http.StatusUnprocessableEntity
		switch out.Code {
		case scheduling.ReasonConflict:
			status = http.StatusConflict
		case booking.CodeNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": out.Reason, "code": out.Code})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": out.Reason})
	}
}

// loadCalendar writes a 502 and returns ok=false when the store or the
// settings provider is unreachable.
func (a *App) loadCalendar(c *gin.Context) (calendar.State, scheduling.Settings, bool) {
	state, settings, err := a.Booking.LoadCalendar(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		a.Logger.Error().Err(err).Str("business_id", c.Param("business_id")).Msg("load calendar failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return calendar.State{}, scheduling.Settings{}, false
	}
	return state, settings, true
}

func forbidOverride(c *gin.Context, override bool) bool {
	if override && !principal(c).Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "emergency override requires an owner or admin"})
		return true
	}
	return false
}

// GET /settings
func (a *App) GetSettingsHandler(c *gin.Context) {
	settings, err := a.Settings.Settings(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PUT /settings
func (a *App) PutSettingsHandler(c *gin.Context) {
	var payload scheduling.Settings
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := a.Settings.Save(c.Request.Context(), c.Param("business_id"), payload)
	if errors.Is(err, businessconfig.ErrInvalidSettings) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// GET /slots?date=YYYY-MM-DD&professional_id=&duration=
func (a *App) GetSlotsHandler(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)"})
		return
	}
	duration := 0
	if d := c.Query("duration"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
			return
		}
		duration = n
	}

	state, settings, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	day, err := time.ParseInLocation(dayLayout, dateStr, settings.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	slots, err := a.Booking.Slots(c.Request.Context(), c.Param("business_id"), state, day, c.Query("professional_id"), duration)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if slots == nil {
		slots = []booking.SlotAvailability{}
	}
	c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": slots})
}

type validateReq struct {
	ProfessionalID       string    `json:"professional_id" binding:"required"`
	Date                 time.Time `json:"date"`
	Duration             int       `json:"duration"`
	ExcludeAppointmentID string    `json:"exclude_appointment_id"`
	EmergencyOverride    bool      `json:"emergency_override"`
}

// POST /appointments/validate
func (a *App) ValidateHandler(c *gin.Context) {
	var req validateReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
		return
	}
	if forbidOverride(c, req.EmergencyOverride) {
		return
	}
	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	res, err := a.Booking.Validate(c.Request.Context(), c.Param("business_id"), state, scheduling.Candidate{
		ProfessionalID:       req.ProfessionalID,
		Date:                 req.Date,
		Duration:             req.Duration,
		ExcludeAppointmentID: req.ExcludeAppointmentID,
	}, req.EmergencyOverride)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /appointments?from=ISO&to=ISO
func (a *App) ListAppointmentsHandler(c *gin.Context) {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
	}
	if fromStr != "" && toStr != "" && !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	out := []scheduling.Appointment{}
	for _, appt := range state.FilteredAppointments() {
		if fromStr != "" && appt.Date.Before(from) {
			continue
		}
		if toStr != "" && !appt.Date.Before(to) {
			continue
		}
		out = append(out, appt)
	}
	c.JSON(http.StatusOK, out)
}

// GET /calendar?view=&anchor=&selected=&step=&service=&professional=
//
// The calendar state is rebuilt per request: anchor and selected position it,
// view and step move it, and the response carries the derived grid and the
// appointments visible in the current mode.
func (a *App) GetCalendarHandler(c *gin.Context) {
	state, settings, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	loc := settings.Location()

	if s := c.Query("anchor"); s != "" {
		day, err := time.ParseInLocation(dayLayout, s, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid anchor"})
			return
		}
		state.Anchor = day
	}
	if s := c.Query("selected"); s != "" {
		day, err := time.ParseInLocation(dayLayout, s, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selected"})
			return
		}
		state = state.SelectDay(day)
	}
	if v := c.Query("view"); v != "" {
		state = state.SetView(calendar.ParseViewMode(v))
	}
	switch c.Query("step") {
	case "":
	case "next":
		state = state.Next()
	case "prev":
		state = state.Prev()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be next or prev"})
		return
	}
	state = state.SetServiceFilter(c.Query("service")).SetProfessionalFilter(c.Query("professional"))

	visible := state.Visible()
	if visible == nil {
		visible = []scheduling.Appointment{}
	}
	c.JSON(http.StatusOK, gin.H{
		"state":        state,
		"days":         state.CalendarDays(),
		"appointments": visible,
	})
}

// POST /appointments/:id/move
func (a *App) MoveAppointmentHandler(c *gin.Context) {
	var req booking.DropRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
		return
	}
	if forbidOverride(c, req.EmergencyOverride) {
		return
	}

	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, found := state.Find(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
		return
	}
	_, out := a.Booking.Drop(c.Request.Context(), state.BeginDrag(id), req)
	respond(c, out, http.StatusOK)
}

type statusReq struct {
	Status scheduling.Status `json:"status" binding:"required"`
}

// POST /appointments/:id/status
func (a *App) ChangeStatusHandler(c *gin.Context) {
	var req statusReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	_, out := a.Booking.ChangeStatus(c.Request.Context(), state, c.Param("id"), req.Status)
	respond(c, out, http.StatusOK)
}

// DELETE /appointments/:id[?purge=true]
//
// Without purge this cancels the appointment. Purging removes a canceled
// appointment from the store and is reserved to privileged callers.
func (a *App) CancelAppointmentHandler(c *gin.Context) {
	purge := c.Query("purge") == "true"
	if purge && !principal(c).Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "purging appointments requires an owner or admin"})
		return
	}
	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}

	var out booking.Outcome
	if purge {
		_, out = a.Booking.Remove(c.Request.Context(), state, c.Param("id"))
	} else {
		_, out = a.Booking.Cancel(c.Request.Context(), state, c.Param("id"))
	}
	respond(c, out, http.StatusOK)
}
