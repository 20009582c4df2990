package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/drafts"
)

// loadSession returns ok=false after writing the response when the session is
// missing, expired or belongs to another business.
func (a *App) loadSession(c *gin.Context) (drafts.Session, bool) {
	sess, err := a.Drafts.Load(c.Request.Context(), c.Param("session_id"))
	if errors.Is(err, drafts.ErrNotFound) || (err == nil && sess.Stepper.Draft.BusinessID != c.Param("business_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking session not found"})
		return drafts.Session{}, false
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return drafts.Session{}, false
	}
	return sess, true
}

func (a *App) saveSession(c *gin.Context, sess drafts.Session) bool {
	if err := a.Drafts.Save(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// POST /booking-sessions
func (a *App) StartSessionHandler(c *gin.Context) {
	sess, err := a.Drafts.Start(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GET /booking-sessions/:session_id
func (a *App) GetSessionHandler(c *gin.Context) {
	sess, ok := a.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// PATCH /booking-sessions/:session_id
// Only fields of the current step are accepted.
func (a *App) UpdateSessionHandler(c *gin.Context) {
	var payload booking.DraftUpdate
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.EmergencyOverride != nil && forbidOverride(c, *payload.EmergencyOverride) {
		return
	}
	sess, ok := a.loadSession(c)
	if !ok {
		return
	}
	st, err := sess.Stepper.Apply(payload)
	if errors.Is(err, booking.ErrFieldNotEditable) || errors.Is(err, booking.ErrInvalidField) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sess.Stepper = st
	if !a.saveSession(c, sess) {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /booking-sessions/:session_id/next
func (a *App) NextStepHandler(c *gin.Context) {
	sess, ok := a.loadSession(c)
	if !ok {
		return
	}
	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	st, check, err := a.Booking.Next(c.Request.Context(), state, sess.Stepper)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !check.OK {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": check.Reason, "code": check.Code, "session": sess})
		return
	}
	sess.Stepper = st
	if !a.saveSession(c, sess) {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /booking-sessions/:session_id/back
func (a *App) BackStepHandler(c *gin.Context) {
	sess, ok := a.loadSession(c)
	if !ok {
		return
	}
	sess.Stepper = sess.Stepper.Back()
	if !a.saveSession(c, sess) {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /booking-sessions/:session_id/submit
// The session is discarded once the appointment is created.
func (a *App) SubmitSessionHandler(c *gin.Context) {
	sess, ok := a.loadSession(c)
	if !ok {
		return
	}
	state, _, ok := a.loadCalendar(c)
	if !ok {
		return
	}
	_, out := a.Booking.Submit(c.Request.Context(), state, sess.Stepper)
	if out.OK() {
		if err := a.Drafts.Delete(c.Request.Context(), sess.ID); err != nil {
			a.Logger.Warn().Err(err).Str("session_id", sess.ID).Msg("delete booking session failed")
		}
	}
	respond(c, out, http.StatusCreated)
}
