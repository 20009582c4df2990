package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gustavouu/unclic-manager-sub000/internal/gcal"
)

func googleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gcal.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
	case errors.Is(err, gcal.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gcal.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// GoogleAuthHandler initiates OAuth2 flow for the business in the path.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	url, state, err := a.Calendar.AuthURL(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		googleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GoogleOAuth2CallbackHandler handles OAuth2 callback. The state names the
// business that started the flow, so the route needs no bearer token.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code and state required"})
		return
	}

	businessID, err := a.Calendar.Complete(c.Request.Context(), code, state)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("google oauth callback failed")
		googleError(c, err)
		return
	}
	a.Logger.Info().Str("business_id", businessID).Msg("google calendar connected")
	c.JSON(http.StatusOK, gin.H{
		"message":     "Authorization successful",
		"business_id": businessID,
	})
}

// GoogleEventsHandler lists the connected calendar's events, by default for
// the next 30 days.
func (a *App) GoogleEventsHandler(c *gin.Context) {
	from := time.Now().UTC()
	to := from.AddDate(0, 0, 30)
	var err error
	if s := c.Query("time_min"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_min"})
			return
		}
	}
	if s := c.Query("time_max"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_max"})
			return
		}
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_min must be before time_max"})
		return
	}

	events, err := a.Calendar.Events(c.Request.Context(), c.Param("business_id"), from, to)
	if err != nil {
		googleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
