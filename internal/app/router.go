package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gustavouu/unclic-manager-sub000/internal/logging"
	"github.com/Gustavouu/unclic-manager-sub000/internal/notify"
)

// Router builds the gin engine. Health, metrics and the OAuth callback are
// public; everything under /api needs a bearer token.
func (a *App) Router(auth AuthConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(a.Logger))

	router.GET("/healthz", a.HealthHandler)
	if a.Metrics != nil {
		router.GET("/metrics", gin.WrapH(a.Metrics))
	}
	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api", AuthMiddleware(auth))
	biz := api.Group("/businesses/:business_id", RequireBusiness(), businessContext())
	{
		biz.GET("/settings", a.GetSettingsHandler)
		biz.PUT("/settings", a.PutSettingsHandler)
		biz.GET("/slots", a.GetSlotsHandler)
		biz.GET("/calendar", a.GetCalendarHandler)

		appts := biz.Group("/appointments")
		{
			appts.GET("", a.ListAppointmentsHandler)
			appts.POST("/validate", a.ValidateHandler)
			appts.POST("/:id/move", a.MoveAppointmentHandler)
			appts.POST("/:id/status", a.ChangeStatusHandler)
			appts.DELETE("/:id", a.CancelAppointmentHandler)
		}

		sessions := biz.Group("/booking-sessions")
		{
			sessions.POST("", a.StartSessionHandler)
			sessions.GET("/:session_id", a.GetSessionHandler)
			sessions.PATCH("/:session_id", a.UpdateSessionHandler)
			sessions.POST("/:session_id/next", a.NextStepHandler)
			sessions.POST("/:session_id/back", a.BackStepHandler)
			sessions.POST("/:session_id/submit", a.SubmitSessionHandler)
		}

		google := biz.Group("/calendar/google")
		{
			google.GET("/auth", a.GoogleAuthHandler)
			google.GET("/events", a.GoogleEventsHandler)
		}
	}

	return router
}

// businessContext tags the request context so notifications carry the
// business they belong to.
func businessContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := notify.WithBusiness(c.Request.Context(), c.Param("business_id"))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	if a.Ready != nil {
		if err := a.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
