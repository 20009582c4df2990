package app

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/drafts"
	"github.com/Gustavouu/unclic-manager-sub000/internal/gcal"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

// SettingsStore reads and writes per-business configuration.
type SettingsStore interface {
	booking.SettingsProvider
	Save(ctx context.Context, businessID string, cfg scheduling.Settings) error
}

// DraftStore keeps booking stepper sessions between requests.
type DraftStore interface {
	Start(ctx context.Context, businessID string) (drafts.Session, error)
	Load(ctx context.Context, id string) (drafts.Session, error)
	Save(ctx context.Context, sess drafts.Session) error
	Delete(ctx context.Context, id string) error
}

// App holds the dependencies of the HTTP handlers.
type App struct {
	Booking  *booking.Service
	Settings SettingsStore
	Drafts   DraftStore
	Calendar *gcal.Connector // nil when Google Calendar is not configured
	Metrics  http.Handler
	Ready    func(context.Context) error
	Logger   zerolog.Logger
}
