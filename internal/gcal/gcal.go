// Package gcal connects a business to Google Calendar and mirrors committed
// appointments into it as events.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var (
	ErrNotConfigured = errors.New("google calendar not configured")
	ErrNotConnected  = errors.New("business has not connected google calendar")
	ErrInvalidState  = errors.New("unknown or expired oauth state")
)

const stateTTL = 10 * time.Minute

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CalendarID   string
}

// OAuthConfig returns nil when any credential is missing.
func OAuthConfig(cfg Config) *oauth2.Config {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			calendar.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}
}

// ServiceFactory builds a Calendar client authorized with tok.
type ServiceFactory func(ctx context.Context, tok *oauth2.Token) (*calendar.Service, error)

// Connector runs the OAuth flow and keeps each business's token in Redis.
type Connector struct {
	oauth      *oauth2.Config
	redis      *redis.Client
	calendarID string
	newService ServiceFactory
	now        func() time.Time
}

// NewConnector returns nil when cfg lacks credentials.
func NewConnector(cfg Config, redisClient *redis.Client) *Connector {
	oc := OAuthConfig(cfg)
	if oc == nil {
		return nil
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	c := &Connector{oauth: oc, redis: redisClient, calendarID: calendarID, now: time.Now}
	c.newService = func(ctx context.Context, tok *oauth2.Token) (*calendar.Service, error) {
		return calendar.NewService(ctx, option.WithHTTPClient(oc.Client(ctx, tok)))
	}
	return c
}

func tokenKey(businessID string) string { return fmt.Sprintf("gcal:token:%s", businessID) }
func stateKey(state string) string      { return fmt.Sprintf("gcal:state:%s", state) }

// AuthURL starts the consent flow for businessID.
func (c *Connector) AuthURL(ctx context.Context, businessID string) (url, state string, err error) {
	if c == nil {
		return "", "", ErrNotConfigured
	}
	state = fmt.Sprintf("biz_%s_%d", businessID, c.now().Unix())
	if err := c.redis.Set(ctx, stateKey(state), businessID, stateTTL).Err(); err != nil {
		return "", "", fmt.Errorf("gcal: save state: %w", err)
	}
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), state, nil
}

// Complete exchanges the callback code and stores the token for the business
// that started the flow.
func (c *Connector) Complete(ctx context.Context, code, state string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	businessID, err := c.redis.GetDel(ctx, stateKey(state)).Result()
	if err == redis.Nil {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("gcal: load state: %w", err)
	}
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("gcal: exchange code: %w", err)
	}
	if err := c.SaveToken(ctx, businessID, tok); err != nil {
		return "", err
	}
	return businessID, nil
}

func (c *Connector) SaveToken(ctx context.Context, businessID string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("gcal: marshal token: %w", err)
	}
	if err := c.redis.Set(ctx, tokenKey(businessID), data, 0).Err(); err != nil {
		return fmt.Errorf("gcal: save token: %w", err)
	}
	return nil
}

func (c *Connector) token(ctx context.Context, businessID string) (*oauth2.Token, error) {
	data, err := c.redis.Get(ctx, tokenKey(businessID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("gcal: load token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("gcal: unmarshal token: %w", err)
	}
	return &tok, nil
}

func (c *Connector) service(ctx context.Context, businessID string) (*calendar.Service, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	tok, err := c.token(ctx, businessID)
	if err != nil {
		return nil, err
	}
	srv, err := c.newService(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("gcal: create calendar service: %w", err)
	}
	return srv, nil
}

// Event is a Google Calendar event as shown next to the scheduler's own
// appointments.
type Event struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

// Events lists the business calendar's events between from and to.
func (c *Connector) Events(ctx context.Context, businessID string, from, to time.Time) ([]Event, error) {
	srv, err := c.service(ctx, businessID)
	if err != nil {
		return nil, err
	}
	events, err := srv.Events.List(c.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}

	out := make([]Event, 0, len(events.Items))
	for _, item := range events.Items {
		ev := Event{ID: item.Id, Summary: item.Summary, Status: item.Status}
		ev.StartTime = parseEventTime(item.Start)
		ev.EndTime = parseEventTime(item.End)
		out = append(out, ev)
	}
	return out, nil
}

func parseEventTime(t *calendar.EventDateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	if t.DateTime != "" {
		if v, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return v
		}
	}
	if t.Date != "" {
		if v, err := time.Parse("2006-01-02", t.Date); err == nil {
			return v
		}
	}
	return time.Time{}
}

// EventID derives a stable Google event id from an appointment id. Google only
// accepts the base32hex alphabet (0-9, a-v).
func EventID(appointmentID string) string {
	var b strings.Builder
	b.WriteString("appt")
	for _, r := range strings.ToLower(appointmentID) {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'v') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
