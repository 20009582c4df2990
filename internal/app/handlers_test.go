package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/businessconfig"
	"github.com/Gustavouu/unclic-manager-sub000/internal/drafts"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
	"github.com/Gustavouu/unclic-manager-sub000/internal/store"
)

const (
	serviceToken = "svc-token"
	jwtSecret    = "test-secret"
)

// Monday 2026-10-19 09:00 UTC.
var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func tuesdayAt(hour, min int) time.Time {
	return time.Date(2026, 10, 20, hour, min, 0, 0, time.UTC)
}

func seeded(id, pro string, date time.Time, dur int) scheduling.Appointment {
	return scheduling.Appointment{
		ID:             id,
		BusinessID:     "biz-1",
		ClientID:       "client-" + id,
		ClientName:     "Client " + id,
		ProfessionalID: pro,
		ServiceID:      "svc-cut",
		ServiceName:    "Haircut",
		Date:           date,
		Duration:       dur,
		Status:         scheduling.StatusScheduled,
	}
}

type testEnv struct {
	router *gin.Engine
	app    *App
	mem    *store.Memory
	redis  *redis.Client
}

func newTestEnv(t *testing.T, appts ...scheduling.Appointment) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	settings := businessconfig.NewStore(client, scheduling.Settings{
		BusinessHours:       scheduling.DefaultBusinessHours(),
		MinAdvanceMinutes:   60,
		MaxFutureDays:       30,
		SlotIntervalMinutes: 30,
		Timezone:            "UTC",
	})
	mem := store.NewMemory(appts...)
	a := &App{
		Booking: booking.NewService(mem, settings, nil,
			booking.WithClock(func() time.Time { return testNow })),
		Settings: settings,
		Drafts:   drafts.NewStore(client, time.Hour),
		Logger:   zerolog.Nop(),
	}
	return &testEnv{
		router: a.Router(AuthConfig{StaticTokens: []string{serviceToken}, JWTSecret: jwtSecret}),
		app:    a,
		mem:    mem,
		redis:  client,
	}
}

func signToken(t *testing.T, businessID, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		BusinessID: businessID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const base = "/api/businesses/biz-1"

func TestAuth(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, base+"/settings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, base+"/settings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, base+"/settings", signToken(t, "biz-2", "owner"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, base+"/settings", signToken(t, "biz-1", "staff"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/businesses/any-biz/settings", serviceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	e.app.Ready = func(context.Context) error { return errors.New("db down") }
	e.router = e.app.Router(AuthConfig{StaticTokens: []string{serviceToken}})
	w = e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSettings_PutAndGet(t *testing.T) {
	e := newTestEnv(t)
	token := signToken(t, "biz-1", "owner")

	bad := scheduling.Settings{BusinessHours: scheduling.DefaultBusinessHours(), Timezone: "Mars/Olympus"}
	w := e.do(t, http.MethodPut, base+"/settings", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	good := scheduling.Settings{
		BusinessHours:       scheduling.BusinessHours{time.Saturday: {Enabled: true, Start: "08:00", End: "12:00"}},
		MinAdvanceMinutes:   15,
		MaxFutureDays:       10,
		SlotIntervalMinutes: 15,
		Timezone:            "America/Sao_Paulo",
	}
	w = e.do(t, http.MethodPut, base+"/settings", token, good)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, base+"/settings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[scheduling.Settings](t, w)
	assert.Equal(t, "America/Sao_Paulo", got.Timezone)
	assert.Equal(t, "08:00", got.BusinessHours[time.Saturday].Start)
}

func TestSlots_MarksBusyProfessional(t *testing.T) {
	e := newTestEnv(t, seeded("a1", "pro-1", tuesdayAt(10, 0), 60))

	w := e.do(t, http.MethodGet, base+"/slots?date=2026-10-20&professional_id=pro-1&duration=30", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[struct {
		Slots []booking.SlotAvailability `json:"slots"`
	}](t, w)
	require.Len(t, body.Slots, 18)
	busy := map[string]bool{}
	for _, s := range body.Slots {
		if !s.Available {
			busy[s.Label] = true
		}
	}
	assert.Equal(t, map[string]bool{"10:00": true, "10:30": true}, busy)

	w = e.do(t, http.MethodGet, base+"/slots?date=2026-10-24", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2026-10-24","slots":[]}`, w.Body.String())

	w = e.do(t, http.MethodGet, base+"/slots", serviceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodGet, base+"/slots?date=20-10-2026", serviceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidate_OverrideNeedsPrivilege(t *testing.T) {
	e := newTestEnv(t)
	req := gin.H{
		"professional_id":    "pro-1",
		"date":               time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		"duration":           30,
		"emergency_override": false,
	}

	w := e.do(t, http.MethodPost, base+"/appointments/validate", signToken(t, "biz-1", "staff"), req)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[scheduling.Result](t, w)
	assert.False(t, res.Valid)
	assert.Equal(t, scheduling.ReasonInsufficientNotice, res.Code)

	req["emergency_override"] = true
	w = e.do(t, http.MethodPost, base+"/appointments/validate", signToken(t, "biz-1", "staff"), req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, base+"/appointments/validate", signToken(t, "biz-1", "admin"), req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[scheduling.Result](t, w).Valid)
}

func TestListAppointments_Range(t *testing.T) {
	e := newTestEnv(t,
		seeded("a1", "pro-1", tuesdayAt(10, 0), 60),
		seeded("a2", "pro-2", tuesdayAt(15, 0), 30),
	)

	w := e.do(t, http.MethodGet, base+"/appointments", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]scheduling.Appointment](t, w), 2)

	w = e.do(t, http.MethodGet, base+"/appointments?from=2026-10-20T12:00:00Z&to=2026-10-21T00:00:00Z", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]scheduling.Appointment](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)

	w = e.do(t, http.MethodGet, base+"/appointments?from=2026-10-21T00:00:00Z&to=2026-10-20T00:00:00Z", serviceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendar_WeekView(t *testing.T) {
	e := newTestEnv(t,
		seeded("a1", "pro-1", tuesdayAt(10, 0), 60),
		seeded("a2", "pro-2", tuesdayAt(10, 0).AddDate(0, 0, 14), 30),
	)

	w := e.do(t, http.MethodGet, base+"/calendar?view=week&anchor=2026-10-20", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Days         []*time.Time             `json:"days"`
		Appointments []scheduling.Appointment `json:"appointments"`
	}](t, w)
	assert.Len(t, body.Days, 7)
	require.Len(t, body.Appointments, 1)
	assert.Equal(t, "a1", body.Appointments[0].ID)

	w = e.do(t, http.MethodGet, base+"/calendar?view=week&anchor=2026-10-20&step=next&step=next", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, base+"/calendar?professional=pro-9", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[struct {
		Appointments []scheduling.Appointment `json:"appointments"`
	}](t, w).Appointments)

	w = e.do(t, http.MethodGet, base+"/calendar?step=sideways", serviceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMove(t *testing.T) {
	e := newTestEnv(t,
		seeded("a1", "pro-1", tuesdayAt(10, 0), 60),
		seeded("a2", "pro-1", tuesdayAt(15, 0), 60),
	)
	token := signToken(t, "biz-1", "staff")

	w := e.do(t, http.MethodPost, base+"/appointments/a1/move", token, booking.DropRequest{Date: tuesdayAt(13, 0)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[scheduling.Appointment](t, w)
	assert.True(t, tuesdayAt(13, 0).Equal(moved.Date))

	w = e.do(t, http.MethodPost, base+"/appointments/a1/move", token, booking.DropRequest{Date: tuesdayAt(15, 30)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, base+"/appointments/a1/move", token, booking.DropRequest{Date: tuesdayAt(18, 0)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(scheduling.ReasonOutsideBusinessHours))

	list, err := e.mem.List(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.True(t, tuesdayAt(13, 0).Equal(list[0].Date))

	w = e.do(t, http.MethodPost, base+"/appointments/nope/move", token, booking.DropRequest{Date: tuesdayAt(13, 0)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, base+"/appointments/a1/move", token,
		booking.DropRequest{Date: tuesdayAt(13, 0), EmergencyOverride: true})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChangeStatus(t *testing.T) {
	e := newTestEnv(t, seeded("a1", "pro-1", tuesdayAt(10, 0), 60))

	w := e.do(t, http.MethodPost, base+"/appointments/a1/status", serviceToken, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, scheduling.StatusConfirmed, decode[scheduling.Appointment](t, w).Status)

	w = e.do(t, http.MethodPost, base+"/appointments/a1/status", serviceToken, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(booking.CodeInvalidTransition))

	w = e.do(t, http.MethodPost, base+"/appointments/a1/status", serviceToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAndPurge(t *testing.T) {
	e := newTestEnv(t, seeded("a1", "pro-1", tuesdayAt(10, 0), 60))
	staff := signToken(t, "biz-1", "staff")

	w := e.do(t, http.MethodDelete, base+"/appointments/a1?purge=true", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodDelete, base+"/appointments/a1?purge=true", serviceToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodDelete, base+"/appointments/a1", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, scheduling.StatusCanceled, decode[scheduling.Appointment](t, w).Status)

	// canceling twice is fine
	w = e.do(t, http.MethodDelete, base+"/appointments/a1", staff, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, base+"/appointments/a1?purge=true", serviceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list, err := e.mem.List(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	w = e.do(t, http.MethodDelete, base+"/appointments/a1", staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type brokenStore struct{ booking.AppointmentStore }

func (brokenStore) List(context.Context, string) ([]scheduling.Appointment, error) {
	return nil, errors.New("connection refused")
}

func TestStoreDown(t *testing.T) {
	e := newTestEnv(t)
	e.app.Booking = booking.NewService(brokenStore{}, e.app.Settings, nil)
	e.router = e.app.Router(AuthConfig{StaticTokens: []string{serviceToken}})

	w := e.do(t, http.MethodGet, base+"/appointments", serviceToken, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		out  booking.Outcome
		want int
	}{
		{booking.Outcome{Kind: booking.OutcomeSuccess, Appointment: &scheduling.Appointment{ID: "x"}}, http.StatusCreated},
		{booking.Outcome{Kind: booking.OutcomeRejected, Code: scheduling.ReasonConflict}, http.StatusConflict},
		{booking.Outcome{Kind: booking.OutcomeRejected, Code: booking.CodeNotFound}, http.StatusNotFound},
		{booking.Outcome{Kind: booking.OutcomeRejected, Code: scheduling.ReasonInPast}, http.StatusUnprocessableEntity},
		{booking.Outcome{Kind: booking.OutcomeExternalError, Reason: "timeout"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respond(c, tc.out, http.StatusCreated)
		assert.Equal(t, tc.want, w.Code, tc.out.Code)
	}
}
