package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavouu/unclic-manager-sub000/internal/calendar"
	"github.com/Gustavouu/unclic-manager-sub000/internal/metrics"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

// 2026-10-19 is a Monday.
var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

type fakeStore struct {
	mu        sync.Mutex
	appts     map[string]scheduling.Appointment
	seq       int
	createErr error
	updateErr error
	deleteErr error
	updates   int
	creates   int
}

func newFakeStore(appts ...scheduling.Appointment) *fakeStore {
	s := &fakeStore{appts: map[string]scheduling.Appointment{}}
	for _, a := range appts {
		s.appts[a.ID] = a
	}
	return s
}

func (s *fakeStore) List(_ context.Context, businessID string) ([]scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduling.Appointment
	for _, a := range s.appts {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, appt scheduling.Appointment) (scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return scheduling.Appointment{}, s.createErr
	}
	s.seq++
	appt.ID = fmt.Sprintf("new-%d", s.seq)
	s.appts[appt.ID] = appt
	return appt, nil
}

func (s *fakeStore) Update(_ context.Context, id string, patch scheduling.Patch) (scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return scheduling.Appointment{}, s.updateErr
	}
	a, ok := s.appts[id]
	if !ok {
		return scheduling.Appointment{}, ErrNotFound
	}
	a = patch.Apply(a)
	s.appts[id] = a
	return a, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.appts[id]; !ok {
		return ErrNotFound
	}
	delete(s.appts, id)
	return nil
}

type fixedSettings struct {
	settings scheduling.Settings
	err      error
}

func (f fixedSettings) Settings(context.Context, string) (scheduling.Settings, error) {
	return f.settings, f.err
}

type notice struct {
	kind    NoticeKind
	message string
}

type recordingNotifier struct {
	notices []notice
}

func (r *recordingNotifier) Notify(_ context.Context, kind NoticeKind, message string) {
	r.notices = append(r.notices, notice{kind, message})
}

func (r *recordingNotifier) last() notice {
	if len(r.notices) == 0 {
		return notice{}
	}
	return r.notices[len(r.notices)-1]
}

type recordingMirror struct {
	synced []scheduling.Appointment
	err    error
}

func (m *recordingMirror) Sync(_ context.Context, appt scheduling.Appointment) error {
	m.synced = append(m.synced, appt)
	return m.err
}

func defaultSettings() scheduling.Settings {
	return scheduling.Settings{
		BusinessHours:       scheduling.DefaultBusinessHours(),
		MinAdvanceMinutes:   60,
		MaxFutureDays:       30,
		SlotIntervalMinutes: 30,
		Timezone:            "UTC",
	}
}

func seed(id, professional string, date time.Time, duration int) scheduling.Appointment {
	return scheduling.Appointment{
		ID:             id,
		BusinessID:     "biz-1",
		ClientID:       "client-" + id,
		ClientName:     "Client " + id,
		ProfessionalID: professional,
		ServiceID:      "svc-cut",
		ServiceName:    "Haircut",
		Date:           date,
		Duration:       duration,
		Status:         scheduling.StatusScheduled,
	}
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	notifier *recordingNotifier
	mirror   *recordingMirror
	cal      calendar.State
}

func newFixture(t *testing.T, settings scheduling.Settings, appts ...scheduling.Appointment) *fixture {
	t.Helper()
	store := newFakeStore(appts...)
	notifier := &recordingNotifier{}
	mirror := &recordingMirror{}
	svc := NewService(store, fixedSettings{settings: settings}, notifier,
		WithMirror(mirror),
		WithMetrics(metrics.NewSchedulingMetrics(prometheus.NewRegistry())),
		WithClock(func() time.Time { return at(monday, 9, 0) }),
	)
	return &fixture{
		svc:      svc,
		store:    store,
		notifier: notifier,
		mirror:   mirror,
		cal:      calendar.New(monday, appts),
	}
}

func TestNewService_RequiresStoreAndSettings(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, fixedSettings{}, nil) })
	assert.Panics(t, func() { NewService(newFakeStore(), nil, nil) })
}

func TestLoadCalendar(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	f := newFixture(t, defaultSettings(), seed("a1", "pro-1", at(tuesday, 10, 0), 60))

	cal, settings, err := f.svc.LoadCalendar(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 60, settings.MinAdvanceMinutes)
	assert.Len(t, cal.Appointments(), 1)
	assert.True(t, cal.Selected.Equal(monday))
}

func TestLoadCalendar_SettingsError(t *testing.T) {
	svc := NewService(newFakeStore(), fixedSettings{err: errors.New("redis down")}, nil)
	_, _, err := svc.LoadCalendar(context.Background(), "biz-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestSlots_MarksBusyProfessional(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	f := newFixture(t, defaultSettings(), seed("a1", "pro-1", at(tuesday, 10, 0), 60))

	slots, err := f.svc.Slots(context.Background(), "biz-1", f.cal, tuesday, "pro-1", 30)
	require.NoError(t, err)
	require.Len(t, slots, 18)

	byLabel := map[string]SlotAvailability{}
	for _, s := range slots {
		byLabel[s.Label] = s
	}
	assert.True(t, byLabel["09:30"].Available)
	assert.False(t, byLabel["10:00"].Available)
	assert.False(t, byLabel["10:30"].Available)
	assert.NotEmpty(t, byLabel["10:30"].Reason)
	assert.True(t, byLabel["11:00"].Available)

	other, err := f.svc.Slots(context.Background(), "biz-1", f.cal, tuesday, "pro-2", 30)
	require.NoError(t, err)
	for _, s := range other {
		assert.True(t, s.Available, s.Label)
	}
}

func TestSlots_UnbookableDay(t *testing.T) {
	f := newFixture(t, defaultSettings())

	past, err := f.svc.Slots(context.Background(), "biz-1", f.cal, monday.AddDate(0, 0, -1), "", 0)
	require.NoError(t, err)
	assert.Empty(t, past)

	beyond, err := f.svc.Slots(context.Background(), "biz-1", f.cal, monday.AddDate(0, 0, 45), "", 0)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestValidate_UsesHeldCollection(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	f := newFixture(t, defaultSettings(), seed("a1", "pro-1", at(tuesday, 10, 0), 60))

	res, err := f.svc.Validate(context.Background(), "biz-1", f.cal, scheduling.Candidate{
		ProfessionalID: "pro-1",
		Date:           at(tuesday, 10, 30),
		Duration:       30,
	}, false)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, scheduling.ReasonConflict, res.Code)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, "a1", res.Conflict.ID)
}
