package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to scheduling.Status
		want     bool
	}{
		{scheduling.StatusPending, scheduling.StatusConfirmed, true},
		{scheduling.StatusPending, scheduling.StatusCompleted, false},
		{scheduling.StatusScheduled, scheduling.StatusNoShow, true},
		{scheduling.StatusConfirmed, scheduling.StatusCompleted, true},
		{scheduling.StatusConfirmed, scheduling.StatusPending, false},
		{scheduling.StatusCompleted, scheduling.StatusScheduled, false},
		{scheduling.StatusCanceled, scheduling.StatusScheduled, false},
		{scheduling.StatusNoShow, scheduling.StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestChangeStatus(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	f := newFixture(t, defaultSettings(), seed("a1", "pro-1", at(tuesday, 10, 0), 60))

	cal, out := f.svc.ChangeStatus(context.Background(), f.cal, "a1", scheduling.StatusConfirmed)
	require.True(t, out.OK(), out.Reason)
	got, _ := cal.Find("a1")
	assert.Equal(t, scheduling.StatusConfirmed, got.Status)

	_, out = f.svc.ChangeStatus(context.Background(), cal, "a1", scheduling.StatusPending)
	assert.Equal(t, CodeInvalidTransition, out.Code)

	_, out = f.svc.ChangeStatus(context.Background(), cal, "missing", scheduling.StatusCanceled)
	assert.Equal(t, CodeNotFound, out.Code)
}

func TestCancel_IsLogicalAndIdempotent(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	f := newFixture(t, defaultSettings(), seed("a1", "pro-1", at(tuesday, 10, 0), 60))

	cal, out := f.svc.Cancel(context.Background(), f.cal, "a1")
	require.True(t, out.OK())
	assert.Equal(t, 1, f.store.updates)
	canceled, ok := cal.Find("a1")
	require.True(t, ok)
	assert.Equal(t, scheduling.StatusCanceled, canceled.Status)
	assert.Equal(t, NoticeInfo, f.notifier.last().kind)

	cal, out = f.svc.Cancel(context.Background(), cal, "a1")
	assert.True(t, out.OK())
	assert.Equal(t, 1, f.store.updates)

	// the freed slot is bookable again
	res, err := f.svc.Validate(context.Background(), "biz-1", cal, scheduling.Candidate{
		ProfessionalID: "pro-1", Date: at(tuesday, 10, 0), Duration: 60,
	}, false)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestRemove(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	f := newFixture(t, defaultSettings(), seed("a1", "pro-1", at(tuesday, 10, 0), 60))

	_, out := f.svc.Remove(context.Background(), f.cal, "a1")
	assert.Equal(t, CodeInvalidTransition, out.Code)

	cal, _ := f.svc.Cancel(context.Background(), f.cal, "a1")
	cal, out = f.svc.Remove(context.Background(), cal, "a1")
	require.True(t, out.OK())
	_, ok := cal.Find("a1")
	assert.False(t, ok)
	_, stored := f.store.appts["a1"]
	assert.False(t, stored)
}
