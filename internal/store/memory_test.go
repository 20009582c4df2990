package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

func memAppt(id, professional string, start time.Time, duration int) scheduling.Appointment {
	return scheduling.Appointment{
		ID:             id,
		BusinessID:     "biz-1",
		ProfessionalID: professional,
		Date:           start,
		Duration:       duration,
		Status:         scheduling.StatusScheduled,
	}
}

func TestMemory_RefusesOverlap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(memAppt("a1", "pro-1", tuesday, 60))

	_, err := m.Create(ctx, memAppt("", "pro-1", tuesday.Add(30*time.Minute), 30))
	assert.ErrorIs(t, err, booking.ErrSlotTaken)

	// back to back is fine
	created, err := m.Create(ctx, memAppt("", "pro-1", tuesday.Add(time.Hour), 30))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = m.Create(ctx, memAppt("", "pro-2", tuesday, 60))
	assert.NoError(t, err)
}

func TestMemory_UpdateAndCancelFreesSlot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(memAppt("a1", "pro-1", tuesday, 60), memAppt("a2", "pro-1", tuesday.Add(2*time.Hour), 60))

	clash := tuesday.Add(90 * time.Minute)
	_, err := m.Update(ctx, "a1", scheduling.Patch{Date: &clash})
	assert.ErrorIs(t, err, booking.ErrSlotTaken)

	canceled := scheduling.StatusCanceled
	_, err = m.Update(ctx, "a2", scheduling.Patch{Status: &canceled})
	require.NoError(t, err)

	moved, err := m.Update(ctx, "a1", scheduling.Patch{Date: &clash})
	require.NoError(t, err)
	assert.True(t, moved.Date.Equal(clash))

	_, err = m.Update(ctx, "missing", scheduling.Patch{})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestMemory_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(memAppt("late", "pro-1", tuesday.Add(4*time.Hour), 30), memAppt("early", "pro-1", tuesday, 30))
	other := memAppt("x", "pro-9", tuesday, 30)
	other.BusinessID = "biz-2"
	_, err := m.Create(ctx, other)
	require.NoError(t, err)

	list, err := m.List(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)

	require.NoError(t, m.Delete(ctx, "early"))
	assert.ErrorIs(t, m.Delete(ctx, "early"), booking.ErrNotFound)
}
