package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAssignsSequentialIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Create(ctx, Appointment{PatientName: "Rahul", DoctorID: 1, Date: "2026-10-21", Time: "10:00:00"})
	require.NoError(t, err)
	second, err := store.Create(ctx, Appointment{PatientName: "Asha", DoctorID: 1, Date: "2026-10-21", Time: "10:30:00"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, StatusScheduled, first.Status)
}

func TestMemoryStoreRejectsDoubleBooking(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, Appointment{DoctorID: 1, Date: "2026-10-21", Time: "10:00:00"})
	require.NoError(t, err)
	_, err = store.Create(ctx, Appointment{DoctorID: 1, Date: "2026-10-21", Time: "10:00:00"})
	assert.True(t, errors.Is(err, ErrSlotTaken))
}

func TestMemoryStoreExistsAtOnlyCountsScheduled(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	date := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

	appt, err := store.Create(ctx, Appointment{DoctorID: 1, Date: "2026-10-21", Time: "10:00:00"})
	require.NoError(t, err)

	ok, err := store.ExistsAt(ctx, 1, date, "10:00:00")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.ExistsAt(ctx, 2, date, "10:00:00")
	assert.False(t, ok, "different doctor")
	ok, _ = store.ExistsAt(ctx, 1, date, "10:30:00")
	assert.False(t, ok, "different time")

	require.NoError(t, store.UpdateStatus(ctx, appt.ID, StatusCancelled))
	ok, _ = store.ExistsAt(ctx, 1, date, "10:00:00")
	assert.False(t, ok, "cancelled appointments free the slot")
}

func TestMemoryStoreBookedTimesAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	date := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

	for _, clock := range []string{"11:00:00", "09:30:00"} {
		_, err := store.Create(ctx, Appointment{DoctorID: 1, Date: "2026-10-21", Time: clock})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, Appointment{DoctorID: 1, Date: "2026-10-22", Time: "09:00:00"})
	require.NoError(t, err)

	times, err := store.BookedTimes(ctx, 1, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30:00", "11:00:00"}, times)

	all, err := store.ListByDoctor(ctx, 1, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2026-10-22", all[2].Date)
}

func TestMemoryStoreUpdateStatusErrors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	assert.True(t, errors.Is(store.UpdateStatus(ctx, 42, StatusCompleted), ErrNotFound))
	assert.True(t, errors.Is(store.UpdateStatus(ctx, 1, Status("Lost")), ErrInvalidStatus))
}
