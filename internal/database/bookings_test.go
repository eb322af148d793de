package database

import (
	"context"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	db      *DB
	owner   *models.User
	booker  *models.User
	item    *models.Item
	past    *models.Booking
	current *models.Booking
	future  *models.Booking
	waiting *models.Booking
}

func setupBookings(t *testing.T) *bookingFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &bookingFixture{db: db}
	f.owner = seedUser(t, db, "owner")
	f.booker = seedUser(t, db, "booker")
	f.item = seedItem(t, db, f.owner.ID, "Drill", "Power drill", true)

	f.past = seedBooking(t, db, f.item.ID, f.booker.ID, baseTime.Add(-48*time.Hour), baseTime.Add(-24*time.Hour), models.StatusApproved)
	f.current = seedBooking(t, db, f.item.ID, f.booker.ID, baseTime.Add(-time.Hour), baseTime.Add(time.Hour), models.StatusApproved)
	f.future = seedBooking(t, db, f.item.ID, f.booker.ID, baseTime.Add(24*time.Hour), baseTime.Add(48*time.Hour), models.StatusRejected)
	f.waiting = seedBooking(t, db, f.item.ID, f.booker.ID, baseTime.Add(72*time.Hour), baseTime.Add(96*time.Hour), models.StatusWaiting)
	return f
}

func ids(bookings []*models.Booking) []int64 {
	out := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.ID)
	}
	return out
}

func TestGetBooking(t *testing.T) {
	f := setupBookings(t)
	ctx := context.Background()

	got, err := f.db.GetBooking(ctx, f.current.ID)
	require.NoError(t, err)
	assert.Equal(t, f.item.ID, got.ItemID)
	assert.Equal(t, "Drill", got.ItemName)
	assert.Equal(t, f.owner.ID, got.OwnerID)
	assert.Equal(t, f.booker.ID, got.BookerID)
	assert.Equal(t, "booker", got.BookerName)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.True(t, got.Start.Equal(f.current.Start))
	assert.True(t, got.End.Equal(f.current.End))

	_, err = f.db.GetBooking(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestFindBookings(t *testing.T) {
	f := setupBookings(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		state models.State
		want  []int64
	}{
		{"All", models.StateAll, []int64{f.waiting.ID, f.future.ID, f.current.ID, f.past.ID}},
		{"Current", models.StateCurrent, []int64{f.current.ID}},
		{"Past", models.StatePast, []int64{f.past.ID}},
		{"Future", models.StateFuture, []int64{f.waiting.ID, f.future.ID}},
		{"Waiting", models.StateWaiting, []int64{f.waiting.ID}},
		{"Rejected", models.StateRejected, []int64{f.future.ID}},
	}

	for _, tt := range tests {
		t.Run("Booker"+tt.name, func(t *testing.T) {
			got, err := f.db.FindBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, State: tt.state, Now: baseTime, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
		t.Run("Owner"+tt.name, func(t *testing.T) {
			got, err := f.db.FindBookings(ctx, models.BookingFilter{OwnerID: f.owner.ID, State: tt.state, Now: baseTime, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("Paged", func(t *testing.T) {
		got, err := f.db.FindBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, State: models.StateAll, Now: baseTime, Offset: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{f.current.ID, f.past.ID}, ids(got))
	})

	t.Run("OtherUser", func(t *testing.T) {
		got, err := f.db.FindBookings(ctx, models.BookingFilter{BookerID: f.owner.ID, State: models.StateAll, Now: baseTime, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("TiesOrderedByIDDescending", func(t *testing.T) {
		twin := seedBooking(t, f.db, f.item.ID, f.booker.ID, f.past.Start, f.past.End, models.StatusApproved)
		got, err := f.db.FindBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, State: models.StatePast, Now: baseTime, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []int64{twin.ID, f.past.ID}, ids(got))
	})
}

func TestTransitionBookingStatus(t *testing.T) {
	f := setupBookings(t)
	ctx := context.Background()

	require.NoError(t, f.db.TransitionBookingStatus(ctx, f.waiting.ID, models.StatusWaiting, models.StatusApproved))

	got, err := f.db.GetBooking(ctx, f.waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	err = f.db.TransitionBookingStatus(ctx, f.waiting.ID, models.StatusWaiting, models.StatusRejected)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestLastAndNextBookings(t *testing.T) {
	f := setupBookings(t)
	ctx := context.Background()

	nextApproved := seedBooking(t, f.db, f.item.ID, f.booker.ID, baseTime.Add(5*24*time.Hour), baseTime.Add(6*24*time.Hour), models.StatusApproved)
	seedBooking(t, f.db, f.item.ID, f.booker.ID, baseTime.Add(7*24*time.Hour), baseTime.Add(8*24*time.Hour), models.StatusApproved)

	ladder := seedItem(t, f.db, f.owner.ID, "Ladder", "Tall ladder", true)
	seedBooking(t, f.db, ladder.ID, f.booker.ID, baseTime.Add(-72*time.Hour), baseTime.Add(-60*time.Hour), models.StatusApproved)
	ladderLast := seedBooking(t, f.db, ladder.ID, f.booker.ID, baseTime.Add(-10*time.Hour), baseTime.Add(-9*time.Hour), models.StatusApproved)
	bare := seedItem(t, f.db, f.owner.ID, "Rake", "Garden rake", true)

	itemIDs := []int64{f.item.ID, ladder.ID, bare.ID}

	last, err := f.db.GetLastBookings(ctx, itemIDs, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.current.ID, ladderLast.ID}, ids(last), "one booking per item, the latest started")

	next, err := f.db.GetNextBookings(ctx, itemIDs, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []int64{nextApproved.ID}, ids(next), "rejected and waiting bookings are skipped")

	last, err = f.db.GetLastBookings(ctx, nil, baseTime)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestHasCompletedBooking(t *testing.T) {
	f := setupBookings(t)
	ctx := context.Background()

	ok, err := f.db.HasCompletedBooking(ctx, f.booker.ID, f.item.ID, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.db.HasCompletedBooking(ctx, f.booker.ID, f.item.ID, baseTime.Add(-30*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "no approved booking had ended yet")

	ok, err = f.db.HasCompletedBooking(ctx, f.owner.ID, f.item.ID, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateBookingRejectsInvertedWindow(t *testing.T) {
	f := setupBookings(t)
	err := f.db.CreateBooking(context.Background(), &models.Booking{
		Start:    baseTime,
		End:      baseTime.Add(-time.Hour),
		ItemID:   f.item.ID,
		BookerID: f.booker.ID,
		Status:   models.StatusWaiting,
	})
	assert.Error(t, err)
}
