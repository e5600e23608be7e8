package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotel/internal/availability"
	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/storage/memory"
)

func date(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func stay(t *testing.T, in, out time.Time) interval.Stay {
	t.Helper()

	s, err := interval.New(in, out)
	require.NoError(t, err)

	return s
}

func rooms() []*domain.Room {
	return []*domain.Room{
		{
			ID: "r1", Number: "101", Type: "Single", BaseRate: decimal.NewFromInt(50), Capacity: 1, Floor: 1,
			ViewType: "city", Amenities: []string{"WiFi", "TV"}, Status: domain.RoomStatusAvailable,
		},
		{
			ID: "r2", Number: "102", Type: "Double", BaseRate: decimal.NewFromInt(80), Capacity: 2, Floor: 1,
			ViewType: "garden", Amenities: []string{"WiFi", "Minibar"}, Status: domain.RoomStatusAvailable,
		},
		{
			ID: "r3", Number: "201", Type: "Suite", BaseRate: decimal.NewFromInt(150), Capacity: 4, Floor: 2,
			ViewType: "sea", Amenities: []string{"WiFi", "Minibar", "Balcony"}, Status: domain.RoomStatusOccupied,
		},
		{
			ID: "r4", Number: "202", Type: "Double", BaseRate: decimal.NewFromInt(80), Capacity: 2, Floor: 2,
			ViewType: "sea", Amenities: []string{"wifi"}, Status: domain.RoomStatusAvailable,
		},
		{
			ID: "r5", Number: "301", Type: "Deluxe", BaseRate: decimal.NewFromInt(200), Capacity: 2, Floor: 3,
			ViewType: "sea", Amenities: []string{"WiFi"}, Status: domain.RoomStatusMaintenance,
		},
	}
}

func booking(id, roomID string, s interval.Stay, status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:          id,
		RoomID:      roomID,
		GuestID:     "guest-1",
		Stay:        s,
		Guests:      1,
		TotalAmount: decimal.NewFromInt(100),
		Status:      status,
	}
}

func setup(t *testing.T, roomList []*domain.Room, bookings ...*domain.Booking) (*availability.Engine, *memory.DB) {
	t.Helper()

	db := memory.New(memory.Config{})

	ctx, err := db.BeginTransaction(context.Background(), "")
	require.NoError(t, err)

	for _, r := range roomList {
		require.NoError(t, db.SaveRoom(ctx, r))
	}

	for _, b := range bookings {
		require.NoError(t, db.SaveBooking(ctx, b))
	}

	require.NoError(t, db.CommitTransaction(ctx))

	return availability.New(db), db
}

func TestIsAvailable_CheckoutDayIsFree(t *testing.T) {
	existing := booking("b1", "r1", stay(t, date(6, 10), date(6, 13)), domain.BookingStatusConfirmed)
	engine, _ := setup(t, rooms(), existing)
	ctx := context.Background()

	ok, err := engine.IsAvailable(ctx, "r1", stay(t, date(6, 13), date(6, 15)))
	require.NoError(t, err)
	assert.True(t, ok, "a stay may start on the previous check-out date")

	ok, err = engine.IsAvailable(ctx, "r1", stay(t, date(6, 8), date(6, 10)))
	require.NoError(t, err)
	assert.True(t, ok, "a stay may end on the existing check-in date")

	ok, err = engine.IsAvailable(ctx, "r1", stay(t, date(6, 12), date(6, 14)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailable_IgnoresInactiveBookings(t *testing.T) {
	engine, _ := setup(t, rooms(),
		booking("b1", "r1", stay(t, date(6, 10), date(6, 13)), domain.BookingStatusCancelled),
		booking("b2", "r2", stay(t, date(6, 10), date(6, 13)), domain.BookingStatusCompleted),
		booking("b3", "r4", stay(t, date(6, 10), date(6, 13)), domain.BookingStatusPending),
	)
	ctx := context.Background()
	s := stay(t, date(6, 11), date(6, 12))

	ok, err := engine.IsAvailable(ctx, "r1", s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.IsAvailable(ctx, "r2", s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.IsAvailable(ctx, "r4", s)
	require.NoError(t, err)
	assert.False(t, ok, "pending bookings hold the room")
}

func TestIsAvailable_RoomStates(t *testing.T) {
	engine, _ := setup(t, rooms())
	ctx := context.Background()
	s := stay(t, date(6, 1), date(6, 2))

	ok, err := engine.IsAvailable(ctx, "r5", s)
	require.NoError(t, err)
	assert.False(t, ok, "maintenance rooms are never available")

	ok, err = engine.IsAvailable(ctx, "r3", s)
	require.NoError(t, err)
	assert.True(t, ok, "occupied is a housekeeping state, not a date conflict")

	_, err = engine.IsAvailable(ctx, "missing", s)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestFindAvailableRooms_Filters(t *testing.T) {
	engine, _ := setup(t, rooms(),
		booking("b1", "r2", stay(t, date(6, 10), date(6, 12)), domain.BookingStatusConfirmed),
	)
	ctx := context.Background()
	s := stay(t, date(6, 11), date(6, 13))

	maxPrice := decimal.NewFromInt(100)

	tests := []struct {
		name    string
		filters availability.Filters
		want    []string
	}{
		{
			name: "no filters",
			want: []string{"r1", "r4", "r3"},
		},
		{
			name:    "room type is case insensitive",
			filters: availability.Filters{RoomTypes: []string{"double"}},
			want:    []string{"r4"},
		},
		{
			name:    "every amenity must be present",
			filters: availability.Filters{Amenities: []string{"WiFi", "Minibar"}},
			want:    []string{"r3"},
		},
		{
			name:    "filters combine with and",
			filters: availability.Filters{MaxPrice: &maxPrice, ViewTypes: []string{"sea"}, MinCapacity: 2},
			want:    []string{"r4"},
		},
		{
			name:    "floors",
			filters: availability.Filters{Floors: []int{1}},
			want:    []string{"r1"},
		},
		{
			name:    "nothing matches",
			filters: availability.Filters{MinCapacity: 10},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.FindAvailableRooms(ctx, s, tt.filters, availability.SortPriceAsc)
			require.NoError(t, err)

			ids := make([]string, 0, len(result))
			for _, r := range result {
				ids = append(ids, r.ID)
			}

			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFindAvailableRooms_Sorting(t *testing.T) {
	engine, _ := setup(t, rooms())
	ctx := context.Background()
	s := stay(t, date(6, 1), date(6, 2))

	tests := []struct {
		key  availability.SortKey
		want []string
	}{
		{key: availability.SortPriceAsc, want: []string{"r1", "r2", "r4", "r3"}},
		{key: availability.SortPriceDesc, want: []string{"r3", "r2", "r4", "r1"}},
		{key: availability.SortRoomNumber, want: []string{"r1", "r2", "r3", "r4"}},
		{key: availability.SortCapacity, want: []string{"r3", "r2", "r4", "r1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			result, err := engine.FindAvailableRooms(ctx, s, availability.Filters{}, tt.key)
			require.NoError(t, err)

			ids := make([]string, 0, len(result))
			for _, r := range result {
				ids = append(ids, r.ID)
			}

			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	key, err := availability.ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, availability.SortPriceAsc, key)

	key, err = availability.ParseSortKey("capacity")
	require.NoError(t, err)
	assert.Equal(t, availability.SortCapacity, key)

	_, err = availability.ParseSortKey("stars")
	assert.ErrorIs(t, err, availability.ErrUnknownSortKey)
}

func TestOccupancyRate(t *testing.T) {
	engine, _ := setup(t, rooms()[:2],
		booking("b1", "r1", stay(t, date(6, 1), date(6, 5)), domain.BookingStatusConfirmed),
		booking("b2", "r2", stay(t, date(6, 3), date(6, 4)), domain.BookingStatusConfirmed),
		booking("b3", "r2", stay(t, date(6, 5), date(6, 8)), domain.BookingStatusPending),
		booking("b4", "r2", stay(t, date(6, 6), date(6, 7)), domain.BookingStatusCancelled),
	)
	ctx := context.Background()

	// r1 holds 3 of the nights in [Jun 2, Jun 7), r2 holds 1. 2 rooms * 5 nights.
	rate, err := engine.OccupancyRate(ctx, date(6, 2), date(6, 7))
	require.NoError(t, err)
	assert.Equal(t, "40", rate.String())

	rate, err = engine.OccupancyRate(ctx, date(6, 3), date(6, 3))
	require.NoError(t, err)
	assert.True(t, rate.IsZero(), "a zero-length period has no booked nights")

	rate, err = engine.OccupancyRate(ctx, date(6, 1), date(6, 4))
	require.NoError(t, err)
	assert.Equal(t, "66.67", rate.String())
}

func TestOccupancyRate_NoRooms(t *testing.T) {
	engine, _ := setup(t, nil)

	rate, err := engine.OccupancyRate(context.Background(), date(6, 1), date(6, 30))
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestCalendar(t *testing.T) {
	engine, _ := setup(t, rooms(),
		booking("b1", "r1", stay(t, date(6, 2), date(6, 4)), domain.BookingStatusConfirmed),
		booking("b2", "r1", stay(t, date(6, 4), date(6, 5)), domain.BookingStatusCancelled),
	)

	days, err := engine.Calendar(context.Background(), "r1", date(6, 1), date(6, 5))
	require.NoError(t, err)
	require.Len(t, days, 4)

	assert.False(t, days[0].Booked)
	assert.True(t, days[1].Booked)
	assert.Equal(t, "b1", days[1].BookingID)
	assert.True(t, days[2].Booked)
	assert.False(t, days[3].Booked, "cancelled bookings free their nights")

	_, err = engine.Calendar(context.Background(), "missing", date(6, 1), date(6, 5))
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = engine.Calendar(context.Background(), "r1", date(6, 5), date(6, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestFilterOptions(t *testing.T) {
	engine, _ := setup(t, rooms())

	opts, err := engine.FilterOptions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Double", "Single", "Suite"}, opts.RoomTypes)
	assert.Equal(t, []string{"city", "garden", "sea"}, opts.ViewTypes)
	assert.Equal(t, []int{1, 2}, opts.Floors)
	assert.True(t, decimal.NewFromInt(50).Equal(opts.MinPrice))
	assert.True(t, decimal.NewFromInt(150).Equal(opts.MaxPrice))
	assert.Contains(t, opts.Amenities, "Balcony")
}
