package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
)

func testBooking(id, roomID string, in, out time.Time, status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:          id,
		RoomID:      roomID,
		GuestID:     "guest-1",
		Stay:        interval.Stay{CheckIn: in, CheckOut: out},
		Guests:      1,
		TotalAmount: decimal.NewFromInt(100),
		Status:      status,
		CreatedAt:   in,
	}
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestDB_WritesAreInvisibleUntilCommit(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	require.NoError(t, db.SaveBooking(trxCtx, testBooking("b1", "r1", day(1), day(3), domain.BookingStatusPending)))

	_, err = db.GetBooking(ctx, "b1")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	inside, err := db.GetBooking(trxCtx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "r1", inside.RoomID)

	listed, err := db.ListRoomBookings(trxCtx, "r1", domain.ActiveStatuses)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, db.CommitTransaction(trxCtx))

	_, err = db.GetBooking(ctx, "b1")
	assert.NoError(t, err)
}

func TestDB_RollbackDiscardsWrites(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	require.NoError(t, db.SavePromo(trxCtx, &domain.PromoCode{Code: "welcome10", Active: true}))
	require.NoError(t, db.SaveIdempotencyKey(trxCtx, "key-1", "b1"))
	require.NoError(t, db.RollbackTransaction(trxCtx))

	_, err = db.GetPromo(ctx, "WELCOME10")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = db.GetBookingByIdempotencyKey(ctx, "key-1")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	assert.ErrorIs(t, db.CommitTransaction(trxCtx), ErrTransactionNotFound)
}

func TestDB_WritesRequireTransaction(t *testing.T) {
	db := New(Config{})

	err := db.SaveRoom(context.Background(), &domain.Room{ID: "r1"})
	assert.ErrorIs(t, err, ErrTransactionIDNotFoundInCtx)

	err = db.LockRoom(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrTransactionIDNotFoundInCtx)
}

func TestDB_PromoLookupIsCaseInsensitive(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.SavePromo(trxCtx, &domain.PromoCode{Code: " Summer2025 ", Active: true}))
	require.NoError(t, db.CommitTransaction(trxCtx))

	p, err := db.GetPromo(ctx, "summer2025")
	require.NoError(t, err)
	assert.Equal(t, "SUMMER2025", p.Code)
}

func TestDB_RoomLockSerializesTransactions(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	first, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.LockRoom(first, "r1"))
	// Re-locking inside the same transaction does not deadlock.
	require.NoError(t, db.LockRoom(first, "r1"))

	second, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	acquired := make(chan error, 1)

	go func() {
		acquired <- db.LockRoom(second, "r1")
	}()

	select {
	case <-acquired:
		t.Fatal("second transaction acquired a held room lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, db.CommitTransaction(first))

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("room lock was not released on commit")
	}

	require.NoError(t, db.RollbackTransaction(second))
}

func TestDB_LockHonoursContext(t *testing.T) {
	db := New(Config{})

	holder, err := db.BeginTransaction(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, db.LockPromo(holder, "code"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	waiter, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	err = db.LockPromo(waiter, "CODE")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, db.RollbackTransaction(waiter))
	require.NoError(t, db.RollbackTransaction(holder))
}

func TestDB_BookingQueries(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	require.NoError(t, db.SaveBooking(trxCtx, testBooking("b1", "r1", day(1), day(3), domain.BookingStatusConfirmed)))
	require.NoError(t, db.SaveBooking(trxCtx, testBooking("b2", "r1", day(3), day(5), domain.BookingStatusCancelled)))
	require.NoError(t, db.SaveBooking(trxCtx, testBooking("b3", "r2", day(2), day(4), domain.BookingStatusPending)))
	require.NoError(t, db.CommitTransaction(trxCtx))

	active, err := db.ListRoomBookings(ctx, "r1", domain.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b1", active[0].ID)

	stay, err := interval.New(day(2), day(3))
	require.NoError(t, err)

	overlapping, err := db.ListBookingsOverlapping(ctx, stay, domain.ActiveStatuses)
	require.NoError(t, err)
	assert.Len(t, overlapping, 2)

	guest, err := db.ListGuestBookings(ctx, "guest-1")
	require.NoError(t, err)
	require.Len(t, guest, 3)
	assert.Equal(t, "b2", guest[0].ID, "newest first")
}

func TestDB_ReturnsCopies(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)
	require.NoError(t, db.SaveRoom(trxCtx, &domain.Room{ID: "r1", Amenities: []string{"WiFi"}}))
	require.NoError(t, db.CommitTransaction(trxCtx))

	room, err := db.GetRoom(ctx, "r1")
	require.NoError(t, err)
	room.Amenities[0] = "Sauna"

	again, err := db.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "WiFi", again.Amenities[0])
}

func TestDB_BeginTransactionRejectsCancelledContext(t *testing.T) {
	db := New(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.BeginTransaction(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = db.BeginTransaction(context.WithoutCancel(ctx), "")
	assert.NoError(t, err)
}

func TestDB_FrontDeskQueries(t *testing.T) {
	db := New(Config{})
	ctx := context.Background()

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	require.NoError(t, db.SaveRoom(trxCtx, &domain.Room{ID: "r1", Number: "101"}))
	require.NoError(t, db.SaveRoom(trxCtx, &domain.Room{ID: "r2", Number: "202"}))
	require.NoError(t, db.SaveAccount(trxCtx, &domain.Account{ID: "guest-1", Email: "Jane.Doe@example.com"}))

	b1 := testBooking("b1", "r1", day(1), day(3), domain.BookingStatusConfirmed)
	b1.Reference = "BK0000AAAA"
	b2 := testBooking("b2", "r2", day(1), day(4), domain.BookingStatusPending)
	b2.Reference = "BK0000BBBB"
	b3 := testBooking("b3", "r2", day(4), day(6), domain.BookingStatusConfirmed)
	b3.Reference = "BK0000CCCC"

	for _, b := range []*domain.Booking{b1, b2, b3} {
		require.NoError(t, db.SaveBooking(trxCtx, b))
	}

	require.NoError(t, db.CommitTransaction(trxCtx))

	confirmed := []domain.BookingStatus{domain.BookingStatusConfirmed}

	found, err := db.GetBookingByReference(ctx, "bk0000bbbb")
	require.NoError(t, err)
	assert.Equal(t, "b2", found.ID)

	_, err = db.GetBookingByReference(ctx, "BK0000DDDD")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	arriving, err := db.ListBookingsCheckingIn(ctx, day(1).Add(9*time.Hour), confirmed)
	require.NoError(t, err)
	require.Len(t, arriving, 1)
	assert.Equal(t, "b1", arriving[0].ID)

	leaving, err := db.ListBookingsCheckingOut(ctx, day(4), domain.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, leaving, 1)
	assert.Equal(t, "b2", leaving[0].ID)

	byEmail, err := db.SearchBookings(ctx, " jane.doe ", confirmed)
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	byRoom, err := db.SearchBookings(ctx, "202", confirmed)
	require.NoError(t, err)
	require.Len(t, byRoom, 1)
	assert.Equal(t, "b3", byRoom[0].ID)

	byReference, err := db.SearchBookings(ctx, "aaaa", confirmed)
	require.NoError(t, err)
	require.Len(t, byReference, 1)
	assert.Equal(t, "b1", byReference[0].ID)
}
