package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/logger"
)

type Config struct {
	L *logger.Logger
}

// DB keeps everything in maps. Writes are buffered per transaction and become
// visible to others only on commit; reads inside a transaction see its own writes.
type DB struct {
	mu              sync.Mutex
	l               *logger.Logger
	rooms           map[string]*domain.Room
	accounts        map[string]*domain.Account
	bookings        map[string]*domain.Booking
	promos          map[string]*domain.PromoCode
	idempotencyKeys map[string]string
	transactions    map[string]*transaction
	locks           map[string]chan struct{}
	nextTrxID       int64
}

func New(conf Config) *DB {
	if conf.L == nil {
		conf.L = logger.Discard()
	}

	//nolint:exhaustruct
	return &DB{
		l:               conf.L,
		rooms:           make(map[string]*domain.Room),
		accounts:        make(map[string]*domain.Account),
		bookings:        make(map[string]*domain.Booking),
		promos:          make(map[string]*domain.PromoCode),
		idempotencyKeys: make(map[string]string),
		transactions:    make(map[string]*transaction),
		locks:           make(map[string]chan struct{}),
	}
}

func (db *DB) SaveRoom(ctx context.Context, room *domain.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	trx.roomModifications[room.ID] = room.Clone()

	return nil
}

func (db *DB) SaveAccount(ctx context.Context, account *domain.Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	a := *account
	trx.accountModifications[account.ID] = &a

	return nil
}

func (db *DB) SaveBooking(ctx context.Context, b *domain.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	trx.bookingModifications[b.ID] = b.Clone()

	return nil
}

func (db *DB) SavePromo(ctx context.Context, promo *domain.PromoCode) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	p := promo.Clone()
	p.Code = domain.NormalizeCode(p.Code)
	trx.promoModifications[p.Code] = p

	return nil
}

func (db *DB) SaveIdempotencyKey(ctx context.Context, key, bookingID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	trx.idempotencyKeyUpdates[key] = bookingID

	return nil
}

func (db *DB) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	room, ok := db.rooms[roomID]
	if trx := db.optionalTransaction(ctx); trx != nil {
		if modified, exists := trx.roomModifications[roomID]; exists {
			room, ok = modified, true
		}
	}

	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrRecordNotFound)
	}

	return room.Clone(), nil
}

func (db *DB) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	visible := make(map[string]*domain.Room, len(db.rooms))
	for id, room := range db.rooms {
		visible[id] = room
	}

	if trx := db.optionalTransaction(ctx); trx != nil {
		for id, room := range trx.roomModifications {
			visible[id] = room
		}
	}

	result := make([]*domain.Room, 0, len(visible))
	for _, room := range visible {
		result = append(result, room.Clone())
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *DB) AccountExists(ctx context.Context, accountID string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.accounts[accountID]; ok {
		return true, nil
	}

	if trx := db.optionalTransaction(ctx); trx != nil {
		if _, ok := trx.accountModifications[accountID]; ok {
			return true, nil
		}
	}

	return false, nil
}

func (db *DB) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[bookingID]
	if trx := db.optionalTransaction(ctx); trx != nil {
		if modified, exists := trx.bookingModifications[bookingID]; exists {
			b, ok = modified, true
		}
	}

	if !ok {
		return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrRecordNotFound)
	}

	return b.Clone(), nil
}

func (db *DB) GetBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	db.mu.Lock()

	bookingID, ok := db.idempotencyKeys[key]
	if trx := db.optionalTransaction(ctx); trx != nil {
		if updated, exists := trx.idempotencyKeyUpdates[key]; exists {
			bookingID, ok = updated, true
		}
	}

	db.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrRecordNotFound)
	}

	return db.GetBooking(ctx, bookingID)
}

func (db *DB) ListRoomBookings(
	ctx context.Context,
	roomID string,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	return db.filterBookings(ctx, func(b *domain.Booking) bool {
		return b.RoomID == roomID && slices.Contains(statuses, b.Status)
	}), nil
}

func (db *DB) ListBookingsOverlapping(
	ctx context.Context,
	stay interval.Stay,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	return db.filterBookings(ctx, func(b *domain.Booking) bool {
		return b.Stay.Overlaps(stay) && slices.Contains(statuses, b.Status)
	}), nil
}

func (db *DB) ListGuestBookings(ctx context.Context, guestID string) ([]*domain.Booking, error) {
	result := db.filterBookings(ctx, func(b *domain.Booking) bool {
		return b.GuestID == guestID
	})

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	found := db.filterBookings(ctx, func(b *domain.Booking) bool {
		return strings.EqualFold(b.Reference, strings.TrimSpace(reference))
	})

	if len(found) == 0 {
		return nil, fmt.Errorf("booking reference %s: %w", reference, domain.ErrRecordNotFound)
	}

	return found[0], nil
}

func (db *DB) ListBookingsCheckingIn(
	ctx context.Context,
	day time.Time,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	day = interval.Date(day)

	return db.filterBookings(ctx, func(b *domain.Booking) bool {
		return b.Stay.CheckIn.Equal(day) && slices.Contains(statuses, b.Status)
	}), nil
}

func (db *DB) ListBookingsCheckingOut(
	ctx context.Context,
	day time.Time,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	day = interval.Date(day)

	return db.filterBookings(ctx, func(b *domain.Booking) bool {
		return b.Stay.CheckOut.Equal(day) && slices.Contains(statuses, b.Status)
	}), nil
}

// SearchBookings matches term case-insensitively against the booking reference,
// guest id and email, and the room number.
func (db *DB) SearchBookings(
	ctx context.Context,
	term string,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	term = strings.ToLower(strings.TrimSpace(term))

	// filterBookings holds db.mu while keep runs.
	return db.filterBookings(ctx, func(b *domain.Booking) bool {
		if !slices.Contains(statuses, b.Status) {
			return false
		}

		fields := []string{b.Reference, b.GuestID}

		if account, ok := db.accounts[b.GuestID]; ok {
			fields = append(fields, account.Email)
		}

		if room, ok := db.rooms[b.RoomID]; ok {
			fields = append(fields, room.Number)
		}

		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				return true
			}
		}

		return false
	}), nil
}

func (db *DB) GetPromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	code = domain.NormalizeCode(code)

	promo, ok := db.promos[code]
	if trx := db.optionalTransaction(ctx); trx != nil {
		if modified, exists := trx.promoModifications[code]; exists {
			promo, ok = modified, true
		}
	}

	if !ok {
		return nil, fmt.Errorf("promo code %s: %w", code, domain.ErrRecordNotFound)
	}

	return promo.Clone(), nil
}

// filterBookings returns copies ordered by id for stable results.
func (db *DB) filterBookings(ctx context.Context, keep func(b *domain.Booking) bool) []*domain.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()

	visible := make(map[string]*domain.Booking, len(db.bookings))
	for id, b := range db.bookings {
		visible[id] = b
	}

	if trx := db.optionalTransaction(ctx); trx != nil {
		for id, b := range trx.bookingModifications {
			visible[id] = b
		}
	}

	var result []*domain.Booking

	for _, b := range visible {
		if keep(b) {
			result = append(result, b.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}
