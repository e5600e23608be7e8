package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

const roomColumns = `id, number, type, base_rate, capacity, floor, view_type, amenities, status`

const bookingColumns = `id, reference, room_id, guest_id, check_in, check_out, guests, total_amount,
	special_requests, promo_code, status, id_verified, actual_check_in, actual_check_out,
	cancelled_at, refund_amount, created_at, updated_at`

const promoColumns = `code, discount_percentage, valid_from, valid_until, usage_limit, times_used, active`

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) SaveRoom(ctx context.Context, room *domain.Room) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			number = EXCLUDED.number, type = EXCLUDED.type, base_rate = EXCLUDED.base_rate,
			capacity = EXCLUDED.capacity, floor = EXCLUDED.floor, view_type = EXCLUDED.view_type,
			amenities = EXCLUDED.amenities, status = EXCLUDED.status`,
		room.ID, room.Number, room.Type, room.BaseRate, room.Capacity, room.Floor, room.ViewType,
		pq.Array(room.Amenities), string(room.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert room %s: %w", room.ID, err)
	}

	return nil
}

func (db *DB) SaveAccount(ctx context.Context, account *domain.Account) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO accounts (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`,
		account.ID, account.Email,
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", account.ID, err)
	}

	return nil
}

func (db *DB) SaveBooking(ctx context.Context, b *domain.Booking) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			total_amount = EXCLUDED.total_amount, status = EXCLUDED.status,
			id_verified = EXCLUDED.id_verified, actual_check_in = EXCLUDED.actual_check_in,
			actual_check_out = EXCLUDED.actual_check_out, cancelled_at = EXCLUDED.cancelled_at,
			refund_amount = EXCLUDED.refund_amount, updated_at = EXCLUDED.updated_at`,
		b.ID, b.Reference, b.RoomID, b.GuestID, b.Stay.CheckIn, b.Stay.CheckOut, b.Guests, b.TotalAmount,
		b.SpecialRequests, b.PromoCode, string(b.Status), b.IDVerified, nullTime(b.ActualCheckIn),
		nullTime(b.ActualCheckOut), nullTime(b.CancelledAt), b.RefundAmount, b.CreatedAt, b.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqExclusionViolation {
		return fmt.Errorf("room %s for %s: %w", b.RoomID, b.Stay, domain.ErrRoomUnavailable)
	}

	if err != nil {
		return fmt.Errorf("upsert booking %s: %w", b.ID, err)
	}

	return nil
}

func (db *DB) SavePromo(ctx context.Context, promo *domain.PromoCode) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	var usageLimit sql.NullInt64
	if promo.UsageLimit != nil {
		usageLimit = sql.NullInt64{Int64: int64(*promo.UsageLimit), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO promo_codes (`+promoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			discount_percentage = EXCLUDED.discount_percentage, valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until, usage_limit = EXCLUDED.usage_limit,
			times_used = EXCLUDED.times_used, active = EXCLUDED.active`,
		domain.NormalizeCode(promo.Code), promo.DiscountPercentage, promo.ValidFrom, promo.ValidUntil,
		usageLimit, promo.TimesUsed, promo.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert promo code %s: %w", promo.Code, err)
	}

	return nil
}

func (db *DB) SaveIdempotencyKey(ctx context.Context, key, bookingID string) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO idempotency_keys (key, booking_id) VALUES ($1, $2)`, key, bookingID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("idempotency key %s already used: %w", key, err)
	}

	if err != nil {
		return fmt.Errorf("insert idempotency key %s: %w", key, err)
	}

	return nil
}

func (db *DB) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, roomID)

	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrRecordNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select room %s: %w", roomID, err)
	}

	return room, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*domain.Room

	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}

		rooms = append(rooms, room)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}

func (db *DB) AccountExists(ctx context.Context, accountID string) (bool, error) {
	var exists bool

	err := db.conn(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account %s: %w", accountID, err)
	}

	return exists, nil
}

func (db *DB) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)

	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrRecordNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select booking %s: %w", bookingID, err)
	}

	return b, nil
}

func (db *DB) GetBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	var bookingID string

	err := db.conn(ctx).QueryRowContext(ctx, `SELECT booking_id FROM idempotency_keys WHERE key = $1`, key).
		Scan(&bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrRecordNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select idempotency key %s: %w", key, err)
	}

	return db.GetBooking(ctx, bookingID)
}

func (db *DB) ListRoomBookings(
	ctx context.Context,
	roomID string,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = $1 AND status = ANY($2) ORDER BY id`,
		roomID, pq.Array(statusStrings(statuses)),
	)
}

func (db *DB) ListBookingsOverlapping(
	ctx context.Context,
	stay interval.Stay,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE check_in < $2 AND $1 < check_out AND status = ANY($3) ORDER BY id`,
		stay.CheckIn, stay.CheckOut, pq.Array(statusStrings(statuses)),
	)
}

func (db *DB) ListGuestBookings(ctx context.Context, guestID string) ([]*domain.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE guest_id = $1 ORDER BY created_at DESC, id`,
		guestID,
	)
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE upper(reference) = upper($1)`, strings.TrimSpace(reference))

	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking reference %s: %w", reference, domain.ErrRecordNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select booking reference %s: %w", reference, err)
	}

	return b, nil
}

func (db *DB) ListBookingsCheckingIn(
	ctx context.Context,
	day time.Time,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE check_in = $1 AND status = ANY($2) ORDER BY id`,
		interval.Date(day), pq.Array(statusStrings(statuses)),
	)
}

func (db *DB) ListBookingsCheckingOut(
	ctx context.Context,
	day time.Time,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE check_out = $1 AND status = ANY($2) ORDER BY id`,
		interval.Date(day), pq.Array(statusStrings(statuses)),
	)
}

func (db *DB) SearchBookings(
	ctx context.Context,
	term string,
	statuses []domain.BookingStatus,
) ([]*domain.Booking, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"

	return db.queryBookings(ctx, `SELECT `+prefixed("b", bookingColumns)+` FROM bookings b
		JOIN accounts a ON a.id = b.guest_id
		JOIN rooms r ON r.id = b.room_id
		WHERE b.status = ANY($2)
			AND (b.reference ILIKE $1 OR b.guest_id ILIKE $1 OR a.email ILIKE $1 OR r.number ILIKE $1)
		ORDER BY b.id`,
		pattern, pq.Array(statusStrings(statuses)),
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}

	return strings.Join(parts, ", ")
}

func (db *DB) GetPromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	code = domain.NormalizeCode(code)

	var (
		promo      domain.PromoCode
		usageLimit sql.NullInt64
	)

	err := db.conn(ctx).QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code).
		Scan(&promo.Code, &promo.DiscountPercentage, &promo.ValidFrom, &promo.ValidUntil,
			&usageLimit, &promo.TimesUsed, &promo.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("promo code %s: %w", code, domain.ErrRecordNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select promo code %s: %w", code, err)
	}

	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		promo.UsageLimit = &limit
	}

	return &promo, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking

	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}

		bookings = append(bookings, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

func scanRoom(row scanner) (*domain.Room, error) {
	var (
		room   domain.Room
		status string
	)

	err := row.Scan(&room.ID, &room.Number, &room.Type, &room.BaseRate, &room.Capacity, &room.Floor,
		&room.ViewType, pq.Array(&room.Amenities), &status)
	if err != nil {
		return nil, err
	}

	room.Status = domain.RoomStatus(status)

	return &room, nil
}

func scanBooking(row scanner) (*domain.Booking, error) {
	var (
		b                                  domain.Booking
		status                             string
		checkedIn, checkedOut, cancelledAt sql.NullTime
	)

	err := row.Scan(&b.ID, &b.Reference, &b.RoomID, &b.GuestID, &b.Stay.CheckIn, &b.Stay.CheckOut,
		&b.Guests, &b.TotalAmount, &b.SpecialRequests, &b.PromoCode, &status, &b.IDVerified,
		&checkedIn, &checkedOut, &cancelledAt, &b.RefundAmount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	b.Stay = interval.Stay{CheckIn: interval.Date(b.Stay.CheckIn), CheckOut: interval.Date(b.Stay.CheckOut)}
	b.ActualCheckIn = timePtr(checkedIn)
	b.ActualCheckOut = timePtr(checkedOut)
	b.CancelledAt = timePtr(cancelledAt)

	return &b, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	result := make([]string, 0, len(statuses))
	for _, s := range statuses {
		result = append(result, string(s))
	}

	return result
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time.UTC()

	return &v
}
