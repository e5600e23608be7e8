// Package booking drives a reservation through its lifecycle: creation with
// atomic availability check, pricing and promo redemption, payment confirmation,
// cancellation with refund, identity verification, check-in and check-out.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/logger"
	"github.com/avstrong/hotel/internal/pricing"
	"github.com/avstrong/hotel/internal/refund"
)

const tracerName = "github.com/avstrong/hotel/internal/booking"

type storageReader interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	AccountExists(ctx context.Context, accountID string) (bool, error)
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	ListGuestBookings(ctx context.Context, guestID string) ([]*domain.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListBookingsCheckingIn(ctx context.Context, day time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	ListBookingsCheckingOut(ctx context.Context, day time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	SearchBookings(ctx context.Context, term string, statuses []domain.BookingStatus) ([]*domain.Booking, error)
}

type storageWriter interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	LockRoom(ctx context.Context, roomID string) error
	LockBooking(ctx context.Context, bookingID string) error
	SaveBooking(ctx context.Context, b *domain.Booking) error
	SaveIdempotencyKey(ctx context.Context, key, bookingID string) error
}

type storage interface {
	storageReader
	storageWriter
}

type availabilityChecker interface {
	RoomIsFree(ctx context.Context, room *domain.Room, stay interval.Stay) (bool, error)
}

type pricer interface {
	Breakdown(ctx context.Context, in pricing.Input) (*pricing.Breakdown, error)
}

type promoRedeemer interface {
	Apply(ctx context.Context, code string, runningTotal decimal.Decimal, now time.Time) (decimal.Decimal, error)
}

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
	GetReference(ctx context.Context) (string, error)
}

type notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Conf struct {
	L            *logger.Logger
	Storage      storage
	Availability availabilityChecker
	Pricing      pricer
	Promo        promoRedeemer
	Refund       refund.Policy
	IDGenerator  idGenerator
	// Notifier is optional.
	Notifier notifier
	Policy   Policy
	// Now defaults to time.Now.
	Now func() time.Time
}

type Manager struct {
	l            *logger.Logger
	storage      storage
	availability availabilityChecker
	pricing      pricer
	promo        promoRedeemer
	refund       refund.Policy
	idGenerator  idGenerator
	notifier     notifier
	policy       Policy
	now          func() time.Time
	tracer       trace.Tracer
	inFlight     sync.WaitGroup
}

func New(conf Conf) *Manager {
	if conf.Now == nil {
		conf.Now = time.Now
	}

	//nolint:exhaustruct
	return &Manager{
		l:            conf.L,
		storage:      conf.Storage,
		availability: conf.Availability,
		pricing:      conf.Pricing,
		promo:        conf.Promo,
		refund:       conf.Refund,
		idGenerator:  conf.IDGenerator,
		notifier:     conf.Notifier,
		policy:       conf.Policy,
		now:          conf.Now,
		tracer:       otel.Tracer(tracerName),
	}
}

func (m *Manager) Policy() Policy {
	return m.policy
}

// Create reserves a room. The room lock, the availability re-check, the promo
// redemption and the insert share one transaction, so two requests for
// overlapping stays can never both succeed.
func (m *Manager) Create(ctx context.Context, input *CreateInput) (*domain.Booking, error) {
	b, _, err := m.CreateOrReplay(ctx, input)

	return b, err
}

// CreateOrReplay is Create that also reports whether the booking was returned
// for a repeated idempotency key instead of being made by this call.
func (m *Manager) CreateOrReplay(ctx context.Context, input *CreateInput) (_ *domain.Booking, replayed bool, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.String("room.id", input.RoomID),
		attribute.String("guest.id", input.GuestID),
	))
	defer func() { endSpan(span, err) }()

	if err = input.validate(); err != nil {
		return nil, false, err
	}

	key, withKey := IdempotencyKeyFromContext(ctx)
	if withKey {
		existing, err := m.bookingByIdempotencyKey(ctx, key)
		if err != nil || existing != nil {
			return existing, existing != nil, err
		}
	}

	now := m.now().UTC()

	stay, err := m.checkStay(input, now)
	if err != nil {
		return nil, false, err
	}

	if input.Guests < 1 {
		return nil, false, fmt.Errorf("%w: %d guests", domain.ErrInvalidGuestCount, input.Guests)
	}

	exists, err := m.storage.AccountExists(ctx, input.GuestID)
	if err != nil {
		return nil, false, fmt.Errorf("check guest account %s: %w", input.GuestID, err)
	}

	if !exists {
		return nil, false, fmt.Errorf("guest %s: %w", input.GuestID, domain.ErrAccountNotFound)
	}

	id, err := m.idGenerator.GetID(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrNextReference, err)
	}

	reference, err := m.idGenerator.GetReference(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrNextReference, err)
	}

	//nolint:exhaustruct
	b := &domain.Booking{
		ID:              id,
		Reference:       reference,
		RoomID:          input.RoomID,
		GuestID:         input.GuestID,
		Stay:            stay,
		Guests:          input.Guests,
		SpecialRequests: input.SpecialRequests,
		PromoCode:       domain.NormalizeCode(input.PromoCode),
		Status:          domain.BookingStatusPending,
		RefundAmount:    decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if m.policy.AutoConfirm {
		b.Status = domain.BookingStatusConfirmed
	}

	var earlier *domain.Booking

	err = m.withinTransaction(ctx, "createBooking", func(ctx context.Context) error {
		var err error

		earlier, err = m.reserve(ctx, b, key, now)

		return err
	})
	if err != nil {
		return nil, false, err
	}

	if earlier != nil {
		return earlier, true, nil
	}

	span.SetAttributes(attribute.String("booking.id", b.ID))
	m.l.LogInfo("Booking %s (%s) created for room %s, stay %s, total %s",
		b.Reference, b.ID, b.RoomID, b.Stay, b.TotalAmount)

	m.notify(ctx, EventCreated, b, decimal.Zero)

	return b, false, nil
}

// reserve runs inside the create transaction. It fills in the price of b and
// stores it, or returns the booking an earlier request with the same
// idempotency key has committed meanwhile.
func (m *Manager) reserve(ctx context.Context, b *domain.Booking, key string, now time.Time) (*domain.Booking, error) {
	if err := m.storage.LockRoom(ctx, b.RoomID); err != nil {
		return nil, fmt.Errorf("lock room %s: %w", b.RoomID, err)
	}

	if key != "" {
		existing, err := m.bookingByIdempotencyKey(ctx, key)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	room, err := m.storage.GetRoom(ctx, b.RoomID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %s: %w", b.RoomID, domain.ErrRoomNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get room %s from storage: %w", b.RoomID, err)
	}

	if b.Guests > room.Capacity+m.policy.GuestOverflow {
		return nil, fmt.Errorf("%w: %d guests for room %s with capacity %d",
			domain.ErrInvalidGuestCount, b.Guests, room.ID, room.Capacity)
	}

	free, err := m.availability.RoomIsFree(ctx, room, b.Stay)
	if err != nil {
		return nil, fmt.Errorf("check room %s availability: %w", room.ID, err)
	}

	if !free {
		return nil, fmt.Errorf("room %s for %s: %w", room.ID, b.Stay, domain.ErrRoomUnavailable)
	}

	breakdown, err := m.pricing.Breakdown(ctx, pricing.Input{
		BaseRate:  room.BaseRate,
		Stay:      b.Stay,
		Guests:    b.Guests,
		Capacity:  room.Capacity,
		PromoCode: b.PromoCode,
		Promo: func(ctx context.Context, code string, runningTotal decimal.Decimal) (decimal.Decimal, error) {
			return m.promo.Apply(ctx, code, runningTotal, now)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("price booking: %w", err)
	}

	b.TotalAmount = breakdown.Total

	if !breakdown.PromoApplied {
		b.PromoCode = ""
	}

	if err = m.storage.SaveBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("save booking to storage: %w", err)
	}

	if key != "" {
		if err = m.storage.SaveIdempotencyKey(ctx, key, b.ID); err != nil {
			return nil, fmt.Errorf("save idempotency key to storage: %w", err)
		}
	}

	return nil, nil //nolint:nilnil
}

func (m *Manager) bookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	existing, err := m.storage.GetBookingByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("get booking by idempotency key: %w", err)
	}

	m.l.LogInfo("Booking %s returned for repeated idempotency key", existing.ID)

	return existing, nil
}

func (m *Manager) checkStay(input *CreateInput, now time.Time) (interval.Stay, error) {
	stay, err := interval.New(input.CheckIn, input.CheckOut)
	if err != nil {
		return interval.Stay{}, err
	}

	today := interval.Date(now)

	if stay.CheckIn.Before(today) {
		return interval.Stay{}, fmt.Errorf("%w: check-in %s is in the past",
			domain.ErrInvalidInterval, stay.CheckIn.Format(interval.DateLayout))
	}

	if m.policy.MaxNights > 0 && stay.Nights() > m.policy.MaxNights {
		return interval.Stay{}, fmt.Errorf("%w: stay of %d nights exceeds %d",
			domain.ErrInvalidInterval, stay.Nights(), m.policy.MaxNights)
	}

	if m.policy.MaxAdvanceDays > 0 && stay.CheckIn.After(today.AddDate(0, 0, m.policy.MaxAdvanceDays)) {
		return interval.Stay{}, fmt.Errorf("%w: check-in more than %d days ahead",
			domain.ErrInvalidInterval, m.policy.MaxAdvanceDays)
	}

	return stay, nil
}

// ConfirmPayment moves a pending booking to confirmed. Confirming twice is a no-op.
func (m *Manager) ConfirmPayment(ctx context.Context, bookingID string) (_ *domain.Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.ConfirmPayment", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	var changed bool

	b, err := m.transition(ctx, "confirmPayment", bookingID, func(b *domain.Booking) (bool, error) {
		switch b.Status {
		case domain.BookingStatusPending:
			b.Status = domain.BookingStatusConfirmed
			changed = true

			return true, nil
		case domain.BookingStatusConfirmed:
			return false, nil
		case domain.BookingStatusCancelled:
			return false, fmt.Errorf("confirm booking %s: %w", b.ID, domain.ErrAlreadyCancelled)
		default:
			return false, fmt.Errorf("confirm %s booking %s: %w", b.Status, b.ID, domain.ErrInvalidTransition)
		}
	})
	if err != nil {
		return nil, err
	}

	if changed {
		m.l.LogInfo("Booking %s confirmed", b.ID)
		m.notify(ctx, EventConfirmed, b, decimal.Zero)
	}

	return b, nil
}

// Cancel cancels an active booking that has not been checked into yet and
// records the refund the policy grants at the given moment.
func (m *Manager) Cancel(ctx context.Context, bookingID string, at time.Time) (_ refund.Outcome, _ *domain.Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	var outcome refund.Outcome

	b, err := m.transition(ctx, "cancelBooking", bookingID, func(b *domain.Booking) (bool, error) {
		switch {
		case b.Status == domain.BookingStatusCancelled:
			return false, fmt.Errorf("cancel booking %s: %w", b.ID, domain.ErrAlreadyCancelled)
		case b.Status == domain.BookingStatusCompleted:
			return false, fmt.Errorf("cancel completed booking %s: %w", b.ID, domain.ErrInvalidTransition)
		case b.CheckedIn():
			return false, fmt.Errorf("cancel checked-in booking %s: %w", b.ID, domain.ErrInvalidTransition)
		}

		outcome = m.refund.Evaluate(b, at)

		cancelledAt := at.UTC()
		b.Status = domain.BookingStatusCancelled
		b.CancelledAt = &cancelledAt
		b.RefundAmount = outcome.Refund

		return true, nil
	})
	if err != nil {
		return refund.Outcome{}, nil, err
	}

	m.l.LogInfo("Booking %s cancelled, refund %s, fee %s", b.ID, outcome.Refund, outcome.Fee)
	m.notify(ctx, EventCancelled, b, outcome.Refund)

	return outcome, b, nil
}

// VerifyGuestID records that the front desk has checked the guest's identity document.
func (m *Manager) VerifyGuestID(ctx context.Context, bookingID string) (_ *domain.Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.VerifyGuestID", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	return m.transition(ctx, "verifyGuestID", bookingID, func(b *domain.Booking) (bool, error) {
		switch b.Status {
		case domain.BookingStatusCancelled:
			return false, fmt.Errorf("verify id of booking %s: %w", b.ID, domain.ErrAlreadyCancelled)
		case domain.BookingStatusCompleted:
			return false, fmt.Errorf("verify id of completed booking %s: %w", b.ID, domain.ErrInvalidTransition)
		}

		if b.IDVerified {
			return false, nil
		}

		b.IDVerified = true

		return true, nil
	})
}

func (m *Manager) CheckIn(ctx context.Context, bookingID string, at time.Time) (_ *domain.Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.CheckIn", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	b, err := m.transition(ctx, "checkIn", bookingID, func(b *domain.Booking) (bool, error) {
		switch {
		case b.Status == domain.BookingStatusCancelled:
			return false, fmt.Errorf("check in booking %s: %w", b.ID, domain.ErrAlreadyCancelled)
		case b.Status != domain.BookingStatusConfirmed:
			return false, fmt.Errorf("check in %s booking %s: %w", b.Status, b.ID, domain.ErrInvalidTransition)
		case b.CheckedIn():
			return false, fmt.Errorf("booking %s already checked in: %w", b.ID, domain.ErrInvalidTransition)
		case !b.IDVerified:
			return false, fmt.Errorf("check in booking %s: %w", b.ID, ErrIDNotVerified)
		case interval.Date(at).Before(b.Stay.CheckIn):
			return false, fmt.Errorf("check in booking %s on %s: %w", b.ID, at.Format(interval.DateLayout), ErrEarlyCheckIn)
		}

		checkedIn := at.UTC()
		b.ActualCheckIn = &checkedIn

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	m.l.LogInfo("Booking %s checked in", b.ID)
	m.notify(ctx, EventCheckedIn, b, decimal.Zero)

	return b, nil
}

func (m *Manager) CheckOut(ctx context.Context, bookingID string, at time.Time) (_ *domain.Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.CheckOut", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	b, err := m.transition(ctx, "checkOut", bookingID, func(b *domain.Booking) (bool, error) {
		if b.Status != domain.BookingStatusConfirmed || !b.CheckedIn() {
			return false, fmt.Errorf("check out %s booking %s: %w", b.Status, b.ID, domain.ErrInvalidTransition)
		}

		checkedOut := at.UTC()
		b.ActualCheckOut = &checkedOut
		b.Status = domain.BookingStatusCompleted

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	m.l.LogInfo("Booking %s checked out", b.ID)
	m.notify(ctx, EventCheckedOut, b, decimal.Zero)

	return b, nil
}

func (m *Manager) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := m.storage.GetBooking(ctx, bookingID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get booking %s from storage: %w", bookingID, err)
	}

	return b, nil
}

// ListByGuest returns the guest's bookings, newest first.
func (m *Manager) ListByGuest(ctx context.Context, guestID string) ([]*domain.Booking, error) {
	bookings, err := m.storage.ListGuestBookings(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("list bookings of guest %s: %w", guestID, err)
	}

	return bookings, nil
}

// transition loads the booking under its row lock and lets apply mutate it.
// The booking is saved only when apply reports a change.
func (m *Manager) transition(
	ctx context.Context,
	name string,
	bookingID string,
	apply func(b *domain.Booking) (bool, error),
) (*domain.Booking, error) {
	var result *domain.Booking

	err := m.withinTransaction(ctx, name, func(ctx context.Context) error {
		if err := m.storage.LockBooking(ctx, bookingID); err != nil {
			return fmt.Errorf("lock booking %s: %w", bookingID, err)
		}

		b, err := m.Get(ctx, bookingID)
		if err != nil {
			return err
		}

		changed, err := apply(b)
		if err != nil {
			return err
		}

		if changed {
			b.UpdatedAt = m.now().UTC()

			if err = m.storage.SaveBooking(ctx, b); err != nil {
				return fmt.Errorf("save booking to storage: %w", err)
			}
		}

		result = b

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// notify delivers the event in the background once the change is committed.
// A failed delivery is logged and never undoes the booking change.
func (m *Manager) notify(ctx context.Context, eventType EventType, b *domain.Booking, refundAmount decimal.Decimal) {
	if m.notifier == nil {
		return
	}

	event := Event{
		Type:       eventType,
		Booking:    b.Clone(),
		Refund:     refundAmount,
		OccurredAt: m.now().UTC(),
	}

	ctx = context.WithoutCancel(ctx)

	m.inFlight.Add(1)

	go func() {
		defer m.inFlight.Done()

		if err := m.notifier.Notify(ctx, event); err != nil {
			m.l.LogWarn("Could not deliver %s event for booking %s: %v", event.Type, b.ID, err)
		}
	}()
}

// Wait blocks until every notification started so far has been delivered or has failed.
func (m *Manager) Wait() {
	m.inFlight.Wait()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
