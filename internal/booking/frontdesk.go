package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
)

var confirmedOnly = []domain.BookingStatus{domain.BookingStatusConfirmed}

// FindByReference looks a booking up by its guest-facing reference, ignoring case.
func (m *Manager) FindByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	b, err := m.storage.GetBookingByReference(ctx, reference)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %s: %w", reference, domain.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get booking %s from storage: %w", reference, err)
	}

	return b, nil
}

// ListArrivals returns confirmed bookings whose stay starts on day.
func (m *Manager) ListArrivals(ctx context.Context, day time.Time) ([]*domain.Booking, error) {
	bookings, err := m.storage.ListBookingsCheckingIn(ctx, interval.Date(day), confirmedOnly)
	if err != nil {
		return nil, fmt.Errorf("list arrivals on %s: %w", day.Format(interval.DateLayout), err)
	}

	return bookings, nil
}

// ListDepartures returns confirmed bookings that end on day and whose guest has checked in.
func (m *Manager) ListDepartures(ctx context.Context, day time.Time) ([]*domain.Booking, error) {
	bookings, err := m.storage.ListBookingsCheckingOut(ctx, interval.Date(day), confirmedOnly)
	if err != nil {
		return nil, fmt.Errorf("list departures on %s: %w", day.Format(interval.DateLayout), err)
	}

	result := bookings[:0]

	for _, b := range bookings {
		if b.CheckedIn() {
			result = append(result, b)
		}
	}

	return result, nil
}

// Search finds confirmed bookings by a fragment of the reference, guest id,
// guest email or room number.
func (m *Manager) Search(ctx context.Context, term string) ([]*domain.Booking, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		inputErr := newInputError()
		inputErr.addError("q", "provide a search term")

		return nil, inputErr
	}

	bookings, err := m.storage.SearchBookings(ctx, term, confirmedOnly)
	if err != nil {
		return nil, fmt.Errorf("search bookings by %q: %w", term, err)
	}

	return bookings, nil
}
