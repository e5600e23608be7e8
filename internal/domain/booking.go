package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/interval"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveStatuses hold a room: bookings in these states must never overlap.
var ActiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

type Booking struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	RoomID          string          `json:"room_id"`
	GuestID         string          `json:"guest_id"`
	Stay            interval.Stay   `json:"stay"`
	Guests          int             `json:"guests"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SpecialRequests string          `json:"special_requests,omitempty"`
	PromoCode       string          `json:"promo_code,omitempty"`
	Status          BookingStatus   `json:"status"`
	IDVerified      bool            `json:"id_verified"`
	ActualCheckIn   *time.Time      `json:"actual_check_in,omitempty"`
	ActualCheckOut  *time.Time      `json:"actual_check_out,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (b *Booking) Active() bool {
	return slices.Contains(ActiveStatuses, b.Status)
}

func (b *Booking) CheckedIn() bool {
	return b.ActualCheckIn != nil
}

// Clone returns a deep copy so storage never shares mutable state with callers.
func (b *Booking) Clone() *Booking {
	c := *b

	c.ActualCheckIn = cloneTime(b.ActualCheckIn)
	c.ActualCheckOut = cloneTime(b.ActualCheckOut)
	c.CancelledAt = cloneTime(b.CancelledAt)

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
