package booking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/domain"
)

const maxSpecialRequestsLen = 1000

type CreateInput struct {
	GuestID         string    `json:"guest_id"`
	RoomID          string    `json:"room_id"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	Guests          int       `json:"guests"`
	SpecialRequests string    `json:"special_requests"`
	PromoCode       string    `json:"promo_code"`
}

// validate checks the request shape only. Date and guest count rules need the
// clock and the room, they are enforced by the manager with dedicated errors.
func (in *CreateInput) validate() error {
	inputErr := newInputError()

	if strings.TrimSpace(in.GuestID) == "" {
		inputErr.addError("guest_id", "provide guest_id")
	}

	if strings.TrimSpace(in.RoomID) == "" {
		inputErr.addError("room_id", "provide room_id")
	}

	if in.CheckIn.IsZero() {
		inputErr.addError("check_in", "provide check_in")
	}

	if in.CheckOut.IsZero() {
		inputErr.addError("check_out", "provide check_out")
	}

	if len(in.SpecialRequests) > maxSpecialRequestsLen {
		inputErr.addError("special_requests", "special_requests is too long")
	}

	if inputErr.fieldsCount() > 0 {
		return inputErr
	}

	return nil
}

// Policy holds the process-wide lifecycle settings.
type Policy struct {
	// AutoConfirm creates bookings directly in confirmed state, skipping the payment step.
	AutoConfirm bool
	// GuestOverflow is how many guests above room capacity are accepted (and charged as extra).
	GuestOverflow int
	// MaxNights and MaxAdvanceDays disable their check when zero.
	MaxNights      int
	MaxAdvanceDays int
}

func DefaultPolicy() Policy {
	return Policy{
		AutoConfirm:    false,
		GuestOverflow:  0,
		MaxNights:      30,  //nolint:gomnd
		MaxAdvanceDays: 365, //nolint:gomnd
	}
}

type EventType string

const (
	EventCreated    EventType = "booking.created"
	EventConfirmed  EventType = "booking.confirmed"
	EventCancelled  EventType = "booking.cancelled"
	EventCheckedIn  EventType = "booking.checked_in"
	EventCheckedOut EventType = "booking.checked_out"
)

type Event struct {
	Type       EventType       `json:"type"`
	Booking    *domain.Booking `json:"booking"`
	Refund     decimal.Decimal `json:"refund"`
	OccurredAt time.Time       `json:"occurred_at"`
}
