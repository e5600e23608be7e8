// Package notify delivers booking lifecycle events to the outside world.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/logger"
)

type notifier interface {
	Notify(ctx context.Context, event booking.Event) error
}

// LogNotifier writes events to the application log. It stands in for e-mail
// delivery in environments without a broker.
type LogNotifier struct {
	l *logger.Logger
}

func NewLogNotifier(l *logger.Logger) *LogNotifier {
	return &LogNotifier{l: l}
}

func (n *LogNotifier) Notify(_ context.Context, event booking.Event) error {
	b := event.Booking
	if b == nil {
		return ErrEmptyEvent
	}

	l := n.l.WithField("event", string(event.Type)).WithField("booking_id", b.ID)

	switch event.Type {
	case booking.EventCancelled:
		l.LogInfo("Guest %s: booking %s for room %s cancelled, refund %s",
			b.GuestID, b.Reference, b.RoomID, event.Refund.StringFixed(2)) //nolint:gomnd
	default:
		l.LogInfo("Guest %s: booking %s for room %s, stay %s, status %s, total %s",
			b.GuestID, b.Reference, b.RoomID, b.Stay, b.Status, b.TotalAmount.StringFixed(2)) //nolint:gomnd
	}

	return nil
}

var ErrEmptyEvent = errors.New("event carries no booking")

// Multi fans an event out to every notifier and joins their errors.
type Multi []notifier

func (m Multi) Notify(ctx context.Context, event booking.Event) error {
	var errs []error

	for idx, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", idx, err))
		}
	}

	return errors.Join(errs...)
}

// message is the wire form of an event.
type message struct {
	Type        string `json:"type"`
	BookingID   string `json:"booking_id"`
	Reference   string `json:"reference"`
	GuestID     string `json:"guest_id"`
	RoomID      string `json:"room_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Guests      int    `json:"guests"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	Refund      string `json:"refund,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}

func newMessage(event booking.Event) (*message, error) {
	b := event.Booking
	if b == nil {
		return nil, ErrEmptyEvent
	}

	msg := &message{
		Type:        string(event.Type),
		BookingID:   b.ID,
		Reference:   b.Reference,
		GuestID:     b.GuestID,
		RoomID:      b.RoomID,
		CheckIn:     b.Stay.CheckIn.Format(interval.DateLayout),
		CheckOut:    b.Stay.CheckOut.Format(interval.DateLayout),
		Guests:      b.Guests,
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount.StringFixed(2), //nolint:gomnd
		OccurredAt:  event.OccurredAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	if event.Type == booking.EventCancelled {
		msg.Refund = event.Refund.StringFixed(2) //nolint:gomnd
	}

	return msg, nil
}
