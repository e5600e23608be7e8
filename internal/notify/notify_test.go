package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/logger"
)

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	exchanges []string
	err       error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(
	_ context.Context,
	exchange, _ string,
	_, _ bool,
	msg amqp.Publishing,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}

	c.exchanges = append(c.exchanges, exchange)
	c.published = append(c.published, msg)

	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true

	return nil
}

func event(t *testing.T, eventType booking.EventType) booking.Event {
	t.Helper()

	stay, err := interval.Parse("2025-09-13", "2025-09-16")
	require.NoError(t, err)

	return booking.Event{
		Type: eventType,
		Booking: &domain.Booking{
			ID:          "b-1",
			Reference:   "BK0000ABCD",
			RoomID:      "r1",
			GuestID:     "g1",
			Stay:        stay,
			Guests:      2,
			TotalAmount: decimal.NewFromInt(352),
			Status:      domain.BookingStatusCancelled,
		},
		Refund:     decimal.RequireFromString("281.6"),
		OccurredAt: time.Date(2025, 9, 12, 1, 0, 0, 0, time.UTC),
	}
}

func TestAMQPPublisher_PublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher(ch, AMQPConf{Exchange: "bookings"}, logger.Discard())

	require.NoError(t, p.Notify(context.Background(), event(t, booking.EventCancelled)))
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	assert.Equal(t, "bookings", ch.exchanges[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "booking.cancelled", msg.Type)
	assert.NotEmpty(t, msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))

	assert.Equal(t, "BK0000ABCD", body["reference"])
	assert.Equal(t, "2025-09-13", body["check_in"])
	assert.Equal(t, "2025-09-16", body["check_out"])
	assert.Equal(t, "352.00", body["total_amount"])
	assert.Equal(t, "281.60", body["refund"])
}

func TestAMQPPublisher_RefundOnlyOnCancellation(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher(ch, AMQPConf{Exchange: "bookings"}, logger.Discard())

	require.NoError(t, p.Notify(context.Background(), event(t, booking.EventCreated)))

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &body))
	assert.NotContains(t, body, "refund")
}

func TestAMQPPublisher_BreakerOpensAfterFailures(t *testing.T) {
	ch := &fakeChannel{err: errors.New("connection reset")}
	p := NewAMQPPublisher(ch, AMQPConf{Exchange: "bookings", MaxFailures: 2, BreakerTimeout: time.Minute}, logger.Discard())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := p.Notify(ctx, event(t, booking.EventCreated))
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	ch.err = nil

	err := p.Notify(ctx, event(t, booking.EventCreated))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Empty(t, ch.published)
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher(ch, AMQPConf{}, logger.Discard())

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNotify_EmptyEvent(t *testing.T) {
	p := NewAMQPPublisher(&fakeChannel{}, AMQPConf{}, logger.Discard())

	assert.ErrorIs(t, p.Notify(context.Background(), booking.Event{Type: booking.EventCreated}), ErrEmptyEvent)
	assert.ErrorIs(t, NewLogNotifier(logger.Discard()).Notify(context.Background(), booking.Event{}), ErrEmptyEvent)
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(context.Context, booking.Event) error {
	n.calls++

	return n.err
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	broken := errors.New("smtp down")
	first := &countingNotifier{err: broken}
	second := &countingNotifier{}

	m := Multi{first, NewLogNotifier(logger.Discard()), second}

	err := m.Notify(context.Background(), event(t, booking.EventConfirmed))
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	first.err = nil
	assert.NoError(t, m.Notify(context.Background(), event(t, booking.EventConfirmed)))
}
