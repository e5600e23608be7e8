package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/logger"
)

type AMQPConf struct {
	URL            string
	Exchange       string
	PublishTimeout time.Duration
	// MaxFailures consecutive publish errors open the breaker for BreakerTimeout.
	MaxFailures    uint32
	BreakerTimeout time.Duration
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as JSON to a fanout exchange. A circuit breaker
// stops hammering the broker while it is down; events are dropped in that case.
type AMQPPublisher struct {
	l       *logger.Logger
	conf    AMQPConf
	conn    *amqp.Connection
	channel channel
	cb      *gobreaker.CircuitBreaker
}

func DialAMQP(conf AMQPConf, l *logger.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		conf.Exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("declare exchange %s: %w", conf.Exchange, err)
	}

	p := NewAMQPPublisher(ch, conf, l)
	p.conn = conn

	return p, nil
}

func NewAMQPPublisher(ch channel, conf AMQPConf, l *logger.Logger) *AMQPPublisher {
	if conf.MaxFailures == 0 {
		conf.MaxFailures = 3
	}

	if conf.PublishTimeout == 0 {
		conf.PublishTimeout = 5 * time.Second //nolint:gomnd
	}

	//nolint:exhaustruct
	settings := gobreaker.Settings{
		Name:        "amqp-publisher",
		MaxRequests: 1,
		Timeout:     conf.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= conf.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.LogWarn("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	//nolint:exhaustruct
	return &AMQPPublisher{
		l:       l,
		conf:    conf,
		channel: ch,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *AMQPPublisher) Notify(ctx context.Context, event booking.Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	_, err = p.cb.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, p.conf.PublishTimeout)
		defer cancel()

		//nolint:exhaustruct
		return nil, p.channel.PublishWithContext(ctx,
			p.conf.Exchange,
			msg.Type, // routing key, ignored by fanout but useful for topic rebinding
			false,    // mandatory
			false,    // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    uuid.NewString(),
				Timestamp:    event.OccurredAt,
				Type:         msg.Type,
				Body:         body,
			})
	})
	if err != nil {
		return fmt.Errorf("publish %s event for booking %s: %w", event.Type, msg.BookingID, err)
	}

	p.l.LogDebug("Event %s for booking %s published", msg.Type, msg.BookingID)

	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return fmt.Errorf("close rabbitmq channel: %w", err)
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}

	return nil
}
