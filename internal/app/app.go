package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/availability"
	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/boost"
	"github.com/avstrong/hotel/internal/config"
	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/idgen/simple"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/logger"
	"github.com/avstrong/hotel/internal/migration"
	"github.com/avstrong/hotel/internal/notify"
	"github.com/avstrong/hotel/internal/payment"
	"github.com/avstrong/hotel/internal/pricing"
	"github.com/avstrong/hotel/internal/storage/memory"
	"github.com/avstrong/hotel/internal/storage/postgres"
	"github.com/avstrong/hotel/internal/transport/web"
)

// storage is everything the services need from a backend. Both the in-memory
// store and postgres satisfy it.
type storage interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	LockRoom(ctx context.Context, roomID string) error
	LockBooking(ctx context.Context, bookingID string) error
	LockPromo(ctx context.Context, code string) error

	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	SaveRoom(ctx context.Context, room *domain.Room) error
	AccountExists(ctx context.Context, accountID string) (bool, error)
	SaveAccount(ctx context.Context, account *domain.Account) error
	GetPromo(ctx context.Context, code string) (*domain.PromoCode, error)
	SavePromo(ctx context.Context, promo *domain.PromoCode) error

	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	ListGuestBookings(ctx context.Context, guestID string) ([]*domain.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListBookingsCheckingIn(ctx context.Context, day time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	ListBookingsCheckingOut(ctx context.Context, day time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	SearchBookings(ctx context.Context, term string, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	ListRoomBookings(ctx context.Context, roomID string, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	ListBookingsOverlapping(ctx context.Context, stay interval.Stay, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	SaveBooking(ctx context.Context, b *domain.Booking) error
	SaveIdempotencyKey(ctx context.Context, key, bookingID string) error
}

func Run(l *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	l, err = logger.NewFromConfig(logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, closeStore, err := openStorage(ctx, l, cfg.Storage)
	if err != nil {
		return err
	}

	defer closeStore()

	if cfg.Storage.Seed {
		if err = migration.Up(ctx, l, store, time.Now().UTC()); err != nil {
			return fmt.Errorf("seed storage: %w", err)
		}

		l.LogInfo("Seed migration has been applied")
	}

	notifier, closeNotifier := newNotifier(l, cfg.Notify)
	defer closeNotifier()

	avail := availability.New(store)
	prices := pricing.New(cfg.Pricing.Rules())
	promos := boost.New(l, store)

	bManager := booking.New(booking.Conf{
		L:            l,
		Storage:      store,
		Availability: avail,
		Pricing:      prices,
		Promo:        promos,
		Refund:       cfg.Cancellation.Policy(),
		IDGenerator:  simple.New(),
		Notifier:     notifier,
		Policy:       cfg.Booking.Policy(),
		Now:          time.Now,
	})
	defer bManager.Wait()

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.New(l.Writer(), "", 0),
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		LivenessEndpoint:  cfg.Server.LivenessEndpoint,
		Now:               time.Now,
	}

	srv, err := web.New(ctx, webConf, web.Deps{
		Bookings:     bManager,
		Availability: avail,
		Pricing:      prices,
		Promo:        promos,
		Payments:     payment.NewSimulator(l, decimal.NewFromFloat(cfg.Payment.DeclineAbove)),
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}

func openStorage(ctx context.Context, l *logger.Logger, conf config.StorageConfig) (storage, func(), error) {
	if conf.Driver != "postgres" {
		l.LogInfo("Using in-memory storage, data is lost on exit")

		return memory.New(memory.Config{L: l}), func() {}, nil
	}

	db, err := postgres.Open(ctx, postgres.Config{
		L:               l,
		DSN:             conf.Postgres.DSN(),
		MaxOpenConns:    conf.Postgres.MaxOpenConns,
		MaxIdleConns:    conf.Postgres.MaxIdleConns,
		ConnMaxLifetime: conf.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}

	if err = db.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	l.LogInfo("Postgres schema is up to date")

	return db, func() {
		if err := db.Close(); err != nil {
			l.LogErrorf("Failed to close postgres: %v", err.Error())
		}
	}, nil
}

// newNotifier always logs events. With a broker URL configured it also
// publishes them; an unreachable broker is reported and skipped so bookings
// keep working.
func newNotifier(l *logger.Logger, conf config.NotifyConfig) (notify.Multi, func()) {
	notifiers := notify.Multi{notify.NewLogNotifier(l)}

	if conf.AMQPURL == "" {
		return notifiers, func() {}
	}

	publisher, err := notify.DialAMQP(notify.AMQPConf{
		URL:            conf.AMQPURL,
		Exchange:       conf.Exchange,
		PublishTimeout: conf.PublishTimeout,
		MaxFailures:    conf.MaxFailures,
		BreakerTimeout: conf.BreakerTimeout,
	}, l)
	if err != nil {
		l.LogErrorf("RabbitMQ is unavailable, events are only logged: %v", err.Error())

		return notifiers, func() {}
	}

	l.LogInfo("Publishing booking events to exchange %s", conf.Exchange)

	return append(notifiers, publisher), func() {
		if err := publisher.Close(); err != nil {
			l.LogErrorf("Failed to close rabbitmq publisher: %v", err.Error())
		}
	}
}
