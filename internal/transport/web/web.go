package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/availability"
	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/logger"
	"github.com/avstrong/hotel/internal/payment"
	"github.com/avstrong/hotel/internal/pricing"
)

type paymentProcessor interface {
	Process(ctx context.Context, req payment.Request) (*payment.Receipt, error)
}

type promoPreviewer interface {
	Preview(ctx context.Context, code string, runningTotal decimal.Decimal, now time.Time) (decimal.Decimal, error)
}

type Server struct {
	srv          *http.Server
	router       *mux.Router
	l            *logger.Logger
	conf         Conf
	validate     *validator.Validate
	bManager     *booking.Manager
	availability *availability.Engine
	pricing      *pricing.Engine
	promo        promoPreviewer
	payments     paymentProcessor
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	// Now defaults to time.Now. Cancellation refunds and check-in times use it.
	Now func() time.Time
}

type Deps struct {
	Bookings     *booking.Manager
	Availability *availability.Engine
	Pricing      *pricing.Engine
	Promo        promoPreviewer
	Payments     paymentProcessor
}

func New(ctx context.Context, conf Conf, deps Deps) (*Server, error) {
	if conf.Now == nil {
		conf.Now = time.Now
	}

	router := mux.NewRouter()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           router,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:          srv,
		router:       router,
		l:            conf.L,
		conf:         conf,
		validate:     newValidator(),
		bManager:     deps.Bookings,
		availability: deps.Availability,
		pricing:      deps.Pricing,
		promo:        deps.Promo,
		payments:     deps.Payments,
	}

	server.addRoutes(router)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

func (s *Server) now() time.Time {
	return s.conf.Now().UTC()
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0] //nolint:gomnd
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}
