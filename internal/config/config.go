package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/pricing"
	"github.com/avstrong/hotel/internal/refund"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logger       LoggerConfig       `yaml:"logger"`
	Storage      StorageConfig      `yaml:"storage"`
	Pricing      PricingConfig      `yaml:"pricing"`
	Booking      BookingConfig      `yaml:"booking"`
	Cancellation CancellationConfig `yaml:"cancellation"`
	Notify       NotifyConfig       `yaml:"notify"`
	Payment      PaymentConfig      `yaml:"payment"`
}

type ServerConfig struct {
	Host              string        `yaml:"host"                env:"SERVER_HOST"                env-default:"localhost"`
	Port              string        `yaml:"port"                env:"SERVER_PORT"                env-default:"8092"      validate:"required,numeric"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"SERVER_READ_HEADER_TIMEOUT" env-default:"20s"       validate:"gt=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SERVER_SHUTDOWN_TIMEOUT"    env-default:"4s"        validate:"gt=0"`
	LivenessEndpoint  string        `yaml:"liveness_endpoint"   env:"SERVER_LIVENESS_ENDPOINT"   env-default:"/liveness" validate:"required,startswith=/"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" validate:"required,oneof=text json"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory" validate:"required,oneof=memory postgres"`
	Postgres PostgresConfig `yaml:"postgres"`
	// Seed fills an empty store with the demo catalog on start.
	Seed bool `yaml:"seed" env:"STORAGE_SEED" env-default:"true"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"              env:"DB_HOST"              env-default:"localhost" validate:"required"`
	Port            int           `yaml:"port"              env:"DB_PORT"              env-default:"5432"      validate:"required,min=1,max=65535"`
	User            string        `yaml:"user"              env:"DB_USER"              env-default:"postgres"  validate:"required"`
	Password        string        `yaml:"password"          env:"DB_PASSWORD"          env-default:"postgres"`
	Database        string        `yaml:"database"          env:"DB_NAME"              env-default:"hotel"     validate:"required"`
	SSLMode         string        `yaml:"sslmode"           env:"DB_SSLMODE"           env-default:"disable"   validate:"required,oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"DB_MAX_OPEN_CONNS"    env-default:"10"        validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"DB_MAX_IDLE_CONNS"    env-default:"5"         validate:"min=1"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"5m"        validate:"gt=0"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// PricingConfig percentages are plain numbers, 20 means 20%.
type PricingConfig struct {
	WeekendSurchargePct    float64 `yaml:"weekend_surcharge_pct"     env:"PRICING_WEEKEND_SURCHARGE_PCT"     env-default:"20" validate:"min=0,max=100"`
	PeakSeasonIncreasePct  float64 `yaml:"peak_season_increase_pct"  env:"PRICING_PEAK_SEASON_INCREASE_PCT"  env-default:"30" validate:"min=0,max=100"`
	PeakSeasonMonths       []int   `yaml:"peak_season_months"        env:"PRICING_PEAK_SEASON_MONTHS"        env-default:"6,7,8,12" validate:"dive,min=1,max=12"`
	LongStay7Pct           float64 `yaml:"long_stay_7_pct"           env:"PRICING_LONG_STAY_7_PCT"           env-default:"10" validate:"min=0,max=100"`
	LongStay14Pct          float64 `yaml:"long_stay_14_pct"          env:"PRICING_LONG_STAY_14_PCT"          env-default:"15" validate:"min=0,max=100"`
	ExtraGuestRatePerNight float64 `yaml:"extra_guest_rate_per_night" env:"PRICING_EXTRA_GUEST_RATE_PER_NIGHT" env-default:"15" validate:"min=0"`
	TaxPct                 float64 `yaml:"tax_pct"                   env:"PRICING_TAX_PCT"                   env-default:"10" validate:"min=0,max=100"`
}

func (c PricingConfig) Rules() pricing.Rules {
	months := make([]time.Month, 0, len(c.PeakSeasonMonths))
	for _, m := range c.PeakSeasonMonths {
		months = append(months, time.Month(m))
	}

	return pricing.Rules{
		WeekendSurchargePct:    decimal.NewFromFloat(c.WeekendSurchargePct),
		PeakSeasonIncreasePct:  decimal.NewFromFloat(c.PeakSeasonIncreasePct),
		PeakSeasonMonths:       months,
		LongStay7Pct:           decimal.NewFromFloat(c.LongStay7Pct),
		LongStay14Pct:          decimal.NewFromFloat(c.LongStay14Pct),
		ExtraGuestRatePerNight: decimal.NewFromFloat(c.ExtraGuestRatePerNight),
		TaxPct:                 decimal.NewFromFloat(c.TaxPct),
	}
}

type BookingConfig struct {
	AutoConfirm    bool `yaml:"auto_confirm"     env:"BOOKING_AUTO_CONFIRM"     env-default:"false"`
	GuestOverflow  int  `yaml:"guest_overflow"   env:"BOOKING_GUEST_OVERFLOW"   env-default:"0"   validate:"min=0"`
	MaxNights      int  `yaml:"max_nights"       env:"BOOKING_MAX_NIGHTS"       env-default:"30"  validate:"min=0"`
	MaxAdvanceDays int  `yaml:"max_advance_days" env:"BOOKING_MAX_ADVANCE_DAYS" env-default:"365" validate:"min=0"`
}

func (c BookingConfig) Policy() booking.Policy {
	return booking.Policy{
		AutoConfirm:    c.AutoConfirm,
		GuestOverflow:  c.GuestOverflow,
		MaxNights:      c.MaxNights,
		MaxAdvanceDays: c.MaxAdvanceDays,
	}
}

type CancellationConfig struct {
	FreeWindow time.Duration `yaml:"free_window" env:"CANCELLATION_FREE_WINDOW" env-default:"24h" validate:"min=0"`
	FeePct     float64       `yaml:"fee_pct"     env:"CANCELLATION_FEE_PCT"     env-default:"20"  validate:"min=0,max=100"`
}

func (c CancellationConfig) Policy() refund.Policy {
	return refund.Policy{
		FreeCancellationWindow: c.FreeWindow,
		FeePct:                 decimal.NewFromFloat(c.FeePct),
	}
}

type NotifyConfig struct {
	// AMQPURL enables publishing to RabbitMQ when set; events are always logged.
	AMQPURL        string        `yaml:"amqp_url"        env:"NOTIFY_AMQP_URL"`
	Exchange       string        `yaml:"exchange"        env:"NOTIFY_EXCHANGE"        env-default:"hotel.bookings" validate:"required"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"NOTIFY_PUBLISH_TIMEOUT" env-default:"5s"             validate:"gt=0"`
	MaxFailures    uint32        `yaml:"max_failures"    env:"NOTIFY_MAX_FAILURES"    env-default:"3"              validate:"min=1"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout" env:"NOTIFY_BREAKER_TIMEOUT" env-default:"10s"            validate:"gt=0"`
}

type PaymentConfig struct {
	// DeclineAbove makes the simulator reject larger charges, zero accepts any amount.
	DeclineAbove float64 `yaml:"decline_above" env:"PAYMENT_DECLINE_ABOVE" env-default:"0" validate:"min=0"`
}

// Load reads the YAML file at path when one is given, otherwise the environment
// alone. Environment variables override file values either way.
func Load(path string) (*Config, error) {
	var (
		cfg Config
		err error
	)

	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err = validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
