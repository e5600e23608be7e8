// Package pricing computes an itemized, deterministic stay price.
//
// The pipeline order is fixed: base subtotal, weekend surcharge, extra guests,
// peak season, long stay discount, promo discount and finally tax. Every step
// after the third works on the running total, so reordering changes the price.
package pricing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/interval"
)

const (
	LineSubtotal           = "subtotal"
	LineWeekendSurcharge   = "weekend_surcharge"
	LineExtraGuestCharge   = "extra_guest_charge"
	LineSeasonalAdjustment = "seasonal_adjustment"
	LineLongStayDiscount   = "long_stay_discount"
	LinePromoDiscount      = "promo_discount"
	LineTax                = "tax"
)

const (
	longStayWeek      = 7
	longStayFortnight = 14
)

var hundred = decimal.NewFromInt(100) //nolint:gomnd

// Rules holds the business parameters. Percentages are plain numbers, 20 means 20%.
type Rules struct {
	WeekendSurchargePct    decimal.Decimal
	PeakSeasonIncreasePct  decimal.Decimal
	PeakSeasonMonths       []time.Month
	LongStay7Pct           decimal.Decimal
	LongStay14Pct          decimal.Decimal
	ExtraGuestRatePerNight decimal.Decimal
	TaxPct                 decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		WeekendSurchargePct:    decimal.NewFromInt(20), //nolint:gomnd
		PeakSeasonIncreasePct:  decimal.NewFromInt(30), //nolint:gomnd
		PeakSeasonMonths:       []time.Month{time.June, time.July, time.August, time.December},
		LongStay7Pct:           decimal.NewFromInt(10), //nolint:gomnd
		LongStay14Pct:          decimal.NewFromInt(15), //nolint:gomnd
		ExtraGuestRatePerNight: decimal.NewFromInt(15), //nolint:gomnd
		TaxPct:                 decimal.NewFromInt(10), //nolint:gomnd
	}
}

// PromoFunc resolves the discount amount a promo code grants on the running total.
// Unknown or expired codes resolve to zero, an error means the lookup itself failed.
type PromoFunc func(ctx context.Context, code string, runningTotal decimal.Decimal) (decimal.Decimal, error)

type Input struct {
	BaseRate  decimal.Decimal
	Stay      interval.Stay
	Guests    int
	Capacity  int
	PromoCode string
	Promo     PromoFunc
}

type LineItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type Breakdown struct {
	BaseRate      decimal.Decimal `json:"base_rate"`
	Nights        int             `json:"nights"`
	WeekendNights int             `json:"weekend_nights"`
	ExtraGuests   int             `json:"extra_guests"`
	PeakSeason    bool            `json:"peak_season"`
	PromoCode     string          `json:"promo_code,omitempty"`
	PromoApplied  bool            `json:"promo_applied"`
	Lines         []LineItem      `json:"lines"`
	// Unrounded is the exact pipeline result, Total is what gets persisted.
	Unrounded decimal.Decimal `json:"unrounded"`
	Total     decimal.Decimal `json:"total"`
}

// Line returns the amount of the named line item, zero if absent.
func (b *Breakdown) Line(name string) decimal.Decimal {
	for _, l := range b.Lines {
		if l.Name == name {
			return l.Amount
		}
	}

	return decimal.Zero
}

type Engine struct {
	rules Rules
}

func New(rules Rules) *Engine {
	return &Engine{rules: rules}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) Breakdown(ctx context.Context, in Input) (*Breakdown, error) {
	nights := in.Stay.Nights()
	if nights <= 0 {
		return nil, fmt.Errorf("price stay %s: %w", in.Stay, interval.ErrInvalid)
	}

	n := decimal.NewFromInt(int64(nights))

	b := &Breakdown{
		BaseRate:      in.BaseRate,
		Nights:        nights,
		WeekendNights: in.Stay.WeekendNights(),
		PromoCode:     in.PromoCode,
		Lines:         make([]LineItem, 0, 7), //nolint:gomnd
	}

	subtotal := in.BaseRate.Mul(n)
	b.add(LineSubtotal, subtotal)

	weekend := in.BaseRate.
		Mul(percent(e.rules.WeekendSurchargePct)).
		Mul(decimal.NewFromInt(int64(b.WeekendNights)))
	b.add(LineWeekendSurcharge, weekend)

	if in.Guests > in.Capacity {
		b.ExtraGuests = in.Guests - in.Capacity
	}

	extra := decimal.NewFromInt(int64(b.ExtraGuests)).Mul(e.rules.ExtraGuestRatePerNight).Mul(n)
	b.add(LineExtraGuestCharge, extra)

	running := subtotal.Add(weekend).Add(extra)

	seasonal := decimal.Zero
	if slices.Contains(e.rules.PeakSeasonMonths, in.Stay.CheckIn.Month()) {
		b.PeakSeason = true
		seasonal = running.Mul(percent(e.rules.PeakSeasonIncreasePct))
	}

	b.add(LineSeasonalAdjustment, seasonal)
	running = running.Add(seasonal)

	longStay := decimal.Zero

	switch {
	case nights >= longStayFortnight:
		longStay = running.Mul(percent(e.rules.LongStay14Pct)).Neg()
	case nights >= longStayWeek:
		longStay = running.Mul(percent(e.rules.LongStay7Pct)).Neg()
	}

	b.add(LineLongStayDiscount, longStay)
	running = running.Add(longStay)

	promo := decimal.Zero

	if in.PromoCode != "" && in.Promo != nil {
		discount, err := in.Promo(ctx, in.PromoCode, running)
		if err != nil {
			return nil, fmt.Errorf("apply promo code %q: %w", in.PromoCode, err)
		}

		if discount.IsPositive() {
			b.PromoApplied = true
			promo = decimal.Min(discount, running).Neg()
		}
	}

	b.add(LinePromoDiscount, promo)
	running = running.Add(promo)

	tax := running.Mul(percent(e.rules.TaxPct))
	b.add(LineTax, tax)
	running = running.Add(tax)

	b.Unrounded = running
	b.Total = running.Round(2) //nolint:gomnd

	return b, nil
}

func (b *Breakdown) add(name string, amount decimal.Decimal) {
	b.Lines = append(b.Lines, LineItem{Name: name, Amount: amount})
}

func percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(hundred)
}
