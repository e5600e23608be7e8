package boost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/logger"
)

var hundred = decimal.NewFromInt(100) //nolint:gomnd

type storage interface {
	GetPromo(ctx context.Context, code string) (*domain.PromoCode, error)
	LockPromo(ctx context.Context, code string) error
	SavePromo(ctx context.Context, promo *domain.PromoCode) error
}

// Manager validates promo codes and turns them into discounts. An unusable code
// never fails a reservation, it simply yields no discount.
type Manager struct {
	l       *logger.Logger
	storage storage
}

func New(l *logger.Logger, storage storage) *Manager {
	return &Manager{
		l:       l,
		storage: storage,
	}
}

// Apply redeems the code against runningTotal. It must run inside the caller's
// storage transaction: the usage counter is locked and incremented there, so it
// commits or rolls back together with the booking.
func (m *Manager) Apply(ctx context.Context, code string, runningTotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return decimal.Zero, nil
	}

	if err := m.storage.LockPromo(ctx, code); err != nil {
		return decimal.Zero, fmt.Errorf("lock promo code %s: %w", code, err)
	}

	promo, ok, err := m.lookup(ctx, code, now)
	if err != nil || !ok {
		return decimal.Zero, err
	}

	promo.TimesUsed++

	if err = m.storage.SavePromo(ctx, promo); err != nil {
		return decimal.Zero, fmt.Errorf("save promo code %s usage: %w", code, err)
	}

	m.l.LogInfo("Promo code %s redeemed (%d used)", code, promo.TimesUsed)

	return discount(runningTotal, promo), nil
}

// Preview computes the discount the code would give without redeeming it.
func (m *Manager) Preview(ctx context.Context, code string, runningTotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return decimal.Zero, nil
	}

	promo, ok, err := m.lookup(ctx, code, now)
	if err != nil || !ok {
		return decimal.Zero, err
	}

	return discount(runningTotal, promo), nil
}

func (m *Manager) lookup(ctx context.Context, code string, now time.Time) (*domain.PromoCode, bool, error) {
	promo, err := m.storage.GetPromo(ctx, code)
	if errors.Is(err, domain.ErrRecordNotFound) {
		m.l.LogInfo("Promo code %s not found, no discount applied", code)

		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("get promo code %s from storage: %w", code, err)
	}

	if !promo.Redeemable(now) {
		m.l.LogInfo("Promo code %s is not redeemable at %v, no discount applied", code, now)

		return nil, false, nil
	}

	return promo, true, nil
}

func discount(runningTotal decimal.Decimal, promo *domain.PromoCode) decimal.Decimal {
	return runningTotal.Mul(promo.DiscountPercentage).Div(hundred)
}
