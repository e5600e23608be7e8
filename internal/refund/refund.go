package refund

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/domain"
)

var hundred = decimal.NewFromInt(100) //nolint:gomnd

type Policy struct {
	FreeCancellationWindow time.Duration
	// FeePct is a plain percentage, 20 means 20%.
	FeePct decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeCancellationWindow: 24 * time.Hour,          //nolint:gomnd
		FeePct:                 decimal.NewFromInt(20), //nolint:gomnd
	}
}

type Outcome struct {
	Refund decimal.Decimal `json:"refund"`
	Fee    decimal.Decimal `json:"fee"`
	// Forfeited is set when the stay had already started and nothing is returned.
	Forfeited bool `json:"forfeited"`
}

func (p Policy) Evaluate(b *domain.Booking, at time.Time) Outcome {
	total := b.TotalAmount
	checkIn := b.Stay.CheckIn

	if at.After(checkIn) {
		return Outcome{
			Refund:    decimal.Zero,
			Fee:       total,
			Forfeited: true,
		}
	}

	if checkIn.Sub(at) >= p.FreeCancellationWindow {
		return Outcome{
			Refund: total,
			Fee:    decimal.Zero,
		}
	}

	fee := total.Mul(p.FeePct).Div(hundred)

	return Outcome{
		Refund: total.Sub(fee).Round(2), //nolint:gomnd
		Fee:    fee.Round(2),            //nolint:gomnd
	}
}

func (p Policy) Describe() string {
	hours := int(p.FreeCancellationWindow.Hours())

	return fmt.Sprintf(
		"Free cancellation up to %d hours before check-in. "+
			"Cancellations within %d hours incur a %s%% fee. "+
			"No refund once the stay has started.",
		hours, hours, p.FeePct.String(),
	)
}
