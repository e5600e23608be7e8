// Package payment charges guests for their bookings.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/logger"
)

type Method string

const (
	MethodCreditCard Method = "Credit Card"
	MethodDebitCard  Method = "Debit Card"
	MethodPayPal     Method = "PayPal"
	MethodWallet     Method = "Wallet"
)

var Methods = []Method{MethodCreditCard, MethodDebitCard, MethodPayPal, MethodWallet}

var (
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrInvalidCard       = errors.New("invalid card number")
	ErrDeclined          = errors.New("payment declined")
)

func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

func (m Method) needsCard() bool {
	return m == MethodCreditCard || m == MethodDebitCard
}

type Request struct {
	BookingID  string
	Amount     decimal.Decimal
	Method     Method
	CardNumber string
}

type Receipt struct {
	TransactionID string          `json:"transaction_id"`
	BookingID     string          `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        Method          `json:"method"`
}

// Simulator approves every well-formed payment up to DeclineAbove. There is no
// real gateway behind it.
type Simulator struct {
	l *logger.Logger
	// zero disables the limit
	declineAbove decimal.Decimal
}

func NewSimulator(l *logger.Logger, declineAbove decimal.Decimal) *Simulator {
	return &Simulator{l: l, declineAbove: declineAbove}
}

func (s *Simulator) Process(ctx context.Context, req Request) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process payment: %w", err)
	}

	if _, err := ParseMethod(string(req.Method)); err != nil {
		return nil, err
	}

	if req.Method.needsCard() && !ValidCardNumber(req.CardNumber) {
		return nil, ErrInvalidCard
	}

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %s", ErrDeclined, req.Amount)
	}

	if s.declineAbove.IsPositive() && req.Amount.GreaterThan(s.declineAbove) {
		return nil, fmt.Errorf("%w: amount %s over limit", ErrDeclined, req.Amount.StringFixed(2)) //nolint:gomnd
	}

	receipt := &Receipt{
		TransactionID: "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Method:        req.Method,
	}

	s.l.LogInfo("Payment %s of %s for booking %s accepted", receipt.TransactionID, req.Amount.StringFixed(2), req.BookingID) //nolint:gomnd

	return receipt, nil
}

// ValidCardNumber applies the Luhn checksum to a 13 to 19 digit number.
// Spaces and dashes are ignored.
func ValidCardNumber(number string) bool {
	number = strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	var sum int

	double := false

	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}

		d := int(c - '0')

		if double {
			d *= 2
			if d > 9 { //nolint:gomnd
				d -= 9
			}
		}

		sum += d
		double = !double
	}

	return sum%10 == 0
}
