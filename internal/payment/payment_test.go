package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotel/internal/logger"
)

const visa = "4111 1111 1111 1111"

func TestValidCardNumber(t *testing.T) {
	assert.True(t, ValidCardNumber(visa))
	assert.True(t, ValidCardNumber("5555-5555-5555-4444"))
	assert.False(t, ValidCardNumber("4111 1111 1111 1112"))
	assert.False(t, ValidCardNumber("4111"))
	assert.False(t, ValidCardNumber("4111 1111 1111 111a"))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("paypal")
	require.NoError(t, err)
	assert.Equal(t, MethodPayPal, m)

	_, err = ParseMethod("Cash")
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestSimulator_Process(t *testing.T) {
	s := NewSimulator(logger.Discard(), decimal.NewFromInt(1000))
	ctx := context.Background()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name: "card accepted",
			req:  Request{BookingID: "b1", Amount: decimal.NewFromInt(352), Method: MethodCreditCard, CardNumber: visa},
		},
		{
			name: "wallet needs no card",
			req:  Request{BookingID: "b1", Amount: decimal.NewFromInt(352), Method: MethodWallet},
		},
		{
			name:    "bad card",
			req:     Request{BookingID: "b1", Amount: decimal.NewFromInt(352), Method: MethodDebitCard, CardNumber: "1234"},
			wantErr: ErrInvalidCard,
		},
		{
			name:    "over limit",
			req:     Request{BookingID: "b1", Amount: decimal.NewFromInt(1001), Method: MethodPayPal},
			wantErr: ErrDeclined,
		},
		{
			name:    "zero amount",
			req:     Request{BookingID: "b1", Amount: decimal.Zero, Method: MethodPayPal},
			wantErr: ErrDeclined,
		},
		{
			name:    "unknown method",
			req:     Request{BookingID: "b1", Amount: decimal.NewFromInt(10), Method: "Cash"},
			wantErr: ErrUnsupportedMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := s.Process(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Regexp(t, `^TXN[0-9A-F]{12}$`, receipt.TransactionID)
			assert.Equal(t, tt.req.BookingID, receipt.BookingID)
		})
	}
}
