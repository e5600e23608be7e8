package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoom_HasAmenities(t *testing.T) {
	r := &Room{Amenities: []string{"WiFi", "TV", "Balcony"}}

	assert.True(t, r.HasAmenities(nil))
	assert.True(t, r.HasAmenities([]string{"wifi", "balcony"}))
	assert.False(t, r.HasAmenities([]string{"WiFi", "Bathtub"}))
}

func TestRoom_Bookable(t *testing.T) {
	for status, want := range map[RoomStatus]bool{
		RoomStatusAvailable:   true,
		RoomStatusOccupied:    true,
		RoomStatusCleaning:    true,
		RoomStatusMaintenance: false,
	} {
		r := &Room{Status: status}
		assert.Equal(t, want, r.Bookable(), status)
	}
}

func TestPromoCode_Redeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limit := 2

	p := &PromoCode{
		Code:               "SUMMER",
		DiscountPercentage: decimal.NewFromInt(10),
		ValidFrom:          now.Add(-time.Hour),
		ValidUntil:         now.Add(time.Hour),
		UsageLimit:         &limit,
		TimesUsed:          1,
		Active:             true,
	}

	assert.True(t, p.Redeemable(now))
	assert.True(t, p.Redeemable(p.ValidUntil), "validity window is inclusive")
	assert.False(t, p.Redeemable(now.Add(2*time.Hour)))
	assert.False(t, p.Redeemable(now.Add(-2*time.Hour)))

	p.TimesUsed = 2
	assert.False(t, p.Redeemable(now))

	p.TimesUsed = 0
	p.Active = false
	assert.False(t, p.Redeemable(now))
}

func TestPromoCode_CloneDetachesLimit(t *testing.T) {
	limit := 1
	p := &PromoCode{UsageLimit: &limit}

	c := p.Clone()
	*c.UsageLimit = 5

	assert.Equal(t, 1, *p.UsageLimit)
}

func TestBooking_Active(t *testing.T) {
	assert.True(t, (&Booking{Status: BookingStatusPending}).Active())
	assert.True(t, (&Booking{Status: BookingStatusConfirmed}).Active())
	assert.False(t, (&Booking{Status: BookingStatusCancelled}).Active())
	assert.False(t, (&Booking{Status: BookingStatusCompleted}).Active())
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME10", NormalizeCode("  welcome10 "))
}
