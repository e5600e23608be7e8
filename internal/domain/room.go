package domain

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
	RoomStatusCleaning    RoomStatus = "cleaning"
)

// Room is the read-only projection of the room catalog used at booking time.
type Room struct {
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	Type      string          `json:"type"`
	BaseRate  decimal.Decimal `json:"base_rate"`
	Capacity  int             `json:"capacity"`
	Floor     int             `json:"floor"`
	ViewType  string          `json:"view_type"`
	Amenities []string        `json:"amenities"`
	Status    RoomStatus      `json:"status"`
}

// Bookable reports whether the room accepts reservations at all. Occupied and
// cleaning describe today's housekeeping state, date conflicts are handled by bookings.
func (r *Room) Bookable() bool {
	return r.Status != RoomStatusMaintenance
}

// HasAmenities reports whether the room offers every requested amenity (case-insensitive).
func (r *Room) HasAmenities(amenities []string) bool {
	for _, want := range amenities {
		if !slices.ContainsFunc(r.Amenities, func(have string) bool {
			return strings.EqualFold(have, want)
		}) {
			return false
		}
	}

	return true
}

type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r *Room) Clone() *Room {
	c := *r
	c.Amenities = slices.Clone(r.Amenities)

	return &c
}
