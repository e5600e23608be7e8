package availability

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
)

// maxCalendarNights bounds a single calendar request.
const maxCalendarNights = 366

type DayStatus struct {
	Date      time.Time `json:"date"`
	Booked    bool      `json:"booked"`
	BookingID string    `json:"booking_id,omitempty"`
}

// Calendar lists every night of [from, to) for one room and whether an active booking holds it.
func (e *Engine) Calendar(ctx context.Context, roomID string, from, to time.Time) ([]DayStatus, error) {
	period, err := interval.New(from, to)
	if err != nil {
		return nil, err
	}

	if period.Nights() > maxCalendarNights {
		return nil, fmt.Errorf("%w: calendar longer than %d nights", interval.ErrInvalid, maxCalendarNights)
	}

	room, err := e.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}

	bookings, err := e.storage.ListRoomBookings(ctx, room.ID, domain.ActiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("list bookings of room %s: %w", room.ID, err)
	}

	days := make([]DayStatus, 0, period.Nights())

	period.EachNight(func(night time.Time) {
		status := DayStatus{Date: night}

		for _, b := range bookings {
			if b.Stay.Contains(night) {
				status.Booked = true
				status.BookingID = b.ID

				break
			}
		}

		days = append(days, status)
	})

	return days, nil
}

type FilterOptions struct {
	RoomTypes []string        `json:"room_types"`
	ViewTypes []string        `json:"view_types"`
	Floors    []int           `json:"floors"`
	Amenities []string        `json:"amenities"`
	MinPrice  decimal.Decimal `json:"min_price"`
	MaxPrice  decimal.Decimal `json:"max_price"`
}

// FilterOptions collects the values a search form can offer, taken from bookable rooms.
func (e *Engine) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	rooms, err := e.storage.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	//nolint:exhaustruct
	opts := &FilterOptions{}
	types := make(map[string]struct{})
	views := make(map[string]struct{})
	floors := make(map[int]struct{})
	amenities := make(map[string]struct{})
	first := true

	for _, room := range rooms {
		if !room.Bookable() {
			continue
		}

		types[room.Type] = struct{}{}
		floors[room.Floor] = struct{}{}

		if room.ViewType != "" {
			views[room.ViewType] = struct{}{}
		}

		for _, a := range room.Amenities {
			amenities[strings.TrimSpace(a)] = struct{}{}
		}

		if first || room.BaseRate.LessThan(opts.MinPrice) {
			opts.MinPrice = room.BaseRate
		}

		if first || room.BaseRate.GreaterThan(opts.MaxPrice) {
			opts.MaxPrice = room.BaseRate
		}

		first = false
	}

	opts.RoomTypes = sortedKeys(types)
	opts.ViewTypes = sortedKeys(views)
	opts.Amenities = sortedKeys(amenities)

	opts.Floors = make([]int, 0, len(floors))
	for f := range floors {
		opts.Floors = append(opts.Floors, f)
	}

	slices.Sort(opts.Floors)

	return opts, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
