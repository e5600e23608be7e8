// Package availability answers whether rooms are free for a stay and how busy the hotel is.
package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
)

type storage interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	ListRoomBookings(ctx context.Context, roomID string, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	ListBookingsOverlapping(ctx context.Context, stay interval.Stay, statuses []domain.BookingStatus) ([]*domain.Booking, error)
}

type SortKey string

const (
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortRoomNumber SortKey = "room_number"
	SortCapacity   SortKey = "capacity"
)

var ErrUnknownSortKey = errors.New("unknown sort key")

var hundred = decimal.NewFromInt(100) //nolint:gomnd

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortPriceAsc, nil
	case SortPriceAsc, SortPriceDesc, SortRoomNumber, SortCapacity:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

// Filters are combined with AND. Zero values do not filter.
type Filters struct {
	RoomTypes   []string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinCapacity int
	Amenities   []string
	Floors      []int
	ViewTypes   []string
}

type RoomSummary struct {
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	Type      string          `json:"type"`
	BaseRate  decimal.Decimal `json:"base_rate"`
	Capacity  int             `json:"capacity"`
	Floor     int             `json:"floor"`
	ViewType  string          `json:"view_type"`
	Amenities []string        `json:"amenities"`
}

type Engine struct {
	storage storage
}

func New(storage storage) *Engine {
	return &Engine{storage: storage}
}

func (e *Engine) IsAvailable(ctx context.Context, roomID string, stay interval.Stay) (bool, error) {
	room, err := e.Room(ctx, roomID)
	if err != nil {
		return false, err
	}

	return e.RoomIsFree(ctx, room, stay)
}

// RoomIsFree checks an already loaded room. The lifecycle manager calls it while
// holding the room lock, so the answer stays valid until its transaction ends.
func (e *Engine) RoomIsFree(ctx context.Context, room *domain.Room, stay interval.Stay) (bool, error) {
	if !room.Bookable() {
		return false, nil
	}

	bookings, err := e.storage.ListRoomBookings(ctx, room.ID, domain.ActiveStatuses)
	if err != nil {
		return false, fmt.Errorf("list bookings of room %s: %w", room.ID, err)
	}

	return !conflicts(bookings, stay), nil
}

func (e *Engine) FindAvailableRooms(
	ctx context.Context,
	stay interval.Stay,
	filters Filters,
	sortKey SortKey,
) ([]RoomSummary, error) {
	rooms, err := e.storage.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	booked, err := e.storage.ListBookingsOverlapping(ctx, stay, domain.ActiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("list bookings overlapping %s: %w", stay, err)
	}

	busy := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		busy[b.RoomID] = struct{}{}
	}

	result := make([]RoomSummary, 0, len(rooms))

	for _, room := range rooms {
		if _, taken := busy[room.ID]; taken || !room.Bookable() || !filters.match(room) {
			continue
		}

		result = append(result, summarize(room))
	}

	sortSummaries(result, sortKey)

	return result, nil
}

// OccupancyRate is booked room-nights over available room-nights in [start, end),
// as a percentage rounded to two decimals.
func (e *Engine) OccupancyRate(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	rooms, err := e.storage.ListRooms(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list rooms: %w", err)
	}

	if len(rooms) == 0 {
		return decimal.Zero, nil
	}

	period := interval.Stay{CheckIn: interval.Date(start), CheckOut: interval.Date(end)}

	periodNights := period.Nights()
	if periodNights < 1 {
		periodNights = 1
	}

	var bookedNights int

	if period.Nights() > 0 {
		bookings, err := e.storage.ListBookingsOverlapping(ctx, period, occupyingStatuses)
		if err != nil {
			return decimal.Zero, fmt.Errorf("list bookings overlapping %s: %w", period, err)
		}

		for _, b := range bookings {
			bookedNights += b.Stay.OverlapNights(period)
		}
	}

	capacity := decimal.NewFromInt(int64(len(rooms) * periodNights))

	rate := decimal.NewFromInt(int64(bookedNights)).Div(capacity).Mul(hundred)

	return rate.Round(2), nil //nolint:gomnd
}

// Confirmed bookings include guests that have checked in but not out yet.
var occupyingStatuses = []domain.BookingStatus{domain.BookingStatusConfirmed}

func conflicts(bookings []*domain.Booking, stay interval.Stay) bool {
	for _, b := range bookings {
		if b.Active() && b.Stay.Overlaps(stay) {
			return true
		}
	}

	return false
}

func (f Filters) match(room *domain.Room) bool {
	if len(f.RoomTypes) > 0 && !containsFold(f.RoomTypes, room.Type) {
		return false
	}

	if f.MinPrice != nil && room.BaseRate.LessThan(*f.MinPrice) {
		return false
	}

	if f.MaxPrice != nil && room.BaseRate.GreaterThan(*f.MaxPrice) {
		return false
	}

	if room.Capacity < f.MinCapacity {
		return false
	}

	if len(f.Floors) > 0 && !slices.Contains(f.Floors, room.Floor) {
		return false
	}

	if len(f.ViewTypes) > 0 && !containsFold(f.ViewTypes, room.ViewType) {
		return false
	}

	return room.HasAmenities(f.Amenities)
}

func containsFold(values []string, v string) bool {
	return slices.ContainsFunc(values, func(s string) bool { return strings.EqualFold(s, v) })
}

func summarize(room *domain.Room) RoomSummary {
	return RoomSummary{
		ID:        room.ID,
		Number:    room.Number,
		Type:      room.Type,
		BaseRate:  room.BaseRate,
		Capacity:  room.Capacity,
		Floor:     room.Floor,
		ViewType:  room.ViewType,
		Amenities: room.Amenities,
	}
}

func sortSummaries(rooms []RoomSummary, key SortKey) {
	compare := func(a, b RoomSummary) int {
		switch key {
		case SortPriceDesc:
			return b.BaseRate.Cmp(a.BaseRate)
		case SortRoomNumber:
			return strings.Compare(a.Number, b.Number)
		case SortCapacity:
			return b.Capacity - a.Capacity
		default:
			return a.BaseRate.Cmp(b.BaseRate)
		}
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		if c := compare(rooms[i], rooms[j]); c != 0 {
			return c < 0
		}

		return rooms[i].ID < rooms[j].ID
	})
}

// Room returns a catalog entry, ErrRoomNotFound when it does not exist.
func (e *Engine) Room(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := e.storage.GetRoom(ctx, roomID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get room %s from storage: %w", roomID, err)
	}

	return room, nil
}
