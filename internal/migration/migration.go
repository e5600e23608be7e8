// Package migration seeds a fresh store with the hotel's room catalog, demo
// guest accounts and the launch promo codes.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/logger"
)

type storage interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	SaveRoom(ctx context.Context, room *domain.Room) error
	SaveAccount(ctx context.Context, account *domain.Account) error
	SavePromo(ctx context.Context, promo *domain.PromoCode) error
}

type roomType struct {
	capacity  int
	baseRate  int64
	amenities []string
}

var roomTypes = map[string]roomType{
	"Single": {
		capacity:  1,
		baseRate:  50,
		amenities: []string{"WiFi", "TV", "Air Conditioning", "Mini Fridge"},
	},
	"Double": {
		capacity:  2,
		baseRate:  80,
		amenities: []string{"WiFi", "TV", "Air Conditioning", "Mini Fridge", "Coffee Maker"},
	},
	"Suite": {
		capacity:  4,
		baseRate:  150,
		amenities: []string{"WiFi", "TV", "Air Conditioning", "Mini Fridge", "Coffee Maker", "Balcony", "Bathtub"},
	},
	"Deluxe": {
		capacity: 2,
		baseRate: 200,
		amenities: []string{
			"WiFi", "TV", "Air Conditioning", "Mini Fridge", "Coffee Maker", "Balcony", "Bathtub", "Room Service",
		},
	},
}

func room(number, typ, view string, floor int) *domain.Room {
	rt := roomTypes[typ]

	return &domain.Room{
		ID:        "room-" + number,
		Number:    number,
		Type:      typ,
		BaseRate:  decimal.NewFromInt(rt.baseRate),
		Capacity:  rt.capacity,
		Floor:     floor,
		ViewType:  view,
		Amenities: rt.amenities,
		Status:    domain.RoomStatusAvailable,
	}
}

func Rooms() []*domain.Room {
	return []*domain.Room{
		room("101", "Single", "City View", 1),
		room("102", "Single", "Garden View", 1),
		room("103", "Double", "City View", 1),
		room("201", "Double", "Garden View", 2),
		room("202", "Double", "Sea View", 2),
		room("203", "Suite", "Garden View", 2),
		room("301", "Suite", "Sea View", 3),
		room("302", "Deluxe", "Sea View", 3),
		room("303", "Deluxe", "City View", 3),
	}
}

func Accounts() []*domain.Account {
	return []*domain.Account{
		{ID: "guest-1", Email: "guest1@example.com"},
		{ID: "guest-2", Email: "guest2@example.com"},
	}
}

func Promos(now time.Time) []*domain.PromoCode {
	welcomeLimit := 100

	return []*domain.PromoCode{
		{
			Code:               "WELCOME10",
			DiscountPercentage: decimal.NewFromInt(10),
			ValidFrom:          now,
			ValidUntil:         now.AddDate(1, 0, 0),
			UsageLimit:         &welcomeLimit,
			Active:             true,
		},
		{
			Code:               "SUMMER2025",
			DiscountPercentage: decimal.NewFromInt(15),
			ValidFrom:          time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			ValidUntil:         time.Date(2025, time.August, 31, 23, 59, 59, 0, time.UTC),
			Active:             true,
		},
	}
}

// Up seeds the store in one transaction. A store that already has rooms is left untouched.
func Up(ctx context.Context, l *logger.Logger, storage storage, now time.Time) (err error) {
	existing, err := storage.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	if len(existing) > 0 {
		l.LogInfo("Store already holds %d rooms, seed skipped", len(existing))

		return nil
	}

	ctx, err = storage.BeginTransaction(ctx, "")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after panic %v: %v", p, rbErr)
			}

			l.LogInfo("Migration transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after error %v: %v", err, rbErr)
			}

			l.LogInfo("Migration transaction has been roll backed after error")

			return
		}

		if err = storage.CommitTransaction(ctx); err != nil {
			l.LogErrorf("Could not commit migration transaction, err %v", err.Error())

			err = fmt.Errorf("commit migration transaction: %w", err)

			return
		}

		l.LogInfo("Migration transaction has been committed")
	}()

	for _, r := range Rooms() {
		if err = storage.SaveRoom(ctx, r); err != nil {
			return fmt.Errorf("save room %s to storage: %w", r.Number, err)
		}
	}

	for _, a := range Accounts() {
		if err = storage.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("save account %s to storage: %w", a.ID, err)
		}
	}

	for _, p := range Promos(now) {
		if err = storage.SavePromo(ctx, p); err != nil {
			return fmt.Errorf("save promo code %s to storage: %w", p.Code, err)
		}
	}

	return nil
}
