package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/availability"
	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/pricing"
)

type availabilityResponse struct {
	RoomID    string `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

type occupancyResponse struct {
	Start         string          `json:"start"`
	End           string          `json:"end"`
	OccupancyRate decimal.Decimal `json:"occupancy_rate"`
}

func stayFromQuery(q url.Values, from, to string) (interval.Stay, error) {
	return interval.Parse(q.Get(from), q.Get(to))
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}

	return result
}

func filtersFromQuery(q url.Values) (availability.Filters, error) {
	//nolint:exhaustruct
	f := availability.Filters{
		RoomTypes: splitList(q.Get("room_type")),
		Amenities: splitList(q.Get("amenities")),
		ViewTypes: splitList(q.Get("view_type")),
	}

	for _, bound := range []struct {
		key    string
		target **decimal.Decimal
	}{
		{key: "min_price", target: &f.MinPrice},
		{key: "max_price", target: &f.MaxPrice},
	} {
		if v := q.Get(bound.key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, inputError(bound.key, "must be a number")
			}

			*bound.target = &d
		}
	}

	if v := q.Get("min_capacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, inputError("min_capacity", "must be an integer")
		}

		f.MinCapacity = n
	}

	for _, v := range splitList(q.Get("floor")) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, inputError("floor", "must be a list of integers")
		}

		f.Floors = append(f.Floors, n)
	}

	return f, nil
}

func (s *Server) availableRoomsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stay, err := stayFromQuery(q, "check_in", "check_out")
	if err != nil {
		s.writeError(w, err)

		return
	}

	filters, err := filtersFromQuery(q)
	if err != nil {
		s.writeError(w, err)

		return
	}

	sortKey, err := availability.ParseSortKey(q.Get("sort"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	rooms, err := s.availability.FindAvailableRooms(r.Context(), stay, filters, sortKey)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) roomAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	stay, err := stayFromQuery(r.URL.Query(), "check_in", "check_out")
	if err != nil {
		s.writeError(w, err)

		return
	}

	ok, err := s.availability.IsAvailable(r.Context(), roomID, stay)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, availabilityResponse{
		RoomID:    roomID,
		CheckIn:   stay.CheckIn.Format(interval.DateLayout),
		CheckOut:  stay.CheckOut.Format(interval.DateLayout),
		Available: ok,
	})
}

func (s *Server) roomCalendarHandler(w http.ResponseWriter, r *http.Request) {
	period, err := stayFromQuery(r.URL.Query(), "from", "to")
	if err != nil {
		s.writeError(w, err)

		return
	}

	days, err := s.availability.Calendar(r.Context(), mux.Vars(r)["id"], period.CheckIn, period.CheckOut)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, days)
}

func (s *Server) filterOptionsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := s.availability.FilterOptions(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, opts)
}

// occupancyHandler accepts an empty period (start equal to end), unlike stays.
func (s *Server) occupancyHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := interval.ParseDate(q.Get("start"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	end, err := interval.ParseDate(q.Get("end"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	if end.Before(start) {
		s.writeError(w, fmt.Errorf("%w: end before start", domain.ErrInvalidInterval))

		return
	}

	rate, err := s.availability.OccupancyRate(r.Context(), start, end)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, occupancyResponse{
		Start:         start.Format(interval.DateLayout),
		End:           end.Format(interval.DateLayout),
		OccupancyRate: rate,
	})
}

// quoteHandler prices a stay without reserving anything; promo codes are previewed, not redeemed.
func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stay, err := stayFromQuery(q, "check_in", "check_out")
	if err != nil {
		s.writeError(w, err)

		return
	}

	guests := 1

	if v := q.Get("guests"); v != "" {
		if guests, err = strconv.Atoi(v); err != nil || guests < 1 {
			s.writeError(w, fmt.Errorf("%w: guests %q", domain.ErrInvalidGuestCount, v))

			return
		}
	}

	room, err := s.availability.Room(r.Context(), q.Get("room_id"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	if limit := room.Capacity + s.bManager.Policy().GuestOverflow; guests > limit {
		s.writeError(w, fmt.Errorf("%w: %d guests, room %s takes at most %d",
			domain.ErrInvalidGuestCount, guests, room.ID, limit))

		return
	}

	now := s.now()

	breakdown, err := s.pricing.Breakdown(r.Context(), pricing.Input{
		BaseRate:  room.BaseRate,
		Stay:      stay,
		Guests:    guests,
		Capacity:  room.Capacity,
		PromoCode: q.Get("promo_code"),
		Promo: func(ctx context.Context, code string, runningTotal decimal.Decimal) (decimal.Decimal, error) {
			return s.promo.Preview(ctx, code, runningTotal, now)
		},
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, breakdown)
}
