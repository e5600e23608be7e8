package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/interval"
	"github.com/avstrong/hotel/internal/payment"
)

type createBookingRequest struct {
	GuestID         string `json:"guest_id"         validate:"required"`
	RoomID          string `json:"room_id"          validate:"required"`
	CheckIn         string `json:"check_in"         validate:"required,datetime=2006-01-02"`
	CheckOut        string `json:"check_out"        validate:"required,datetime=2006-01-02"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests" validate:"max=1000"`
	PromoCode       string `json:"promo_code"       validate:"max=32"`
	PaymentMethod   string `json:"payment_method"`
	CardNumber      string `json:"card_number"`
}

type bookingResponse struct {
	Booking *domain.Booking  `json:"booking"`
	Payment *payment.Receipt `json:"payment,omitempty"`
}

type cancelResponse struct {
	Booking   *domain.Booking `json:"booking"`
	Refund    decimal.Decimal `json:"refund"`
	Fee       decimal.Decimal `json:"fee"`
	Forfeited bool            `json:"forfeited"`
}

func (s *Server) checkCreateRequest(w http.ResponseWriter, r *http.Request) (*createBookingRequest, string) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Idempotency-Key header is missing"})

		return nil, ""
	}

	var req createBookingRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})

		return nil, ""
	}

	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, err)

		return nil, ""
	}

	return &req, idempotencyKey
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	req, idempotencyKey := s.checkCreateRequest(w, r)
	if req == nil {
		return
	}

	var method payment.Method

	if req.PaymentMethod != "" {
		m, err := payment.ParseMethod(req.PaymentMethod)
		if err != nil {
			s.writeError(w, err)

			return
		}

		method = m
	}

	stay, err := interval.Parse(req.CheckIn, req.CheckOut)
	if err != nil {
		s.writeError(w, err)

		return
	}

	ctx := booking.NewContextWithIdempotencyKey(r.Context(), idempotencyKey)

	b, replayed, err := s.bManager.CreateOrReplay(ctx, &booking.CreateInput{
		GuestID:         req.GuestID,
		RoomID:          req.RoomID,
		CheckIn:         stay.CheckIn,
		CheckOut:        stay.CheckOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		PromoCode:       req.PromoCode,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	resp := bookingResponse{Booking: b}

	// A replayed request was charged the first time around.
	if method != "" && !replayed {
		resp.Booking, resp.Payment, err = s.pay(ctx, b, method, req.CardNumber)
		if err != nil {
			s.writeError(w, err)

			return
		}
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

// pay charges the booking total. A failed charge cancels the fresh booking so
// the room is released right away, even when the client has already gone.
func (s *Server) pay(
	ctx context.Context,
	b *domain.Booking,
	method payment.Method,
	cardNumber string,
) (*domain.Booking, *payment.Receipt, error) {
	receipt, err := s.payments.Process(ctx, payment.Request{
		BookingID:  b.ID,
		Amount:     b.TotalAmount,
		Method:     method,
		CardNumber: cardNumber,
	})
	if err != nil {
		if _, _, cancelErr := s.bManager.Cancel(context.WithoutCancel(ctx), b.ID, s.now()); cancelErr != nil {
			s.l.LogErrorf("Could not cancel booking %s after failed payment: %v", b.ID, cancelErr)
		}

		return nil, nil, fmt.Errorf("pay for booking %s: %w", b.ID, err)
	}

	confirmed, err := s.bManager.ConfirmPayment(ctx, b.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("confirm booking %s: %w", b.ID, err)
	}

	return confirmed, receipt, nil
}

func (s *Server) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.bManager.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) confirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, id string, _ time.Time) (*domain.Booking, error) {
		return s.bManager.ConfirmPayment(ctx, id)
	})
}

func (s *Server) verifyIDHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, id string, _ time.Time) (*domain.Booking, error) {
		return s.bManager.VerifyGuestID(ctx, id)
	})
}

func (s *Server) checkInHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.bManager.CheckIn)
}

func (s *Server) checkOutHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.bManager.CheckOut)
}

func (s *Server) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id string, at time.Time) (*domain.Booking, error),
) {
	b, err := apply(r.Context(), mux.Vars(r)["id"], s.now())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	outcome, b, err := s.bManager.Cancel(r.Context(), mux.Vars(r)["id"], s.now())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, cancelResponse{
		Booking:   b,
		Refund:    outcome.Refund,
		Fee:       outcome.Fee,
		Forfeited: outcome.Forfeited,
	})
}

func (s *Server) guestBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bManager.ListByGuest(r.Context(), mux.Vars(r)["id"])
	s.writeBookings(w, bookings, err)
}

func (s *Server) bookingByReferenceHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.bManager.FindByReference(r.Context(), mux.Vars(r)["reference"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) searchBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bManager.Search(r.Context(), r.URL.Query().Get("q"))
	s.writeBookings(w, bookings, err)
}

func (s *Server) arrivalsHandler(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayFromQuery(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	bookings, err := s.bManager.ListArrivals(r.Context(), day)
	s.writeBookings(w, bookings, err)
}

func (s *Server) departuresHandler(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayFromQuery(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	bookings, err := s.bManager.ListDepartures(r.Context(), day)
	s.writeBookings(w, bookings, err)
}

// dayFromQuery reads the date parameter and falls back to today.
func (s *Server) dayFromQuery(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return interval.Date(s.now()), nil
	}

	return interval.ParseDate(v)
}

func (s *Server) writeBookings(w http.ResponseWriter, bookings []*domain.Booking, err error) {
	if err != nil {
		s.writeError(w, err)

		return
	}

	if bookings == nil {
		bookings = []*domain.Booking{}
	}

	s.writeJSON(w, http.StatusOK, bookings)
}
