package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handle(r *mux.Router, method, path string, h http.HandlerFunc) {
	r.Handle(path, s.applyMiddlewares(h, s.loggerMiddleware(), s.tracingMiddleware(), s.recoverMiddleware())).
		Methods(method)
}

func (s *Server) addRoutes(r *mux.Router) {
	s.handle(r, http.MethodPost, "/api/bookings/v1", s.createBookingHandler)
	s.handle(r, http.MethodGet, "/api/bookings/v1/search", s.searchBookingsHandler)
	s.handle(r, http.MethodGet, "/api/bookings/v1/reference/{reference}", s.bookingByReferenceHandler)
	s.handle(r, http.MethodGet, "/api/bookings/v1/{id}", s.getBookingHandler)
	s.handle(r, http.MethodPost, "/api/bookings/v1/{id}/confirm", s.confirmBookingHandler)
	s.handle(r, http.MethodPost, "/api/bookings/v1/{id}/cancel", s.cancelBookingHandler)
	s.handle(r, http.MethodPost, "/api/bookings/v1/{id}/verify-id", s.verifyIDHandler)
	s.handle(r, http.MethodPost, "/api/bookings/v1/{id}/check-in", s.checkInHandler)
	s.handle(r, http.MethodPost, "/api/bookings/v1/{id}/check-out", s.checkOutHandler)
	s.handle(r, http.MethodGet, "/api/guests/v1/{id}/bookings", s.guestBookingsHandler)
	s.handle(r, http.MethodGet, "/api/frontdesk/v1/arrivals", s.arrivalsHandler)
	s.handle(r, http.MethodGet, "/api/frontdesk/v1/departures", s.departuresHandler)

	// Static room paths go first so "available" and "filters" are not taken as ids.
	s.handle(r, http.MethodGet, "/api/rooms/v1/available", s.availableRoomsHandler)
	s.handle(r, http.MethodGet, "/api/rooms/v1/filters", s.filterOptionsHandler)
	s.handle(r, http.MethodGet, "/api/rooms/v1/{id}/availability", s.roomAvailabilityHandler)
	s.handle(r, http.MethodGet, "/api/rooms/v1/{id}/calendar", s.roomCalendarHandler)

	s.handle(r, http.MethodGet, "/api/occupancy/v1", s.occupancyHandler)
	s.handle(r, http.MethodGet, "/api/pricing/v1/quote", s.quoteHandler)
	s.handle(r, http.MethodGet, s.conf.LivenessEndpoint, s.livenessHandler)
}
