package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/avstrong/hotel/internal/availability"
	"github.com/avstrong/hotel/internal/booking"
	"github.com/avstrong/hotel/internal/domain"
	"github.com/avstrong/hotel/internal/payment"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// fieldError reports a malformed query parameter.
type fieldError struct {
	field string
	msg   string
}

func inputError(field, msg string) error {
	return &fieldError{field: field, msg: msg}
}

func (e *fieldError) Error() string {
	return e.field + " " + e.msg
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrInvalidGuestCount),
		errors.Is(err, availability.ErrUnknownSortKey),
		errors.Is(err, payment.ErrUnsupportedMethod),
		errors.Is(err, payment.ErrInvalidCard):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomUnavailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, payment.ErrDeclined):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to status codes. Anything unknown is logged and
// reported as a bare 500 so internals do not leak.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if inputErr := booking.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: inputErr.Fields()})

		return
	}

	var fieldErr *fieldError
	if errors.As(err, &fieldErr) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid input",
			Fields: map[string][]string{fieldErr.field: {fieldErr.msg}},
		})

		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string][]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = append(fields[fe.Field()], "failed on "+fe.Tag())
		}

		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: fields})

		return
	}

	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.l.LogErrorf("Request failed: %v", err.Error())
		s.writeJSON(w, status, errorResponse{Error: http.StatusText(status)})

		return
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}
