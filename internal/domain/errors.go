package domain

import (
	"errors"

	"github.com/avstrong/hotel/internal/interval"
)

var ErrInvalidInterval = interval.ErrInvalid

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomUnavailable   = errors.New("room is unavailable for the requested dates")
	ErrInvalidGuestCount = errors.New("invalid guest count")
	ErrAccountNotFound   = errors.New("guest account not found")
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

// ErrRecordNotFound is returned by storage implementations for a missing row.
var ErrRecordNotFound = errors.New("record not found")
