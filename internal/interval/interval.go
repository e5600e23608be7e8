// Package interval models a hotel stay as a half-open range of calendar dates.
package interval

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	day        = 24 * time.Hour
)

var ErrInvalid = errors.New("invalid interval")

// Stay is the range [CheckIn, CheckOut). The check-out date itself is not occupied,
// so a stay ending on D and another starting on D never conflict.
type Stay struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

func New(checkIn, checkOut time.Time) (Stay, error) {
	s := Stay{
		CheckIn:  Date(checkIn),
		CheckOut: Date(checkOut),
	}

	if s.Nights() <= 0 {
		return Stay{}, fmt.Errorf("%w: check-out %s must be after check-in %s",
			ErrInvalid, s.CheckOut.Format(DateLayout), s.CheckIn.Format(DateLayout))
	}

	return s, nil
}

func Parse(checkIn, checkOut string) (Stay, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return Stay{}, err
	}

	out, err := ParseDate(checkOut)
	if err != nil {
		return Stay{}, err
	}

	return New(in, out)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse date %q: %v", ErrInvalid, s, err)
	}

	return t, nil
}

// Date drops the clock part and pins the value to UTC midnight of the same calendar day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s Stay) Nights() int {
	return nightsBetween(s.CheckIn, s.CheckOut)
}

func (s Stay) Overlaps(other Stay) bool {
	return s.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(s.CheckOut)
}

// OverlapNights counts the nights shared by both stays.
func (s Stay) OverlapNights(other Stay) int {
	if !s.Overlaps(other) {
		return 0
	}

	start := s.CheckIn
	if other.CheckIn.After(start) {
		start = other.CheckIn
	}

	end := s.CheckOut
	if other.CheckOut.Before(end) {
		end = other.CheckOut
	}

	return nightsBetween(start, end)
}

func (s Stay) Contains(t time.Time) bool {
	d := Date(t)

	return !d.Before(s.CheckIn) && d.Before(s.CheckOut)
}

// EachNight calls fn with the date every night of the stay starts on.
func (s Stay) EachNight(fn func(night time.Time)) {
	for d := s.CheckIn; d.Before(s.CheckOut); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// WeekendNights counts the nights starting on a Friday or a Saturday.
func (s Stay) WeekendNights() int {
	var n int

	s.EachNight(func(night time.Time) {
		if wd := night.Weekday(); wd == time.Friday || wd == time.Saturday {
			n++
		}
	})

	return n
}

func (s Stay) String() string {
	return fmt.Sprintf("[%s, %s)", s.CheckIn.Format(DateLayout), s.CheckOut.Format(DateLayout))
}

func nightsBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}
