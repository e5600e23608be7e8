package interval

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustStay(t *testing.T, in, out time.Time) Stay {
	t.Helper()

	s, err := New(in, out)
	require.NoError(t, err)

	return s
}

func TestNew_RejectsEmptyAndNegativeStays(t *testing.T) {
	_, err := New(date(2025, 6, 10), date(2025, 6, 10))
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = New(date(2025, 6, 10), date(2025, 6, 9))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNew_NormalizesToCalendarDates(t *testing.T) {
	s := mustStay(t,
		time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC),
		time.Date(2025, 6, 12, 11, 0, 0, 0, time.UTC),
	)

	assert.Equal(t, date(2025, 6, 10), s.CheckIn)
	assert.Equal(t, date(2025, 6, 12), s.CheckOut)
	assert.Equal(t, 2, s.Nights())
}

func TestOverlaps_CheckoutIsExclusive(t *testing.T) {
	a := mustStay(t, date(2025, 6, 7), date(2025, 6, 10))
	b := mustStay(t, date(2025, 6, 10), date(2025, 6, 12))

	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
	assert.Equal(t, 0, a.OverlapNights(b))
}

func TestOverlaps(t *testing.T) {
	base := mustStay(t, date(2025, 6, 10), date(2025, 6, 15))

	tests := []struct {
		name   string
		other  Stay
		want   bool
		nights int
	}{
		{"inside", mustStay(t, date(2025, 6, 11), date(2025, 6, 12)), true, 1},
		{"covers", mustStay(t, date(2025, 6, 1), date(2025, 6, 30)), true, 5},
		{"starts before", mustStay(t, date(2025, 6, 8), date(2025, 6, 11)), true, 1},
		{"ends after", mustStay(t, date(2025, 6, 14), date(2025, 6, 20)), true, 1},
		{"identical", base, true, 5},
		{"before", mustStay(t, date(2025, 6, 1), date(2025, 6, 10)), false, 0},
		{"after", mustStay(t, date(2025, 6, 15), date(2025, 6, 16)), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
			assert.Equal(t, tt.nights, base.OverlapNights(tt.other))
		})
	}
}

func TestWeekendNights(t *testing.T) {
	// 2025-06-06 is a Friday.
	s := mustStay(t, date(2025, 6, 5), date(2025, 6, 9))
	assert.Equal(t, 2, s.WeekendNights())

	// Sunday night is not a weekend night.
	s = mustStay(t, date(2025, 6, 8), date(2025, 6, 9))
	assert.Equal(t, 0, s.WeekendNights())
}

func TestContains(t *testing.T) {
	s := mustStay(t, date(2025, 6, 10), date(2025, 6, 12))

	assert.True(t, s.Contains(time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)))
	assert.True(t, s.Contains(date(2025, 6, 11)))
	assert.False(t, s.Contains(date(2025, 6, 12)))
}

func TestParse(t *testing.T) {
	s, err := Parse("2025-06-10", "2025-06-13")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Nights())
	assert.Equal(t, "[2025-06-10, 2025-06-13)", s.String())

	_, err = Parse("10/06/2025", "2025-06-13")
	assert.ErrorIs(t, err, ErrInvalid)
}
