package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate(t *testing.T) {
	now := time.Date(2025, time.March, 20, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"today", "2025-03-20"},
		{" NOW ", "2025-03-20"},
		{"tomorrow", "2025-03-21"},
		{"sometime next week", "2025-03-27"},
		{"next month", "2025-04-19"},
		{"2025-01-02", "2025-01-02"},
		{"21", "2025-03-21"},
		{"21st", "2025-03-21"},
		{"the 20th", "2025-03-20"},
		{"15", "2025-04-15"},
		{"March 25", "2025-03-25"},
		{"15 march", "2026-03-15"},
		{"Jan 3rd", "2026-01-03"},
		{"sept 9", "2025-09-09"},
		{"December 31", "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFlexibleDate(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}
}

func TestParseFlexibleDate_RollsIntoNextYear(t *testing.T) {
	now := time.Date(2025, time.December, 28, 9, 0, 0, 0, time.UTC)
	got, err := ParseFlexibleDate("5th", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", got.Format(DateLayout))
}

func TestParseFlexibleDate_Errors(t *testing.T) {
	now := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	_, err := ParseFlexibleDate("whenever works", now)
	require.Error(t, err)
	assert.Equal(t, "Could not parse date: 'whenever works'. Use format like '21', 'March 15', or '2025-03-15'", err.Error())

	_, err = ParseFlexibleDate("February 30", now)
	require.Error(t, err)
	assert.Equal(t, "Invalid date: day 30 doesn't exist in month 2", err.Error())

	_, err = ParseFlexibleDate("0", now)
	assert.Error(t, err)

	_, err = ParseFlexibleDate("2025-13-01", now)
	assert.Error(t, err)
}
