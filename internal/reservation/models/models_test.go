package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }
	reservation := func(start, end int) *Reservation {
		return &Reservation{RentAt: at(start), ReturnAt: at(end)}
	}

	cases := []struct {
		name     string
		existing *Reservation
		rs, re   int
		want     bool
	}{
		{"identical interval", reservation(0, 60), 0, 60, true},
		{"existing fully contained", reservation(10, 50), 0, 60, true},
		{"existing contains request", reservation(0, 60), 10, 50, true},
		{"collides with request start", reservation(-30, 10), 0, 60, true},
		{"collides with request end", reservation(50, 90), 0, 60, true},
		{"touching before", reservation(-60, 0), 0, 60, false},
		{"touching after", reservation(60, 120), 0, 60, false},
		{"fully before", reservation(-120, -60), 0, 60, false},
		{"fully after", reservation(120, 180), 0, 60, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.existing.Overlaps(at(tc.rs), at(tc.re)))
		})
	}
}

func TestDuration(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	r := &Reservation{RentAt: start, ReturnAt: start.Add(90 * time.Minute)}
	require.Equal(t, 90*time.Minute, r.Duration())
}

func TestCommitted(t *testing.T) {
	r := &Reservation{}
	require.False(t, r.Committed())
}
