package models

import "testing"

func TestAvailableSeatsCountsConfirmedOnly(t *testing.T) {
	r := &Ride{
		TotalSeats: 4,
		Bookings: []Booking{
			{Seats: 2, Status: BookingConfirmed},
			{Seats: 1, Status: BookingPending},
			{Seats: 1, Status: BookingCancelled},
		},
	}
	if got := r.AvailableSeats(); got != 2 {
		t.Fatalf("expected 2 available seats, got %d", got)
	}
}

func TestAvailableSeatsFloorsAtZero(t *testing.T) {
	r := &Ride{
		TotalSeats: 2,
		Bookings: []Booking{
			{Seats: 2, Status: BookingConfirmed},
			{Seats: 1, Status: BookingConfirmed},
		},
	}
	if got := r.AvailableSeats(); got != 0 {
		t.Fatalf("expected 0 available seats, got %d", got)
	}
}
