package storage

import (
	"context"
	"testing"
	"time"

	"github.com/example/carpool-search/internal/models"
)

func TestMemoryStoreListScheduledFilters(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.SaveRide(ctx, &models.Ride{ID: "future", Status: models.RideScheduled, DepartureTime: now.Add(time.Hour)})
	_ = s.SaveRide(ctx, &models.Ride{ID: "past", Status: models.RideScheduled, DepartureTime: now.Add(-time.Hour)})
	_ = s.SaveRide(ctx, &models.Ride{ID: "done", Status: models.RideCompleted, DepartureTime: now.Add(time.Hour)})

	rides, err := s.ListScheduled(ctx, now, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != "future" {
		t.Fatalf("expected only the future scheduled ride, got %+v", rides)
	}
}

func TestMemoryStoreSaveBooking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.SaveRide(ctx, &models.Ride{ID: "r1", Status: models.RideScheduled, TotalSeats: 3})

	b := &models.Booking{ID: "b1", RideID: "r1", RiderID: "u1", Seats: 2, Status: models.BookingConfirmed}
	if err := s.SaveBooking(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := s.GetRide(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.AvailableSeats() != 1 {
		t.Fatalf("expected 1 available seat after booking, got %d", r.AvailableSeats())
	}

	if err := s.SaveBooking(ctx, &models.Booking{ID: "b2", RideID: "missing"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreGetRideDoesNotAliasBookings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.SaveRide(ctx, &models.Ride{ID: "r1", Status: models.RideScheduled, TotalSeats: 3})
	_ = s.SaveBooking(ctx, &models.Booking{ID: "b1", RideID: "r1", Seats: 1, Status: models.BookingConfirmed})

	got, err := s.GetRide(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Bookings[0].Status = models.BookingCancelled

	again, _ := s.GetRide(ctx, "r1")
	if again.Bookings[0].Status != models.BookingConfirmed {
		t.Fatalf("mutating a returned ride leaked into stored state: %s", again.Bookings[0].Status)
	}

	listed, _ := s.ListScheduled(ctx, time.Time{}, 10)
	listed[0].Bookings[0].Status = models.BookingCancelled
	again, _ = s.GetRide(ctx, "r1")
	if again.Bookings[0].Status != models.BookingConfirmed {
		t.Fatalf("mutating a listed ride leaked into stored state: %s", again.Bookings[0].Status)
	}
}

func TestMemoryStoreUpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.SaveRide(ctx, &models.Ride{ID: "r1", Status: models.RideScheduled, TotalSeats: 3})
	_ = s.SaveBooking(ctx, &models.Booking{ID: "b1", RideID: "r1", Seats: 1, Status: models.BookingConfirmed})

	if err := s.UpdateBookingStatus(ctx, "b1", models.BookingCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := s.GetRide(ctx, "r1")
	if r.Bookings[0].Status != models.BookingCompleted {
		t.Fatalf("expected completed booking, got %s", r.Bookings[0].Status)
	}

	if err := s.UpdateBookingStatus(ctx, "missing", models.BookingCancelled); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSetDriverArrived(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.SaveRide(ctx, &models.Ride{ID: "r1", Status: models.RideScheduled, DepartureTime: time.Now()})

	if err := s.SetDriverArrived(ctx, "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := s.GetRide(ctx, "r1")
	if !r.DriverArrived {
		t.Fatalf("expected driver-arrived flag set")
	}
	if r.Status != models.RideScheduled {
		t.Fatalf("arrival must not change status, got %s", r.Status)
	}

	if err := s.SetDriverArrived(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
