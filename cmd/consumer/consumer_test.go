package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/carpool-search/internal/models"
)

// fakeIndexer implements RideIndexer for tests
type fakeIndexer struct {
	failUpserts int // number of times to fail UpsertRide before succeeding
	failRemoves int // number of times to fail RemoveRide before succeeding
	upserts     int
	removes     int
}

func (f *fakeIndexer) UpsertRide(ctx context.Context, r *models.Ride) error {
	f.upserts++
	if f.upserts <= f.failUpserts {
		return errors.New("upsert fail")
	}
	return nil
}

func (f *fakeIndexer) RemoveRide(ctx context.Context, id string) error {
	f.removes++
	if f.removes <= f.failRemoves {
		return errors.New("remove fail")
	}
	return nil
}

func scheduledRide() *models.Ride {
	return &models.Ride{
		ID:            "r1",
		Origin:        &models.Coordinates{Lat: 1, Lon: 2},
		DepartureTime: time.Now().Add(time.Hour),
		Status:        models.RideScheduled,
	}
}

func TestUpdateIndexWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeIndexer{failUpserts: 1}
	ctx := context.Background()
	start := time.Now()
	if err := updateIndexWithRetry(ctx, f, scheduledRide(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.upserts < 2 {
		t.Fatalf("expected retries, got upserts=%d", f.upserts)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
}

func TestUpdateIndexWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeIndexer{failUpserts: 5}
	ctx := context.Background()
	if err := updateIndexWithRetry(ctx, f, scheduledRide(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}

func TestUpdateIndexWithRetry_RemovesCancelledRide(t *testing.T) {
	f := &fakeIndexer{}
	ride := scheduledRide()
	ride.Status = models.RideCancelled
	if err := updateIndexWithRetry(context.Background(), f, ride, 3, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.removes != 1 || f.upserts != 0 {
		t.Fatalf("expected a remove, got upserts=%d removes=%d", f.upserts, f.removes)
	}
}
