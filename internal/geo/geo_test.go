package geo

import (
	"math"
	"testing"
	"time"

	"github.com/example/carpool-search/internal/models"
)

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	p := models.Coordinates{Lat: 41.01, Lon: 28.98}
	if d := DistanceKm(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := models.Coordinates{Lat: 41.0082, Lon: 28.9784}
	b := models.Coordinates{Lat: 39.9334, Lon: 32.8597}
	if DistanceKm(a, b) != DistanceKm(b, a) {
		t.Fatalf("distance not symmetric")
	}
}

func TestDistanceKmOneDegreeLatitude(t *testing.T) {
	a := models.Coordinates{Lat: 0, Lon: 0}
	b := models.Coordinates{Lat: 1, Lon: 0}
	d := DistanceKm(a, b)
	// one degree of latitude is ~111.2 km
	if math.Abs(d-111.2) > 1 {
		t.Fatalf("expected ~111.2km, got %f", d)
	}
}

func TestMinutesBetween(t *testing.T) {
	a := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := a.Add(90 * time.Second)
	if m := MinutesBetween(a, b); m != 1.5 {
		t.Fatalf("expected 1.5, got %f", m)
	}
	if MinutesBetween(a, b) != MinutesBetween(b, a) {
		t.Fatalf("not symmetric")
	}
	if MinutesBetween(a, a) != 0 {
		t.Fatalf("expected 0 for equal instants")
	}
}
