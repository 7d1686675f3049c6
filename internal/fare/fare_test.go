package fare

import (
	"testing"

	"github.com/example/carpool-search/internal/models"
)

func TestEstimateNilStats(t *testing.T) {
	if got := Estimate(nil, 1); got != 0 {
		t.Fatalf("expected 0 for nil stats, got %d", got)
	}
}

func TestEstimateMinimumFareFloor(t *testing.T) {
	got := Estimate(&models.RoutingStats{}, 1)
	if got != MinimumFare {
		t.Fatalf("expected minimum fare %d for zero route, got %d", MinimumFare, got)
	}
}

func TestEstimateLinearModel(t *testing.T) {
	// 10km, 20min: 500 + 1500 + 600 + 200 = 2800
	stats := &models.RoutingStats{DistanceMeters: 10000, DurationSeconds: 1200}
	if got := Estimate(stats, 1); got != 2800 {
		t.Fatalf("expected 2800, got %d", got)
	}
}

func TestEstimateRoundsToNearestHundred(t *testing.T) {
	// 5km, 10min: 500 + 750 + 300 + 200 = 1750 -> 1800
	stats := &models.RoutingStats{DistanceMeters: 5000, DurationSeconds: 600}
	if got := Estimate(stats, 1); got != 1800 {
		t.Fatalf("expected 1800, got %d", got)
	}
	// below the floor the minimum wins over rounding: 880 -> 1000, not 900
	short := &models.RoutingStats{DistanceMeters: 1000, DurationSeconds: 60}
	if got := Estimate(short, 1); got != MinimumFare {
		t.Fatalf("expected minimum fare %d, got %d", MinimumFare, got)
	}
}

func TestEstimateMultiplier(t *testing.T) {
	stats := &models.RoutingStats{DistanceMeters: 10000, DurationSeconds: 1200}
	if got := Estimate(stats, 1.5); got != 4200 {
		t.Fatalf("expected 4200 at 1.5x, got %d", got)
	}
}

func TestEstimateMonotonicInDistance(t *testing.T) {
	prev := int64(0)
	for m := 0.0; m <= 50000; m += 2500 {
		got := Estimate(&models.RoutingStats{DistanceMeters: m, DurationSeconds: 600}, 1)
		if got < prev {
			t.Fatalf("fare decreased with distance: %d after %d at %fm", got, prev, m)
		}
		prev = got
	}
}

func TestMultiplierFor(t *testing.T) {
	if MultiplierFor("xl") != 1.5 {
		t.Fatalf("expected 1.5 for xl")
	}
	if MultiplierFor("hoverboard") != 1.0 {
		t.Fatalf("unknown class should default to 1.0")
	}
}
