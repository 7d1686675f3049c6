package match

import (
	"testing"
	"time"

	"github.com/example/carpool-search/internal/models"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// coordAtKm returns a point roughly km kilometers north of base.
func coordAtKm(base models.Coordinates, km float64) *models.Coordinates {
	return &models.Coordinates{Lat: base.Lat + km/111.2, Lon: base.Lon}
}

func scheduledRide(origin *models.Coordinates, departure time.Time) *models.Ride {
	return &models.Ride{
		ID:            "r1",
		Origin:        origin,
		DepartureTime: departure,
		TotalSeats:    3,
		PricePerSeat:  6000,
		Status:        models.RideScheduled,
	}
}

func TestAnalyzePastRide(t *testing.T) {
	pickup := &models.Coordinates{Lat: 41, Lon: 29}
	ride := scheduledRide(pickup, now.Add(-20*time.Minute))
	a := Analyze(ride, pickup, nil, nil, now)
	if a.Tier != models.TierNone || !a.IsPast {
		t.Fatalf("expected NONE/past, got tier=%s past=%v", a.Tier, a.IsPast)
	}
	if a.Score != 0 {
		t.Fatalf("expected score 0, got %f", a.Score)
	}
	if a.Reason != "Ride already departed" {
		t.Fatalf("unexpected reason %q", a.Reason)
	}
}

func TestAnalyzeGraceWindowKeepsRecentDeparture(t *testing.T) {
	pickup := &models.Coordinates{Lat: 41, Lon: 29}
	ride := scheduledRide(pickup, now.Add(-10*time.Minute))
	a := Analyze(ride, pickup, nil, nil, now)
	if a.IsPast {
		t.Fatalf("ride within grace window should not be past")
	}
}

func TestAnalyzeDistanceGate(t *testing.T) {
	pickup := models.Coordinates{Lat: 41, Lon: 29}
	ride := scheduledRide(coordAtKm(pickup, 25), now.Add(5*time.Minute))
	ride.PricePerSeat = 100 // favorable price must not rescue it
	a := Analyze(ride, &pickup, nil, nil, now)
	if a.Tier != models.TierNone {
		t.Fatalf("expected NONE beyond gate, got %s", a.Tier)
	}
	if a.Reason != "Too far away" {
		t.Fatalf("unexpected reason %q", a.Reason)
	}
}

func TestAnalyzePerfect(t *testing.T) {
	pickup := models.Coordinates{Lat: 41, Lon: 29}
	ride := scheduledRide(coordAtKm(pickup, 0.5), now.Add(10*time.Minute))
	a := Analyze(ride, &pickup, nil, nil, now)
	if a.Tier != models.TierPerfect {
		t.Fatalf("expected PERFECT, got %s", a.Tier)
	}
	if a.Score <= 90 {
		t.Fatalf("expected score > 90, got %f", a.Score)
	}
	if a.Reason != "Exact Match" {
		t.Fatalf("unexpected reason %q", a.Reason)
	}
}

func TestAnalyzeTierMonotonicInPickupDistance(t *testing.T) {
	pickup := models.Coordinates{Lat: 41, Lon: 29}
	rank := map[models.MatchTier]int{
		models.TierPerfect:   4,
		models.TierExcellent: 3,
		models.TierGood:      2,
		models.TierRegional:  1,
		models.TierNone:      0,
	}
	prev := 5
	for _, km := range []float64{0.2, 2, 4, 10, 25} {
		ride := scheduledRide(coordAtKm(pickup, km), now.Add(10*time.Minute))
		a := Analyze(ride, &pickup, nil, nil, now)
		if rank[a.Tier] > prev {
			t.Fatalf("tier improved as pickup distance grew: %s at %fkm", a.Tier, km)
		}
		prev = rank[a.Tier]
	}
}

func TestAnalyzeMissingCoordinatesDegrades(t *testing.T) {
	ride := scheduledRide(nil, now.Add(10*time.Minute))
	a := Analyze(ride, &models.Coordinates{Lat: 41, Lon: 29}, nil, nil, now)
	if a.Tier != models.TierRegional {
		t.Fatalf("expected REGIONAL for unknown distance, got %s", a.Tier)
	}
	if a.PickupDistanceKm != UnknownDistanceKm {
		t.Fatalf("expected sentinel distance, got %f", a.PickupDistanceKm)
	}
}

func TestAnalyzeDesiredTimeOverridesNow(t *testing.T) {
	pickup := models.Coordinates{Lat: 41, Lon: 29}
	ride := scheduledRide(coordAtKm(pickup, 0.3), now.Add(3*time.Hour))
	desired := now.Add(3 * time.Hour)
	a := Analyze(ride, &pickup, nil, &desired, now)
	if a.Tier != models.TierPerfect {
		t.Fatalf("expected PERFECT when desired time matches departure, got %s", a.Tier)
	}
	if a.TimeDifferenceMin != 0 {
		t.Fatalf("expected zero time difference, got %f", a.TimeDifferenceMin)
	}
}

func TestAnalyzeBonuses(t *testing.T) {
	pickup := models.Coordinates{Lat: 41, Lon: 29}
	base := scheduledRide(coordAtKm(pickup, 0.5), now.Add(10*time.Minute))
	boosted := scheduledRide(coordAtKm(pickup, 0.5), now.Add(10*time.Minute))
	boosted.Driver.Verified = true
	boosted.PricePerSeat = 4000

	a := Analyze(base, &pickup, nil, nil, now)
	b := Analyze(boosted, &pickup, nil, nil, now)
	if b.Score <= a.Score {
		t.Fatalf("expected verified+affordable to score higher: %f vs %f", b.Score, a.Score)
	}
}
