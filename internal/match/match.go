package match

import (
	"time"

	"github.com/example/carpool-search/internal/geo"
	"github.com/example/carpool-search/internal/models"
)

const (
	// GraceWindow tolerates rides that departed slightly late.
	GraceWindow = 15 * time.Minute

	// PickupGateKm is the hard cutoff: a ride whose pickup is farther than
	// this is never shown, regardless of other factors.
	PickupGateKm = 20.0

	// UnknownDistanceKm stands in when either side of a leg has no
	// coordinates. Large enough that no distance bucket can match.
	UnknownDistanceKm = 9999.0

	regionalPenalty = 15.0

	pickupWeight  = 8.0
	dropoffWeight = 3.0
	timeDivisor   = 5.0

	verifiedBonus       = 5.0
	affordableBonus     = 2.0
	affordableThreshold = 5000
)

// Analyze scores one ride against a rider's pickup/dropoff coordinates and
// desired departure time. Pure function of its inputs; missing coordinates
// degrade to an unknown-distance sentinel rather than failing, so every
// input combination yields a valid analysis.
func Analyze(ride *models.Ride, pickup, dropoff *models.Coordinates, desiredTime *time.Time, now time.Time) models.MatchAnalysis {
	if ride.DepartureTime.Before(now.Add(-GraceWindow)) {
		return models.MatchAnalysis{
			Tier:   models.TierNone,
			IsPast: true,
			Reason: "Ride already departed",
		}
	}

	pickupKm := UnknownDistanceKm
	pickupKnown := false
	if pickup != nil && ride.Origin != nil {
		pickupKm = geo.DistanceKm(*pickup, *ride.Origin)
		pickupKnown = true
	}
	dropoffKm := UnknownDistanceKm
	dropoffKnown := false
	if dropoff != nil && ride.Destination != nil {
		dropoffKm = geo.DistanceKm(*dropoff, *ride.Destination)
		dropoffKnown = true
	}

	ref := now
	if desiredTime != nil {
		ref = *desiredTime
	}
	timeDiff := geo.MinutesBetween(ride.DepartureTime, ref)

	// The gate only applies when we actually know the pickup distance: a
	// search with no usable coordinates still returns regional results.
	if pickupKnown && pickupKm > PickupGateKm {
		return models.MatchAnalysis{
			Tier:              models.TierNone,
			PickupDistanceKm:  pickupKm,
			DropoffDistanceKm: dropoffKm,
			TimeDifferenceMin: timeDiff,
			Reason:            "Too far away",
		}
	}

	// Only known legs feed the score: weighting the unknown-distance
	// sentinel would flatten every degraded search to zero and make the
	// ranking meaningless. The sentinel still keeps unknown legs out of the
	// distance-bucketed tiers.
	score := 100.0
	if pickupKnown {
		score -= pickupKm * pickupWeight
	}
	if dropoffKnown {
		score -= dropoffKm * dropoffWeight
	}
	score -= timeDiff / timeDivisor
	if ride.Driver.Verified {
		score += verifiedBonus
	}
	if ride.PricePerSeat < affordableThreshold {
		score += affordableBonus
	}

	var tier models.MatchTier
	var reason string
	switch {
	case pickupKm < 1 && timeDiff < 30:
		tier, reason = models.TierPerfect, "Exact Match"
	case pickupKm < 3 && timeDiff < 60:
		tier, reason = models.TierExcellent, "Great Option"
	case pickupKm < 5:
		tier, reason = models.TierGood, "Nearby Pickup"
	default:
		tier, reason = models.TierRegional, "In your area"
		score -= regionalPenalty
	}

	return models.MatchAnalysis{
		Tier:              tier,
		Score:             clamp(score, 0, 100),
		PickupDistanceKm:  pickupKm,
		DropoffDistanceKm: dropoffKm,
		TimeDifferenceMin: timeDiff,
		Reason:            reason,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
