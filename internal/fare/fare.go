package fare

import (
	"math"

	"github.com/example/carpool-search/internal/models"
)

// Linear cost model in minor currency units.
const (
	BaseFare      = 500.0
	CostPerKm     = 150.0
	CostPerMinute = 30.0
	BookingFee    = 200.0
	MinimumFare   = 1000
)

// Vehicle-class multipliers applied on top of the base model.
var classMultipliers = map[string]float64{
	"economy": 1.0,
	"comfort": 1.2,
	"xl":      1.5,
}

// MultiplierFor returns the fare multiplier for a vehicle class, defaulting
// to economy for unknown classes.
func MultiplierFor(class string) float64 {
	if m, ok := classMultipliers[class]; ok {
		return m
	}
	return 1.0
}

// Estimate computes a fare from real routing stats. Returns 0 when stats are
// unavailable. The result is rounded to the nearest 100 and floored at the
// minimum fare, so it is monotonically non-decreasing in distance and
// duration for a fixed multiplier.
func Estimate(stats *models.RoutingStats, multiplier float64) int64 {
	if stats == nil {
		return 0
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	distanceKm := stats.DistanceMeters / 1000
	durationMin := stats.DurationSeconds / 60

	total := BaseFare + distanceKm*CostPerKm + durationMin*CostPerMinute + BookingFee
	total *= multiplier

	rounded := int64(math.Round(total/100) * 100)
	if rounded < MinimumFare {
		return MinimumFare
	}
	return rounded
}
