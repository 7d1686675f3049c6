package geo

import (
	"math"
	"time"

	"github.com/example/carpool-search/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between two
// coordinates in kilometers. Symmetric, zero for identical points.
func DistanceKm(a, b models.Coordinates) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// MinutesBetween returns the absolute difference between two instants in
// minutes.
func MinutesBetween(a, b time.Time) float64 {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d.Minutes()
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
