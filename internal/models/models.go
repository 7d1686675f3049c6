package models

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type RideStatus string

const (
	RideScheduled RideStatus = "scheduled"
	RideActive    RideStatus = "active"
	RideCompleted RideStatus = "completed"
	RideCancelled RideStatus = "cancelled"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type Driver struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Verified bool    `json:"verified"`
	Rating   float64 `json:"rating"` // 0..5
}

type Booking struct {
	ID          string        `json:"id"`
	RideID      string        `json:"ride_id"`
	RiderID     string        `json:"rider_id"`
	Seats       int           `json:"seats"`
	Status      BookingStatus `json:"status"`
	AmountMinor int64         `json:"amount_minor"`
	PaymentRef  string        `json:"payment_ref,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Ride is a scheduled, bookable ride posted by a driver.
type Ride struct {
	ID               string       `json:"id"`
	Driver           Driver       `json:"driver"`
	OriginLabel      string       `json:"origin_label"`
	DestinationLabel string       `json:"destination_label"`
	Origin           *Coordinates `json:"origin,omitempty"`
	Destination      *Coordinates `json:"destination,omitempty"`
	DepartureTime    time.Time    `json:"departure_time"`
	TotalSeats       int          `json:"total_seats"`
	PricePerSeat     int64        `json:"price_per_seat"`
	Status           RideStatus   `json:"status"`
	DriverArrived    bool         `json:"driver_arrived"`
	Bookings         []Booking    `json:"bookings,omitempty"`
}

// AvailableSeats derives the bookable seat count. Only confirmed bookings
// consume seats; pending and completed ones count toward revenue, not capacity.
func (r *Ride) AvailableSeats() int {
	booked := 0
	for _, b := range r.Bookings {
		if b.Status == BookingConfirmed {
			booked += b.Seats
		}
	}
	avail := r.TotalSeats - booked
	if avail < 0 {
		return 0
	}
	return avail
}

type MatchTier string

const (
	TierPerfect   MatchTier = "PERFECT"
	TierExcellent MatchTier = "EXCELLENT"
	TierGood      MatchTier = "GOOD"
	TierRegional  MatchTier = "REGIONAL"
	TierNone      MatchTier = "NONE"
)

// MatchAnalysis is recomputed per ride per search and never persisted.
type MatchAnalysis struct {
	Tier              MatchTier `json:"tier"`
	Score             float64   `json:"score"`
	PickupDistanceKm  float64   `json:"pickup_distance_km"`
	DropoffDistanceKm float64   `json:"dropoff_distance_km"`
	TimeDifferenceMin float64   `json:"time_difference_min"`
	IsPast            bool      `json:"is_past"`
	Reason            string    `json:"reason"`
}

// RoutingStats is a road-network distance/duration pair from the routing
// collaborator.
type RoutingStats struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type SearchQuery struct {
	RiderID        string       `json:"rider_id"`
	PickupText     string       `json:"pickup_text"`
	DropoffText    string       `json:"dropoff_text"`
	PickupCoords   *Coordinates `json:"pickup_coords,omitempty"`
	DropoffCoords  *Coordinates `json:"dropoff_coords,omitempty"`
	DesiredTime    *time.Time   `json:"desired_time,omitempty"`
	PassengerCount int          `json:"passenger_count"`
}

// SearchResult decorates a ride with its analysis. The real-driving fields
// stay nil until Phase 2 refinement resolves for that ride.
type SearchResult struct {
	Ride                  Ride          `json:"ride"`
	Match                 MatchAnalysis `json:"match"`
	AvailableSeats        int           `json:"available_seats"`
	RealDrivingTimeMin    *int          `json:"real_driving_time_min,omitempty"`
	RealDrivingDistanceKm *float64      `json:"real_driving_distance_km,omitempty"`
}
