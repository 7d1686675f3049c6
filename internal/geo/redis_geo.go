package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/carpool-search/internal/models"
)

// RideIndex is a Redis-backed geo index over scheduled ride origins. The
// ride-update consumer keeps it current; the search service uses it as a
// cheap radius prefilter before scoring.
type RideIndex struct {
	client *redis.Client
	key    string
}

func NewRideIndex(addr, password, key string) *RideIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RideIndex{client: c, key: key}
}

// NewRideIndexWithClient wires an existing client, mainly for tests.
func NewRideIndexWithClient(c *redis.Client, key string) *RideIndex {
	return &RideIndex{client: c, key: key}
}

func (x *RideIndex) UpsertRide(ctx context.Context, r *models.Ride) error {
	if r.Origin == nil {
		return nil
	}
	if _, err := x.client.GeoAdd(ctx, x.key, &redis.GeoLocation{
		Longitude: r.Origin.Lon,
		Latitude:  r.Origin.Lat,
		Name:      r.ID,
	}).Result(); err != nil {
		return err
	}
	return x.client.HSet(ctx, metaKey(r.ID), map[string]interface{}{
		"status":     string(r.Status),
		"departure":  r.DepartureTime.Format(time.RFC3339),
		"seats":      strconv.Itoa(r.TotalSeats),
		"driver_id":  r.Driver.ID,
		"updated_at": time.Now().Format(time.RFC3339),
	}).Err()
}

func (x *RideIndex) RemoveRide(ctx context.Context, id string) error {
	if err := x.client.ZRem(ctx, x.key, id).Err(); err != nil {
		return err
	}
	return x.client.Del(ctx, metaKey(id)).Err()
}

// NearbyRideIDs returns ids of rides whose origin is within radiusKm of c,
// closest first.
func (x *RideIndex) NearbyRideIDs(ctx context.Context, c models.Coordinates, radiusKm float64, limit int) ([]string, error) {
	res, err := x.client.GeoRadius(ctx, x.key, c.Lon, c.Lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Count:  limit,
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res))
	for _, g := range res {
		ids = append(ids, g.Name)
	}
	return ids, nil
}

func (x *RideIndex) Ping(ctx context.Context) error { return x.client.Ping(ctx).Err() }

func (x *RideIndex) Close() error { return x.client.Close() }

func metaKey(id string) string { return "ride:meta:" + id }
