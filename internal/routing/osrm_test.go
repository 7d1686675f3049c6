package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/carpool-search/internal/models"
)

func TestOSRMClientRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":3200,"duration":540}]}`))
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL, time.Second)
	stats, err := c.Route(context.Background(), models.Coordinates{Lat: 1, Lon: 2}, models.Coordinates{Lat: 3, Lon: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DistanceMeters != 3200 || stats.DurationSeconds != 540 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestOSRMClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL, time.Second)
	if _, err := c.Route(context.Background(), models.Coordinates{}, models.Coordinates{}); err == nil {
		t.Fatalf("expected error for NoRoute response")
	}
}

type countingClient struct {
	calls int
	stats *models.RoutingStats
	err   error
}

func (c *countingClient) Route(ctx context.Context, from, to models.Coordinates) (*models.RoutingStats, error) {
	c.calls++
	return c.stats, c.err
}

func TestCachingClientHitsCache(t *testing.T) {
	inner := &countingClient{stats: &models.RoutingStats{DistanceMeters: 1000, DurationSeconds: 120}}
	c := NewCachingClient(inner, time.Minute)
	a := models.Coordinates{Lat: 1, Lon: 1}
	b := models.Coordinates{Lat: 2, Lon: 2}

	for i := 0; i < 3; i++ {
		if _, err := c.Route(context.Background(), a, b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", inner.calls)
	}
}

func TestCachingClientDoesNotCacheErrors(t *testing.T) {
	inner := &countingClient{err: errors.New("down")}
	c := NewCachingClient(inner, time.Minute)
	a := models.Coordinates{Lat: 1, Lon: 1}
	b := models.Coordinates{Lat: 2, Lon: 2}

	for i := 0; i < 2; i++ {
		if _, err := c.Route(context.Background(), a, b); err == nil {
			t.Fatalf("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", inner.calls)
	}
}
