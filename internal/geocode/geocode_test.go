package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/carpool-search/internal/models"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"lat":"41.0082","lon":"28.9784"}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", time.Second)
	coords, err := c.Geocode(context.Background(), "Taksim Square")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coords.Lat != 41.0082 || coords.Lon != 28.9784 {
		t.Fatalf("unexpected coords: %+v", coords)
	}
}

func TestGeocodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", time.Second)
	_, err := c.Geocode(context.Background(), "nowhere at all")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/reverse" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"display_name":"Taksim, Istanbul"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", time.Second)
	name, err := c.ReverseGeocode(context.Background(), models.Coordinates{Lat: 41, Lon: 29})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Taksim, Istanbul" {
		t.Fatalf("unexpected name %q", name)
	}
}
