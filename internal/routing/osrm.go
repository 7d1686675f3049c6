package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/carpool-search/internal/models"
)

// Client is the routing collaborator interface used by search and booking.
// Implementations are best-effort: callers treat any error as "no route".
type Client interface {
	Route(ctx context.Context, from, to models.Coordinates) (*models.RoutingStats, error)
}

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string, timeout time.Duration) *OSRMClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// Route queries OSRM /route between points and returns road distance and
// duration.
func (o *OSRMClient) Route(ctx context.Context, from, to models.Coordinates) (*models.RoutingStats, error) {
	// OSRM route query: /route/v1/driving/{lon1},{lat1};{lon2},{lat2}?overview=false
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false",
		o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("osrm no route: %v", out.Code)
	}
	return &models.RoutingStats{
		DistanceMeters:  out.Routes[0].Distance,
		DurationSeconds: out.Routes[0].Duration,
	}, nil
}
