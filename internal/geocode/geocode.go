package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/carpool-search/internal/models"
)

// ErrNotFound is returned when the geocoding service has no result for a
// query. Callers degrade to a coordinate-free search rather than failing.
var ErrNotFound = errors.New("geocode: location not found")

// Client resolves free-text place names to coordinates and back. Best-effort;
// failures never abort a search.
type Client interface {
	Geocode(ctx context.Context, text string) (*models.Coordinates, error)
	ReverseGeocode(ctx context.Context, c models.Coordinates) (string, error)
}

// HTTPClient talks to a LocationIQ-compatible geocoding API.
type HTTPClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPClient{Endpoint: endpoint, APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Geocode(ctx context.Context, text string) (*models.Coordinates, error) {
	u := fmt.Sprintf("%s/v1/search?key=%s&q=%s&format=json", c.Endpoint, c.APIKey, url.QueryEscape(text))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode parse lon: %w", err)
	}
	return &models.Coordinates{Lat: lat, Lon: lon}, nil
}

func (c *HTTPClient) ReverseGeocode(ctx context.Context, coords models.Coordinates) (string, error) {
	u := fmt.Sprintf("%s/v1/reverse?key=%s&lat=%f&lon=%f&format=json", c.Endpoint, c.APIKey, coords.Lat, coords.Lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("reverse geocode decode: %w", err)
	}
	return payload.DisplayName, nil
}
