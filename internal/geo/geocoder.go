// Package geo resolves street addresses to coordinates through the
// Google geocoding JSON API.  Geocoding is best effort: order
// generation falls back to zero coordinates when it fails.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrGeocodeFailed is returned when the geocoding service yields no
// usable result.  Callers treat it as non-fatal.
var ErrGeocodeFailed = errors.New("geocode failed")

const baseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client calls the Google geocoding API with a bounded timeout.
type Client struct {
	apiKey string
	http   *http.Client
}

// NewClient builds a geocoding client.  An empty key is allowed; every
// Resolve call will then fail with ErrGeocodeFailed and callers degrade
// to unresolved coordinates.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns the coordinates of "address, town, state".
func (c *Client) Resolve(ctx context.Context, address, town, state string) (float64, float64, error) {
	if c.apiKey == "" {
		return 0, 0, fmt.Errorf("%w: no API key configured", ErrGeocodeFailed)
	}

	q := url.Values{}
	q.Set("address", fmt.Sprintf("%s, %s, %s", address, town, state))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("%w: unexpected HTTP %d", ErrGeocodeFailed, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return 0, 0, fmt.Errorf("%w: status %q", ErrGeocodeFailed, body.Status)
	}

	loc := body.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
