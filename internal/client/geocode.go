package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/breatheasy/aqi-service/internal/models"
)

// ErrCityNotFound is returned when the geocoding provider has no match.
var ErrCityNotFound = errors.New("city not found")

// GeocodingClient resolves city names to coordinates via the Open-Meteo
// geocoding API.
type GeocodingClient struct {
	baseURL string
	client  *http.Client
}

// NewGeocodingClient creates a geocoding client for the given base URL.
func NewGeocodingClient(baseURL string, timeout time.Duration) *GeocodingClient {
	return &GeocodingClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type geocodeResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Country     string  `json:"country"`
		CountryCode string  `json:"country_code"`
		Admin1      string  `json:"admin1"`
	} `json:"results"`
}

// SearchCity looks up a city by name and returns up to count matches.
func (c *GeocodingClient) SearchCity(ctx context.Context, name string, count int) ([]models.Place, error) {
	if count <= 0 {
		count = 5
	}
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", strconv.Itoa(count))
	params.Set("language", "en")
	params.Set("format", "json")

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid geocoding URL: %w", err)
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	var parsed geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(parsed.Results) == 0 {
		return nil, ErrCityNotFound
	}

	places := make([]models.Place, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		places = append(places, models.Place{
			Name:        r.Name,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Country:     r.Country,
			CountryCode: r.CountryCode,
			Admin1:      r.Admin1,
		})
	}
	return places, nil
}
