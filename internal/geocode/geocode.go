// Package geocode is the client for the address-geocoding collaborator
// (Google's Geocoding API) and the Places autocomplete proxy.
//
// Both are treated as opaque, rate-limited dependencies: a transport
// failure, a non-200 status, or an empty result set surfaces as a generic
// upstream error and is never retried here — the caller re-issues the
// request if it wants to.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/samtm/motomeet/internal/apperror"
)

const (
	defaultGeocodeURL      = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultAutocompleteURL = "https://places.googleapis.com/v1/places:autocomplete"
)

// Client talks to the Google geocoding and autocomplete endpoints.
type Client struct {
	apiKey     string
	httpClient *http.Client

	// Overridable in tests to point at an httptest server.
	geocodeURL      string
	autocompleteURL string
}

// New creates a Client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		geocodeURL:      defaultGeocodeURL,
		autocompleteURL: defaultAutocompleteURL,
	}
}

// NewWithURLs creates a Client pointed at custom endpoints. Used in tests.
func NewWithURLs(apiKey, geocodeURL, autocompleteURL string) *Client {
	c := New(apiKey)
	c.geocodeURL = geocodeURL
	c.autocompleteURL = autocompleteURL
	return c
}

// geocodeResponse mirrors the slice of the Geocoding API response we need.
type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a free-text address to coordinates.
//
// An unresolvable address (zero results) is an upstream error, same as a
// transport failure — callers only need to know the collaborator produced
// nothing usable.
func (c *Client) Geocode(ctx context.Context, address string) (lat, lng float64, err error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, apperror.Upstream("geocoding service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, apperror.Upstream("geocoding service error")
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, 0, apperror.Upstream("geocoding service returned malformed data")
	}

	if len(decoded.Results) == 0 {
		return 0, 0, apperror.Upstream("address could not be resolved")
	}

	loc := decoded.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

// Autocomplete proxies a Places autocomplete request. The request body is
// passed through untouched and the upstream response body is returned
// verbatim — the API key and field mask are attached server-side so the key
// never reaches the browser.
func (c *Client) Autocomplete(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.autocompleteURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("geocode: building autocomplete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "suggestions.placePrediction.text")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("autocomplete service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Upstream("autocomplete service error")
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Upstream("autocomplete service returned malformed data")
	}

	return out, nil
}
