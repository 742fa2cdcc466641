// Package geocode resolves postal addresses to coordinates through the
// Nominatim search API. Lookups are best-effort: a service failure or
// an unmatched address yields a not-found result, never a run failure.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chintai_scraper/models"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

type Nominatim struct {
	baseURL   string
	client    *http.Client
	userAgent string
	limiter   *Limiter
}

// NewNominatim builds a client against the given endpoint. The limiter
// is shared with any other caller of the same service and is consulted
// before every request.
func NewNominatim(baseURL string, client *http.Client, userAgent string, limiter *Limiter) *Nominatim {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		userAgent: userAgent,
		limiter:   limiter,
	}
}

// Geocode resolves one address string. An empty address is not found
// without spending a request.
func (n *Nominatim) Geocode(ctx context.Context, query string) (models.GeoPoint, error) {
	if strings.TrimSpace(query) == "" {
		return models.GeoPoint{}, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return models.GeoPoint{}, err
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search", nil)
	if err != nil {
		return models.GeoPoint{}, err
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return models.GeoPoint{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GeoPoint{}, fmt.Errorf("geocode: status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.GeoPoint{}, err
	}
	if len(results) == 0 {
		return models.GeoPoint{}, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("geocode: bad latitude %q", results[0].Lat)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("geocode: bad longitude %q", results[0].Lon)
	}
	return models.GeoPoint{Lat: lat, Lng: lng, Found: true}, nil
}
