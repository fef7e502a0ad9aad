// Package geocode turns place names into coordinates for geopicker filters.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leandroluk/golem-admin/core"
	"golang.org/x/time/rate"
)

// ErrNoResult is returned when the place name matches nothing.
var ErrNoResult = fmt.Errorf("geocode: no result: %w", core.ErrPlaceNotFound)

// DefaultNominatimURL is the public Nominatim search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// Nominatim geocodes through the Nominatim search API.
type Nominatim struct {
	endpoint  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NominatimOption configures a Nominatim geocoder.
type NominatimOption func(*Nominatim)

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) NominatimOption {
	return func(n *Nominatim) { n.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) NominatimOption {
	return func(n *Nominatim) { n.client = client }
}

// WithRateLimit changes the request rate, one request per second by default.
func WithRateLimit(limit rate.Limit, burst int) NominatimOption {
	return func(n *Nominatim) { n.limiter = rate.NewLimiter(limit, burst) }
}

// NewNominatim creates a geocoder. Nominatim's usage policy requires an
// identifying user agent and at most one request per second.
func NewNominatim(userAgent string, options ...NominatimOption) *Nominatim {
	n := &Nominatim{
		endpoint:  DefaultNominatimURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, option := range options {
		option(n)
	}
	return n
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the coordinates of the best match for place. It waits for
// the rate limiter and fails when ctx ends first.
func (n *Nominatim) Geocode(ctx context.Context, place string) (longitude, latitude float64, err error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return 0, 0, fmt.Errorf("geocode: %w", err)
	}
	query := url.Values{}
	query.Set("q", place)
	query.Set("format", "json")
	query.Set("limit", "1")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: build request: %w", err)
	}
	request.Header.Set("User-Agent", n.userAgent)
	request.Header.Set("Accept", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocode: unexpected status %d", response.StatusCode)
	}

	var placeList []nominatimPlace
	if err := json.NewDecoder(response.Body).Decode(&placeList); err != nil {
		return 0, 0, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(placeList) == 0 {
		return 0, 0, fmt.Errorf("%w for %q", ErrNoResult, place)
	}
	latitude, err = strconv.ParseFloat(placeList[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: latitude %q: %w", placeList[0].Lat, err)
	}
	longitude, err = strconv.ParseFloat(placeList[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: longitude %q: %w", placeList[0].Lon, err)
	}
	return longitude, latitude, nil
}

// Point is a longitude/latitude pair.
type Point struct {
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
}

// Static geocodes from a fixed table. Lookups ignore case and surrounding spaces.
type Static struct {
	places map[string]Point
}

// NewStatic creates a Static geocoder over places.
func NewStatic(places map[string]Point) *Static {
	normalized := make(map[string]Point, len(places))
	for name, point := range places {
		normalized[normalize(name)] = point
	}
	return &Static{places: normalized}
}

// Geocode returns the coordinates registered for place.
func (s *Static) Geocode(_ context.Context, place string) (longitude, latitude float64, err error) {
	point, ok := s.places[normalize(place)]
	if !ok {
		return 0, 0, fmt.Errorf("%w for %q", ErrNoResult, place)
	}
	return point.Longitude, point.Latitude, nil
}

func normalize(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}
